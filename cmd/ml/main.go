package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"maintline/internal/app"
	"maintline/internal/config"
	"maintline/internal/domain"
	"maintline/internal/engine"
	"maintline/internal/identity"
	"maintline/internal/logging"
	"maintline/internal/repo"
)

var rootCmd = &cobra.Command{
	Use:   "ml",
	Short: "Maintline CLI",
	Long: `Maintline tracks maintenance work orders for physical assets.
- Roles: Admin manages users and assets; Manager creates, assigns and deletes work orders; Technician works on orders assigned to them.
- Work orders move Pending -> In Progress -> Completed. Every change is recorded in an append-only history.
- Workspace: maintline.yml plus the .maintline directory holding the database.
- Local commands act as the user named by --actor-id (or MAINTLINE_ACTOR_ID); ml serve authenticates callers with tokens or API keys.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func initConfig() {
	viper.SetEnvPrefix("MAINTLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "", "user id the command acts as")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console or json)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(assetCmd())
	rootCmd.AddCommand(workOrderCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(workerCmd())
}

func initCmd() *cobra.Command {
	var force bool
	var reg identity.Registration
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create maintline.yml and the database, optionally with the first admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil && !force {
				fmt.Printf("Keeping existing %s (use --force to overwrite)\n", path)
			} else {
				if err := os.MkdirAll(workspace, 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", path)
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				if reg.Email == "" {
					return nil
				}
				if reg.Password == "" {
					reg.Password = viper.GetString("admin-password")
				}
				u, err := rt.Engine.BootstrapAdmin(ctx, reg)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(u)
				}
				fmt.Printf("Created admin %s (%s); pass --actor-id %s to act as them\n", u.Email, u.ID, u.ID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing maintline.yml")
	cmd.Flags().StringVar(&reg.Name, "admin-name", "Administrator", "first admin name")
	cmd.Flags().StringVar(&reg.Email, "admin-email", "", "first admin email; skipped when empty")
	cmd.Flags().StringVar(&reg.Password, "admin-password", "", "first admin password (or MAINTLINE_ADMIN_PASSWORD)")
	return cmd
}

func configCmd() *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Inspect maintline.yml"}
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	})
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate maintline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(viper.GetString("workspace")); err != nil {
				return err
			}
			fmt.Println("config ok")
			return nil
		},
	})
	return cfgCmd
}

func newLogger() (*zap.Logger, error) {
	return logging.New(viper.GetString("log-format"), viper.GetString("log-level"))
}

func withRuntime(ctx context.Context, fn func(context.Context, *app.Runtime) error) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	rt, err := app.Open(ctx, app.Options{Workspace: viper.GetString("workspace"), Logger: log})
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

// withActor resolves --actor-id to a stored user so local commands pass the
// same policy checks as API callers.
func withActor(ctx context.Context, fn func(context.Context, engine.Engine, domain.Actor) error) error {
	return withRuntime(ctx, func(ctx context.Context, rt *app.Runtime) error {
		id := strings.TrimSpace(viper.GetString("actor-id"))
		if id == "" {
			return errors.New("--actor-id (or MAINTLINE_ACTOR_ID) required")
		}
		u, err := rt.Engine.Repo.GetUser(ctx, nil, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return fmt.Errorf("unknown actor %s; create users with ml user create or ml init --admin-email", id)
			}
			return err
		}
		return fn(ctx, rt.Engine, u.Actor())
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return 2
	case errors.Is(err, domain.ErrForbidden):
		return 3
	case errors.Is(err, domain.ErrNotFound):
		return 4
	case errors.Is(err, domain.ErrConflict):
		return 5
	case errors.Is(err, domain.ErrUnavailable):
		return 6
	default:
		return 1
	}
}

func optionalString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
