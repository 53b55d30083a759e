package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"maintline/internal/domain"
	"maintline/internal/engine"
	"maintline/internal/identity"
)

func userCmd() *cobra.Command {
	u := &cobra.Command{Use: "user", Short: "Manage users"}
	u.AddCommand(userCreateCmd())
	u.AddCommand(userListCmd())
	u.AddCommand(userAPIKeyCmd())
	return u
}

func userCreateCmd() *cobra.Command {
	var reg identity.Registration
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a user (Admin only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor domain.Actor) error {
				u, err := e.RegisterUser(ctx, actor, reg)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(u)
				}
				fmt.Printf("Created %s %s (%s)\n", u.Role, u.Email, u.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reg.Name, "name", "", "display name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "login email")
	cmd.Flags().StringVar(&reg.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&reg.Role, "role", "", "Admin, Manager or Technician")
	return cmd
}

func userListCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor domain.Actor) error {
				users, err := e.ListUsers(ctx, actor, role)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Email", "Role"})
				for _, u := range users {
					tw.AppendRow(table.Row{u.ID, u.Name, u.Email, u.Role})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role filter")
	return cmd
}

func userAPIKeyCmd() *cobra.Command {
	var userID, name string
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Issue an API key; the key is printed once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor domain.Actor) error {
				key, plain, err := e.CreateAPIKey(ctx, actor, userID, name)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"id": key.ID, "userId": key.UserID, "key": plain})
				}
				fmt.Printf("API key %s for user %s:\n%s\n", key.ID, key.UserID, plain)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "owner (defaults to the actor)")
	cmd.Flags().StringVar(&name, "name", "", "label")
	return cmd
}

func assetCmd() *cobra.Command {
	a := &cobra.Command{Use: "asset", Short: "Manage the asset catalog"}
	a.AddCommand(assetCreateCmd())
	a.AddCommand(assetListCmd())
	a.AddCommand(assetDeleteCmd())
	return a
}

func assetCreateCmd() *cobra.Command {
	var in engine.AssetInput
	var status string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register an asset (Admin only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Status = domain.AssetStatus(status)
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor domain.Actor) error {
				a, err := e.CreateAsset(ctx, actor, in)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(a)
				}
				fmt.Printf("Created asset %s (%s)\n", a.Name, a.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "asset name")
	cmd.Flags().StringVar(&in.Location, "location", "", "where it is")
	cmd.Flags().StringVar(&status, "status", "", "Operational, Under Maintenance or Out of Service")
	cmd.Flags().StringVar(&in.Model, "model", "", "model")
	cmd.Flags().StringVar(&in.Manufacturer, "manufacturer", "", "manufacturer")
	return cmd
}

func assetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor domain.Actor) error {
				assets, err := e.ListAssets(ctx, actor)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(assets)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Location", "Status", "Model", "Manufacturer"})
				for _, a := range assets {
					tw.AppendRow(table.Row{a.ID, a.Name, a.Location, a.Status, optionalString(a.Model), optionalString(a.Manufacturer)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func assetDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an asset (Admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor domain.Actor) error {
				if err := e.DeleteAsset(ctx, actor, args[0]); err != nil {
					return err
				}
				fmt.Printf("Deleted asset %s\n", args[0])
				return nil
			})
		},
	}
}

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Summarize assets and work orders (Admin only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor domain.Actor) error {
				rep, err := e.Report(ctx, actor)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rep)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Metric", "Count"})
				tw.AppendRow(table.Row{"Assets", rep.TotalAssets})
				tw.AppendRow(table.Row{"Work orders", rep.TotalTasks})
				tw.AppendRow(table.Row{"Pending", rep.PendingTasks})
				tw.AppendRow(table.Row{"In Progress", rep.InProgressTasks})
				tw.AppendRow(table.Row{"Completed", rep.CompletedTasks})
				tw.Render()
				return nil
			})
		},
	}
}
