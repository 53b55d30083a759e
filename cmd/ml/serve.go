package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"maintline/internal/app"
	"maintline/internal/jobs"
	"maintline/internal/server"
)

func serveCmd() *cobra.Command {
	var addr, basePath string
	var loginLimit int
	var dev bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				provider, err := rt.Identity(viper.GetString("jwt-secret"))
				if err != nil {
					return err
				}
				handler, err := server.New(server.Config{
					Engine:         rt.Engine,
					Identity:       provider,
					BasePath:       basePath,
					Logger:         rt.Logger,
					LoginRateLimit: loginLimit,
					Development:    dev,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				rt.Logger.Info("serving", zap.String("addr", addr), zap.String("base_path", basePath))
				fmt.Printf("Serving maintline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().IntVar(&loginLimit, "login-rate-limit", 10, "login attempts per client IP per minute")
	cmd.Flags().BoolVar(&dev, "dev", false, "relax security headers for local development")
	return cmd
}

func workerCmd() *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Deliver work-order notifications to the configured webhooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				addr := strings.TrimSpace(rt.Config.Notify.RedisAddr)
				if addr == "" {
					return errors.New("notify.redis_addr is not set in maintline.yml")
				}
				w := jobs.NewWorker(jobs.WorkerConfig{
					RedisOpts:   asynq.RedisClientOpt{Addr: addr},
					Queue:       rt.Config.Notify.Queue,
					Concurrency: concurrency,
					Handler: jobs.EventHandler{
						Webhooks: rt.Config.Notify.Webhooks,
						Client:   &http.Client{},
						Logger:   rt.Logger,
					},
					Logger: rt.Logger,
				})
				rt.Logger.Info("worker started", zap.String("queue", rt.Config.Notify.Queue), zap.Int("webhooks", len(rt.Config.Notify.Webhooks)))
				return w.Run(ctx)
			})
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 5, "concurrent deliveries")
	return cmd
}
