package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jbetancur/kubeimport/internal/pkg/client"
	"github.com/jbetancur/kubeimport/internal/pkg/router"
	"github.com/jbetancur/kubeimport/internal/pkg/services"
	"github.com/spf13/cobra"
)

func newCmdServe() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and the websocket import session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd.Context())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := a.credentialStore()
			if err != nil {
				return err
			}
			registry, err := a.registry(ctx)
			if err != nil {
				return err
			}

			clusterService := services.NewClusterService(registry, client.NewClientManager(a.logger), a.logger)
			importService := services.NewImportService(store, a.enumerator(), registry, a.importOptions(), a.logger)

			app := fiber.New(fiber.Config{DisableStartupMessage: true})
			router.SetupRoutes(app, clusterService, importService)

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := app.ShutdownWithContext(shutdownCtx); err != nil {
					a.logger.Error("Failed to shut down server", "error", err)
				}
			}()

			a.logger.Info("Starting server", "address", a.config.HTTP.Address)
			if err := app.Listen(a.config.HTTP.Address); err != nil {
				a.logger.Error("Failed to start server", "error", err)
				return err
			}
			return nil
		},
	}
}
