package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jbetancur/kubeimport/internal/pkg/config"
	"github.com/spf13/cobra"
)

type appKey struct{}

// app carries what every subcommand needs
type app struct {
	config  *config.AppConfig
	logger  *slog.Logger
	closers []func()
}

func fromContext(ctx context.Context) *app {
	if a, ok := ctx.Value(appKey{}).(*app); ok {
		return a
	}
	return &app{config: config.Default(), logger: slog.Default()}
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kubeimport",
		Short: "Import AWS EKS clusters into the cluster registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultConfig := os.Getenv("KUBEIMPORT_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "config.yaml"
	}
	cmd.PersistentFlags().String("config", defaultConfig, "Config file (env KUBEIMPORT_CONFIG)")

	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		path, _ := c.Flags().GetString("config")
		appConfig, err := config.LoadConfig(path)
		if err != nil {
			return err
		}

		a := &app{config: appConfig}

		// the terminal screen owns stdout, so it logs to a file
		var out io.Writer = os.Stderr
		if c.Name() == "tui" {
			f, err := os.Create(appConfig.Log.File)
			if err != nil {
				return fmt.Errorf("could not create log file: %w", err)
			}
			a.onClose(func() {
				_ = f.Close()
			})
			out = f
		}

		a.logger, err = appConfig.Log.NewLogger(out)
		if err != nil {
			a.close()
			return err
		}
		slog.SetDefault(a.logger)

		c.SetContext(context.WithValue(c.Context(), appKey{}, a))
		return nil
	}

	cmd.PersistentPostRun = func(c *cobra.Command, _ []string) {
		fromContext(c.Context()).close()
	}

	cmd.AddCommand(newCmdTUI())
	cmd.AddCommand(newCmdServe())
	cmd.AddCommand(newCmdCredentials())
	cmd.AddCommand(newCmdClusters())
	cmd.AddCommand(newCmdKubeConfig())
	return cmd
}

func main() {
	root := newRootCmd()
	root.SetContext(context.Background())
	executed, err := root.ExecuteC()
	if err != nil {
		if executed != nil {
			fromContext(executed.Context()).close()
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
