package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jbetancur/kubeimport/internal/pkg/cluster"
	"github.com/spf13/cobra"
	"k8s.io/client-go/tools/clientcmd"
)

func newCmdKubeConfig() *cobra.Command {
	cmd := &cobra.Command{Use: "kubeconfig", Short: "Render registered clusters as a kubeconfig", RunE: func(cmd *cobra.Command, args []string) error { return cmd.Help() }}
	cmd.AddCommand(newCmdKubeConfigExport())
	return cmd
}

func newCmdKubeConfigExport() *cobra.Command {
	cmd := &cobra.Command{Use: "export", Short: "Export registered clusters as a kubeconfig", RunE: func(cmd *cobra.Command, args []string) error {
		a := fromContext(cmd.Context())
		out, _ := cmd.Flags().GetString("out")

		registry, err := a.registry(cmd.Context())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		clusters, err := registry.ListClusters(ctx)
		if err != nil {
			return err
		}

		if out != "" {
			if err := cluster.WriteKubeConfig(out, clusters); err != nil {
				return err
			}
			a.logger.Info("Wrote kubeconfig", "path", out, "clusters", len(clusters))
			return nil
		}

		config, err := cluster.KubeConfig(clusters)
		if err != nil {
			return err
		}
		data, err := clientcmd.Write(*config)
		if err != nil {
			return fmt.Errorf("failed to encode kubeconfig: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}}

	cmd.Flags().StringP("out", "o", "", "Write to this file instead of stdout")
	return cmd
}
