package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jbetancur/kubeimport/internal/pkg/client"
	"github.com/jbetancur/kubeimport/internal/pkg/cluster"
	"github.com/jbetancur/kubeimport/internal/pkg/config"
	"github.com/jbetancur/kubeimport/internal/pkg/importer"
	"github.com/spf13/cobra"
)

func newCmdClusters() *cobra.Command {
	cmd := &cobra.Command{Use: "clusters", Short: "Inspect and import registered clusters", RunE: func(cmd *cobra.Command, args []string) error { return cmd.Help() }}
	cmd.AddCommand(newCmdClustersList(), newCmdClustersImport(), newCmdClustersPing())
	return cmd
}

func newCmdClustersList() *cobra.Command {
	return &cobra.Command{Use: "list", Short: "List registered clusters", RunE: func(cmd *cobra.Command, args []string) error {
		a := fromContext(cmd.Context())
		if a.config.Registry.Backend == config.BackendMemory {
			a.logger.Warn("The memory registry starts empty; configure the mongo backend to list persisted clusters")
		}

		registry, err := a.registry(cmd.Context())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		items, err := registry.ListClusters(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, it := range items {
			if err := enc.Encode(it); err != nil {
				return err
			}
		}
		return nil
	}}
}

// newCmdClustersImport runs the import screen without a terminal: load the
// region, select the named clusters (or all) and commit.
func newCmdClustersImport() *cobra.Command {
	cmd := &cobra.Command{Use: "import <region> [cluster-name...]", Short: "Import EKS clusters of a region", Args: cobra.MinimumNArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		a := fromContext(cmd.Context())
		all, _ := cmd.Flags().GetBool("all")
		region, names := args[0], args[1:]
		if !all && len(names) == 0 {
			return fmt.Errorf("name the clusters to import or pass --all")
		}

		store, err := a.credentialStore()
		if err != nil {
			return err
		}
		registry, err := a.registry(cmd.Context())
		if err != nil {
			return err
		}

		var destination string
		opts := a.importOptions()
		session := importer.NewSession(store, a.enumerator(), registry, importer.NavigatorFunc(func(path string) {
			destination = path
		}), opts)

		if err := session.Load(cmd.Context(), region); err != nil {
			return fmt.Errorf("could not load AWS clusters in %s: %w", region, err)
		}

		snap := session.Snapshot()
		for _, candidate := range snap.Candidates {
			if all {
				session.SetSelected(candidate, true)
			}
		}
		provider := opts.Provider
		if provider == "" {
			provider = importer.DefaultProvider
		}
		for _, name := range names {
			if err := session.SelectByID(cluster.ID(provider, region, name), true); err != nil {
				return err
			}
		}

		if err := session.Commit(cmd.Context()); err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, id := range session.Snapshot().Selected {
			if err := enc.Encode(map[string]string{"id": id, "list": destination}); err != nil {
				return err
			}
		}
		return nil
	}}

	cmd.Flags().Bool("all", false, "Import every cluster of the region")
	return cmd
}

func newCmdClustersPing() *cobra.Command {
	return &cobra.Command{Use: "ping <id>", Short: "Check that a registered cluster answers", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		a := fromContext(cmd.Context())

		registry, err := a.registry(cmd.Context())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		record, ok, err := cluster.Find(ctx, registry, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("cluster %s is not registered", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", record.ID, client.NewClientManager(a.logger).Health(ctx, record))
		return nil
	}}
}
