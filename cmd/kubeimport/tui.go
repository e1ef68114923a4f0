package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jbetancur/kubeimport/internal/pkg/screen"
	"github.com/spf13/cobra"
)

func newCmdTUI() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive AWS import screen",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd.Context())
			region, _ := cmd.Flags().GetString("region")

			store, err := a.credentialStore()
			if err != nil {
				return err
			}
			registry, err := a.registry(cmd.Context())
			if err != nil {
				return err
			}

			model := screen.New(cmd.Context(), screen.Config{
				Credentials: store,
				Enumerator:  a.enumerator(),
				Registry:    registry,
				Options:     a.importOptions(),
				Region:      region,
			})

			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				a.logger.Error("Error running program", "error", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().String("region", "", "AWS region to load on start")
	return cmd
}
