package screen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jbetancur/kubeimport/internal/pkg/cluster"
	"github.com/jbetancur/kubeimport/internal/pkg/importer"
)

// Message types
type regionMsg struct {
	region string
}

type loadedMsg struct {
	outcome importer.Outcome
}

type navigateMsg struct {
	path string
}

type clustersLoadedMsg struct {
	rows []table.Row
}

type errorMsg struct {
	err error
}

// pathRecorder is the session's navigator; the commit command turns the
// recorded path into a navigateMsg.
type pathRecorder struct {
	mu   sync.Mutex
	path string
}

func (r *pathRecorder) NavigateTo(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.path = path
}

func (r *pathRecorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.path
}

// fetchClusters runs the credential lookup and enumeration for load off the event loop
func fetchClusters(ctx context.Context, session *importer.Session, load *importer.Load) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{outcome: session.Fetch(ctx, load)}
	}
}

func commitSelection(ctx context.Context, session *importer.Session, navigator *pathRecorder) tea.Cmd {
	return func() tea.Msg {
		if err := session.Commit(ctx); err != nil {
			return errorMsg{err: err}
		}
		return navigateMsg{path: navigator.Path()}
	}
}

// loadClusters reads the registry for the cluster list view
func loadClusters(ctx context.Context, registry cluster.Registry) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		clusters, err := registry.ListClusters(ctx)
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to list clusters: %w", err)}
		}

		rows := make([]table.Row, 0, len(clusters))
		for _, c := range clusters {
			rows = append(rows, table.Row{c.Name, c.URL, c.AuthProvider})
		}

		return clustersLoadedMsg{rows: rows}
	}
}
