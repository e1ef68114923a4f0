package cluster

import (
	"context"
	"log/slog"
	"sync"
)

// Manager is an in-memory Registry that keeps records in insertion order
type Manager struct {
	clusters []Config
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewManager creates a new Manager
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger: logger,
	}
}

// AddClusters appends the records. Records already present are appended again.
func (m *Manager) AddClusters(ctx context.Context, clusters []Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.clusters = append(m.clusters, clusters...)

	for _, c := range clusters {
		m.logger.Info("Cluster registered", "clusterID", c.ID, "apiURL", c.URL)
	}

	return nil
}

// ListClusters returns a copy of all registered records
func (m *Manager) ListClusters(ctx context.Context) ([]Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clusters := make([]Config, len(m.clusters))
	copy(clusters, m.clusters)

	return clusters, nil
}

// GetCluster returns the first record with the given id
func (m *Manager) GetCluster(ctx context.Context, clusterID string) (Config, bool, error) {
	if err := ctx.Err(); err != nil {
		return Config{}, false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.clusters {
		if c.ID == clusterID {
			return c, true, nil
		}
	}

	return Config{}, false, nil
}
