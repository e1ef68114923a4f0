package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jbetancur/kubeimport/internal/pkg/messaging"
)

// RegisteredTopic is the topic used to announce newly registered clusters
const RegisteredTopic = "cluster_registered"

// RegisteredEvent is the payload published for every registered cluster
type RegisteredEvent struct {
	ID        string `json:"id"`
	ClusterID string `json:"clusterID"`
	Cluster   Config `json:"cluster"`
}

// PublishingRegistry announces every added cluster after delegating to the wrapped Registry
type PublishingRegistry struct {
	Registry
	publisher  messaging.Publisher
	logger     *slog.Logger
	attempts   int
	retryDelay time.Duration
}

// NewPublishingRegistry wraps registry so additions are published on publisher
func NewPublishingRegistry(registry Registry, publisher messaging.Publisher, logger *slog.Logger) *PublishingRegistry {
	return &PublishingRegistry{
		Registry:   registry,
		publisher:  publisher,
		logger:     logger,
		attempts:   5,
		retryDelay: 2 * time.Second,
	}
}

// AddClusters adds the records and publishes one event per record.
// Publishing failures are logged; the records stay registered.
func (r *PublishingRegistry) AddClusters(ctx context.Context, clusters []Config) error {
	if err := r.Registry.AddClusters(ctx, clusters); err != nil {
		return err
	}

	for _, c := range clusters {
		if err := r.publish(ctx, c); err != nil {
			r.logger.Error("Failed to publish cluster registration", "clusterID", c.ID, "error", err)
		}
	}

	return nil
}

// GetCluster looks clusterID up in the wrapped Registry
func (r *PublishingRegistry) GetCluster(ctx context.Context, clusterID string) (Config, bool, error) {
	return Find(ctx, r.Registry, clusterID)
}

func (r *PublishingRegistry) publish(ctx context.Context, c Config) error {
	data, err := json.Marshal(RegisteredEvent{
		ID:        uuid.NewString(),
		ClusterID: c.ID,
		Cluster:   c,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cluster registration: %w", err)
	}

	for i := 0; i < r.attempts; i++ {
		err = r.publisher.Publish(RegisteredTopic, data)
		if err == nil {
			return nil
		}

		r.logger.Warn("Failed to publish cluster registration, retrying...", "attempt", i+1, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.retryDelay):
		}
	}

	return fmt.Errorf("failed to publish cluster registration after retries: %w", err)
}
