package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jbetancur/kubeimport/internal/pkg/cluster"
	"github.com/jbetancur/kubeimport/internal/pkg/config"
	"github.com/jbetancur/kubeimport/internal/pkg/credentials"
	"github.com/jbetancur/kubeimport/internal/pkg/importer"
	"github.com/jbetancur/kubeimport/internal/pkg/messaging"
	"github.com/jbetancur/kubeimport/internal/pkg/mongo"
	"github.com/jbetancur/kubeimport/internal/pkg/providers/aws"
)

func (a *app) importOptions() importer.Options {
	return importer.Options{
		Provider:         a.config.Provider,
		ClusterListPath:  a.config.ClusterListPath,
		EnumerateTimeout: a.config.EnumerateTimeout,
		Logger:           a.logger,
	}
}

func (a *app) enumerator() *aws.EKS {
	return aws.NewEKS(a.logger)
}

func (a *app) credentialStore() (*credentials.SQLStore, error) {
	store, err := credentials.Open(a.config.Credentials.Path, a.logger)
	if err != nil {
		return nil, err
	}
	a.onClose(func() {
		_ = store.Close()
	})
	return store, nil
}

// registry opens the configured backend and wraps it so registrations are announced
func (a *app) registry(ctx context.Context) (cluster.Registry, error) {
	var backend cluster.Registry

	switch a.config.Registry.Backend {
	case config.BackendMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		store, err := mongo.NewStore(connectCtx, a.config.Registry.MongoURI, a.config.Registry.Database, a.logger)
		if err != nil {
			return nil, err
		}
		a.onClose(func() {
			_ = store.Close(context.Background())
		})
		backend = store
	default:
		backend = cluster.NewManager(a.logger)
	}

	publisher, err := a.publisher(ctx)
	if err != nil {
		return nil, err
	}

	return cluster.NewPublishingRegistry(backend, publisher, a.logger), nil
}

// publisher sends events to the configured gRPC event service, or keeps them
// in process when no address is set.
func (a *app) publisher(ctx context.Context) (messaging.Publisher, error) {
	if a.config.GRPC.Address == "" {
		local := messaging.NewLocal()
		local.Subscribe(cluster.RegisteredTopic, a.logRegistration)
		return local, nil
	}

	if a.config.GRPC.Listen {
		server := messaging.NewGRPCServer(a.logger)
		server.Subscribe(cluster.RegisteredTopic, a.logRegistration)
		if err := server.Start(ctx, a.config.GRPC.Address); err != nil {
			return nil, err
		}
		a.onClose(server.Stop)
	}

	client := messaging.NewGRPCClient()
	if err := client.Connect(ctx, a.config.GRPC.Address); err != nil {
		return nil, fmt.Errorf("failed to connect to gRPC server: %w", err)
	}
	a.onClose(func() {
		_ = client.Close()
	})
	a.logger.Info("Connected to gRPC server", "address", a.config.GRPC.Address)

	return client, nil
}

func (a *app) logRegistration(message []byte) error {
	var event cluster.RegisteredEvent
	if err := json.Unmarshal(message, &event); err != nil {
		a.logger.Error("Failed to unmarshal cluster registration", "error", err)
		return err
	}

	a.logger.Info("Cluster registration received", "eventID", event.ID, "clusterID", event.ClusterID, "url", event.Cluster.URL)
	return nil
}
