package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jbetancur/kubeimport/internal/pkg/cluster"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// Health states reported by Health
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusUnknown   = "unknown"
)

// APIRequest is a raw call against a cluster's API server
type APIRequest struct {
	Method  string `json:"method"`
	URL     string `json:"url"`
	Body    string `json:"body"`
	Timeout int64  `json:"timeout"` // seconds; zero keeps the caller's deadline
}

// ClusterClient holds a Kubernetes client for one registered cluster
type ClusterClient struct {
	Client    kubernetes.Interface
	Config    *rest.Config
	ClusterID string
	URL       string
}

// ClientFactory builds a clientset for a rest config
type ClientFactory func(config *rest.Config) (kubernetes.Interface, error)

// ClientManager caches Kubernetes clients for registered clusters
type ClientManager struct {
	clients   map[string]*ClusterClient
	newClient ClientFactory
	logger    *slog.Logger
	mu        sync.RWMutex
}

// NewClientManager creates a new client manager
func NewClientManager(logger *slog.Logger) *ClientManager {
	return NewClientManagerWithFactory(func(config *rest.Config) (kubernetes.Interface, error) {
		return kubernetes.NewForConfig(config)
	}, logger)
}

// NewClientManagerWithFactory creates a client manager that builds clients with factory
func NewClientManagerWithFactory(factory ClientFactory, logger *slog.Logger) *ClientManager {
	return &ClientManager{
		clients:   make(map[string]*ClusterClient),
		newClient: factory,
		logger:    logger,
	}
}

// GetClient returns the client for record, creating it on first use or when
// the record's endpoint changed.
func (cm *ClientManager) GetClient(record cluster.Config) (*ClusterClient, error) {
	cm.mu.RLock()
	existing, ok := cm.clients[record.ID]
	cm.mu.RUnlock()
	if ok && existing.URL == record.URL {
		return existing, nil
	}

	restConfig, err := cluster.RESTConfig(record)
	if err != nil {
		return nil, fmt.Errorf("failed to build client config: %w", err)
	}

	clientset, err := cm.newClient(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	client := &ClusterClient{
		Client:    clientset,
		Config:    restConfig,
		ClusterID: record.ID,
		URL:       record.URL,
	}

	cm.mu.Lock()
	cm.clients[record.ID] = client
	cm.mu.Unlock()

	cm.logger.Info("Created client", "clusterID", record.ID)
	return client, nil
}

// Health asks the cluster's API server for its version
func (cm *ClientManager) Health(ctx context.Context, record cluster.Config) string {
	client, err := cm.GetClient(record)
	if err != nil {
		cm.logger.Warn("Cannot check cluster health", "clusterID", record.ID, "error", err)
		return StatusUnknown
	}

	result := make(chan error, 1)
	go func() {
		_, err := client.Client.Discovery().ServerVersion()
		result <- err
	}()

	select {
	case <-ctx.Done():
		return StatusUnknown
	case err := <-result:
		if err != nil {
			cm.logger.Warn("Cluster unhealthy", "clusterID", record.ID, "error", err)
			return StatusUnhealthy
		}
		return StatusHealthy
	}
}

// Request sends req to the API server of record and returns the response body
func (cm *ClientManager) Request(ctx context.Context, record cluster.Config, req APIRequest) ([]byte, error) {
	if !strings.HasPrefix(req.URL, "/") {
		return nil, fmt.Errorf("request url %q is not an API path", req.URL)
	}

	client, err := cm.GetClient(record)
	if err != nil {
		return nil, err
	}

	restClient := client.Client.Discovery().RESTClient()
	if restClient == nil {
		return nil, errors.New("client does not support raw requests")
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Timeout)*time.Second)
		defer cancel()
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	r := restClient.Verb(method).RequestURI(req.URL)
	if req.Body != "" {
		r = r.SetHeader("Content-Type", "application/json").Body([]byte(req.Body))
	}

	cm.logger.Debug("Sending API request", "clusterID", record.ID, "method", method, "url", req.URL)

	data, err := r.DoRaw(ctx)
	if err != nil {
		return data, fmt.Errorf("%s %s: %w", method, req.URL, err)
	}
	return data, nil
}

// Remove drops the cached client of a cluster
func (cm *ClientManager) Remove(clusterID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	delete(cm.clients, clusterID)
}
