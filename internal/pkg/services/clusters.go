package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jbetancur/kubeimport/internal/pkg/client"
	"github.com/jbetancur/kubeimport/internal/pkg/cluster"
	"k8s.io/client-go/tools/clientcmd"
)

// ClusterClients talks to the API servers of registered clusters
type ClusterClients interface {
	Health(ctx context.Context, record cluster.Config) string
	Request(ctx context.Context, record cluster.Config, req client.APIRequest) ([]byte, error)
}

type ClusterService struct {
	BaseService
	registry cluster.Registry
	clients  ClusterClients
}

type apiResponse struct {
	Data string `json:"data"`
}

type clusterStatus struct {
	cluster.Config
	Status string `json:"status"`
}

func NewClusterService(registry cluster.Registry, clients ClusterClients, logger *slog.Logger) *ClusterService {
	return &ClusterService{
		BaseService: BaseService{Logger: logger},
		registry:    registry,
		clients:     clients,
	}
}

func (s *ClusterService) ListClusters(c *fiber.Ctx) error {
	s.Logger.Info("Listing clusters")

	clusters, err := s.registry.ListClusters(c.Context())
	if err != nil {
		return s.InternalServerError(c, "failed to read cluster", err)
	}

	return c.JSON(clusters)
}

// AddClusters registers the records in the request body as they are
func (s *ClusterService) AddClusters(c *fiber.Ctx) error {
	var clusters []cluster.Config
	if err := c.BodyParser(&clusters); err != nil {
		return s.BadRequest(c, "body must be a list of clusters")
	}
	if clusters == nil {
		clusters = []cluster.Config{}
	}

	s.Logger.Info("Adding clusters", "count", len(clusters))

	if err := s.registry.AddClusters(c.Context(), clusters); err != nil {
		return s.InternalServerError(c, "failed to add clusters", err)
	}

	return c.Status(fiber.StatusCreated).JSON(clusters)
}

func (s *ClusterService) GetCluster(c *fiber.Ctx) error {
	clusterID := c.Params("clusterID")
	if clusterID == "" {
		return s.BadRequest(c, "missing cluster ID")
	}

	s.Logger.Info("Getting cluster", "clusterID", clusterID)

	record, ok, err := s.find(c, clusterID)
	if err != nil {
		return s.InternalServerError(c, "failed to read cluster", err)
	}
	if !ok {
		return s.NotFound(c, "Cluster", clusterID)
	}

	healthStatus := "unknown"
	if s.clients != nil {
		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()
		healthStatus = s.clients.Health(ctx, record)
	}

	return c.JSON(clusterStatus{Config: record, Status: healthStatus})
}

// GetKubeConfig renders a kubeconfig for one registered cluster
func (s *ClusterService) GetKubeConfig(c *fiber.Ctx) error {
	clusterID := c.Params("clusterID")
	if clusterID == "" {
		return s.BadRequest(c, "missing cluster ID")
	}

	record, ok, err := s.find(c, clusterID)
	if err != nil {
		return s.InternalServerError(c, "failed to read cluster", err)
	}
	if !ok {
		return s.NotFound(c, "Cluster", clusterID)
	}

	config, err := cluster.KubeConfig([]cluster.Config{record})
	if err != nil {
		return s.Error(c, fiber.StatusUnprocessableEntity, "cannot render kubeconfig: %v", err)
	}

	data, err := clientcmd.Write(*config)
	if err != nil {
		return s.InternalServerError(c, "failed to encode kubeconfig", err)
	}

	c.Set(fiber.HeaderContentType, "application/yaml")
	return c.Send(data)
}

// Request forwards a raw Kubernetes API call to a registered cluster
func (s *ClusterService) Request(c *fiber.Ctx) error {
	clusterID := c.Params("clusterID")
	if clusterID == "" {
		return s.BadRequest(c, "missing cluster ID")
	}

	var req client.APIRequest
	if err := c.BodyParser(&req); err != nil {
		return s.BadRequest(c, "could not decode request body")
	}
	if !strings.HasPrefix(req.URL, "/") {
		return s.BadRequest(c, "url must be an API path")
	}

	record, ok, err := s.find(c, clusterID)
	if err != nil {
		return s.InternalServerError(c, "failed to read cluster", err)
	}
	if !ok {
		return s.NotFound(c, "Cluster", clusterID)
	}
	if s.clients == nil {
		return s.Error(c, fiber.StatusServiceUnavailable, "cluster clients are not configured")
	}

	s.Logger.Info("Forwarding API request", "clusterID", clusterID, "method", req.Method, "url", req.URL)

	data, err := s.clients.Request(c.Context(), record, req)
	if err != nil {
		return s.Error(c, fiber.StatusBadGateway, "Kubernetes API request failed: %v", err)
	}

	return c.JSON(apiResponse{Data: strings.TrimSuffix(string(data), "\n")})
}

// find returns the first record registered under id
func (s *ClusterService) find(c *fiber.Ctx, id string) (cluster.Config, bool, error) {
	return cluster.Find(c.Context(), s.registry, id)
}
