package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/jbetancur/kubeimport/internal/pkg/services"
)

func SetupRoutes(app *fiber.App, clusterService *services.ClusterService, importService *services.ImportService) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	// API group with versioning
	api := app.Group("/api/v1")

	// Cluster registry routes
	api.Get("/clusters", clusterService.ListClusters)
	api.Post("/clusters", clusterService.AddClusters)
	api.Get("/clusters/:clusterID", clusterService.GetCluster)
	api.Get("/clusters/:clusterID/kubeconfig", clusterService.GetKubeConfig)
	api.Post("/clusters/:clusterID/request", clusterService.Request)

	// AWS import routes
	aws := api.Group("/providers/aws")
	aws.Get("/regions/:region/clusters", importService.ListCandidates)

	// Import screen session via WebSocket
	aws.Use("/import", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	aws.Get("/import", websocket.New(importService.ImportSession))
}
