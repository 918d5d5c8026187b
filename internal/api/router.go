package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/api/handlers"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/api/middleware"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/services"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps are the services the HTTP API is built over
type Deps struct {
	Store       services.Store
	Files       storage.Store
	Logs        *services.LogService
	Sync        handlers.SyncTrigger
	Outbound    handlers.RequestSender
	APIKeys     *middleware.APIKeyManager
	CORSOrigins string
}

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Recovery(), middleware.RequestLogger())
	router.Use(cors.New(corsConfig(deps.CORSOrigins)))

	syncHandler := handlers.NewSyncHandler(deps.Sync, deps.Logs)
	recordHandler := handlers.NewRecordHandler(deps.Store, deps.Files)
	requestHandler := handlers.NewRequestHandler(deps.Store, deps.Outbound, deps.Logs)
	logHandler := handlers.NewLogHandler(deps.Logs)

	// Health check endpoint (no auth required)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(middleware.APIKeyMiddleware(deps.APIKeys))
	{
		api.POST("/sync", syncHandler.TriggerSync)
		api.GET("/sync/status", syncHandler.GetSyncStatus)

		api.GET("/email-logs", recordHandler.ListEmailLogs)
		api.GET("/email-logs/request/:id", recordHandler.ListEmailLogsForRequest)
		api.GET("/proposals", recordHandler.ListProposals)
		api.GET("/proposals/request/:id", recordHandler.ListProposalsForRequest)
		api.GET("/attachments", recordHandler.DownloadAttachment)

		requests := api.Group("/requests")
		{
			requests.GET("", requestHandler.ListRequests)
			requests.POST("", requestHandler.CreateRequest)
			requests.GET("/:id", requestHandler.GetRequest)
			requests.POST("/:id/send", requestHandler.SendRequest)
		}

		api.GET("/logs", logHandler.ListLogs)
	}

	return router
}

// corsConfig allows the comma separated origins, or any origin for "*"
func corsConfig(origins string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.APIKeyHeader, middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	var list []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			list = append(list, o)
		}
	}
	if len(list) == 0 || (len(list) == 1 && list[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = list
	cfg.AllowCredentials = true
	return cfg
}
