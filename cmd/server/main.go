package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/voltfield/backend/internal/application/services"
	"github.com/voltfield/backend/internal/bootstrap"
	"github.com/voltfield/backend/internal/infrastructure/cache"
	"github.com/voltfield/backend/internal/infrastructure/database"
	"github.com/voltfield/backend/internal/infrastructure/diagram"
	"github.com/voltfield/backend/internal/interfaces/middleware"
	"github.com/voltfield/backend/internal/interfaces/rest"
	"github.com/voltfield/backend/pkg/constants"
)

func main() {
	// Load .env
	// Try multiple paths
	paths := []string{".env", "../.env", "../../.env"}
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			log.Printf("Loaded .env from %s", p)
			break
		}
	}

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = constants.DefaultPort
	}

	// Initialize database connection
	db, err := database.GetInstance()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	// Initialize schema
	if err := bootstrap.InitializeSchema(db); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	// Redis snapshot cache (optional, REDIS_ADDR unset disables it)
	snapshots, err := cache.NewSnapshotStoreFromEnv()
	if err != nil {
		log.Printf("⚠️  Warning: Redis unavailable, running without snapshot cache: %v", err)
		snapshots = nil
	} else if snapshots != nil {
		log.Println("📦 Snapshot cache connected")
	}

	// Diagram service client (base URL and token from env)
	diagramClient := diagram.NewClient()

	// Initialize service manager
	svcMgr := services.NewServiceManager(db, snapshots, diagramClient, os.Getenv("AUTO_SYNC_SCHEDULE"))
	log.Println("🔧 Service manager initialized")

	// Create Gin router
	router := gin.Default()

	// CORS middleware - Allow credentials from any origin
	router.Use(middleware.Cors())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		status := gin.H{
			"status": "ok",
			"server": "golang",
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
		} else {
			status["database"] = "ok"
		}

		if svcMgr.Snapshots != nil {
			if err := svcMgr.Snapshots.Health(ctx); err != nil {
				status["cache"] = err.Error()
			} else {
				status["cache"] = "ok"
			}
		} else {
			status["cache"] = "disabled"
		}

		c.JSON(http.StatusOK, status)
	})

	// Initialize handlers
	projectHandler := rest.NewProjectHandler(svcMgr)
	roomHandler := rest.NewRoomHandler(svcMgr)
	documentHandler := rest.NewDocumentHandler(svcMgr)
	syncHandler := rest.NewSyncHandler(svcMgr.Analysis, svcMgr.RoomCatalog, svcMgr.Sync)
	dropHandler := rest.NewDropHandler(svcMgr)
	reportHandler := rest.NewReportHandler(svcMgr)

	// Initialize middleware
	requireAuth := middleware.RequireAuth()

	// API routes
	api := router.Group("/api")
	api.Use(requireAuth)
	{
		// Projects
		api.GET("/projects", projectHandler.List)
		api.POST("/projects", projectHandler.Create)
		api.GET("/projects/:projectId", projectHandler.Get)
		api.POST("/projects/:projectId/archive", projectHandler.Archive)

		// Room catalog
		api.GET("/projects/:projectId/rooms", roomHandler.List)
		api.POST("/projects/:projectId/rooms", roomHandler.Create)
		api.POST("/projects/:projectId/rooms/import", roomHandler.Import)
		api.GET("/projects/:projectId/rooms/:roomId/aliases", roomHandler.ListRoomAliases)
		api.GET("/projects/:projectId/aliases", roomHandler.ListAliases)

		// Diagram documents
		api.POST("/projects/:projectId/documents", documentHandler.Link)
		api.GET("/projects/:projectId/documents", documentHandler.List)
		api.PATCH("/projects/:projectId/documents/:documentId", documentHandler.UpdateSettings)

		// Analyze / confirm / sync workflow
		api.POST("/projects/:projectId/documents/:documentId/analyze", syncHandler.Analyze)
		api.POST("/projects/:projectId/documents/:documentId/confirm-rooms", syncHandler.ConfirmRooms)
		api.POST("/projects/:projectId/documents/:documentId/sync", syncHandler.Sync)
		api.GET("/projects/:projectId/documents/:documentId/sync/status", syncHandler.Status)

		// Wire drops
		api.GET("/projects/:projectId/drops", dropHandler.List)
		api.GET("/projects/:projectId/drops/:dropId", dropHandler.Get)
		api.PATCH("/projects/:projectId/drops/:dropId", dropHandler.Update)

		// Reports
		api.POST("/reports/query", reportHandler.Query)
	}

	// Start scheduled auto-sync executor
	svcMgr.StartScheduler()
	log.Println("⏰ Scheduler service started (60s polling)")

	// Start server
	log.Println("\n═══════════════════════════════════════════════════════════════════════════")
	log.Println("🚀 VoltField Backend Started Successfully")
	log.Println("═══════════════════════════════════════════════════════════════════════════")
	log.Printf("\n📍 Server:         http://localhost:%s", port)
	log.Printf("🏗️  Projects API:   http://localhost:%s/api/projects", port)
	log.Printf("📊 Reports API:    http://localhost:%s/api/reports/query", port)
	log.Printf("💚 Health check:   http://localhost:%s/health\n", port)

	// Create HTTP Server
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	quit := make(chan os.Signal, 1)
	// kill (no param) default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be caught, so don't need to add it
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop background workers
	svcMgr.StopScheduler()
	log.Println("🛑 Scheduler stopped")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}
