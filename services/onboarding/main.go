package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/rentflow/rentflow/shared/config"
	"github.com/rentflow/rentflow/shared/metrics"
	"github.com/rentflow/rentflow/shared/middleware"
	"github.com/rentflow/rentflow/shared/models"
	"github.com/rentflow/rentflow/shared/pipeline"
	"github.com/rentflow/rentflow/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	// Initialize Redis for claim and gate-snapshot caching
	if err := utils.InitRedis(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer utils.CloseRedis()

	// Initialize database
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize metrics
	metrics.InitMetrics("onboarding")

	// Initialize Kafka notification producer
	kafkaBroker := config.GetEnv("KAFKA_BROKER", "localhost:9092")
	producer, err := NewNotificationProducer(kafkaBroker)
	if err != nil {
		log.Fatal("Failed to initialize Kafka producer:", err)
	}
	defer producer.Close()

	// Initialize blob store and document-generation collaborator
	blobs, err := utils.NewS3Storage()
	if err != nil {
		log.Fatal("Failed to initialize document storage:", err)
	}
	renderer := pipeline.NewHTTPDocumentRenderer(config.GetEnv("DOCGEN_ENDPOINT", "http://localhost:8090/render"))
	generator := pipeline.NewLeaseGenerator(db, renderer, blobs)

	// Pipeline services
	screening := pipeline.NewScreeningService(db, pipeline.DefaultAutosaveWindow)
	viewings := pipeline.NewViewingService(db, producer)
	applications := pipeline.NewApplicationService(db, screening, viewings, producer)
	leases := pipeline.NewLeaseService(db, generator, blobs, producer)

	// Authentication middleware
	authMiddleware := middleware.NewAuthMiddleware(db)

	// Initialize Gin router
	router := gin.Default()
	router.Use(metrics.Middleware())

	// Health check and metrics endpoints
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Onboarding service is healthy", nil)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	landlordRole := string(models.RoleLandlord)
	tenantRole := string(models.RoleTenant)

	// Screening profile routes (tenant-owned)
	screeningRoutes := router.Group("/screening")
	screeningRoutes.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRole(tenantRole))
	{
		screeningRoutes.GET("", handleGetScreeningProfile(screening))
		screeningRoutes.PATCH("/autosave", handleAutosaveScreeningProfile(screening))
		screeningRoutes.POST("/submit", handleFinalizeScreeningProfile(screening))
	}

	// Viewing routes
	viewingRoutes := router.Group("/viewings")
	viewingRoutes.Use(authMiddleware.RequireAuth())
	{
		viewingRoutes.POST("", handleCreateViewing(viewings))
		viewingRoutes.POST("/:id/schedule", authMiddleware.RequireRole(landlordRole), handleScheduleViewing(viewings))
		viewingRoutes.POST("/:id/complete", authMiddleware.RequireRole(landlordRole), handleCompleteViewing(viewings))
		viewingRoutes.POST("/:id/cancel", authMiddleware.RequireRole(landlordRole), handleCancelViewing(viewings))
		viewingRoutes.POST("/:id/confirm", authMiddleware.RequireRole(landlordRole), handleConfirmViewing(viewings))
		viewingRoutes.POST("/:id/send-application", authMiddleware.RequireRole(landlordRole), handleSendApplication(viewings))
	}

	// Property-scoped routes for the calling tenant
	propertyRoutes := router.Group("/properties")
	propertyRoutes.Use(authMiddleware.RequireAuth())
	{
		propertyRoutes.GET("/:property_id/viewings/latest", handleGetLatestViewing(viewings))
		propertyRoutes.GET("/:property_id/application-access", handleApplicationAccess(viewings))
	}

	// Application routes
	applicationRoutes := router.Group("/applications")
	applicationRoutes.Use(authMiddleware.RequireAuth())
	{
		applicationRoutes.POST("", authMiddleware.RequireRole(tenantRole), handleSubmitApplication(applications))
		applicationRoutes.GET("", handleListApplications(applications))
		applicationRoutes.POST("/:id/decision", authMiddleware.RequireRole(landlordRole), handleDecideApplication(applications))
	}

	// Tenancy and lease routes
	tenancyRoutes := router.Group("/tenancies")
	tenancyRoutes.Use(authMiddleware.RequireAuth())
	{
		tenancyRoutes.POST("", authMiddleware.RequireRole(landlordRole), handleCreateTenancy(leases))
		tenancyRoutes.GET("", handleListTenancies(leases))
		tenancyRoutes.GET("/:id", handleGetTenancy(leases))
		tenancyRoutes.POST("/:id/generate-lease", authMiddleware.RequireRole(landlordRole), handleGenerateLease(leases))
		tenancyRoutes.POST("/:id/sign", handleSignLease(leases))
		tenancyRoutes.GET("/:id/lease", handleDownloadLease(leases, blobs))
	}

	// Start server
	port := os.Getenv("ONBOARDING_SERVICE_PORT")
	if port == "" {
		port = "8001"
	}

	logrus.Infof("Onboarding service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start onboarding service:", err)
	}
}
