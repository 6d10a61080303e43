package main

import (
	"context"
	"log"
	"os"
	"time"

	_ "github.com/stcadmin/fba-backend/api/swagger" // swagger docs
	"github.com/stcadmin/fba-backend/internal/catalog"
	"github.com/stcadmin/fba-backend/internal/database"
	"github.com/stcadmin/fba-backend/internal/handler"
	"github.com/stcadmin/fba-backend/internal/middleware"
	"github.com/stcadmin/fba-backend/internal/repository"
	"github.com/stcadmin/fba-backend/internal/service"
	"github.com/stcadmin/fba-backend/internal/stock"
	"github.com/stcadmin/fba-backend/internal/storage"
	"github.com/stcadmin/fba-backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           FBA Order & Shipment API
// @version         1.0
// @description     Back-office API for FBA order fulfillment, shipment composition and carrier manifests.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	debug := os.Getenv("DEBUG") == "true"

	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Logger initialization failed: %v", err)
	}
	defer logger.Sync()

	dbHost := envOr("DB_HOST", "localhost")
	dbPort := envOr("DB_PORT", "5432")
	dbUser := envOr("DB_USER", "postgres")
	dbPassword := envOr("DB_PASSWORD", "postgres")
	dbName := envOr("DB_NAME", "postgres")
	dbSslMode := envOr("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		logger.Fatal("Database connection failed", zap.Error(err))
	}
	logger.Info("Connected to PostgreSQL")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     envOr("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	ctx := context.Background()
	store, err := storage.NewMinioStore(ctx,
		envOr("MINIO_ENDPOINT", "localhost:9000"),
		envOr("MINIO_ACCESS_KEY", "minioadmin"),
		envOr("MINIO_SECRET_KEY", "minioadmin"),
		envOr("MINIO_BUCKET", "fba-backend"),
		os.Getenv("MINIO_USE_SSL") == "true",
	)
	if err != nil {
		logger.Fatal("Object storage initialization failed", zap.Error(err))
	}

	// Stock adapter: the real inventory system in production, a no-op that
	// refuses writes when running in debug.
	var stockAdapter stock.Adapter
	if debug {
		stockAdapter = stock.NewNoop(logger)
	} else {
		stockAdapter = stock.NewClient(
			os.Getenv("STOCK_API_URL"),
			os.Getenv("STOCK_API_TOKEN"),
			10*time.Second,
			logger,
		)
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	regionRepo := repository.NewRegionRepository(db)
	orderRepo := repository.NewFBAOrderRepository(db)
	shipmentRepo := repository.NewShipmentRepository(db)
	profitRepo := repository.NewProfitRepository(db)
	reorderRepo := repository.NewReorderReportRepository(db)
	shipmentConfigRepo := repository.NewShipmentConfigRepository(db)
	cat := catalog.NewGormCatalog(db)

	userService := service.NewUserService(userRepo)
	auditService := service.NewAuditService(db)
	orderService := service.NewOrderService(orderRepo, regionRepo, auditRepo, txManager, cat, stockAdapter, wsHub, logger, debug)
	shipmentService := service.NewShipmentService(shipmentRepo, auditRepo, txManager, logger)
	exportService := service.NewExportService(shipmentRepo, store, logger)
	regionService := service.NewRegionService(regionRepo, orderRepo, auditRepo, cat, stockAdapter, redisClient, logger)
	profitService := service.NewProfitService(profitRepo, orderRepo, regionRepo, cat, txManager, service.RedisLocker{Client: redisClient}, logger)
	reorderService := service.NewReorderService(reorderRepo, orderRepo, auditRepo, cat, stockAdapter, store, txManager, logger)
	shipmentConfigService := service.NewShipmentConfigService(shipmentConfigRepo, auditRepo, logger)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	auditHandler := handler.NewAuditHandler(auditService)
	orderHandler := handler.NewOrderHandler(orderService)
	shipmentHandler := handler.NewShipmentHandler(shipmentService, exportService)
	regionHandler := handler.NewRegionHandler(regionService)
	profitHandler := handler.NewProfitHandler(profitService)
	reorderHandler := handler.NewReorderHandler(reorderService)
	shippingHandler := handler.NewShippingHandler(shipmentConfigService, shipmentService, exportService)

	// Background worker for reorder report generation
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go reorderService.RunWorker(workerCtx)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	root := router.Group("")
	userHandler.RegisterRoutes(root)
	auditHandler.RegisterRoutes(root)
	orderHandler.RegisterRoutes(root)
	shipmentHandler.RegisterRoutes(root)
	regionHandler.RegisterRoutes(root)
	profitHandler.RegisterRoutes(root)
	reorderHandler.RegisterRoutes(root)
	shippingHandler.RegisterRoutes(root)

	port := envOr("PORT", "8080")

	logger.Info("Server listening", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
