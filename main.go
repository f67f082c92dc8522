package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/tastoria/tastoria-backend/database"
	"github.com/tastoria/tastoria-backend/internal/handlers"
	"github.com/tastoria/tastoria-backend/internal/models"
	"github.com/tastoria/tastoria-backend/internal/routes"
	"github.com/tastoria/tastoria-backend/internal/services"
	"github.com/tastoria/tastoria-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		err := godotenv.Load(".env")
		if err != nil {
			err = godotenv.Load("environments/.env.development")
			if err != nil {
				log.Println("⚠️  No .env file found - checking environment variables")
			}
		}

		log.Printf("🔍 WHATSAPP_TOKEN exists: %v", os.Getenv("WHATSAPP_TOKEN") != "")
		log.Printf("🔍 PHONE_NUMBER_ID exists: %v", os.Getenv("PHONE_NUMBER_ID") != "")
		log.Printf("🔍 REDIS_URL: %s", os.Getenv("REDIS_URL"))
	}

	// Initialize catalog/order storage and shared session state
	var store storage.Store
	var sessions storage.SessionStore
	var dedup storage.DedupGuard

	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
		sessions = storage.NewMemorySessionStore()
		dedup = storage.NewMemoryDedupGuard()
	} else {
		// Connect to database
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		// Run migrations
		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.MenuItem{},
			&models.Order{},
			&models.OrderItem{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")

		// Sessions and dedup live in Redis so every process shares them
		log.Println("📦 Connecting to Redis...")
		database.ConnectRedis()
		sessions = storage.NewRedisSessionStore(database.Redis)
		dedup = storage.NewRedisDedupGuard(database.Redis)
	}

	// Pick the outbound messaging provider
	var dispatcher services.Dispatcher
	var err error
	if os.Getenv("MESSAGING_PROVIDER") == "twilio" {
		dispatcher, err = services.NewTwilioService()
		if err != nil {
			log.Fatal("Failed to initialize Twilio service:", err)
		}
		log.Println("✅ Twilio messaging initialized")
	} else {
		dispatcher, err = services.NewWhatsAppService()
		if err != nil {
			log.Fatal("Failed to initialize WhatsApp Cloud API service:", err)
		}
		log.Println("✅ WhatsApp Cloud API messaging initialized")
	}

	menuService := services.NewMenuService(store)
	orderService := services.NewOrderService(store, database.Redis)
	whatsappHandler := handlers.NewWhatsAppHandler(sessions, dedup, menuService, dispatcher, orderService)

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "Tastoria Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Health check endpoint for monitoring
	app.Get("/health", func(c *fiber.Ctx) error {
		status := "healthy"
		statusCode := 200

		// Check database if using it
		dbHealthy := true
		if os.Getenv("USE_MEMORY_STORE") != "true" && database.DB != nil {
			sqlDB, err := database.DB.DB()
			if err != nil || sqlDB.Ping() != nil {
				dbHealthy = false
				status = "unhealthy"
				statusCode = 503
			}
		}

		// Check Redis if using it
		redisHealthy := true
		if os.Getenv("USE_MEMORY_STORE") != "true" && database.Redis != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if database.Redis.Ping(ctx).Err() != nil {
				redisHealthy = false
				status = "unhealthy"
				statusCode = 503
			}
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"services": fiber.Map{
				"database": dbHealthy,
				"redis":    redisHealthy,
			},
		})
	})

	// Setup routes
	routes.SetupRoutes(app, whatsappHandler)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 Tastoria Backend starting on port %s", port)
	log.Printf("📊 Storage: %s", getStorageType())
	log.Printf("🌍 Environment: %s", getEnvironment())
	log.Printf("📱 Messaging: %s", getMessagingProvider())
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func getEnvironment() string {
	if os.Getenv("INSTANCE_CONNECTION_NAME") != "" {
		return "Production (Cloud Run)"
	}
	return "Development (Local)"
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL + Redis"
}

func getMessagingProvider() string {
	if os.Getenv("MESSAGING_PROVIDER") == "twilio" {
		return "Twilio"
	}
	return "WhatsApp Cloud API"
}
