package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hamza-damra/AgrifinPal-sub000/cart"
	"github.com/hamza-damra/AgrifinPal-sub000/checkout"
	"github.com/hamza-damra/AgrifinPal-sub000/events"
	"github.com/hamza-damra/AgrifinPal-sub000/inventory"
	"github.com/hamza-damra/AgrifinPal-sub000/lock"
	"github.com/hamza-damra/AgrifinPal-sub000/models"
	"github.com/hamza-damra/AgrifinPal-sub000/routes"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	log.Println("✅ Starting application...")

	// Load environment variables
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("❌ Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Init DB
	db := initDatabase()

	// Auto-migrate all tables
	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		log.Fatalf("❌ AutoMigrate failed: %v", err)
	}

	// Per-user locking: Redis when configured (multi-instance deployments),
	// in-process keyed mutex otherwise.
	var locker lock.UserLocker = lock.NewKeyedMutex()
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("❌ Invalid REDIS_URL: %v", err)
		}
		locker = lock.NewRedisLocker(redis.NewClient(opts), logger)
		log.Println("✅ Using Redis user locks")
	}

	// Checkout engine wiring
	guard := inventory.NewGuard(db, logger)
	carts := cart.NewManager(db, guard, locker, logger)
	materializer := checkout.NewMaterializer(db, locker, logger)
	finalizer := checkout.NewFinalizer(db, carts, locker, logger)

	// Order events are optional; without a broker they are dropped.
	var publisher *events.Publisher
	if os.Getenv("RABBITMQ_URL") != "" {
		conn := events.MustDial()
		defer conn.Close()
		publisher, err = events.NewPublisher(conn, logger)
		if err != nil {
			log.Fatalf("❌ Failed to set up event publisher: %v", err)
		}
		log.Println("✅ Order events enabled")
	}

	// Gin setup
	r := gin.Default()

	// CORS settings
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Setup routes
	routes.SetupRoutes(r, routes.Deps{
		DB:           db,
		Carts:        carts,
		Materializer: materializer,
		Finalizer:    finalizer,
		Events:       publisher,
		Log:          logger,
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("🚀 Server running on port %s...", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// initDatabase sets up the GORM DB connection
func initDatabase() *gorm.DB {
	cfg := &gorm.Config{TranslateError: true}

	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		db, err := gorm.Open(postgres.Open(databaseURL), cfg)
		if err != nil {
			log.Fatalf("❌ DB connection failed: %v", err)
		}
		return db
	}

	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, user, password, dbname, port,
	)

	db, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect DB: %v", err)
	}
	return db
}
