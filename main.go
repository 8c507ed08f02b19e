package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Serhat17/bonkback-sub000/handlers"
	"github.com/Serhat17/bonkback-sub000/middleware"
	"github.com/Serhat17/bonkback-sub000/models"
	"github.com/Serhat17/bonkback-sub000/services"
	"github.com/Serhat17/bonkback-sub000/utils"
	"github.com/Serhat17/bonkback-sub000/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Session-Token, X-Service-Token, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	policyService := services.NewPolicyService(db)
	creditService := services.NewCreditService(db)
	referralService := services.NewReferralService(db, creditService)
	ledgerService := services.NewLedgerService(db, policyService, creditService, referralService)
	balanceService := services.NewBalanceService(db)
	lockService := services.NewLockService(db)
	statementService := services.NewStatementService(db, balanceService)

	// --- CONFIGURE Sync Service Details for Cashback Users ---
	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("BONKBACK_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("BONKBACK_SERVICE_TOKEN environment variable not set")
	}
	// --- END CONFIG ---

	userSyncWorker := workers.NewCashbackUserSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", serviceToken)

	rateSyncClient := workers.NewRateSyncClient(db)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go workers.PollRates(ctx, rateSyncClient, 60*time.Second)

	go func() {
		log.Println("Starting Cashback User Sync Worker...")
		userSyncWorker.Start(ctx)
	}()

	sweeps := services.NewSweepScheduler(creditService, referralService, lockService, statementService)
	sweeps.Start()

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupCashbackRoutes(app, ledgerService)
	handlers.SetupWalletRoutes(app, balanceService, lockService, statementService)
	handlers.SetupReferralRoutes(app, referralService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Cashback User Sync Worker running")
	log.Println("✅ Rate polling running (every 60s)")
	log.Println("✅ Sweep scheduler running (credit release, clawback reconcile, referral unlock, lock expiry, statements)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
