package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"tugende-backend/internal/database"
	"tugende-backend/internal/handlers"
	"tugende-backend/internal/metrics"
	"tugende-backend/internal/middleware"
	"tugende-backend/internal/models"
	"tugende-backend/internal/services"
	"tugende-backend/internal/storage"
	"tugende-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 TUGENDE BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	if os.Getenv("APP_JWT_SECRET") == "" {
		log.Fatal("❌ FATAL ERROR: APP_JWT_SECRET environment variable is required")
	}

	// Get database URL
	log.Println("🔍 Checking DATABASE_URL environment variable...")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: DATABASE_URL environment variable is required")
		log.Println("   Please set DATABASE_URL in the deployment variables or .env file")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal("DATABASE_URL environment variable is required")
	}
	log.Println("✅ DATABASE_URL found")

	// Connect to database
	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(dbURL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database connection failed")
		log.Printf("   Error: %v", err)
		log.Println("   This is usually caused by:")
		log.Println("   1. Wrong DATABASE_URL format")
		log.Println("   2. PostgreSQL service is down")
		log.Println("   3. Network connectivity issue")
		log.Println("   4. Invalid credentials")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer db.Close()
	log.Println("✅ Database connection established")

	// Run migrations
	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database migrations failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Println("✅ Database migrations completed")

	// Seed database
	log.Println("🌱 Seeding database with initial data...")
	if err := database.SeedUsers(db); err != nil {
		log.Fatalf("❌ FATAL ERROR: User seeding failed: %v", err)
	}
	log.Println("✅ Users seeded successfully")

	if err := database.SeedBusTrips(db); err != nil {
		log.Fatalf("❌ FATAL ERROR: Bus trip seeding failed: %v", err)
	}
	log.Println("✅ Bus trips seeded successfully")

	// Connect to Redis (OTP storage)
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
		log.Printf("⚠️  REDIS_ADDR not set, using default: %s", redisAddr)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Redis connection failed (OTP login requires Redis)")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer rdb.Close()
	log.Println("✅ Redis connection established")

	otpStore := services.NewOTPStore(rdb)

	// Mock providers; swapped for real integrations at launch
	smsSender := services.NewMockSMSSender()
	momoClient := services.NewMockMomoClient()
	log.Println("✅ SMS and MoMo providers initialized (mock mode)")

	// File storage for profile photos and verification documents
	storageDir := os.Getenv("STORAGE_DIR")
	if storageDir == "" {
		storageDir = "./uploads"
		log.Printf("⚠️  STORAGE_DIR not set, using default: %s", storageDir)
	}
	store, err := storage.NewLocalStore(storageDir)
	if err != nil {
		log.Fatalf("❌ FATAL ERROR: Failed to initialize storage: %v", err)
	}
	log.Printf("✅ File storage initialized at %s", storageDir)

	// Initialize Firebase Cloud Messaging
	// Supports both file path and base64-encoded credentials (for cloud deployments)
	var fcmService *services.FCMService
	fcmCredsBase64 := os.Getenv("FIREBASE_CREDENTIALS_BASE64")

	if fcmCredsBase64 != "" {
		fcmService, err = services.NewFCMServiceFromBase64(fcmCredsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		}
	} else {
		fcmCredentialsFile := os.Getenv("FIREBASE_CREDENTIALS_FILE")
		if fcmCredentialsFile == "" {
			fcmCredentialsFile = "./firebase-service-account.json"
		}

		fcmService, err = services.NewFCMService(fcmCredentialsFile)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from file")
		}
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	metrics.RegisterWebsocketClients(wsHub.ClientCount)
	log.Println("✅ WebSocket hub started")

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Authentication (no auth required)
		r.Post("/auth/otp/request", handlers.RequestOTP(otpStore, smsSender))
		r.Post("/auth/otp/verify", handlers.VerifyOTP(db, otpStore))
		r.Post("/auth/login", handlers.Login(db))

		// Public trip search
		r.Get("/trips", handlers.GetTrips(db))
		r.Get("/trips/{id}", handlers.GetTrip(db))
		r.Get("/bus-trips", handlers.GetBusTrips(db))
		r.Get("/bus-trips/{id}", handlers.GetBusTrip(db))

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			r.Get("/auth/status", handlers.GetAuthStatus(db))

			// Profile
			r.Get("/users/me", handlers.GetMe(db))
			r.Patch("/users/me", handlers.UpdateMe(db))
			r.Post("/users/me/photo", handlers.UploadProfilePhoto(db, store))
			r.Post("/users/me/fcm-token", handlers.RegisterFCMToken(db))
			r.Delete("/users/me/data", handlers.EraseMyData())

			// Carpooling trips (driver side)
			r.Post("/trips", handlers.CreateTrip(db))
			r.Patch("/trips/{id}", handlers.UpdateTrip(db))
			r.Delete("/trips/{id}", handlers.DeleteTrip(db))
			r.Get("/my-trips", handlers.GetMyTrips(db))
			r.Get("/trips/{id}/bookings", handlers.GetTripBookings(db))

			// Booking ledger
			r.Post("/bookings", handlers.CreateBooking(db, wsHub, fcmService, momoClient, smsSender))
			r.Post("/bookings/{id}/confirm", handlers.ConfirmBooking(db, wsHub, fcmService))
			r.Post("/bookings/{id}/cancel", handlers.CancelBooking(db, wsHub, fcmService, momoClient))
			r.Post("/bookings/{id}/complete", handlers.CompleteBooking(db))
			r.Get("/my-bookings", handlers.GetMyBookings(db))

			// Booking-scoped chat
			r.Get("/bookings/{id}/messages", handlers.GetBookingMessages(db))
			r.Post("/bookings/{id}/messages", handlers.SendBookingMessage(db, wsHub, fcmService))

			// Bus tickets
			r.Post("/ticket-bookings", handlers.CreateTicketBooking(db, momoClient, smsSender))
			r.Post("/ticket-bookings/{id}/cancel", handlers.CancelTicketBooking(db, momoClient))
			r.Get("/my-ticket-bookings", handlers.GetMyTickets(db))

			// Driver verification (driver side)
			r.Post("/verification", handlers.CreateVerificationDraft(db))
			r.Get("/verification/current", handlers.GetCurrentSubmission(db))
			r.Put("/verification/{id}/steps/{step}", handlers.SaveVerificationStep(db))
			r.Post("/verification/{id}/documents/{docType}", handlers.UploadVerificationDocument(db, store))
			r.Get("/verification/{id}/documents/{docType}", handlers.GetVerificationDocument(db, store))
			r.Post("/verification/{id}/submit", handlers.SubmitVerification(db))
		})

		// Agency endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)
			r.Use(middleware.RequireRole(models.RoleAgency))

			r.Post("/agency/bus-trips", handlers.CreateBusTrip(db))
			r.Patch("/agency/bus-trips/{id}", handlers.UpdateBusTrip(db))
			r.Get("/agency/bus-trips", handlers.GetAgencyBusTrips(db))
			r.Get("/agency/bus-trips/{id}/tickets", handlers.GetBusTripTickets(db))
		})

		// Admin endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)
			r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))

			r.Get("/admin/verifications", handlers.ListVerificationSubmissions(db))
			r.Get("/admin/verifications/{id}", handlers.GetVerificationSubmission(db))
			r.Post("/admin/verifications/{id}/review", handlers.ReviewVerificationSubmission(db, wsHub, fcmService))
		})
	})

	// Get port
	log.Println("🔍 Checking PORT environment variable...")
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		log.Printf("⚠️  PORT not set, using default: %s", port)
	} else {
		log.Printf("✅ PORT found: %s", port)
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", port)
	log.Println("🔌 Ready to accept requests!")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Start server
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Server failed to start")
		log.Printf("   Error: %v", err)
		log.Printf("   Port: %s", port)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
}
