package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("🔌 DATABASE CONNECTION ATTEMPT")
	log.Printf("   📍 Database URL length: %d characters", len(dbURL))
	log.Printf("   📍 URL prefix: %s...", dbURL[:min(30, len(dbURL))])
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Println("❌ DATABASE CONNECTION FAILED AT sqlx.Connect()")
		log.Printf("   Error: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Println("❌ DATABASE CONNECTION FAILED AT Ping()")
		log.Printf("   Error: %v", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ DATABASE CONNECTION SUCCESSFUL")
	return db, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Create users table
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			phone TEXT NOT NULL UNIQUE,
			email TEXT UNIQUE,
			password TEXT,
			name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL CHECK(role IN ('passenger', 'driver', 'agency', 'admin', 'super_admin')),
			phone_verified BOOLEAN NOT NULL DEFAULT FALSE,
			driver_verified BOOLEAN NOT NULL DEFAULT FALSE,
			national_id TEXT,
			driving_license_number TEXT,
			license_plate TEXT,
			profile_photo_path TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create trips table (carpooling; booked seats are derived from
		// booking rows, never stored)
		`CREATE TABLE IF NOT EXISTS trips (
			id TEXT PRIMARY KEY,
			driver_id TEXT NOT NULL REFERENCES users(id),
			depart_city TEXT NOT NULL,
			depart_location TEXT NOT NULL,
			destination_city TEXT NOT NULL,
			destination_location TEXT NOT NULL,
			trip_date TEXT NOT NULL,
			trip_time TEXT NOT NULL,
			available_seats INT NOT NULL CHECK(available_seats > 0),
			price INT NOT NULL CHECK(price >= 0),
			status TEXT NOT NULL CHECK(status IN ('ACTIVE', 'COMPLETED', 'CANCELLED')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create bookings table
		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT PRIMARY KEY,
			trip_id TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES users(id),
			seats INT NOT NULL CHECK(seats BETWEEN 1 AND 4),
			status TEXT NOT NULL CHECK(status IN ('PENDING', 'CONFIRMED', 'CANCELLED', 'COMPLETED')),
			momo_transaction_id TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_trip_status ON bookings(trip_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user_status ON bookings(user_id, status)`,

		// Create bus_trips table (agency-owned; available_seats is a live
		// counter kept consistent transactionally)
		`CREATE TABLE IF NOT EXISTS bus_trips (
			id TEXT PRIMARY KEY,
			agency_id TEXT NOT NULL REFERENCES users(id),
			agency_name TEXT NOT NULL,
			depart_city TEXT NOT NULL,
			depart_location TEXT NOT NULL,
			destination_city TEXT NOT NULL,
			destination_location TEXT NOT NULL,
			trip_date TEXT NOT NULL,
			trip_time TEXT NOT NULL,
			total_seats INT NOT NULL CHECK(total_seats > 0),
			available_seats INT NOT NULL CHECK(available_seats >= 0),
			price INT NOT NULL CHECK(price >= 0),
			status TEXT NOT NULL CHECK(status IN ('ACTIVE', 'COMPLETED', 'CANCELLED')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create ticket_bookings table
		`CREATE TABLE IF NOT EXISTS ticket_bookings (
			id TEXT PRIMARY KEY,
			bus_trip_id TEXT NOT NULL REFERENCES bus_trips(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES users(id),
			seats INT NOT NULL CHECK(seats BETWEEN 1 AND 4),
			status TEXT NOT NULL CHECK(status IN ('CONFIRMED', 'CANCELLED', 'COMPLETED')),
			momo_transaction_id TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_ticket_bookings_bus_trip ON ticket_bookings(bus_trip_id, status)`,

		// Create driver_verification_submissions table (one row per
		// versioned attempt; history is never rewritten)
		`CREATE TABLE IF NOT EXISTS driver_verification_submissions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			version INT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('DRAFT', 'SUBMITTED', 'IN_REVIEW', 'CHANGES_REQUESTED', 'APPROVED', 'REJECTED')),
			full_name TEXT,
			phone TEXT,
			date_of_birth TEXT,
			national_id_number TEXT,
			vehicle_make TEXT,
			vehicle_model TEXT,
			vehicle_year TEXT,
			vehicle_color TEXT,
			license_plate TEXT,
			driving_license_number TEXT,
			license_expiry TEXT,
			insurance_expiry TEXT,
			national_id_front_path TEXT,
			national_id_back_path TEXT,
			license_front_path TEXT,
			license_back_path TEXT,
			yellow_card_path TEXT,
			insurance_path TEXT,
			vehicle_photo_front_path TEXT,
			vehicle_photo_rear_path TEXT,
			vehicle_photo_side_path TEXT,
			rejection_reason TEXT,
			reviewed_by TEXT,
			reviewed_at BIGINT,
			submitted_at BIGINT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			UNIQUE(user_id, version)
		)`,

		// Create verification_audit_logs table (append-only, no handler
		// updates or deletes rows)
		`CREATE TABLE IF NOT EXISTS verification_audit_logs (
			id SERIAL PRIMARY KEY,
			submission_id TEXT NOT NULL REFERENCES driver_verification_submissions(id),
			admin_id TEXT NOT NULL,
			action TEXT NOT NULL,
			reason TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create messages table (booking-scoped chat)
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			booking_id TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
			sender_id TEXT NOT NULL REFERENCES users(id),
			body TEXT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_messages_booking ON messages(booking_id, created_at)`,

		// Create fcm_tokens table
		`CREATE TABLE IF NOT EXISTS fcm_tokens (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token TEXT NOT NULL UNIQUE,
			device_type TEXT NOT NULL DEFAULT 'android',
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Printf("✅ Applied %d migrations", len(migrations))
	return nil
}
