package database

import (
	"log"
	"os"
	"time"

	"tugende-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// SeedUsers creates the bootstrap super admin and a demo agency account.
// Phone users self-register through the OTP flow, so only staff accounts
// are seeded.
func SeedUsers(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users WHERE role IN ('admin', 'super_admin', 'agency')"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Staff users already seeded, skipping...")
		return nil
	}

	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "changeme-now"
		log.Println("⚠️  SEED_ADMIN_PASSWORD not set, using a default - change it immediately")
	}

	now := time.Now().Unix()

	staff := []struct {
		phone    string
		email    string
		password string
		name     string
		role     string
	}{
		{"+250788000001", "admin@tugende.rw", adminPassword, "Tugende Admin", models.RoleSuperAdmin},
		{"+250788000002", "ops@volcanoexpress.rw", adminPassword, "Volcano Express", models.RoleAgency},
	}

	for _, s := range staff {
		hashed, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		_, err = db.Exec(`
			INSERT INTO users (id, phone, email, password, name, role, phone_verified, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)`,
			uuid.New().String(), s.phone, s.email, string(hashed), s.name, s.role, now, now,
		)
		if err != nil {
			return err
		}
		log.Printf("🌱 Seeded %s account: %s", s.role, s.email)
	}

	return nil
}

// SeedBusTrips creates a handful of upcoming inter-city departures for the
// demo agency so the listing endpoints return data on a fresh install.
func SeedBusTrips(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM bus_trips"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Bus trips already seeded, skipping...")
		return nil
	}

	var agency models.User
	if err := db.Get(&agency, "SELECT * FROM users WHERE role = 'agency' LIMIT 1"); err != nil {
		log.Println("⚠️  No agency account found, skipping bus trip seed")
		return nil
	}

	now := time.Now()
	nowUnix := now.Unix()
	tomorrow := now.AddDate(0, 0, 1).In(models.KigaliTZ).Format(models.TripDateLayout)
	nextWeek := now.AddDate(0, 0, 7).In(models.KigaliTZ).Format(models.TripDateLayout)

	trips := []struct {
		from, fromLoc, to, toLoc string
		date, clock              string
		seats, price             int
	}{
		{"Kigali", "Nyabugogo Bus Park", "Musanze", "Musanze Bus Station", tomorrow, "07:00", 30, 3500},
		{"Kigali", "Nyabugogo Bus Park", "Rubavu", "Gisenyi Terminal", tomorrow, "08:30", 30, 5000},
		{"Kigali", "Remera Bus Park", "Huye", "Huye Bus Station", tomorrow, "09:00", 28, 4000},
		{"Musanze", "Musanze Bus Station", "Kigali", "Nyabugogo Bus Park", nextWeek, "16:00", 30, 3500},
		{"Rusizi", "Kamembe Terminal", "Kigali", "Nyabugogo Bus Park", nextWeek, "06:30", 26, 7000},
	}

	log.Printf("🌱 Seeding %d bus trips for %s...", len(trips), agency.Name)

	for _, t := range trips {
		_, err := db.Exec(`
			INSERT INTO bus_trips (
				id, agency_id, agency_name, depart_city, depart_location,
				destination_city, destination_location, trip_date, trip_time,
				total_seats, available_seats, price, status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 'ACTIVE', $13, $14)`,
			uuid.New().String(), agency.ID, agency.Name, t.from, t.fromLoc,
			t.to, t.toLoc, t.date, t.clock, t.seats, t.seats, t.price, nowUnix, nowUnix,
		)
		if err != nil {
			return err
		}
	}

	log.Println("✅ Bus trips seeded")
	return nil
}
