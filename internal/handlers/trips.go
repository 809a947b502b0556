package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"tugende-backend/internal/middleware"
	"tugende-backend/internal/models"
	"tugende-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const maxTripSeats = 8

// TripWithAvailability pairs a trip with its derived seat availability
type TripWithAvailability struct {
	models.Trip
	BookedSeats    int `json:"booked_seats" db:"booked_seats"`
	SeatsRemaining int `json:"seats_remaining" db:"-"`
}

// GetTrips lists ACTIVE carpooling trips, optionally filtered by route and
// date
func GetTrips(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := `
			SELECT t.*, COALESCE(SUM(b.seats) FILTER (WHERE b.status = ANY($1)), 0) AS booked_seats
			FROM trips t
			LEFT JOIN bookings b ON b.trip_id = t.id
			WHERE t.status = 'ACTIVE'`
		args := []interface{}{pq.Array(models.SeatHoldingStatuses())}

		if from := strings.TrimSpace(r.URL.Query().Get("from")); from != "" {
			args = append(args, from)
			query += fmt.Sprintf(" AND t.depart_city ILIKE $%d", len(args))
		}
		if to := strings.TrimSpace(r.URL.Query().Get("to")); to != "" {
			args = append(args, to)
			query += fmt.Sprintf(" AND t.destination_city ILIKE $%d", len(args))
		}
		if date := strings.TrimSpace(r.URL.Query().Get("date")); date != "" {
			args = append(args, date)
			query += fmt.Sprintf(" AND t.trip_date = $%d", len(args))
		}

		query += ` GROUP BY t.id ORDER BY t.trip_date ASC, t.trip_time ASC`

		var trips []TripWithAvailability
		if err := db.Select(&trips, query, args...); err != nil {
			log.Printf("❌ Failed to list trips: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		for i := range trips {
			trips[i].SeatsRemaining = models.SeatsRemaining(trips[i].AvailableSeats, trips[i].BookedSeats)
		}

		utils.RespondData(w, http.StatusOK, trips)
	}
}

// GetTrip returns a single trip with its derived availability
func GetTrip(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tripID := chi.URLParam(r, "id")

		var trip TripWithAvailability
		err := db.Get(&trip, `
			SELECT t.*, COALESCE(SUM(b.seats) FILTER (WHERE b.status = ANY($2)), 0) AS booked_seats
			FROM trips t
			LEFT JOIN bookings b ON b.trip_id = t.id
			WHERE t.id = $1
			GROUP BY t.id`,
			tripID, pq.Array(models.SeatHoldingStatuses()),
		)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Trip not found")
			return
		}
		if err != nil {
			log.Printf("❌ Failed to load trip: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		trip.SeatsRemaining = models.SeatsRemaining(trip.AvailableSeats, trip.BookedSeats)
		utils.RespondData(w, http.StatusOK, trip)
	}
}

type CreateTripRequest struct {
	DepartCity          string `json:"depart_city"`
	DepartLocation      string `json:"depart_location"`
	DestinationCity     string `json:"destination_city"`
	DestinationLocation string `json:"destination_location"`
	Date                string `json:"date"`
	Time                string `json:"time"`
	AvailableSeats      int    `json:"available_seats"`
	Price               int    `json:"price"`
}

func (req *CreateTripRequest) validate(now time.Time) map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(req.DepartCity) == "" {
		fields["depart_city"] = "departure city is required"
	}
	if strings.TrimSpace(req.DepartLocation) == "" {
		fields["depart_location"] = "departure location is required"
	}
	if strings.TrimSpace(req.DestinationCity) == "" {
		fields["destination_city"] = "destination city is required"
	}
	if strings.TrimSpace(req.DestinationLocation) == "" {
		fields["destination_location"] = "destination location is required"
	}
	if req.AvailableSeats < 1 || req.AvailableSeats > maxTripSeats {
		fields["available_seats"] = "seats must be between 1 and 8"
	}
	if req.Price < 0 {
		fields["price"] = "price must not be negative"
	}
	if _, err := models.ValidateTripSchedule(req.Date, req.Time, now); err != nil {
		fields["date"] = err.Error()
	}
	return fields
}

// CreateTrip posts a new carpooling trip. Only verified drivers may post.
func CreateTrip(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		var user models.User
		if err := db.Get(&user, "SELECT * FROM users WHERE id = $1", userClaims.UserID); err != nil {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		if user.Role != models.RoleDriver || !user.DriverVerified {
			utils.RespondError(w, http.StatusForbidden, utils.CodePolicyViolation,
				"Driver verification required before posting trips")
			return
		}

		var req CreateTripRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, utils.CodeValidation, "Invalid request body")
			return
		}

		if fields := req.validate(time.Now()); len(fields) > 0 {
			utils.RespondValidationError(w, fields)
			return
		}

		now := time.Now().Unix()
		trip := models.Trip{
			ID:                  uuid.New().String(),
			DriverID:            user.ID,
			DepartCity:          strings.TrimSpace(req.DepartCity),
			DepartLocation:      strings.TrimSpace(req.DepartLocation),
			DestinationCity:     strings.TrimSpace(req.DestinationCity),
			DestinationLocation: strings.TrimSpace(req.DestinationLocation),
			TripDate:            req.Date,
			TripTime:            req.Time,
			AvailableSeats:      req.AvailableSeats,
			Price:               req.Price,
			Status:              models.TripStatusActive,
			CreatedAt:           now,
			UpdatedAt:           now,
		}

		_, err := db.Exec(`
			INSERT INTO trips (
				id, driver_id, depart_city, depart_location, destination_city,
				destination_location, trip_date, trip_time, available_seats,
				price, status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			trip.ID, trip.DriverID, trip.DepartCity, trip.DepartLocation,
			trip.DestinationCity, trip.DestinationLocation, trip.TripDate,
			trip.TripTime, trip.AvailableSeats, trip.Price, trip.Status,
			trip.CreatedAt, trip.UpdatedAt,
		)
		if err != nil {
			log.Printf("❌ Failed to create trip: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		log.Printf("✅ Trip created: %s %s → %s on %s %s", trip.ID, trip.DepartCity, trip.DestinationCity, trip.TripDate, trip.TripTime)
		utils.RespondData(w, http.StatusCreated, trip)
	}
}

type UpdateTripRequest struct {
	DepartLocation      *string `json:"depart_location"`
	DestinationLocation *string `json:"destination_location"`
	Date                *string `json:"date"`
	Time                *string `json:"time"`
	AvailableSeats      *int    `json:"available_seats"`
	Price               *int    `json:"price"`
	Status              *string `json:"status"`
}

// UpdateTrip lets the owning driver adjust or cancel a trip. Capacity can
// never drop below seats already promised to bookings.
func UpdateTrip(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		tripID := chi.URLParam(r, "id")

		var req UpdateTripRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, utils.CodeValidation, "Invalid request body")
			return
		}

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		defer tx.Rollback()

		var trip models.Trip
		err = tx.Get(&trip, "SELECT * FROM trips WHERE id = $1 FOR UPDATE", tripID)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Trip not found")
			return
		}
		if err != nil {
			log.Printf("❌ Failed to load trip: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if trip.DriverID != userClaims.UserID {
			utils.RespondError(w, http.StatusForbidden, utils.CodeForbidden, "Only the trip's driver may update it")
			return
		}
		if trip.Status != models.TripStatusActive {
			utils.RespondError(w, http.StatusConflict, utils.CodeConflict, "Only active trips can be updated")
			return
		}

		if req.DepartLocation != nil && strings.TrimSpace(*req.DepartLocation) != "" {
			trip.DepartLocation = strings.TrimSpace(*req.DepartLocation)
		}
		if req.DestinationLocation != nil && strings.TrimSpace(*req.DestinationLocation) != "" {
			trip.DestinationLocation = strings.TrimSpace(*req.DestinationLocation)
		}
		if req.Date != nil {
			trip.TripDate = *req.Date
		}
		if req.Time != nil {
			trip.TripTime = *req.Time
		}
		if req.Date != nil || req.Time != nil {
			if _, err := models.ValidateTripSchedule(trip.TripDate, trip.TripTime, time.Now()); err != nil {
				utils.RespondValidationError(w, map[string]string{"date": err.Error()})
				return
			}
		}
		if req.Price != nil {
			if *req.Price < 0 {
				utils.RespondValidationError(w, map[string]string{"price": "price must not be negative"})
				return
			}
			trip.Price = *req.Price
		}

		if req.AvailableSeats != nil {
			if *req.AvailableSeats < 1 || *req.AvailableSeats > maxTripSeats {
				utils.RespondValidationError(w, map[string]string{"available_seats": "seats must be between 1 and 8"})
				return
			}
			var booked int
			err = tx.Get(&booked, `
				SELECT COALESCE(SUM(seats), 0) FROM bookings
				WHERE trip_id = $1 AND status = ANY($2)`,
				trip.ID, pq.Array(models.SeatHoldingStatuses()),
			)
			if err != nil {
				log.Printf("❌ Failed to sum booked seats: %v", err)
				utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
				return
			}
			if *req.AvailableSeats < booked {
				utils.RespondError(w, http.StatusConflict, utils.CodeConflict, "Cannot reduce seats below seats already booked")
				return
			}
			trip.AvailableSeats = *req.AvailableSeats
		}

		if req.Status != nil {
			if models.TripStatus(*req.Status) != models.TripStatusCancelled {
				utils.RespondValidationError(w, map[string]string{"status": "only CANCELLED can be set by the driver"})
				return
			}
			trip.Status = models.TripStatusCancelled
		}

		trip.UpdatedAt = time.Now().Unix()
		_, err = tx.Exec(`
			UPDATE trips SET depart_location = $1, destination_location = $2,
				trip_date = $3, trip_time = $4, available_seats = $5,
				price = $6, status = $7, updated_at = $8
			WHERE id = $9`,
			trip.DepartLocation, trip.DestinationLocation, trip.TripDate,
			trip.TripTime, trip.AvailableSeats, trip.Price, trip.Status,
			trip.UpdatedAt, trip.ID,
		)
		if err != nil {
			log.Printf("❌ Failed to update trip: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if err := tx.Commit(); err != nil {
			log.Printf("❌ Failed to commit trip update: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, trip)
	}
}

// DeleteTrip removes a trip that has no confirmed or completed bookings
func DeleteTrip(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		tripID := chi.URLParam(r, "id")

		tx, err := db.Beginx()
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		defer tx.Rollback()

		var trip models.Trip
		err = tx.Get(&trip, "SELECT * FROM trips WHERE id = $1 FOR UPDATE", tripID)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Trip not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if trip.DriverID != userClaims.UserID {
			utils.RespondError(w, http.StatusForbidden, utils.CodeForbidden, "Only the trip's driver may delete it")
			return
		}

		var held int
		err = tx.Get(&held, `
			SELECT COUNT(*) FROM bookings
			WHERE trip_id = $1 AND status IN ('CONFIRMED', 'COMPLETED')`,
			trip.ID,
		)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		if held > 0 {
			utils.RespondError(w, http.StatusConflict, utils.CodeConflict,
				"Trip has confirmed bookings and cannot be deleted; cancel it instead")
			return
		}

		if _, err := tx.Exec("DELETE FROM trips WHERE id = $1", trip.ID); err != nil {
			log.Printf("❌ Failed to delete trip: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if err := tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		log.Printf("🗑️  Trip deleted: %s", trip.ID)
		utils.RespondData(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}

// GetMyTrips lists trips posted by the calling driver
func GetMyTrips(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		var trips []TripWithAvailability
		err := db.Select(&trips, `
			SELECT t.*, COALESCE(SUM(b.seats) FILTER (WHERE b.status = ANY($2)), 0) AS booked_seats
			FROM trips t
			LEFT JOIN bookings b ON b.trip_id = t.id
			WHERE t.driver_id = $1
			GROUP BY t.id
			ORDER BY t.trip_date DESC, t.trip_time DESC`,
			userClaims.UserID, pq.Array(models.SeatHoldingStatuses()),
		)
		if err != nil {
			log.Printf("❌ Failed to list driver trips: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		for i := range trips {
			trips[i].SeatsRemaining = models.SeatsRemaining(trips[i].AvailableSeats, trips[i].BookedSeats)
		}

		utils.RespondData(w, http.StatusOK, trips)
	}
}
