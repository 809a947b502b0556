package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"tugende-backend/internal/middleware"
	"tugende-backend/internal/models"
	"tugende-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const maxBusSeats = 80

type BusTripRequest struct {
	AgencyName          string `json:"agency_name"`
	DepartCity          string `json:"depart_city"`
	DepartLocation      string `json:"depart_location"`
	DestinationCity     string `json:"destination_city"`
	DestinationLocation string `json:"destination_location"`
	Date                string `json:"date"`
	Time                string `json:"time"`
	TotalSeats          int    `json:"total_seats"`
	Price               int    `json:"price"`
}

func (req *BusTripRequest) validate(now time.Time) map[string]string {
	fields := map[string]string{}
	if req.AgencyName == "" {
		fields["agency_name"] = "agency_name is required"
	}
	if req.DepartCity == "" {
		fields["depart_city"] = "depart_city is required"
	}
	if req.DestinationCity == "" {
		fields["destination_city"] = "destination_city is required"
	}
	if req.DepartCity != "" && req.DepartCity == req.DestinationCity {
		fields["destination_city"] = "destination must differ from departure"
	}
	if _, err := models.ValidateTripSchedule(req.Date, req.Time, now); err != nil {
		fields["date"] = err.Error()
	}
	if req.TotalSeats < 1 || req.TotalSeats > maxBusSeats {
		fields["total_seats"] = "total_seats must be between 1 and 80"
	}
	if req.Price <= 0 {
		fields["price"] = "price must be a positive amount in RWF"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// GetBusTrips lists ACTIVE bus trips, optionally filtered by route and date
func GetBusTrips(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := `SELECT * FROM bus_trips WHERE status = 'ACTIVE'`
		args := []interface{}{}

		if from := r.URL.Query().Get("from"); from != "" {
			args = append(args, from)
			query += fmt.Sprintf(" AND depart_city ILIKE $%d", len(args))
		}
		if to := r.URL.Query().Get("to"); to != "" {
			args = append(args, to)
			query += fmt.Sprintf(" AND destination_city ILIKE $%d", len(args))
		}
		if date := r.URL.Query().Get("date"); date != "" {
			args = append(args, date)
			query += fmt.Sprintf(" AND trip_date = $%d", len(args))
		}
		query += " ORDER BY trip_date ASC, trip_time ASC"

		var trips []models.BusTrip
		if err := db.Select(&trips, query, args...); err != nil {
			log.Printf("❌ Failed to list bus trips: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, trips)
	}
}

// GetBusTrip returns a single bus trip by ID
func GetBusTrip(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var trip models.BusTrip
		err := db.Get(&trip, "SELECT * FROM bus_trips WHERE id = $1", chi.URLParam(r, "id"))
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Bus trip not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}
		utils.RespondData(w, http.StatusOK, trip)
	}
}

// CreateBusTrip posts a new departure for the calling agency
func CreateBusTrip(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		var req BusTripRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, utils.CodeValidation, "Invalid request body")
			return
		}
		if fields := req.validate(time.Now()); fields != nil {
			utils.RespondValidationError(w, fields)
			return
		}

		now := time.Now().Unix()
		trip := models.BusTrip{
			ID:                  uuid.New().String(),
			AgencyID:            userClaims.UserID,
			AgencyName:          req.AgencyName,
			DepartCity:          req.DepartCity,
			DepartLocation:      req.DepartLocation,
			DestinationCity:     req.DestinationCity,
			DestinationLocation: req.DestinationLocation,
			TripDate:            req.Date,
			TripTime:            req.Time,
			TotalSeats:          req.TotalSeats,
			AvailableSeats:      req.TotalSeats,
			Price:               req.Price,
			Status:              models.BusTripStatusActive,
			CreatedAt:           now,
			UpdatedAt:           now,
		}

		_, err := db.Exec(`
			INSERT INTO bus_trips (id, agency_id, agency_name, depart_city, depart_location,
				destination_city, destination_location, trip_date, trip_time,
				total_seats, available_seats, price, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			trip.ID, trip.AgencyID, trip.AgencyName, trip.DepartCity, trip.DepartLocation,
			trip.DestinationCity, trip.DestinationLocation, trip.TripDate, trip.TripTime,
			trip.TotalSeats, trip.AvailableSeats, trip.Price, trip.Status,
			trip.CreatedAt, trip.UpdatedAt,
		)
		if err != nil {
			log.Printf("❌ Failed to create bus trip: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		log.Printf("✅ Bus trip created: %s %s → %s on %s %s", trip.ID, trip.DepartCity, trip.DestinationCity, trip.TripDate, trip.TripTime)
		utils.RespondData(w, http.StatusCreated, trip)
	}
}

type UpdateBusTripRequest struct {
	Price  *int    `json:"price"`
	Status *string `json:"status"`
}

// UpdateBusTrip lets the owning agency adjust price or cancel a departure.
// Seat counts are never edited directly; the ticket ledger owns them.
func UpdateBusTrip(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		var req UpdateBusTripRequest
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

		var trip models.BusTrip
		err = tx.Get(&trip, "SELECT * FROM bus_trips WHERE id = $1 FOR UPDATE", chi.URLParam(r, "id"))
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, utils.CodeNotFound, "Bus trip not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if trip.AgencyID != userClaims.UserID {
			utils.RespondError(w, http.StatusForbidden, utils.CodeForbidden, "Only the owning agency may update this trip")
			return
		}
		if trip.Status != models.BusTripStatusActive {
			utils.RespondError(w, http.StatusConflict, utils.CodePolicyViolation, "Only ACTIVE bus trips can be updated")
			return
		}

		if req.Price != nil {
			if *req.Price <= 0 {
				utils.RespondValidationError(w, map[string]string{"price": "price must be a positive amount in RWF"})
				return
			}
			trip.Price = *req.Price
		}
		if req.Status != nil {
			if *req.Status != string(models.BusTripStatusCancelled) {
				utils.RespondError(w, http.StatusConflict, utils.CodePolicyViolation, "Status can only be changed to CANCELLED")
				return
			}
			trip.Status = models.BusTripStatusCancelled
		}

		trip.UpdatedAt = time.Now().Unix()
		if _, err := tx.Exec("UPDATE bus_trips SET price = $1, status = $2, updated_at = $3 WHERE id = $4",
			trip.Price, trip.Status, trip.UpdatedAt, trip.ID); err != nil {
			log.Printf("❌ Failed to update bus trip: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		if err := tx.Commit(); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, trip)
	}
}

// GetAgencyBusTrips lists the calling agency's own departures
func GetAgencyBusTrips(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized")
			return
		}

		var trips []models.BusTrip
		err := db.Select(&trips, `
			SELECT * FROM bus_trips WHERE agency_id = $1
			ORDER BY trip_date DESC, trip_time DESC`,
			userClaims.UserID,
		)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, utils.CodeInternal, "Database error")
			return
		}

		utils.RespondData(w, http.StatusOK, trips)
	}
}
