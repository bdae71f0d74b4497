package db

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"hotel-scraper/models"

	"github.com/lib/pq"
)

// DB mirrors committed hotel records into Postgres. The JSONL log stays the
// source of truth; the mirror is for querying and is rebuilt idempotently by
// upserting on detail_url.
type DB struct {
	conn *sql.DB
}

// NewDB opens a connection using DATABASE_URL, or builds a connection string
// from the individual DB_* environment variables.
func NewDB() (*DB, error) {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "hotel_scraper")
		password := getEnvOrDefault("DB_PASSWORD", "")
		dbname := getEnvOrDefault("DB_NAME", "hotel_scraper")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the hotels table if it doesn't exist
func (db *DB) initSchema() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS hotels (
			detail_url TEXT PRIMARY KEY,
			hotel_code VARCHAR(16),
			name TEXT NOT NULL,
			city TEXT,
			address TEXT,
			phone VARCHAR(40),
			description TEXT,
			rating DOUBLE PRECISION,
			price DOUBLE PRECISION,
			currency VARCHAR(10),
			pet_allowed VARCHAR(10) NOT NULL DEFAULT 'unknown',
			pet_fee TEXT,
			pet_weight_limit TEXT,
			pet_species TEXT,
			pet_evidence TEXT,
			is_pet_friendly BOOLEAN NOT NULL DEFAULT FALSE,
			amenities TEXT[],
			extraction_errors TEXT,
			scraped_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT valid_pet_allowed CHECK (pet_allowed IN ('yes', 'no', 'unknown'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create hotels table: %w", err)
	}

	return nil
}

// UpsertHotel inserts or refreshes one record, keyed by detail_url. Running
// the mirror twice over the same log leaves the table unchanged.
func (db *DB) UpsertHotel(h *models.Hotel) error {
	var rating, price interface{}
	if h.Rating > 0 {
		rating = h.Rating
	}
	currency := ""
	if h.Price != nil {
		price = h.Price.Amount
		currency = h.Price.Currency
	}

	var errs []string
	for name, reason := range h.ExtractionErrors {
		errs = append(errs, name+"="+reason)
	}

	_, err := db.conn.Exec(`
		INSERT INTO hotels (
			detail_url, hotel_code, name, city, address, phone, description,
			rating, price, currency,
			pet_allowed, pet_fee, pet_weight_limit, pet_species, pet_evidence,
			is_pet_friendly, amenities, extraction_errors, scraped_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (detail_url) DO UPDATE SET
			hotel_code = EXCLUDED.hotel_code,
			name = EXCLUDED.name,
			city = EXCLUDED.city,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			description = EXCLUDED.description,
			rating = EXCLUDED.rating,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			pet_allowed = EXCLUDED.pet_allowed,
			pet_fee = EXCLUDED.pet_fee,
			pet_weight_limit = EXCLUDED.pet_weight_limit,
			pet_species = EXCLUDED.pet_species,
			pet_evidence = EXCLUDED.pet_evidence,
			is_pet_friendly = EXCLUDED.is_pet_friendly,
			amenities = EXCLUDED.amenities,
			extraction_errors = EXCLUDED.extraction_errors,
			scraped_at = EXCLUDED.scraped_at,
			updated_at = CURRENT_TIMESTAMP
	`,
		h.DetailURL, h.HotelCode, h.Name, h.City, h.Address, h.Phone, h.Description,
		rating, price, currency,
		string(h.PetPolicy.Allowed), h.PetPolicy.Fee, h.PetPolicy.WeightLimit,
		h.PetPolicy.Species, h.PetPolicy.Evidence,
		h.IsPetFriendly, pq.Array(h.Amenities), strings.Join(errs, "; "), h.ScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert hotel %s: %w", h.DetailURL, err)
	}

	return nil
}

// MirrorAll upserts every record, returning how many succeeded.
func (db *DB) MirrorAll(hotels []*models.Hotel) (int, error) {
	mirrored := 0
	for _, h := range hotels {
		if err := db.UpsertHotel(h); err != nil {
			return mirrored, err
		}
		mirrored++
	}
	return mirrored, nil
}

// HotelCount returns the number of mirrored rows.
func (db *DB) HotelCount() (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM hotels`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count hotels: %w", err)
	}
	return count, nil
}
