// Deletes expired and used payout OTP codes and reports what is left.
// Usage: go run ./scripts/purge_otps [retention, default 24h]
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	retention := 24 * time.Hour
	if len(os.Args) > 1 {
		d, err := time.ParseDuration(os.Args[1])
		if err != nil {
			log.Fatalf("Invalid retention %q: %v", os.Args[1], err)
		}
		retention = d
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		os.Getenv("DB_HOST"), os.Getenv("DB_PORT"), os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"))

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	cutoff := time.Now().UTC().Add(-retention)

	result, err := db.Exec(`
		DELETE FROM payment_method_otps
		WHERE expires_at < $1
		   OR (verified = TRUE AND created_at < $1)
	`, cutoff)
	if err != nil {
		log.Fatal("Failed to purge OTP codes:", err)
	}
	rows, _ := result.RowsAffected()
	fmt.Printf("Deleted %d OTP codes older than %s\n", rows, cutoff.Format(time.RFC3339))

	var pending int
	if err := db.QueryRow(`
		SELECT COUNT(*) FROM payment_method_otps
		WHERE verified = FALSE AND expires_at >= NOW()
	`).Scan(&pending); err != nil {
		log.Printf("Warning: failed to count live codes: %v", err)
	}
	fmt.Printf("Live codes remaining: %d\n", pending)
}
