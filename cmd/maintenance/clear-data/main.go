package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/eswatinicommerce/msme-registry-backend/internal/config"
	"github.com/eswatinicommerce/msme-registry-backend/internal/database"
)

// Retention sweep for operators: hard-removes business records that were
// soft-deleted longer than the retention period ago, plus expired recovery
// data. The nightly counter recount absorbs the category counter changes.
func main() {
	var dbURLFlag string
	var retentionDays int
	var dryRun bool
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.IntVar(&retentionDays, "retention-days", 90, "Purge records soft-deleted more than this many days ago")
	flag.BoolVar(&dryRun, "dry-run", false, "Report what would be removed without deleting anything")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	// Build minimal database config without loading full app config
	dbCfg := config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	}

	db, err := database.NewConnection(dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	cutoff := fmt.Sprintf("NOW() - INTERVAL '%d days'", retentionDays)

	if dryRun {
		var records, challenges, attempts int
		err = db.QueryRow("SELECT COUNT(*) FROM business_records WHERE deleted_at IS NOT NULL AND deleted_at < " + cutoff).Scan(&records)
		if err != nil {
			log.Fatalf("failed to count purgeable records: %v", err)
		}
		err = db.QueryRow("SELECT COUNT(*) FROM password_reset_challenges WHERE otp_expires_at < NOW() AND (token_expires_at IS NULL OR token_expires_at < NOW())").Scan(&challenges)
		if err != nil {
			log.Fatalf("failed to count expired challenges: %v", err)
		}
		err = db.QueryRow("SELECT COUNT(*) FROM otp_failed_attempts WHERE created_at < NOW() - INTERVAL '1 day'").Scan(&attempts)
		if err != nil {
			log.Fatalf("failed to count stale attempts: %v", err)
		}
		fmt.Printf("Dry run: would purge %d business records, %d challenges, %d attempt records\n",
			records, challenges, attempts)
		return
	}

	fmt.Printf("Connected to database. Purging records soft-deleted before %d days ago...\n", retentionDays)

	result, err := db.Exec("DELETE FROM business_records WHERE deleted_at IS NOT NULL AND deleted_at < " + cutoff)
	if err != nil {
		log.Fatalf("failed to purge business records: %v", err)
	}
	records, _ := result.RowsAffected()

	result, err = db.Exec("DELETE FROM password_reset_challenges WHERE otp_expires_at < NOW() AND (token_expires_at IS NULL OR token_expires_at < NOW())")
	if err != nil {
		log.Fatalf("failed to clear expired challenges: %v", err)
	}
	challenges, _ := result.RowsAffected()

	result, err = db.Exec("DELETE FROM otp_failed_attempts WHERE created_at < NOW() - INTERVAL '1 day'")
	if err != nil {
		log.Fatalf("failed to clear stale attempts: %v", err)
	}
	attempts, _ := result.RowsAffected()

	fmt.Printf("Purged %d business records, %d challenges, %d attempt records.\n",
		records, challenges, attempts)

	// Verify by printing remaining row counts
	tables := []string{
		"business_records",
		"password_reset_challenges",
		"otp_failed_attempts",
	}

	fmt.Println("Post-sweep row counts:")
	for _, t := range tables {
		var count int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&count); err != nil {
			fmt.Printf("  %s: error: %v\n", t, err)
			continue
		}
		fmt.Printf("  %s: %d\n", t, count)
	}
}
