package config

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	// Create users table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL,
			password VARCHAR(255) NOT NULL,
			is_staff BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create categories table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS categories (
			id VARCHAR(36) PRIMARY KEY,
			slug VARCHAR(255) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create user_categories table (access categories per user)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS user_categories (
			user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			category_id VARCHAR(36) NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, category_id)
		)
	`)
	if err != nil {
		return err
	}

	// Create teachings table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS teachings (
			id VARCHAR(36) PRIMARY KEY,
			slug VARCHAR(255) UNIQUE NOT NULL,
			title VARCHAR(255) NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create teaching_categories table (gating categories per teaching)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS teaching_categories (
			teaching_id VARCHAR(36) NOT NULL REFERENCES teachings(id) ON DELETE CASCADE,
			category_id VARCHAR(36) NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			PRIMARY KEY (teaching_id, category_id)
		)
	`)
	if err != nil {
		return err
	}

	// Create practice_definitions table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS practice_definitions (
			id VARCHAR(36) PRIMARY KEY,
			slug VARCHAR(255) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL,
			kind VARCHAR(32) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create tracked_practices table. The (user_id, definition_id)
	// uniqueness is enforced here so concurrent start-tracking
	// submissions are rejected atomically on conflict.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS tracked_practices (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			definition_id VARCHAR(36) NOT NULL REFERENCES practice_definitions(id) ON DELETE CASCADE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (user_id, definition_id)
		)
	`)
	if err != nil {
		return err
	}

	// Create log_entries table. Entries cascade away with their
	// tracked practice.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS log_entries (
			id VARCHAR(36) PRIMARY KEY,
			tracked_practice_id VARCHAR(36) NOT NULL REFERENCES tracked_practices(id) ON DELETE CASCADE,
			user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			malas INTEGER NOT NULL DEFAULT 0,
			hours INTEGER NOT NULL DEFAULT 0,
			minutes INTEGER NOT NULL DEFAULT 0,
			mantras INTEGER NOT NULL DEFAULT 0,
			entry_date DATE NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_log_entries_user_id ON log_entries(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_log_entries_tracked ON log_entries(tracked_practice_id)",
		"CREATE INDEX IF NOT EXISTS idx_tracked_practices_user_id ON tracked_practices(user_id)",
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}
