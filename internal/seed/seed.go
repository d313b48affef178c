package seed

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/Simplici0/emprende/internal/calc"
)

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
}

// Stats contains seed operation counters. Updates counts admin password
// hashes upgraded to bcrypt.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := seedAdmin(tx, cfg.AdminEmail, cfg.AdminPassword, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	presets := calc.Defaults()
	for _, kind := range calc.Kinds() {
		if err := ensurePreset(tx, kind, presets, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func seedAdmin(tx *sql.Tx, email, password string, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var current string
	err := tx.QueryRow(`SELECT password_hash FROM users WHERE email = ?`, email).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	exists := err == nil

	// Existing bcrypt hashes are left alone so a changed ADMIN_PASSWORD does
	// not silently reset the admin login.
	if exists {
		if _, costErr := bcrypt.Cost([]byte(current)); costErr == nil {
			return nil
		}
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if exists {
		// Legacy sha256 or plain-text hashes are upgraded to bcrypt.
		if _, err := tx.Exec(`UPDATE users SET password_hash = ? WHERE email = ?`, hash, email); err != nil {
			return fmt.Errorf("upgrade admin password hash: %w", err)
		}
		stats.Updates++
		return nil
	}

	if _, err := tx.Exec(`INSERT INTO users (email, password_hash) VALUES (?, ?)`, email, hash); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

// HashPassword returns the bcrypt hash stored in users.password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("generate bcrypt hash: %w", err)
	}
	return string(hash), nil
}

func ensurePreset(tx *sql.Tx, kind calc.Kind, presets calc.Presets, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM calculator_presets WHERE kind = ?)`, string(kind)).Scan(&exists); err != nil {
		return fmt.Errorf("check %s preset existence: %w", kind, err)
	}
	if exists {
		return nil
	}

	input, ok := presets.Input(kind)
	if !ok {
		return fmt.Errorf("no default preset for %s", kind)
	}
	inputsJSON, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encode %s preset: %w", kind, err)
	}

	if _, err := tx.Exec(`
		INSERT INTO calculator_presets (kind, inputs_json)
		VALUES (?, ?)
	`, string(kind), string(inputsJSON)); err != nil {
		return fmt.Errorf("insert %s preset: %w", kind, err)
	}
	stats.Inserts++
	return nil
}
