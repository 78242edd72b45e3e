package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/telephony/integration-connector/internal/config"

	_ "github.com/lib/pq"
)

var errInvalidSslMode = errors.New("Invalid SSL configuration for database connection")

// BuildPostgresConnectionString returns the lib/pq DSN for the configured database.
// It is shared by the pooled connection and by pq.Listener.
func BuildPostgresConnectionString(cfg *config.Config) (string, error) {
	psqlConnectionInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		cfg.ConnectionDatabaseHost,
		cfg.ConnectionDatabasePort,
		cfg.ConnectionDatabaseUser,
		cfg.ConnectionDatabasePassword,
		cfg.ConnectionDatabaseName)

	sslSettings, err := buildPostgresSslConfigString(cfg)
	if err != nil {
		return "", err
	}

	return psqlConnectionInfo + " " + sslSettings, nil
}

func buildPostgresSslConfigString(cfg *config.Config) (string, error) {
	switch cfg.ConnectionDatabaseSslMode {
	case "disable", "require":
		return "sslmode=" + cfg.ConnectionDatabaseSslMode, nil
	case "verify-full":
		return "sslmode=verify-full sslrootcert=" + cfg.ConnectionDatabaseSslRootCert, nil
	default:
		return "", fmt.Errorf("%w: %s", errInvalidSslMode, cfg.ConnectionDatabaseSslMode)
	}
}

// InitializeDatabaseConnection opens a small, fixed size pool and verifies it
// with a ping bounded by the configured database timeout.
func InitializeDatabaseConnection(cfg *config.Config) (*sql.DB, error) {
	psqlConnectionInfo, err := BuildPostgresConnectionString(cfg)
	if err != nil {
		return nil, err
	}

	database, err := sql.Open("postgres", psqlConnectionInfo)
	if err != nil {
		return nil, err
	}

	maxOpenConns := cfg.ConnectionDatabaseMaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = 3
	}

	database.SetMaxOpenConns(maxOpenConns)
	database.SetMaxIdleConns(1)
	database.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.IntegrationDatabaseTimeout)
	defer cancel()

	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, err
	}

	return database, nil
}
