package sqlstore

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/edusync/moodle-sync/internal/platform/envutil"
	"github.com/edusync/moodle-sync/internal/platform/logger"
)

// OpenFromEnv connects to the backing database. STORE_DB_DRIVER picks
// postgres or sqlite; sqlite is the local/test default.
func OpenFromEnv(log *logger.Logger) (*gorm.DB, error) {
	driver := envutil.String("STORE_DB_DRIVER", "sqlite")
	switch driver {
	case "postgres":
		return openPostgres(log)
	case "sqlite":
		return openSQLite(log)
	default:
		return nil, fmt.Errorf("unknown STORE_DB_DRIVER %q", driver)
	}
}

func openPostgres(log *logger.Logger) (*gorm.DB, error) {
	host := envutil.String("POSTGRES_HOST", "localhost")
	port := envutil.String("POSTGRES_PORT", "5432")
	user := envutil.String("POSTGRES_USER", "postgres")
	password := envutil.String("POSTGRES_PASSWORD", "")
	name := envutil.String("POSTGRES_NAME", "moodlesync")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	log.Info("connecting to postgres", "host", host, "db", name)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return db, nil
}

func openSQLite(log *logger.Logger) (*gorm.DB, error) {
	path := envutil.String("STORE_SQLITE_PATH", "moodlesync.db")
	log.Info("opening sqlite store", "path", path)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return db, nil
}
