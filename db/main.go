package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cyverse-de/dbutil"
	"github.com/cyverse-de/notification-gateway/logging"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var log = logging.Log.WithField("package", "db")

// The supported cache drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

// KeyValueStore describes the local key-value persistence used for offline caching. Get reports whether the
// key was present.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// InitDatabase establishes a database connection and verifies tha the database can be reached.
func InitDatabase(driverName, databaseURI string) (*sql.DB, error) {
	wrapMsg := "unable to initialize the database"

	// Create a database connector to establish the connection.
	connector, err := dbutil.NewDefaultConnector("1m")
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Establish the database connection.
	db, err := connector.Connect(driverName, databaseURI)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return db, nil
}

// OpenStore opens the key-value store for the given driver. SQL stores have their schema created if necessary.
func OpenStore(ctx context.Context, driverName, uri string) (KeyValueStore, error) {
	wrapMsg := fmt.Sprintf("unable to open the %s key-value store", driverName)

	log.Infof("opening the %s key-value store", driverName)
	switch driverName {
	case DriverBolt:
		store, err := OpenBoltStore(uri)
		if err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		return store, nil

	case DriverSQLite, DriverPostgres:
		db, err := InitDatabase(driverName, uri)
		if err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		store := NewSQLStore(sqlx.NewDb(db, driverName))
		if err = store.Migrate(ctx); err != nil {
			db.Close()
			return nil, errors.Wrap(err, wrapMsg)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%s: unsupported driver", wrapMsg)
	}
}
