package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const psqlSchema = `
CREATE TABLE IF NOT EXISTS trips (
    trip_id TEXT PRIMARY KEY,
    route_id TEXT NOT NULL DEFAULT '',
    service_id TEXT NOT NULL DEFAULT '',
    headsign TEXT NOT NULL DEFAULT '',
    short_name TEXT NOT NULL DEFAULT '',
    block_id TEXT NOT NULL DEFAULT '',
    carriages TEXT NOT NULL DEFAULT '',
    direction_id SMALLINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS stop_times (
    trip_id TEXT NOT NULL,
    stop_id TEXT NOT NULL,
    stop_sequence INTEGER NOT NULL,
    arrival_time TEXT NOT NULL,
    departure_time TEXT NOT NULL,
    pickup_type SMALLINT NOT NULL DEFAULT 0,
    drop_off_type SMALLINT NOT NULL DEFAULT 0,
PRIMARY KEY (trip_id, stop_sequence)
);

CREATE TABLE IF NOT EXISTS stops (
    stop_id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    lat DOUBLE PRECISION NOT NULL DEFAULT 0,
    lon DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS calendars (
    service_id TEXT PRIMARY KEY,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transfers (
    from_stop_id TEXT NOT NULL,
    to_stop_id TEXT NOT NULL,
    from_trip_id TEXT NOT NULL,
    to_trip_id TEXT NOT NULL,
    transfer_type SMALLINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS transfers_from_trip ON transfers (from_trip_id);
`

// NewPSQLStorage opens a Postgres database using the provided
// connection string.
//
// If clearDB is true, all tables are dropped and recreated on
// startup. You probably only want this for testing.
func NewPSQLStorage(connStr string, clearDB bool) (*DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if clearDB {
		_, err = db.Exec(`
DROP TABLE IF EXISTS trips;
DROP TABLE IF EXISTS stop_times;
DROP TABLE IF EXISTS stops;
DROP TABLE IF EXISTS calendars;
DROP TABLE IF EXISTS transfers;`)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("clearing database: %w", err)
		}
	}

	if _, err := db.Exec(psqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{
		queries: queries{q: db, d: dialectPostgres},
		db:      db,
	}, nil
}
