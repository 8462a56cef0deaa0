package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS trips (
    trip_id TEXT PRIMARY KEY,
    route_id TEXT NOT NULL DEFAULT '',
    service_id TEXT NOT NULL DEFAULT '',
    headsign TEXT NOT NULL DEFAULT '',
    short_name TEXT NOT NULL DEFAULT '',
    block_id TEXT NOT NULL DEFAULT '',
    carriages TEXT NOT NULL DEFAULT '',
    direction_id INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS stop_times (
    trip_id TEXT NOT NULL,
    stop_id TEXT NOT NULL,
    stop_sequence INTEGER NOT NULL,
    arrival_time TEXT NOT NULL,
    departure_time TEXT NOT NULL,
    pickup_type INTEGER NOT NULL DEFAULT 0,
    drop_off_type INTEGER NOT NULL DEFAULT 0,
PRIMARY KEY (trip_id, stop_sequence)
);

CREATE TABLE IF NOT EXISTS stops (
    stop_id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    lat REAL NOT NULL DEFAULT 0,
    lon REAL NOT NULL DEFAULT 0
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
    transfer_type INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS transfers_from_trip ON transfers (from_trip_id);
`

// NewSQLiteStorage opens (creating if necessary) a SQLite database at
// the given path. An empty path yields an in-memory database.
func NewSQLiteStorage(path string) (*DB, error) {
	sourceName := ":memory:"
	if path != "" {
		sourceName = path
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A second pooled connection would see a different in-memory
	// database. The pipeline is single-threaded anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{
		queries: queries{q: db, d: dialectSQLite},
		db:      db,
	}, nil
}
