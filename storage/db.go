package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"pkpic.dev/gtfs/model"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Runs queries against either a *sql.DB or a *sql.Tx.
type execQuerier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// queries implements Store on top of an execQuerier. Statements are
// written with ? placeholders and rebound for postgres.
type queries struct {
	q execQuerier
	d dialect
}

// DB implements Storage over a database handle shared by both
// backends.
type DB struct {
	queries
	db *sql.DB
}

func (s *DB) Transaction(fn func(tx Store) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(&queries{q: tx, d: s.d}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *DB) Close() error {
	return s.db.Close()
}

func (q *queries) rebind(query string) string {
	if q.d != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (q *queries) Trip(id string) (*model.Trip, error) {
	trip := &model.Trip{}
	err := q.q.QueryRow(q.rebind(`
SELECT trip_id, route_id, service_id, headsign, short_name, block_id, carriages, direction_id
FROM trips
WHERE trip_id = ?`), id).Scan(
		&trip.ID,
		&trip.RouteID,
		&trip.ServiceID,
		&trip.Headsign,
		&trip.ShortName,
		&trip.BlockID,
		&trip.Carriages,
		&trip.DirectionID,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trip %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading trip: %w", err)
	}
	return trip, nil
}

func (q *queries) WriteTrip(trip *model.Trip) error {
	_, err := q.q.Exec(q.rebind(`
INSERT INTO trips (trip_id, route_id, service_id, headsign, short_name, block_id, carriages, direction_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		trip.ID,
		trip.RouteID,
		trip.ServiceID,
		trip.Headsign,
		trip.ShortName,
		trip.BlockID,
		trip.Carriages,
		trip.DirectionID,
	)
	if err != nil {
		return fmt.Errorf("writing trip: %w", err)
	}
	return nil
}

func (q *queries) DeleteTrip(id string) error {
	if _, err := q.q.Exec(q.rebind(`DELETE FROM stop_times WHERE trip_id = ?`), id); err != nil {
		return fmt.Errorf("deleting stop times: %w", err)
	}
	if _, err := q.q.Exec(q.rebind(`DELETE FROM trips WHERE trip_id = ?`), id); err != nil {
		return fmt.Errorf("deleting trip: %w", err)
	}
	return nil
}

func (q *queries) UpdateBlockIDs(assignments [][2]string) error {
	query := q.rebind(`UPDATE trips SET block_id = ? WHERE trip_id = ?`)
	for _, a := range assignments {
		if _, err := q.q.Exec(query, a[0], a[1]); err != nil {
			return fmt.Errorf("assigning block %s to trip %s: %w", a[0], a[1], err)
		}
	}
	return nil
}

func (q *queries) TripStopSequences(tripID string) ([]StopSeq, error) {
	rows, err := q.q.Query(q.rebind(`
SELECT stop_sequence, stop_id
FROM stop_times
WHERE trip_id = ?
ORDER BY stop_sequence ASC`), tripID)
	if err != nil {
		return nil, fmt.Errorf("reading stop sequences: %w", err)
	}
	defer rows.Close()

	var seqs []StopSeq
	for rows.Next() {
		var s StopSeq
		if err := rows.Scan(&s.Sequence, &s.StopID); err != nil {
			return nil, fmt.Errorf("scanning stop sequence: %w", err)
		}
		seqs = append(seqs, s)
	}
	return seqs, rows.Err()
}

func (q *queries) StopTimes(tripID string, fromSeq, toSeq int) ([]*model.StopTime, error) {
	query := `
SELECT trip_id, stop_id, stop_sequence, arrival_time, departure_time, pickup_type, drop_off_type
FROM stop_times
WHERE trip_id = ? `
	args := []interface{}{tripID}

	if fromSeq > 0 {
		query += "AND stop_sequence >= ? "
		args = append(args, fromSeq)
	}
	if toSeq >= 0 {
		query += "AND stop_sequence <= ? "
		args = append(args, toSeq)
	}
	query += "ORDER BY stop_sequence ASC"

	rows, err := q.q.Query(q.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("reading stop times: %w", err)
	}
	defer rows.Close()

	var stopTimes []*model.StopTime
	for rows.Next() {
		st := &model.StopTime{}
		err := rows.Scan(
			&st.TripID,
			&st.StopID,
			&st.StopSequence,
			&st.Arrival,
			&st.Departure,
			&st.PickupType,
			&st.DropOffType,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning stop time: %w", err)
		}
		stopTimes = append(stopTimes, st)
	}
	return stopTimes, rows.Err()
}

func (q *queries) WriteStopTimes(stopTimes []*model.StopTime) error {
	query := q.rebind(`
INSERT INTO stop_times (trip_id, stop_id, stop_sequence, arrival_time, departure_time, pickup_type, drop_off_type)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for _, st := range stopTimes {
		_, err := q.q.Exec(
			query,
			st.TripID,
			st.StopID,
			st.StopSequence,
			st.Arrival,
			st.Departure,
			st.PickupType,
			st.DropOffType,
		)
		if err != nil {
			return fmt.Errorf("writing stop time: %w", err)
		}
	}
	return nil
}

func (q *queries) StopName(tripID string, seq int) (string, error) {
	var row *sql.Row
	if seq < 0 {
		row = q.q.QueryRow(q.rebind(`
SELECT stops.name
FROM stop_times
LEFT JOIN stops ON stops.stop_id = stop_times.stop_id
WHERE stop_times.trip_id = ?
ORDER BY stop_times.stop_sequence DESC
LIMIT 1`), tripID)
	} else {
		row = q.q.QueryRow(q.rebind(`
SELECT stops.name
FROM stop_times
LEFT JOIN stops ON stops.stop_id = stop_times.stop_id
WHERE stop_times.trip_id = ? AND stop_times.stop_sequence = ?`), tripID, seq)
	}

	var name sql.NullString
	err := row.Scan(&name)
	if err == sql.ErrNoRows || (err == nil && !name.Valid) {
		return "", fmt.Errorf("stop name for trip %s seq %d: %w", tripID, seq, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("reading stop name: %w", err)
	}
	return name.String, nil
}

func (q *queries) TripStart(tripID string) (string, error) {
	return q.tripTime(tripID, `SELECT min(arrival_time) FROM stop_times WHERE trip_id = ?`)
}

func (q *queries) TripEnd(tripID string) (string, error) {
	return q.tripTime(tripID, `SELECT max(departure_time) FROM stop_times WHERE trip_id = ?`)
}

func (q *queries) tripTime(tripID string, query string) (string, error) {
	var t sql.NullString
	err := q.q.QueryRow(q.rebind(query), tripID).Scan(&t)
	if err != nil {
		return "", fmt.Errorf("reading trip time: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("trip without times %s: %w", tripID, ErrNotFound)
	}
	return t.String, nil
}

func (q *queries) WriteStop(stop *model.Stop) error {
	_, err := q.q.Exec(
		q.rebind(`INSERT INTO stops (stop_id, name, lat, lon) VALUES (?, ?, ?, ?)`),
		stop.ID, stop.Name, stop.Lat, stop.Lon,
	)
	if err != nil {
		return fmt.Errorf("writing stop: %w", err)
	}
	return nil
}

func (q *queries) WriteCalendar(cal *model.Calendar) error {
	_, err := q.q.Exec(
		q.rebind(`INSERT INTO calendars (service_id, start_date, end_date) VALUES (?, ?, ?)`),
		cal.ServiceID, cal.StartDate, cal.EndDate,
	)
	if err != nil {
		return fmt.Errorf("writing calendar: %w", err)
	}
	return nil
}

func (q *queries) CalendarSpan() (string, string, error) {
	var start, end sql.NullString
	err := q.q.QueryRow(`SELECT min(start_date), max(end_date) FROM calendars`).Scan(&start, &end)
	if err != nil {
		return "", "", fmt.Errorf("reading calendar span: %w", err)
	}
	if !start.Valid || !end.Valid {
		return "", "", fmt.Errorf("empty calendars: %w", ErrNotFound)
	}
	return start.String, end.String, nil
}

func (q *queries) WriteTransfer(transfer *model.Transfer) error {
	_, err := q.q.Exec(q.rebind(`
INSERT INTO transfers (from_stop_id, to_stop_id, from_trip_id, to_trip_id, transfer_type)
VALUES (?, ?, ?, ?, ?)`),
		transfer.FromStopID,
		transfer.ToStopID,
		transfer.FromTripID,
		transfer.ToTripID,
		transfer.Type,
	)
	if err != nil {
		return fmt.Errorf("writing transfer: %w", err)
	}
	return nil
}

func (q *queries) Transfers(typ model.TransferType) ([]*model.Transfer, error) {
	rows, err := q.q.Query(q.rebind(`
SELECT from_stop_id, to_stop_id, from_trip_id, to_trip_id, transfer_type
FROM transfers
WHERE transfer_type = ?`), typ)
	if err != nil {
		return nil, fmt.Errorf("reading transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*model.Transfer
	for rows.Next() {
		t := &model.Transfer{}
		err := rows.Scan(&t.FromStopID, &t.ToStopID, &t.FromTripID, &t.ToTripID, &t.Type)
		if err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

func (q *queries) TransferFromTripIDs() (map[string]bool, error) {
	rows, err := q.q.Query(`SELECT from_trip_id FROM transfers`)
	if err != nil {
		return nil, fmt.Errorf("reading transfer trips: %w", err)
	}
	defer rows.Close()

	tripIDs := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning transfer trip: %w", err)
		}
		tripIDs[id] = true
	}
	return tripIDs, rows.Err()
}

func (q *queries) DeleteTransfer(fromTripID, toTripID string) error {
	_, err := q.q.Exec(
		q.rebind(`DELETE FROM transfers WHERE from_trip_id = ? AND to_trip_id = ?`),
		fromTripID, toTripID,
	)
	if err != nil {
		return fmt.Errorf("deleting transfer: %w", err)
	}
	return nil
}
