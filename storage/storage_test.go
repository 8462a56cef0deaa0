package storage_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkpic.dev/gtfs/model"
	"pkpic.dev/gtfs/storage"
	"pkpic.dev/gtfs/testutil"
)

// Tests of the storage implementations. The sqlite implementation is
// always run, postgres requires testutil.PostgresConnStr to be set.

func forAllBackends(t *testing.T, test func(t *testing.T, s storage.Storage)) {
	for _, backend := range testutil.Backends() {
		t.Run(backend, func(t *testing.T) {
			s := testutil.BuildStorage(t, backend)
			defer s.Close()
			test(t, s)
		})
	}
}

func TestTripRoundtrip(t *testing.T) {
	forAllBackends(t, func(t *testing.T, s storage.Storage) {
		trip := &model.Trip{
			ID:        "2025-03-09_512",
			RouteID:   "IC",
			ServiceID: "D1",
			Headsign:  "Gdynia Główna",
			ShortName: "512 Bałtyk",
			BlockID:   "",
			Carriages: "1/2",
		}
		require.NoError(t, s.WriteTrip(trip))

		got, err := s.Trip("2025-03-09_512")
		require.NoError(t, err)
		assert.Equal(t, trip, got)

		_, err = s.Trip("nope")
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})
}

func TestStopTimeSlices(t *testing.T) {
	forAllBackends(t, func(t *testing.T, s storage.Storage) {
		// Written out of order on purpose.
		testutil.SeedTrip(t, s, "T1", [][3]string{
			{"S0", "100000", "100100"},
			{"S1", "110000", "110100"},
			{"S2", "120000", "120100"},
			{"S3", "130000", "130100"},
		})

		all, err := s.StopTimes("T1", 0, -1)
		require.NoError(t, err)
		require.Len(t, all, 4)
		for i, st := range all {
			assert.Equal(t, i, st.StopSequence)
		}

		mid, err := s.StopTimes("T1", 1, 2)
		require.NoError(t, err)
		require.Len(t, mid, 2)
		assert.Equal(t, "S1", mid[0].StopID)
		assert.Equal(t, "S2", mid[1].StopID)

		tail, err := s.StopTimes("T1", 2, -1)
		require.NoError(t, err)
		require.Len(t, tail, 2)
		assert.Equal(t, "S2", tail[0].StopID)

		seqs, err := s.TripStopSequences("T1")
		require.NoError(t, err)
		assert.Equal(t, []storage.StopSeq{
			{Sequence: 0, StopID: "S0"},
			{Sequence: 1, StopID: "S1"},
			{Sequence: 2, StopID: "S2"},
			{Sequence: 3, StopID: "S3"},
		}, seqs)
	})
}

func TestStopName(t *testing.T) {
	forAllBackends(t, func(t *testing.T, s storage.Storage) {
		require.NoError(t, s.WriteStop(&model.Stop{ID: "S0", Name: "Warszawa Wschodnia"}))
		require.NoError(t, s.WriteStop(&model.Stop{ID: "S1", Name: "Gdynia Główna"}))
		testutil.SeedTrip(t, s, "T1", [][3]string{
			{"S0", "100000", "100100"},
			{"S1", "110000", "110100"},
		})

		name, err := s.StopName("T1", 0)
		require.NoError(t, err)
		assert.Equal(t, "Warszawa Wschodnia", name)

		// seq < 0 means the trip's final stop.
		name, err = s.StopName("T1", -1)
		require.NoError(t, err)
		assert.Equal(t, "Gdynia Główna", name)

		_, err = s.StopName("T9", -1)
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})
}

func TestTripTimes(t *testing.T) {
	forAllBackends(t, func(t *testing.T, s storage.Storage) {
		testutil.SeedTrip(t, s, "T1", [][3]string{
			{"S0", "230000", "231000"},
			{"S1", "235000", "000000"},
		})

		start, err := s.TripStart("T1")
		require.NoError(t, err)
		assert.Equal(t, "230000", start)

		end, err := s.TripEnd("T1")
		require.NoError(t, err)
		assert.Equal(t, "231000", end)

		_, err = s.TripStart("T9")
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})
}

func TestCalendarSpan(t *testing.T) {
	forAllBackends(t, func(t *testing.T, s storage.Storage) {
		_, _, err := s.CalendarSpan()
		assert.Error(t, err)

		require.NoError(t, s.WriteCalendar(&model.Calendar{ServiceID: "D1", StartDate: "2025-03-01", EndDate: "2025-03-31"}))
		require.NoError(t, s.WriteCalendar(&model.Calendar{ServiceID: "D2", StartDate: "2024-12-15", EndDate: "2025-02-28"}))

		start, end, err := s.CalendarSpan()
		require.NoError(t, err)
		assert.Equal(t, "2024-12-15", start)
		assert.Equal(t, "2025-03-31", end)
	})
}

func TestTransfers(t *testing.T) {
	forAllBackends(t, func(t *testing.T, s storage.Storage) {
		inSeat := &model.Transfer{
			FromStopID: "S1", ToStopID: "S1",
			FromTripID: "T1", ToTripID: "T2",
			Type: model.TransferInSeat,
		}
		timed := &model.Transfer{
			FromStopID: "S2", ToStopID: "S3",
			FromTripID: "T2", ToTripID: "T3",
			Type: model.TransferTimed,
		}
		require.NoError(t, s.WriteTransfer(inSeat))
		require.NoError(t, s.WriteTransfer(timed))

		got, err := s.Transfers(model.TransferInSeat)
		require.NoError(t, err)
		assert.Equal(t, []*model.Transfer{inSeat}, got)

		fromTrips, err := s.TransferFromTripIDs()
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"T1": true, "T2": true}, fromTrips)

		require.NoError(t, s.DeleteTransfer("T1", "T2"))
		got, err = s.Transfers(model.TransferInSeat)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestUpdateBlockIDs(t *testing.T) {
	forAllBackends(t, func(t *testing.T, s storage.Storage) {
		require.NoError(t, s.WriteTrip(&model.Trip{ID: "T1"}))
		require.NoError(t, s.WriteTrip(&model.Trip{ID: "T2"}))
		require.NoError(t, s.WriteTrip(&model.Trip{ID: "T3"}))

		err := s.UpdateBlockIDs([][2]string{
			{"0", "T1"},
			{"0", "T2"},
			{"1", "T3"},
		})
		require.NoError(t, err)

		for tripID, blockID := range map[string]string{"T1": "0", "T2": "0", "T3": "1"} {
			trip, err := s.Trip(tripID)
			require.NoError(t, err)
			assert.Equal(t, blockID, trip.BlockID)
		}
	})
}

func TestDeleteTrip(t *testing.T) {
	forAllBackends(t, func(t *testing.T, s storage.Storage) {
		testutil.SeedTrip(t, s, "T1", [][3]string{{"S0", "100000", "100100"}})

		require.NoError(t, s.DeleteTrip("T1"))

		_, err := s.Trip("T1")
		assert.True(t, errors.Is(err, storage.ErrNotFound))
		sts, err := s.StopTimes("T1", 0, -1)
		require.NoError(t, err)
		assert.Empty(t, sts)
	})
}

func TestTransactionRollsBackOnError(t *testing.T) {
	forAllBackends(t, func(t *testing.T, s storage.Storage) {
		boom := fmt.Errorf("boom")
		err := s.Transaction(func(tx storage.Store) error {
			if err := tx.WriteTrip(&model.Trip{ID: "T1"}); err != nil {
				return err
			}
			return boom
		})
		assert.Equal(t, boom, err)

		_, err = s.Trip("T1")
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})
}

func TestTransactionCommits(t *testing.T) {
	forAllBackends(t, func(t *testing.T, s storage.Storage) {
		err := s.Transaction(func(tx storage.Store) error {
			return tx.WriteTrip(&model.Trip{ID: "T1"})
		})
		require.NoError(t, err)

		_, err = s.Trip("T1")
		require.NoError(t, err)
	})
}
