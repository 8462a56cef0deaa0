package gtfs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkpic.dev/gtfs"
	"pkpic.dev/gtfs/model"
	"pkpic.dev/gtfs/testutil"
)

func TestBlockIDAssigner(t *testing.T) {
	s := testutil.BuildStorage(t, "sqlite")
	defer s.Close()

	for _, tripID := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		require.NoError(t, s.WriteTrip(&model.Trip{ID: tripID}))
	}

	inSeat := func(from, to string) *model.Transfer {
		return &model.Transfer{
			FromStopID: "S1", ToStopID: "S1",
			FromTripID: from, ToTripID: to,
			Type: model.TransferInSeat,
		}
	}
	require.NoError(t, s.WriteTransfer(inSeat("A", "B")))
	require.NoError(t, s.WriteTransfer(inSeat("B", "C")))
	require.NoError(t, s.WriteTransfer(inSeat("D", "E")))

	// Regular transfers never link trips into a block.
	require.NoError(t, s.WriteTransfer(&model.Transfer{
		FromStopID: "S1", ToStopID: "S2",
		FromTripID: "F", ToTripID: "G",
		Type: model.TransferTimed,
	}))

	require.NoError(t, gtfs.NewBlockIDAssigner().Run(s))

	for tripID, blockID := range map[string]string{
		"A": "0", "B": "0", "C": "0",
		"D": "1", "E": "1",
		"F": "", "G": "",
	} {
		trip, err := s.Trip(tripID)
		require.NoError(t, err)
		assert.Equal(t, blockID, trip.BlockID, "trip %s", tripID)
	}
}

func TestBlockIDAssignerNoTransfers(t *testing.T) {
	s := testutil.BuildStorage(t, "sqlite")
	defer s.Close()

	require.NoError(t, s.WriteTrip(&model.Trip{ID: "A"}))
	require.NoError(t, gtfs.NewBlockIDAssigner().Run(s))

	trip, err := s.Trip("A")
	require.NoError(t, err)
	assert.Equal(t, "", trip.BlockID)
}

func TestBlockIDAssignerDeterministicNumbering(t *testing.T) {
	s := testutil.BuildStorage(t, "sqlite")
	defer s.Close()

	for _, tripID := range []string{"A", "B", "Y", "Z"} {
		require.NoError(t, s.WriteTrip(&model.Trip{ID: tripID}))
	}

	// Insertion order reversed relative to trip IDs: numbering must
	// still follow lexicographic order of the components' trips.
	require.NoError(t, s.WriteTransfer(&model.Transfer{
		FromStopID: "S1", ToStopID: "S1",
		FromTripID: "Y", ToTripID: "Z",
		Type: model.TransferInSeat,
	}))
	require.NoError(t, s.WriteTransfer(&model.Transfer{
		FromStopID: "S1", ToStopID: "S1",
		FromTripID: "A", ToTripID: "B",
		Type: model.TransferInSeat,
	}))

	require.NoError(t, gtfs.NewBlockIDAssigner().Run(s))

	a, err := s.Trip("A")
	require.NoError(t, err)
	y, err := s.Trip("Y")
	require.NoError(t, err)
	assert.Equal(t, "0", a.BlockID)
	assert.Equal(t, "1", y.BlockID)
}
