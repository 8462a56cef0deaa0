package gtfs

import (
	"sort"
	"strconv"

	"pkpic.dev/gtfs/model"
	"pkpic.dev/gtfs/storage"
)

// BlockIDAssigner gives every chain of trips linked by in-seat
// transfers a shared block ID. Trips outside the transfer graph keep
// an empty block_id, which in GTFS terms already means a singleton
// block.
type BlockIDAssigner struct {
	counter int
}

func NewBlockIDAssigner() *BlockIDAssigner {
	return &BlockIDAssigner{}
}

func (a *BlockIDAssigner) nextBlockID() string {
	id := strconv.Itoa(a.counter)
	a.counter++
	return id
}

func (a *BlockIDAssigner) Run(store storage.Storage) error {
	transfers, err := store.Transfers(model.TransferInSeat)
	if err != nil {
		return err
	}

	linked := map[string][]string{}
	for _, t := range transfers {
		linked[t.FromTripID] = append(linked[t.FromTripID], t.ToTripID)
		linked[t.ToTripID] = append(linked[t.ToTripID], t.FromTripID)
	}

	assignments := a.assignBlockIDs(linked)
	return store.Transaction(func(tx storage.Store) error {
		return tx.UpdateBlockIDs(assignments)
	})
}

// assignBlockIDs flood-fills the undirected transfer graph, one fresh
// block ID per connected component. Adjacency lists are consumed
// destructively so every trip is visited once; linear in edges.
func (a *BlockIDAssigner) assignBlockIDs(linked map[string][]string) [][2]string {
	starts := make([]string, 0, len(linked))
	for tripID := range linked {
		starts = append(starts, tripID)
	}
	sort.Strings(starts)

	var assignments [][2]string
	for _, start := range starts {
		if _, ok := linked[start]; !ok {
			continue
		}

		component := nextComponent(linked, start)
		sort.Strings(component)

		blockID := a.nextBlockID()
		for _, tripID := range component {
			assignments = append(assignments, [2]string{blockID, tripID})
		}
	}
	return assignments
}

func nextComponent(linked map[string][]string, start string) []string {
	stack := append([]string(nil), linked[start]...)
	delete(linked, start)
	seen := map[string]bool{start: true}

	for len(stack) > 0 {
		tripID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		seen[tripID] = true

		for _, neighbor := range linked[tripID] {
			if !seen[neighbor] {
				stack = append(stack, neighbor)
			}
		}
		delete(linked, tripID)
	}

	component := make([]string, 0, len(seen))
	for tripID := range seen {
		component = append(component, tripID)
	}
	return component
}
