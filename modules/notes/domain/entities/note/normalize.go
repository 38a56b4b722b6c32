package note

import (
	"sort"

	"github.com/google/uuid"

	"github.com/arborhq/arbor/modules/notes/domain/value_objects/order"
)

// NormalizeOrders assigns 0..n-1 to a sibling group in display order and
// returns only the notes whose key changed. An already-normalized group
// yields nil, so callers can skip the write entirely. Sorting is stable:
// equal keys keep their incoming positions.
func NormalizeOrders(siblings []*Note) []*Note {
	if len(siblings) == 0 {
		return nil
	}

	ordered := make([]*Note, len(siblings))
	copy(ordered, siblings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SortOrder().Less(ordered[j].SortOrder())
	})

	var changed []*Note
	for i, n := range ordered {
		target := order.FromInt(int64(i))
		if n.SortOrder().Equal(target) {
			continue
		}
		n.SetSortOrder(target)
		changed = append(changed, n)
	}
	return changed
}

// Lookup resolves a note by id; a nil result means the record is missing.
type Lookup func(id uuid.UUID) *Note

// ValidateParent checks that candidate may become n's parent: same project,
// not n itself, not a descendant of n. The ancestor walk treats a missing
// record as the end of the chain and tolerates a corrupted store containing
// a pre-existing cycle.
func ValidateParent(n *Note, candidate *Note, lookup Lookup) error {
	if candidate == nil {
		return nil // becoming a project root
	}
	if candidate.ProjectID() != n.ProjectID() {
		return ErrInvalidParent
	}
	if candidate.ID() == n.ID() {
		return ErrCycle
	}

	seen := map[uuid.UUID]struct{}{}
	cur := candidate
	for {
		if cur.ID() == n.ID() {
			return ErrCycle
		}
		if _, ok := seen[cur.ID()]; ok {
			return nil
		}
		seen[cur.ID()] = struct{}{}

		pid := cur.ParentID()
		if pid == nil {
			return nil
		}
		cur = lookup(*pid)
		if cur == nil {
			return nil
		}
	}
}
