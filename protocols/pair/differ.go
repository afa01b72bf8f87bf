package pair

// --- Diff Structures with Helper Methods ---

type PoolSystemDiff struct {
	Additions []PoolView `json:"additions,omitempty"`
	Updates   []PoolView `json:"updates,omitempty"`
	Deletions []uint64   `json:"deletions,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d PoolSystemDiff) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Updates) == 0 && len(d.Deletions) == 0
}

// Differ calculates the difference between two snapshots of the pool set,
// keyed by pair ID. A pool counts as updated when its reserves or its share
// supply changed; share transfers between holders are not part of the view.
func Differ(old, new []PoolView) PoolSystemDiff {
	oldPoolsMap := make(map[uint64]PoolView, len(old))
	for _, pool := range old {
		oldPoolsMap[pool.ID] = pool
	}

	newPoolsMap := make(map[uint64]PoolView, len(new))
	for _, pool := range new {
		newPoolsMap[pool.ID] = pool
	}

	var additions []PoolView
	var updates []PoolView
	var deletions []uint64

	for newID, newPool := range newPoolsMap {
		oldPool, exists := oldPoolsMap[newID]
		if !exists {
			additions = append(additions, newPool)
			continue
		}
		// Manual comparison of the fields that change; much cheaper than reflect.DeepEqual.
		if oldPool.Reserve1.Cmp(newPool.Reserve1) != 0 ||
			oldPool.Reserve2.Cmp(newPool.Reserve2) != 0 ||
			oldPool.TotalSupply.Cmp(newPool.TotalSupply) != 0 {
			updates = append(updates, newPool)
		}
	}

	for oldID := range oldPoolsMap {
		if _, exists := newPoolsMap[oldID]; !exists {
			deletions = append(deletions, oldID)
		}
	}

	return PoolSystemDiff{
		Additions: additions,
		Updates:   updates,
		Deletions: deletions,
	}
}
