package pair

import (
	"math/big"
	"sort"
)

// deepCopyView creates a new PoolView with its own memory for the *big.Int fields,
// so the patched state never shares memory with the previous one.
func deepCopyView(p PoolView) PoolView {
	v := p
	if p.Reserve1 != nil {
		v.Reserve1 = new(big.Int).Set(p.Reserve1)
	}
	if p.Reserve2 != nil {
		v.Reserve2 = new(big.Int).Set(p.Reserve2)
	}
	if p.TotalSupply != nil {
		v.TotalSupply = new(big.Int).Set(p.TotalSupply)
	}
	return v
}

// Patcher builds a new pool set by applying diff to prevState. The result is
// sorted by ID.
func Patcher(prevState []PoolView, diff PoolSystemDiff) ([]PoolView, error) {
	newStateMap := make(map[uint64]PoolView, len(prevState))
	for _, pool := range prevState {
		newStateMap[pool.ID] = deepCopyView(pool)
	}

	for _, id := range diff.Deletions {
		delete(newStateMap, id)
	}
	for _, updated := range diff.Updates {
		newStateMap[updated.ID] = deepCopyView(updated)
	}
	for _, added := range diff.Additions {
		newStateMap[added.ID] = deepCopyView(added)
	}

	finalState := make([]PoolView, 0, len(newStateMap))
	for _, pool := range newStateMap {
		finalState = append(finalState, pool)
	}
	sort.Slice(finalState, func(i, j int) bool { return finalState[i].ID < finalState[j].ID })

	return finalState, nil
}
