package patcher

import (
	"errors"
	"fmt"

	"github.com/defistate/defistate-amm-go/differ"
	"github.com/defistate/defistate-amm-go/protocols/pair"
)

// --- Type Definitions ---

// PoolsPatcher applies a pool diff to a previous pool set.
//
// CONTRACT:
// 1. Immutability: Implementations MUST NOT mutate 'prev'. They must create a copy.
// 2. nil Handling: 'prev' may be nil when the first pools are added.
type PoolsPatcher func(prev []pair.PoolView, diff pair.PoolSystemDiff) ([]pair.PoolView, error)

// --- Config and Main Struct ---

type StatePatcherConfig struct {
	// PoolsPatcher defaults to pair.Patcher.
	PoolsPatcher PoolsPatcher
}

func (c *StatePatcherConfig) validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	return nil
}

// StatePatcher rebuilds a State from its predecessor and a StateDiff.
type StatePatcher struct {
	poolsPatcher PoolsPatcher
}

// NewStatePatcher constructs a new patcher from a configuration.
func NewStatePatcher(cfg *StatePatcherConfig) (*StatePatcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	poolsPatcher := cfg.PoolsPatcher
	if poolsPatcher == nil {
		poolsPatcher = pair.Patcher
	}
	return &StatePatcher{poolsPatcher: poolsPatcher}, nil
}

// --- Implementation ---

// Patch creates a new State by applying the diff to oldState. An empty diff
// shares the old pool slice instead of copying it.
func (p *StatePatcher) Patch(oldState *differ.State, diff *differ.StateDiff) (*differ.State, error) {
	if oldState == nil || diff == nil {
		return nil, errors.New("patcher: nil state or diff")
	}
	if oldState.Sequence != diff.FromSequence {
		return nil, fmt.Errorf("patcher: mismatch fromSequence (state=%d, diff=%d)", oldState.Sequence, diff.FromSequence)
	}

	pools := oldState.Pools
	if !diff.IsEmpty() {
		var err error
		pools, err = p.poolsPatcher(oldState.Pools, diff.Pools)
		if err != nil {
			return nil, fmt.Errorf("patcher: failed to patch pools: %w", err)
		}
	}

	return &differ.State{
		Sequence:  diff.ToSequence,
		Timestamp: diff.Timestamp, // The time the diff was calculated
		Pools:     pools,
	}, nil
}
