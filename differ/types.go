package differ

import "github.com/defistate/defistate-amm-go/protocols/pair"

// State is a snapshot of every pool after the call numbered Sequence was committed.
type State struct {
	Sequence  uint64          `json:"sequence"`
	Timestamp uint64          `json:"timestamp"`
	Pools     []pair.PoolView `json:"pools"`
}

// StateDiff summarises the changes from FromSequence to ToSequence.
type StateDiff struct {
	Timestamp    uint64              `json:"timestamp"`
	FromSequence uint64              `json:"fromSequence"`
	ToSequence   uint64              `json:"toSequence"`
	Pools        pair.PoolSystemDiff `json:"pools"`
}

// IsEmpty reports whether applying the diff would change nothing.
func (d *StateDiff) IsEmpty() bool {
	return d.Pools.IsEmpty()
}
