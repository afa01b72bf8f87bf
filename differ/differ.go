package differ

import (
	"errors"
	"fmt"
	"time"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/protocols/pair"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolsDiffer computes the diff between two pool sets.
type PoolsDiffer func(old, new []pair.PoolView) pair.PoolSystemDiff

// StateDifferConfig holds the pool differ and the dependencies of a StateDiffer.
type StateDifferConfig struct {
	// PoolsDiffer defaults to pair.Differ.
	PoolsDiffer PoolsDiffer
	Registry    prometheus.Registerer
	Logger      engine.Logger
}

// validate checks if the configuration is valid, ensuring required dependencies are present.
func (c *StateDifferConfig) validate() error {
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	return nil
}

// StateDiffer turns consecutive State snapshots into StateDiffs.
type StateDiffer struct {
	metrics     *Metrics
	logger      engine.Logger
	poolsDiffer PoolsDiffer
}

// NewStateDiffer constructs a new differ from a configuration, returning an error if the config is invalid.
func NewStateDiffer(cfg *StateDifferConfig) (*StateDiffer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	poolsDiffer := cfg.PoolsDiffer
	if poolsDiffer == nil {
		poolsDiffer = pair.Differ
	}
	return &StateDiffer{
		metrics:     NewMetrics(cfg.Registry),
		logger:      cfg.Logger,
		poolsDiffer: poolsDiffer,
	}, nil
}

// Diff computes the changes from old to new. new must not be older than old.
func (d *StateDiffer) Diff(old, new *State) (*StateDiff, error) {
	timer := prometheus.NewTimer(d.metrics.diffDuration)
	defer timer.ObserveDuration()

	if old == nil || new == nil {
		d.metrics.diffsTotal.WithLabelValues("error").Inc()
		return nil, errors.New("StateDiffer received a nil state")
	}
	if new.Sequence < old.Sequence {
		d.metrics.diffsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("state sequence went backwards: %d -> %d", old.Sequence, new.Sequence)
	}

	diff := &StateDiff{
		Timestamp:    uint64(time.Now().UnixNano()),
		FromSequence: old.Sequence,
		ToSequence:   new.Sequence,
		Pools:        d.poolsDiffer(old.Pools, new.Pools),
	}
	if diff.IsEmpty() {
		d.metrics.diffsTotal.WithLabelValues("empty").Inc()
	} else {
		d.metrics.diffsTotal.WithLabelValues("changed").Inc()
	}
	d.logger.Debug("state diff computed",
		"from", diff.FromSequence, "to", diff.ToSequence,
		"additions", len(diff.Pools.Additions), "updates", len(diff.Pools.Updates), "deletions", len(diff.Pools.Deletions))
	return diff, nil
}
