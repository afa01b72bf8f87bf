// Package server exposes a factory and its pairs over JSON-RPC and streams
// pool state to subscribers as a full snapshot followed by diffs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/defistate/defistate-amm-go/asset"
	"github.com/defistate/defistate-amm-go/differ"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/metrics"
	"github.com/defistate/defistate-amm-go/protocols/factory"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	// RpcNamespace is the namespace under which the service is registered.
	RpcNamespace                 = "amm"
	PoolStreamSubscriptionMethod = "subscribePoolStream"

	defaultBufferSize = 128
)

// Ledger is the host the pairs run on, seen from the RPC layer.
type Ledger interface {
	asset.Resolver
	asset.NativeLedger
	// Finalise discards the journal once a call has been committed.
	Finalise()
	LogsSince(from uint64) []engine.Log
}

// Config holds the dependencies of a Service.
type Config struct {
	Ledger  Ledger
	Factory *factory.Factory
	Metrics *metrics.Metrics
	Differ  *differ.StateDiffer
	Logger  engine.Logger

	// BufferSize is the number of diffs queued per subscriber before it is
	// resynced with a full state. Defaults to 128.
	BufferSize uint
}

func (c *Config) validate() error {
	if c.Ledger == nil {
		return errors.New("config: Ledger cannot be nil")
	}
	if c.Factory == nil {
		return errors.New("config: Factory cannot be nil")
	}
	if c.Metrics == nil {
		return errors.New("config: Metrics cannot be nil")
	}
	if c.Differ == nil {
		return errors.New("config: Differ cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	return nil
}

// SubscriptionEvent is the wrapper object sent to stream subscribers.
// Type is "full" for a differ.State payload and "diff" for a differ.StateDiff.
type SubscriptionEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	SentAt  int64           `json:"sentAt"`
}

// Service is registered under RpcNamespace; every exported method is an RPC
// method. It serialises every call against the factory, so at most one pair
// operation runs at a time. Concurrent RPC callers queue on mu.
type Service struct {
	ledger     Ledger
	factory    *factory.Factory
	metrics    *metrics.Metrics
	differ     *differ.StateDiffer
	logger     engine.Logger
	bufferSize int

	mu    sync.Mutex
	state *differ.State
	feed  event.Feed
}

// NewService creates a service and takes the initial pool snapshot.
func NewService(cfg *Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	bufferSize := int(cfg.BufferSize)
	if bufferSize == 0 {
		bufferSize = defaultBufferSize
	}
	s := &Service{
		ledger:     cfg.Ledger,
		factory:    cfg.Factory,
		metrics:    cfg.Metrics,
		differ:     cfg.Differ,
		logger:     cfg.Logger,
		bufferSize: bufferSize,
	}
	s.state = s.snapshotLocked(0)
	s.metrics.SetPairs(s.factory.Len())
	return s, nil
}

// State returns the snapshot taken after the last call that changed a pool.
func (s *Service) State() *differ.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Service) snapshotLocked(seq uint64) *differ.State {
	return &differ.State{
		Sequence:  seq,
		Timestamp: uint64(time.Now().UnixNano()),
		Pools:     s.factory.View(),
	}
}

// exec runs fn as one call. A failed call has already been rolled back by the
// pair, so only a successful one advances the stream.
func (s *Service) exec(op string, fn func() error) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	err := fn()
	s.ledger.Finalise()
	s.metrics.Observe(op, start, err)
	if err != nil {
		s.logger.Debug("call failed", "op", op, "error", err)
		return toAPIError(err)
	}
	s.commitLocked()
	return nil
}

// commitLocked snapshots the pools and publishes the diff to subscribers. The
// sequence only advances when a pool changed, so consecutive diffs chain.
func (s *Service) commitLocked() {
	next := s.snapshotLocked(s.state.Sequence + 1)
	diff, err := s.differ.Diff(s.state, next)
	if err != nil {
		s.logger.Error("failed to diff pool state", "error", err)
		return
	}
	if diff.IsEmpty() {
		return
	}
	s.state = next
	s.feed.Send(diff)
}

// SubscribePoolStream sends the current state as a "full" event and then one
// "diff" event per call that changed a pool. A subscriber that falls more than
// BufferSize diffs behind is sent a fresh "full" event instead of the diffs it
// missed.
func (s *Service) SubscribePoolStream(ctx context.Context) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}
	rpcSub := notifier.CreateSubscription()

	sub, full := s.subscribe()
	s.metrics.SubscriberAdded()
	s.logger.Info("pool stream subscriber connected", "id", rpcSub.ID)

	go func() {
		defer func() {
			sub.close()
			s.metrics.SubscriberRemoved()
			s.logger.Info("pool stream subscriber disconnected", "id", rpcSub.ID)
		}()
		send := func(typ string, payload any) error {
			return s.notify(notifier, rpcSub, typ, payload)
		}
		_ = s.forward(sub, full, send, rpcSub.Err())
	}()
	return rpcSub, nil
}

// subscriber queues diffs for one stream. The feed delivers into diffs and a
// pump moves them to queue without blocking, so a slow subscriber never holds
// up feed.Send.
type subscriber struct {
	diffs   chan *differ.StateDiff
	queue   chan *differ.StateDiff
	lagged  atomic.Bool
	feedSub event.Subscription
	done    chan struct{}
	logger  engine.Logger
}

// subscribe registers a subscriber. The state is read under the same lock so
// no diff falls in between.
func (s *Service) subscribe() (*subscriber, *differ.State) {
	sub := &subscriber{
		diffs:  make(chan *differ.StateDiff),
		queue:  make(chan *differ.StateDiff, s.bufferSize),
		done:   make(chan struct{}),
		logger: s.logger,
	}
	s.mu.Lock()
	full := s.state
	sub.feedSub = s.feed.Subscribe(sub.diffs)
	s.mu.Unlock()

	go sub.pump()
	return sub, full
}

func (sub *subscriber) pump() {
	for {
		select {
		case diff := <-sub.diffs:
			select {
			case sub.queue <- diff:
			default:
				if !sub.lagged.Swap(true) {
					sub.logger.Warn("pool stream subscriber is lagging, dropping queued diffs", "to_sequence", diff.ToSequence)
				}
			}
		case <-sub.done:
			return
		}
	}
}

func (sub *subscriber) close() {
	sub.feedSub.Unsubscribe()
	close(sub.done)
}

// forward sends full and then the queued diffs until send fails or stop
// fires. After a drop it resends the current state and skips every diff that
// state already covers.
func (s *Service) forward(sub *subscriber, full *differ.State, send func(typ string, payload any) error, stop <-chan error) error {
	if err := send("full", full); err != nil {
		return err
	}
	floor := full.Sequence
	for {
		if sub.lagged.Swap(false) {
			full = s.State()
			if err := send("full", full); err != nil {
				return err
			}
			floor = full.Sequence
		}
		select {
		case diff := <-sub.queue:
			if diff.ToSequence <= floor {
				continue
			}
			if err := send("diff", diff); err != nil {
				return err
			}
		case err := <-stop:
			return err
		case err := <-sub.feedSub.Err():
			return err
		}
	}
}

func (s *Service) notify(notifier *rpc.Notifier, sub *rpc.Subscription, typ string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal stream payload", "type", typ, "error", err)
		return fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	ev := &SubscriptionEvent{Type: typ, Payload: data, SentAt: time.Now().UnixNano()}
	if err := notifier.Notify(sub.ID, ev); err != nil {
		s.logger.Warn("error notifying subscriber", "id", sub.ID, "error", err)
		return err
	}
	return nil
}
