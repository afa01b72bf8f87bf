// Package factory creates and looks up pairs, at most one per unordered asset pair.
package factory

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/defistate/defistate-amm-go/asset"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/protocols/pair"
	"github.com/ethereum/go-ethereum/common"
)

// PairCreated is emitted by the factory for every new pair. ID counts pairs from 1.
type PairCreated struct {
	Asset1 common.Address `json:"asset1"`
	Asset2 common.Address `json:"asset2"`
	Pair   common.Address `json:"pair"`
	ID     uint64         `json:"id"`
}

func (PairCreated) EventName() engine.EventName { return "PairCreated" }

// Config holds the dependencies of a Factory.
type Config struct {
	Address  common.Address
	Host     engine.Host
	Resolver asset.Resolver
	FeeBps   uint16
	Logger   engine.Logger

	// Optional. Pairs that include WrappedNative get the native-currency entry points.
	Native        asset.NativeLedger
	WrappedNative asset.WrappedNative
}

func (c *Config) validate() error {
	if c.Address == (common.Address{}) {
		return errors.New("config: Address cannot be zero")
	}
	if c.Host == nil {
		return errors.New("config: Host cannot be nil")
	}
	if c.Resolver == nil {
		return errors.New("config: Resolver cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	if (c.Native == nil) != (c.WrappedNative == nil) {
		return errors.New("config: Native and WrappedNative must be set together")
	}
	return nil
}

// Factory is the pair registry. Entries are never removed.
type Factory struct {
	cfg Config

	mu        sync.RWMutex
	pairs     map[PairKey]*pair.Pair
	byAddress map[common.Address]*pair.Pair
	all       []*pair.Pair
	tokens    mapset.Set[common.Address]
}

// New creates an empty factory.
func New(cfg *Config) (*Factory, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Factory{
		cfg:       *cfg,
		pairs:     make(map[PairKey]*pair.Pair),
		byAddress: make(map[common.Address]*pair.Pair),
		tokens:    mapset.NewSet[common.Address](),
	}, nil
}

func (f *Factory) Address() common.Address { return f.cfg.Address }

// WrappedNative returns the wrapped native asset address, or the zero address
// if the factory has none.
func (f *Factory) WrappedNative() common.Address {
	if f.cfg.WrappedNative == nil {
		return common.Address{}
	}
	return f.cfg.WrappedNative.Address()
}

// CreatePair registers a new pair for a and b and returns its address.
func (f *Factory) CreatePair(a, b common.Address) (common.Address, error) {
	if a == (common.Address{}) || b == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: zero address", engine.ErrInvalidAsset)
	}
	if a == b {
		return common.Address{}, fmt.Errorf("%w: identical assets %s", engine.ErrInvalidAsset, a.Hex())
	}
	assetA, ok := f.cfg.Resolver.Asset(a)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: unknown asset %s", engine.ErrInvalidAsset, a.Hex())
	}
	assetB, ok := f.cfg.Resolver.Asset(b)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: unknown asset %s", engine.ErrInvalidAsset, b.Hex())
	}

	key := NewPairKey(a, b)

	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, ok := f.pairs[key]; ok {
		return common.Address{}, fmt.Errorf("%w: %s at %s", engine.ErrAlreadyExists, existing.Symbol(), existing.Address().Hex())
	}

	id := uint64(len(f.all)) + 1
	p, err := pair.New(&pair.Config{
		ID:            id,
		Address:       key.PairAddress(f.cfg.Address),
		AssetA:        assetA,
		AssetB:        assetB,
		Host:          f.cfg.Host,
		FeeBps:        f.cfg.FeeBps,
		Logger:        f.cfg.Logger,
		Native:        f.cfg.Native,
		WrappedNative: f.cfg.WrappedNative,
	})
	if err != nil {
		return common.Address{}, fmt.Errorf("building pair: %w", err)
	}

	f.pairs[key] = p
	f.byAddress[p.Address()] = p
	f.all = append(f.all, p)
	f.tokens.Add(p.Asset1())
	f.tokens.Add(p.Asset2())
	f.cfg.Host.Journal(func() { f.unregister(key, p) })

	f.cfg.Host.Emit(f.cfg.Address, PairCreated{Asset1: p.Asset1(), Asset2: p.Asset2(), Pair: p.Address(), ID: id})
	f.cfg.Logger.Info("pair created", "pair", p.Address().Hex(), "symbol", p.Symbol(), "id", id)
	return p.Address(), nil
}

// unregister undoes the registration of p if the call that created it is reverted.
func (f *Factory) unregister(key PairKey, p *pair.Pair) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pairs, key)
	delete(f.byAddress, p.Address())
	f.all = f.all[:len(f.all)-1]
	f.tokens.Clear()
	for _, q := range f.all {
		f.tokens.Add(q.Asset1())
		f.tokens.Add(q.Asset2())
	}
}

// IsPairCreated returns the pair address for a and b in either order, or the
// zero address if there is none.
func (f *Factory) IsPairCreated(a, b common.Address) common.Address {
	p, ok := f.GetPair(a, b)
	if !ok {
		return common.Address{}
	}
	return p.Address()
}

// GetPair returns the pair for a and b in either order.
func (f *Factory) GetPair(a, b common.Address) (*pair.Pair, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.pairs[NewPairKey(a, b)]
	return p, ok
}

// Pair returns the pair deployed at addr.
func (f *Factory) Pair(addr common.Address) (*pair.Pair, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.byAddress[addr]
	return p, ok
}

// AllPairs returns the addresses of every pair in creation order.
func (f *Factory) AllPairs() []common.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]common.Address, len(f.all))
	for i, p := range f.all {
		out[i] = p.Address()
	}
	return out
}

// Len returns the number of pairs created.
func (f *Factory) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.all)
}

// Tokens returns every asset that is part of at least one pair, sorted by address.
func (f *Factory) Tokens() []common.Address {
	tokens := f.tokens.ToSlice()
	sort.Slice(tokens, func(i, j int) bool { return bytes.Compare(tokens[i][:], tokens[j][:]) < 0 })
	return tokens
}

// IsListed reports whether addr is part of at least one pair.
func (f *Factory) IsListed(addr common.Address) bool {
	return f.tokens.Contains(addr)
}

// View returns a snapshot of every pair in creation order.
func (f *Factory) View() []pair.PoolView {
	f.mu.RLock()
	all := make([]*pair.Pair, len(f.all))
	copy(all, f.all)
	f.mu.RUnlock()

	views := make([]pair.PoolView, len(all))
	for i, p := range all {
		views[i] = p.View()
	}
	return views
}
