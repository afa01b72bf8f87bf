// Package pair implements a constant-product liquidity pool over two assets,
// with an embedded ledger of liquidity shares and an optional adapter that
// wraps and unwraps the host's native currency.
package pair

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/defistate/defistate-amm-go/asset"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/protocols/pair/calculator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Name is the name of every pair's share token.
const Name = "LP-Token"

// DefaultFeeBps is a 0.3% swap fee.
const DefaultFeeBps = 30

// side selects one of the pair's two assets.
type side int

const (
	side1 side = iota
	side2
)

func (s side) other() side { return 1 - s }

// leg says how an amount enters or leaves the pair.
type leg uint8

const (
	legToken  leg = iota // moved with the asset's own transfer methods
	legNative            // native currency, wrapped on the way in and unwrapped on the way out
)

// Config holds the dependencies of a Pair.
type Config struct {
	ID      uint64
	Address common.Address
	// AssetA and AssetB may be given in any order; the pair sorts them.
	AssetA asset.Asset
	AssetB asset.Asset
	Host   engine.Host
	FeeBps uint16
	Logger engine.Logger

	// Native and WrappedNative enable the native-currency entry points when
	// one of the assets is WrappedNative. Both may be nil.
	Native        asset.NativeLedger
	WrappedNative asset.WrappedNative
}

func (c *Config) validate() error {
	if c.AssetA == nil || c.AssetB == nil {
		return errors.New("config: AssetA and AssetB cannot be nil")
	}
	if c.AssetA.Address() == c.AssetB.Address() {
		return fmt.Errorf("%w: identical assets %s", engine.ErrInvalidAsset, c.AssetA.Address().Hex())
	}
	if c.AssetA.Address() == (common.Address{}) || c.AssetB.Address() == (common.Address{}) {
		return fmt.Errorf("%w: zero address", engine.ErrInvalidAsset)
	}
	if c.Address == (common.Address{}) {
		return errors.New("config: Address cannot be zero")
	}
	if c.Host == nil {
		return errors.New("config: Host cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	if c.FeeBps >= calculator.BasisPointDivisor {
		return fmt.Errorf("config: FeeBps must be below %d", calculator.BasisPointDivisor)
	}
	if (c.Native == nil) != (c.WrappedNative == nil) {
		return errors.New("config: Native and WrappedNative must be set together")
	}
	return nil
}

// Pair is a two-asset pool. Reserves always equal the pair's holdings of
// each asset once a call has returned.
//
// Mutating calls are atomic: on error the host is reverted to the snapshot
// taken on entry, which also restores the pair's own state. Nested mutating calls
// made from inside a collaborator fail with engine.ErrLocked. Read accessors
// never block on an in-flight call.
type Pair struct {
	id      uint64
	address common.Address
	assets  [2]asset.Asset
	symbol  string
	feeBps  uint16
	host    engine.Host
	logger  engine.Logger

	native     asset.NativeLedger
	weth       asset.WrappedNative
	nativeSide side
	hasNative  bool

	locked atomic.Bool

	mu          sync.RWMutex
	reserves    [2]*uint256.Int
	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int
}

// New builds an empty pair.
func New(cfg *Config) (*Pair, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	a, b := cfg.AssetA, cfg.AssetB
	if bytes.Compare(a.Address().Bytes(), b.Address().Bytes()) > 0 {
		a, b = b, a
	}

	p := &Pair{
		id:          cfg.ID,
		address:     cfg.Address,
		assets:      [2]asset.Asset{a, b},
		symbol:      fmt.Sprintf("%s-%s-LP", a.Symbol(), b.Symbol()),
		feeBps:      cfg.FeeBps,
		host:        cfg.Host,
		logger:      cfg.Logger,
		reserves:    [2]*uint256.Int{new(uint256.Int), new(uint256.Int)},
		totalSupply: new(uint256.Int),
		balances:    make(map[common.Address]*uint256.Int),
		allowances:  make(map[common.Address]map[common.Address]*uint256.Int),
	}
	if cfg.WrappedNative != nil {
		if s, ok := p.sideOf(cfg.WrappedNative.Address()); ok {
			p.native = cfg.Native
			p.weth = cfg.WrappedNative
			p.nativeSide = s
			p.hasNative = true
		}
	}
	return p, nil
}

func (p *Pair) ID() uint64               { return p.id }
func (p *Pair) Address() common.Address { return p.address }
func (p *Pair) Name() string             { return Name }
func (p *Pair) Symbol() string           { return p.symbol }
func (p *Pair) FeeBps() uint16           { return p.feeBps }

// Asset1 returns the asset with the lower address.
func (p *Pair) Asset1() common.Address { return p.assets[side1].Address() }

// Asset2 returns the asset with the higher address.
func (p *Pair) Asset2() common.Address { return p.assets[side2].Address() }

// IsNative reports whether the native-currency entry points are available.
func (p *Pair) IsNative() bool { return p.hasNative }

// Reserves returns copies of both reserves in canonical order.
func (p *Pair) Reserves() (reserve1, reserve2 *uint256.Int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reserves[side1].Clone(), p.reserves[side2].Clone()
}

// ReserveOf returns the reserve of asset, or ErrInvalidAsset if the pair does not hold it.
func (p *Pair) ReserveOf(addr common.Address) (*uint256.Int, error) {
	s, ok := p.sideOf(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not part of pair %s", engine.ErrInvalidAsset, addr.Hex(), p.symbol)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reserves[s].Clone(), nil
}

func (p *Pair) sideOf(addr common.Address) (side, bool) {
	switch addr {
	case common.Address{}:
		return 0, false
	case p.assets[side1].Address():
		return side1, true
	case p.assets[side2].Address():
		return side2, true
	}
	return 0, false
}

// call runs fn as a single atomic mutating call. Every change fn makes to the
// pair is journaled on the host, so reverting the snapshot taken here, or one
// taken by an outer call, restores the pair together with the host.
func (p *Pair) call(op string, fn func() error) error {
	if !p.locked.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s on %s", engine.ErrLocked, op, p.symbol)
	}
	defer p.locked.Store(false)

	snap := p.host.Snapshot()
	if err := fn(); err != nil {
		p.host.RevertToSnapshot(snap)
		p.logger.Debug("pair call reverted", "pair", p.symbol, "op", op, "error", err)
		return err
	}
	return nil
}

// journal records undo on the host. undo runs with mu held.
func (p *Pair) journal(undo func()) {
	p.host.Journal(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		undo()
	})
}

// setReserveLocked must be called with mu held.
func (p *Pair) setReserveLocked(s side, v *uint256.Int) {
	prev := p.reserves[s]
	p.journal(func() { p.reserves[s] = prev })
	p.reserves[s] = v
}

// pull moves amount of side s from the caller into the pair.
func (p *Pair) pull(from common.Address, s side, kind leg, amount *uint256.Int) error {
	if kind == legNative {
		if err := p.native.TransferNative(from, p.address, amount); err != nil {
			return fmt.Errorf("pulling native value from %s: %w", from.Hex(), err)
		}
		if err := p.weth.Deposit(p.address, amount); err != nil {
			return fmt.Errorf("wrapping native value: %w", err)
		}
		return nil
	}
	a := p.assets[s]
	if err := a.TransferFrom(p.address, from, p.address, amount); err != nil {
		return fmt.Errorf("pulling %s from %s: %w", a.Symbol(), from.Hex(), err)
	}
	return nil
}

// push pays amount of side s from the pair to the recipient.
func (p *Pair) push(to common.Address, s side, kind leg, amount *uint256.Int) error {
	if kind == legNative {
		if err := p.weth.Withdraw(p.address, to, amount); err != nil {
			return fmt.Errorf("unwrapping native value to %s: %w", to.Hex(), err)
		}
		return nil
	}
	a := p.assets[s]
	if err := a.Transfer(p.address, to, amount); err != nil {
		return fmt.Errorf("paying %s to %s: %w", a.Symbol(), to.Hex(), err)
	}
	return nil
}

// legs returns the token leg for both sides, switching the native side to
// legNative when native is set.
func (p *Pair) legs(native bool) [2]leg {
	var l [2]leg
	if native {
		l[p.nativeSide] = legNative
	}
	return l
}

func (p *Pair) requireNative(op string) error {
	if !p.hasNative {
		return fmt.Errorf("%w: %s needs a pair with the wrapped native asset, %s has none", engine.ErrInvalidAsset, op, p.symbol)
	}
	return nil
}
