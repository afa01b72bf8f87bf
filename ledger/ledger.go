// Package ledger is an in-memory host ledger: native balances, fungible tokens,
// a wrapped-native token and an event log, all behind a revertible journal.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/defistate/defistate-amm-go/asset"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// deployer is the account token addresses are derived from.
var deployer = common.HexToAddress("0x00000000000000000000000000000000000a11ce")

var (
	_ engine.Host        = (*Ledger)(nil)
	_ asset.NativeLedger = (*Ledger)(nil)
	_ asset.Resolver     = (*Ledger)(nil)
)

// Ledger is the host environment. Every balance, allowance and log change is
// journaled so a caller can Snapshot before a multi-step operation and
// RevertToSnapshot if any step fails.
//
// Ledger is safe for concurrent use. Its lock is never held while a transfer
// hook runs, so hooks may call back into the ledger.
type Ledger struct {
	mu      sync.Mutex
	native  map[common.Address]*uint256.Int
	tokens  map[common.Address]*Token
	journal []journalEntry
	logs    []engine.Log
	nonce   uint64
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		native: make(map[common.Address]*uint256.Int),
		tokens: make(map[common.Address]*Token),
	}
}

// NewToken deploys a fungible token with a fresh address.
func (l *Ledger) NewToken(name, symbol string, decimals uint8) *Token {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deployLocked(name, symbol, decimals)
}

// NewWrappedNative deploys the wrapped-native token.
func (l *Ledger) NewWrappedNative(symbol string) *WrappedNative {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.deployLocked("Wrapped "+symbol, symbol, 18)
	return &WrappedNative{Token: t}
}

func (l *Ledger) deployLocked(name, symbol string, decimals uint8) *Token {
	addr := crypto.CreateAddress(deployer, l.nonce)
	l.nonce++
	t := &Token{
		ledger:      l,
		address:     addr,
		name:        name,
		symbol:      symbol,
		decimals:    decimals,
		totalSupply: new(uint256.Int),
		balances:    make(map[common.Address]*uint256.Int),
		allowances:  make(map[common.Address]map[common.Address]*uint256.Int),
	}
	l.tokens[addr] = t
	return t
}

// Asset implements asset.Resolver.
func (l *Ledger) Asset(addr common.Address) (asset.Asset, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[addr]
	if !ok {
		return nil, false
	}
	return t, true
}

// Token returns the deployed token at addr.
func (l *Ledger) Token(addr common.Address) (*Token, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[addr]
	return t, ok
}

// --- Native currency ---

// NativeBalance returns a copy of holder's native balance.
func (l *Ledger) NativeBalance(holder common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nativeOf(holder)
}

// SetNativeBalance overwrites holder's native balance. Used for genesis allocation.
func (l *Ledger) SetNativeBalance(holder common.Address, value *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setNative(holder, new(uint256.Int).Set(value))
}

// TransferNative moves native currency between accounts.
func (l *Ledger) TransferNative(from, to common.Address, value *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferNativeLocked(from, to, value)
}

func (l *Ledger) transferNativeLocked(from, to common.Address, value *uint256.Int) error {
	if to == (common.Address{}) {
		return errors.New("native transfer to the zero address")
	}
	bal := l.nativeOf(from)
	if bal.Lt(value) {
		return fmt.Errorf("%w: native balance %s of %s, need %s", engine.ErrInsufficientBalance, bal, from.Hex(), value)
	}
	l.setNative(from, bal.Sub(bal, value))
	l.setNative(to, new(uint256.Int).Add(l.nativeOf(to), value))
	return nil
}

func (l *Ledger) nativeOf(holder common.Address) *uint256.Int {
	if v, ok := l.native[holder]; ok {
		return new(uint256.Int).Set(v)
	}
	return new(uint256.Int)
}

func (l *Ledger) setNative(holder common.Address, v *uint256.Int) {
	l.journal = append(l.journal, nativeChange{account: holder, prev: copyOrNil(l.native[holder])})
	l.native[holder] = v
}

// --- engine.Host ---

// Snapshot returns an identifier for the current journal position.
func (l *Ledger) Snapshot() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.journal)
}

// RevertToSnapshot undoes every change recorded after the snapshot id was taken.
func (l *Ledger) RevertToSnapshot(id int) {
	l.mu.Lock()
	undo := l.revertLocked(id)
	l.mu.Unlock()
	runUndo(undo)
}

// revertLocked reverts the ledger's own entries and returns the external undo
// functions, newest first, for the caller to run without the lock.
func (l *Ledger) revertLocked(id int) []func() {
	if id < 0 || id > len(l.journal) {
		panic(fmt.Sprintf("ledger: revision id %d cannot be reverted (journal length %d)", id, len(l.journal)))
	}
	var undo []func()
	for i := len(l.journal) - 1; i >= id; i-- {
		if ch, ok := l.journal[i].(externalChange); ok {
			undo = append(undo, ch.undo)
			continue
		}
		l.journal[i].revert(l)
	}
	l.journal = l.journal[:id]
	return undo
}

func runUndo(undo []func()) {
	for _, f := range undo {
		f()
	}
}

// Journal records undo so that reverting past this point runs it.
func (l *Ledger) Journal(undo func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.journal = append(l.journal, externalChange{undo: undo})
}

// Finalise drops the journal. Snapshots taken before Finalise can no longer be reverted.
func (l *Ledger) Finalise() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.journal = l.journal[:0]
}

// Emit appends a log for event, attributed to emitter.
func (l *Ledger) Emit(emitter common.Address, event engine.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.emitLocked(emitter, event)
}

func (l *Ledger) emitLocked(emitter common.Address, event engine.Event) {
	l.logs = append(l.logs, engine.Log{
		Index:   uint64(len(l.logs)),
		Address: emitter,
		Name:    event.EventName(),
		Event:   event,
	})
	l.journal = append(l.journal, logAppend{})
}

// Logs returns a copy of every log emitted so far.
func (l *Ledger) Logs() []engine.Log {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]engine.Log, len(l.logs))
	copy(out, l.logs)
	return out
}

// LogsSince returns the logs with an index greater than or equal to from.
func (l *Ledger) LogsSince(from uint64) []engine.Log {
	l.mu.Lock()
	defer l.mu.Unlock()
	if from >= uint64(len(l.logs)) {
		return nil
	}
	out := make([]engine.Log, len(l.logs)-int(from))
	copy(out, l.logs[from:])
	return out
}
