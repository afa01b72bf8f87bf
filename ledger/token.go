package ledger

import (
	"errors"
	"fmt"

	"github.com/defistate/defistate-amm-go/asset"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var _ asset.Asset = (*Token)(nil)

// ErrZeroRecipient is returned when tokens are sent or minted to the zero address.
var ErrZeroRecipient = errors.New("recipient is the zero address")

// Op names the kind of balance movement a Hook observes.
type Op string

const (
	OpTransfer Op = "transfer"
	OpMint     Op = "mint"
	OpBurn     Op = "burn"
)

// Hook runs after a token operation has been applied. Returning an error
// reverts the operation and everything the hook did. Hooks run without the
// ledger lock held and may call back into the ledger or into other contracts.
type Hook func(op Op, from, to common.Address, amount *uint256.Int) error

// Token is a fungible token recorded in a Ledger.
type Token struct {
	ledger   *Ledger
	address  common.Address
	name     string
	symbol   string
	decimals uint8

	// guarded by ledger.mu
	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int
	hook        Hook
}

func (t *Token) Address() common.Address { return t.address }
func (t *Token) Name() string            { return t.name }
func (t *Token) Symbol() string          { return t.symbol }
func (t *Token) Decimals() uint8         { return t.decimals }

// SetHook installs h, replacing any previous hook. A nil h removes it.
func (t *Token) SetHook(h Hook) {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	t.hook = h
}

// TotalSupply returns a copy of the token's total supply.
func (t *Token) TotalSupply() *uint256.Int {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	return new(uint256.Int).Set(t.totalSupply)
}

// BalanceOf returns a copy of holder's balance.
func (t *Token) BalanceOf(holder common.Address) *uint256.Int {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	return t.balanceOf(holder)
}

// Allowance returns how much spender may still move on behalf of owner.
func (t *Token) Allowance(owner, spender common.Address) *uint256.Int {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	return t.allowanceOf(owner, spender)
}

// Mint creates amount new tokens for to.
func (t *Token) Mint(to common.Address, amount *uint256.Int) error {
	return t.apply(OpMint, common.Address{}, to, amount, func() error {
		return t.mintLocked(to, amount)
	})
}

// Transfer moves amount from from to to.
func (t *Token) Transfer(from, to common.Address, amount *uint256.Int) error {
	return t.apply(OpTransfer, from, to, amount, func() error {
		return t.transferLocked(from, to, amount)
	})
}

// TransferFrom moves amount from owner to to, spending spender's allowance.
func (t *Token) TransferFrom(spender, owner, to common.Address, amount *uint256.Int) error {
	return t.apply(OpTransfer, owner, to, amount, func() error {
		allowed := t.allowanceOf(owner, spender)
		if allowed.Lt(amount) {
			return fmt.Errorf("%w: %s allowance of %s for %s is %s, need %s",
				engine.ErrInsufficientAllowance, t.symbol, owner.Hex(), spender.Hex(), allowed, amount)
		}
		if err := t.transferLocked(owner, to, amount); err != nil {
			return err
		}
		t.setAllowance(owner, spender, allowed.Sub(allowed, amount))
		return nil
	})
}

// Approve sets the amount spender may move on behalf of owner.
func (t *Token) Approve(owner, spender common.Address, amount *uint256.Int) error {
	if spender == (common.Address{}) {
		return fmt.Errorf("%s approve: %w", t.symbol, ErrZeroRecipient)
	}
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	t.setAllowance(owner, spender, new(uint256.Int).Set(amount))
	t.ledger.emitLocked(t.address, Approval{Owner: owner, Spender: spender, Value: new(uint256.Int).Set(amount)})
	return nil
}

// apply runs fn under the ledger lock, then the hook without it. A hook
// failure reverts the ledger to the state before fn ran.
func (t *Token) apply(op Op, from, to common.Address, amount *uint256.Int, fn func() error) error {
	l := t.ledger
	l.mu.Lock()
	snap := len(l.journal)
	if err := fn(); err != nil {
		undo := l.revertLocked(snap)
		l.mu.Unlock()
		runUndo(undo)
		return err
	}
	l.emitLocked(t.address, Transfer{From: from, To: to, Value: new(uint256.Int).Set(amount)})
	hook := t.hook
	l.mu.Unlock()

	if hook == nil {
		return nil
	}
	if err := hook(op, from, to, amount); err != nil {
		l.RevertToSnapshot(snap)
		return fmt.Errorf("%s %s hook: %w", t.symbol, op, err)
	}
	return nil
}

func (t *Token) transferLocked(from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("%s transfer: %w", t.symbol, ErrZeroRecipient)
	}
	bal := t.balanceOf(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s balance of %s is %s, need %s", engine.ErrInsufficientBalance, t.symbol, from.Hex(), bal, amount)
	}
	t.setBalance(from, bal.Sub(bal, amount))
	t.setBalance(to, new(uint256.Int).Add(t.balanceOf(to), amount))
	return nil
}

func (t *Token) mintLocked(to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("%s mint: %w", t.symbol, ErrZeroRecipient)
	}
	supply, overflow := new(uint256.Int).AddOverflow(t.totalSupply, amount)
	if overflow {
		return fmt.Errorf("%w: %s total supply overflows", engine.ErrInvalidAmount, t.symbol)
	}
	t.ledger.journal = append(t.ledger.journal, supplyChange{token: t, prev: t.totalSupply})
	t.totalSupply = supply
	t.setBalance(to, new(uint256.Int).Add(t.balanceOf(to), amount))
	return nil
}

func (t *Token) burnLocked(from common.Address, amount *uint256.Int) error {
	bal := t.balanceOf(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s balance of %s is %s, need %s", engine.ErrInsufficientBalance, t.symbol, from.Hex(), bal, amount)
	}
	t.ledger.journal = append(t.ledger.journal, supplyChange{token: t, prev: t.totalSupply})
	t.totalSupply = new(uint256.Int).Sub(t.totalSupply, amount)
	t.setBalance(from, bal.Sub(bal, amount))
	return nil
}

func (t *Token) balanceOf(holder common.Address) *uint256.Int {
	if v, ok := t.balances[holder]; ok {
		return new(uint256.Int).Set(v)
	}
	return new(uint256.Int)
}

func (t *Token) setBalance(holder common.Address, v *uint256.Int) {
	t.ledger.journal = append(t.ledger.journal, balanceChange{token: t, account: holder, prev: copyOrNil(t.balances[holder])})
	t.balances[holder] = v
}

func (t *Token) allowanceOf(owner, spender common.Address) *uint256.Int {
	if v, ok := t.allowances[owner][spender]; ok {
		return new(uint256.Int).Set(v)
	}
	return new(uint256.Int)
}

func (t *Token) setAllowance(owner, spender common.Address, v *uint256.Int) {
	spenders := t.allowances[owner]
	if spenders == nil {
		spenders = make(map[common.Address]*uint256.Int)
		t.allowances[owner] = spenders
	}
	t.ledger.journal = append(t.ledger.journal, allowanceChange{token: t, owner: owner, spender: spender, prev: copyOrNil(spenders[spender])})
	spenders[spender] = v
}
