package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// journalEntry is a single revertible modification of the ledger.
type journalEntry interface {
	revert(l *Ledger)
}

type (
	// nativeChange records the previous native balance of an account.
	nativeChange struct {
		account common.Address
		prev    *uint256.Int
	}
	balanceChange struct {
		token   *Token
		account common.Address
		prev    *uint256.Int
	}
	allowanceChange struct {
		token          *Token
		owner, spender common.Address
		prev           *uint256.Int
	}
	supplyChange struct {
		token *Token
		prev  *uint256.Int
	}
	logAppend struct{}
	// externalChange is an undo recorded through Journal. It is run by
	// RevertToSnapshot once the ledger lock is released.
	externalChange struct {
		undo func()
	}
)

func (ch nativeChange) revert(l *Ledger) {
	setOrDelete(l.native, ch.account, ch.prev)
}

func (ch balanceChange) revert(l *Ledger) {
	setOrDelete(ch.token.balances, ch.account, ch.prev)
}

func (ch allowanceChange) revert(l *Ledger) {
	spenders := ch.token.allowances[ch.owner]
	if spenders == nil {
		spenders = make(map[common.Address]*uint256.Int)
		ch.token.allowances[ch.owner] = spenders
	}
	setOrDelete(spenders, ch.spender, ch.prev)
}

func (ch supplyChange) revert(l *Ledger) {
	ch.token.totalSupply = ch.prev
}

func (ch logAppend) revert(l *Ledger) {
	l.logs = l.logs[:len(l.logs)-1]
}

func (ch externalChange) revert(l *Ledger) {}

func setOrDelete(m map[common.Address]*uint256.Int, key common.Address, v *uint256.Int) {
	if v == nil {
		delete(m, key)
		return
	}
	m[key] = v
}

// copyOrNil returns a private copy of v, or nil if v is nil.
func copyOrNil(v *uint256.Int) *uint256.Int {
	if v == nil {
		return nil
	}
	return new(uint256.Int).Set(v)
}
