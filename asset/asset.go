// Package asset declares the fungible-token capabilities a pair consumes.
// Implementations live with the host ledger; see package ledger for the in-memory one.
package asset

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Asset is the capability set of a fungible token.
//
// Identities are explicit: there is no implicit message sender, so the party
// moving funds is always passed in. Failures are returned as errors rather than
// boolean results.
type Asset interface {
	Address() common.Address
	Symbol() string

	BalanceOf(holder common.Address) *uint256.Int
	Transfer(from, to common.Address, amount *uint256.Int) error
	// TransferFrom moves amount from owner to to, spending the allowance owner granted spender.
	TransferFrom(spender, owner, to common.Address, amount *uint256.Int) error
	Approve(owner, spender common.Address, amount *uint256.Int) error
}

// WrappedNative is an Asset backed 1:1 by the host's native currency.
type WrappedNative interface {
	Asset

	// Deposit moves value of native currency from holder into the wrapper and credits holder with the same amount of wrapped units.
	Deposit(holder common.Address, value *uint256.Int) error
	// Withdraw burns amount of holder's wrapped units and pays the native value to recipient.
	Withdraw(holder, recipient common.Address, amount *uint256.Int) error
}

// NativeLedger moves the host's native currency between accounts.
type NativeLedger interface {
	NativeBalance(holder common.Address) *uint256.Int
	TransferNative(from, to common.Address, value *uint256.Int) error
}

// Resolver maps an asset address to its implementation.
type Resolver interface {
	Asset(addr common.Address) (Asset, bool)
}
