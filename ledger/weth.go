package ledger

import (
	"fmt"

	"github.com/defistate/defistate-amm-go/asset"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var _ asset.WrappedNative = (*WrappedNative)(nil)

// WrappedNative is a Token fully backed by native currency held at its own address.
type WrappedNative struct {
	*Token
}

// Deposit locks value of holder's native currency in the wrapper and mints the same amount of wrapped units to holder.
func (w *WrappedNative) Deposit(holder common.Address, value *uint256.Int) error {
	return w.apply(OpMint, common.Address{}, holder, value, func() error {
		if err := w.ledger.transferNativeLocked(holder, w.address, value); err != nil {
			return fmt.Errorf("%s deposit: %w", w.symbol, err)
		}
		return w.mintLocked(holder, value)
	})
}

// Withdraw burns amount of holder's wrapped units and releases the native value to recipient.
func (w *WrappedNative) Withdraw(holder, recipient common.Address, amount *uint256.Int) error {
	return w.apply(OpBurn, holder, common.Address{}, amount, func() error {
		if err := w.burnLocked(holder, amount); err != nil {
			return fmt.Errorf("%s withdraw: %w", w.symbol, err)
		}
		return w.ledger.transferNativeLocked(w.address, recipient, amount)
	})
}
