package ledger

import (
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Transfer is emitted for every token balance movement. Mints have a zero
// From, burns a zero To.
type Transfer struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *uint256.Int   `json:"value"`
}

func (Transfer) EventName() engine.EventName { return "Transfer" }

// Approval is emitted when an allowance is set.
type Approval struct {
	Owner   common.Address `json:"owner"`
	Spender common.Address `json:"spender"`
	Value   *uint256.Int   `json:"value"`
}

func (Approval) EventName() engine.EventName { return "Approval" }
