package pair

import (
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// LiquidityAdded is emitted after a deposit. Amount is the number of shares minted.
type LiquidityAdded struct {
	Amount *uint256.Int   `json:"amount"`
	From   common.Address `json:"from"`
}

// LiquidityRemoved is emitted after a withdrawal. Amount is the number of shares burned.
type LiquidityRemoved struct {
	Amount *uint256.Int   `json:"amount"`
	From   common.Address `json:"from"`
}

type Swap struct {
	Sender    common.Address `json:"sender"`
	AssetIn   common.Address `json:"assetIn"`
	AmountIn  *uint256.Int   `json:"amountIn"`
	AmountOut *uint256.Int   `json:"amountOut"`
}

// Transfer is emitted when shares move. Mints have a zero From, burns a zero To.
type Transfer struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *uint256.Int   `json:"value"`
}

type Approval struct {
	Owner   common.Address `json:"owner"`
	Spender common.Address `json:"spender"`
	Value   *uint256.Int   `json:"value"`
}

func (LiquidityAdded) EventName() engine.EventName   { return "LiquidityAdded" }
func (LiquidityRemoved) EventName() engine.EventName { return "LiquidityRemoved" }
func (Swap) EventName() engine.EventName             { return "Swap" }
func (Transfer) EventName() engine.EventName         { return "Transfer" }
func (Approval) EventName() engine.EventName         { return "Approval" }
