package pair

import (
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PoolView is a point-in-time copy of a pair's state, shaped for JSON streams.
type PoolView struct {
	ID          uint64         `json:"id"`
	Address     common.Address `json:"address"`
	Asset1      common.Address `json:"asset1"`
	Asset2      common.Address `json:"asset2"`
	Reserve1    *big.Int       `json:"reserve1"`
	Reserve2    *big.Int       `json:"reserve2"`
	TotalSupply *big.Int       `json:"totalSupply"`
	FeeBps      uint16         `json:"feeBps"` // i.e 30 for 0.3%
	Symbol      string         `json:"symbol"`
}

// View returns a consistent snapshot of the pair.
func (p *Pair) View() PoolView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PoolView{
		ID:          p.id,
		Address:     p.address,
		Asset1:      p.Asset1(),
		Asset2:      p.Asset2(),
		Reserve1:    p.reserves[side1].ToBig(),
		Reserve2:    p.reserves[side2].ToBig(),
		TotalSupply: p.totalSupply.ToBig(),
		FeeBps:      p.feeBps,
		Symbol:      p.symbol,
	}
}

// SpotPrice returns how many units of the other asset one unit of assetIn is
// worth at the current reserves, before fees and price impact.
func (p *Pair) SpotPrice(assetIn common.Address) (decimal.Decimal, error) {
	s, ok := p.sideOf(assetIn)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s is not part of pair %s", engine.ErrInvalidAsset, assetIn.Hex(), p.symbol)
	}
	p.mu.RLock()
	reserveIn, reserveOut := p.reserves[s].ToBig(), p.reserves[s.other()].ToBig()
	p.mu.RUnlock()

	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return decimal.Zero, fmt.Errorf("%w: %s has no reserves", engine.ErrInsufficientLiquidity, p.symbol)
	}
	return decimal.NewFromBigInt(reserveOut, 0).Div(decimal.NewFromBigInt(reserveIn, 0)), nil
}
