package pair

import (
	"fmt"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/protocols/pair/calculator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// GetTokenAmount prices selling amountIn of assetIn against the current
// reserves. Empty reserves price every trade at zero.
func (p *Pair) GetTokenAmount(amountIn *uint256.Int, assetIn common.Address) (*uint256.Int, error) {
	s, ok := p.sideOf(assetIn)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not part of pair %s", engine.ErrInvalidAsset, assetIn.Hex(), p.symbol)
	}
	if amountIn == nil {
		return nil, fmt.Errorf("%w: nil amount", engine.ErrInvalidAmount)
	}
	p.mu.RLock()
	reserveIn, reserveOut := p.reserves[s].Clone(), p.reserves[s.other()].Clone()
	p.mu.RUnlock()

	out, err := calculator.GetAmountOut(amountIn, reserveIn, reserveOut, p.feeBps)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrInvalidAmount, err)
	}
	return out, nil
}

// Swap sells amountIn of assetIn for the other asset. It fails with
// engine.ErrSlippageExceeded if the output would be below minOut.
func (p *Pair) Swap(caller common.Address, amountIn, minOut *uint256.Int, assetIn common.Address) (*uint256.Int, error) {
	if isZero(amountIn) {
		return nil, fmt.Errorf("%w: swap input must be positive", engine.ErrInvalidAmount)
	}
	s, ok := p.sideOf(assetIn)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not part of pair %s", engine.ErrInvalidAsset, assetIn.Hex(), p.symbol)
	}

	var out *uint256.Int
	err := p.call("swap", func() error {
		var err error
		out, err = p.swap(caller, s, amountIn, minOut, p.legs(false))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pair) swap(caller common.Address, in side, amountIn, minOut *uint256.Int, legs [2]leg) (*uint256.Int, error) {
	if isZero(amountIn) {
		return nil, fmt.Errorf("%w: swap input must be positive", engine.ErrInvalidAmount)
	}
	outSide := in.other()

	p.mu.RLock()
	reserveIn, reserveOut := p.reserves[in].Clone(), p.reserves[outSide].Clone()
	p.mu.RUnlock()

	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, fmt.Errorf("%w: %s has no reserves", engine.ErrInsufficientLiquidity, p.symbol)
	}
	amountOut, err := calculator.GetAmountOut(amountIn, reserveIn, reserveOut, p.feeBps)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrInvalidAmount, err)
	}
	if amountOut.IsZero() {
		return nil, fmt.Errorf("%w: %s %s buys nothing", engine.ErrInvalidAmount, amountIn, p.assets[in].Symbol())
	}
	if minOut != nil && amountOut.Lt(minOut) {
		return nil, fmt.Errorf("%w: output %s is below minimum %s", engine.ErrSlippageExceeded, amountOut, minOut)
	}
	nextIn, overflow := new(uint256.Int).AddOverflow(reserveIn, amountIn)
	if overflow {
		return nil, fmt.Errorf("%w: %s reserve overflows", engine.ErrInvalidAmount, p.assets[in].Symbol())
	}

	if err := p.pull(caller, in, legs[in], amountIn); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.setReserveLocked(in, nextIn)
	p.setReserveLocked(outSide, new(uint256.Int).Sub(reserveOut, amountOut))
	p.mu.Unlock()

	if err := p.push(caller, outSide, legs[outSide], amountOut); err != nil {
		return nil, err
	}

	p.host.Emit(p.address, Swap{
		Sender:    caller,
		AssetIn:   p.assets[in].Address(),
		AmountIn:  amountIn.Clone(),
		AmountOut: amountOut.Clone(),
	})
	p.logger.Debug("swap", "pair", p.symbol, "trader", caller.Hex(),
		"assetIn", p.assets[in].Symbol(), "amountIn", amountIn, "amountOut", amountOut)
	return amountOut, nil
}
