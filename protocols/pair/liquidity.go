package pair

import (
	"fmt"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/protocols/pair/calculator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// AddLiquidity deposits both assets and mints shares to caller. amountA is
// denominated in assetA, amountB in the pair's other asset.
//
// The first deposit sets the price and mints sqrt(amount1*amount2) shares.
// Later deposits are matched to the current reserve ratio: only the matched
// amounts are pulled from caller and the excess of the over-supplied asset
// stays with caller. The pair must be approved to pull both assets.
func (p *Pair) AddLiquidity(caller common.Address, amountA, amountB *uint256.Int, assetA common.Address) (*uint256.Int, error) {
	if isZero(amountA) || isZero(amountB) {
		return nil, fmt.Errorf("%w: liquidity amounts must be positive", engine.ErrInvalidAmount)
	}
	s, ok := p.sideOf(assetA)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not part of pair %s", engine.ErrInvalidAsset, assetA.Hex(), p.symbol)
	}
	var amounts [2]*uint256.Int
	amounts[s], amounts[s.other()] = amountA, amountB

	var minted *uint256.Int
	err := p.call("addLiquidity", func() error {
		var err error
		minted, err = p.addLiquidity(caller, amounts, p.legs(false))
		return err
	})
	if err != nil {
		return nil, err
	}
	return minted, nil
}

// RemoveLiquidity burns shares of caller and pays out the proportional
// amounts of both reserves, in canonical order.
func (p *Pair) RemoveLiquidity(caller common.Address, shares *uint256.Int) (amount1, amount2 *uint256.Int, err error) {
	var out [2]*uint256.Int
	err = p.call("removeLiquidity", func() error {
		var err error
		out, err = p.removeLiquidity(caller, shares, p.legs(false))
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return out[side1], out[side2], nil
}

func (p *Pair) addLiquidity(caller common.Address, amounts [2]*uint256.Int, legs [2]leg) (*uint256.Int, error) {
	pulls, shares, err := p.quoteDeposit(amounts)
	if err != nil {
		return nil, err
	}

	for _, s := range []side{side1, side2} {
		if err := p.pull(caller, s, legs[s], pulls[s]); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	for _, s := range []side{side1, side2} {
		next, overflow := new(uint256.Int).AddOverflow(p.reserves[s], pulls[s])
		if overflow {
			p.mu.Unlock()
			return nil, fmt.Errorf("%w: %s reserve overflows", engine.ErrInvalidAmount, p.assets[s].Symbol())
		}
		p.setReserveLocked(s, next)
	}
	err = p.mintLocked(caller, shares)
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	p.host.Emit(p.address, LiquidityAdded{Amount: shares.Clone(), From: caller})
	p.logger.Debug("liquidity added", "pair", p.symbol, "provider", caller.Hex(),
		"amount1", pulls[side1], "amount2", pulls[side2], "shares", shares)
	return shares, nil
}

// quoteDeposit returns the amounts actually pulled for a deposit and the
// shares they are worth.
func (p *Pair) quoteDeposit(amounts [2]*uint256.Int) (pulls [2]*uint256.Int, shares *uint256.Int, err error) {
	p.mu.RLock()
	r1, r2 := p.reserves[side1].Clone(), p.reserves[side2].Clone()
	supply := p.totalSupply.Clone()
	p.mu.RUnlock()

	a1, a2 := amounts[side1], amounts[side2]
	if supply.IsZero() {
		shares, err = calculator.InitialShares(a1, a2)
		if err != nil {
			return pulls, nil, fmt.Errorf("%w: %w", engine.ErrInvalidAmount, err)
		}
		if shares.IsZero() {
			return pulls, nil, fmt.Errorf("%w: deposit mints no shares", engine.ErrInvalidAmount)
		}
		return [2]*uint256.Int{a1.Clone(), a2.Clone()}, shares, nil
	}

	opt2, err := calculator.Quote(a1, r1, r2)
	if err != nil {
		return pulls, nil, fmt.Errorf("%w: %w", engine.ErrInvalidAmount, err)
	}
	if !a2.Lt(opt2) {
		pulls = [2]*uint256.Int{a1.Clone(), opt2}
	} else {
		opt1, err := calculator.Quote(a2, r2, r1)
		if err != nil {
			return pulls, nil, fmt.Errorf("%w: %w", engine.ErrInvalidAmount, err)
		}
		pulls = [2]*uint256.Int{opt1, a2.Clone()}
	}

	shares1, err := calculator.MulDiv(pulls[side1], supply, r1)
	if err != nil {
		return pulls, nil, fmt.Errorf("%w: %w", engine.ErrInvalidAmount, err)
	}
	shares2, err := calculator.MulDiv(pulls[side2], supply, r2)
	if err != nil {
		return pulls, nil, fmt.Errorf("%w: %w", engine.ErrInvalidAmount, err)
	}
	shares = calculator.Min(shares1, shares2)
	if shares.IsZero() || pulls[side1].IsZero() || pulls[side2].IsZero() {
		return pulls, nil, fmt.Errorf("%w: deposit too small for reserves %s/%s", engine.ErrInvalidAmount, r1, r2)
	}
	return pulls, shares, nil
}

func (p *Pair) removeLiquidity(caller common.Address, shares *uint256.Int, legs [2]leg) ([2]*uint256.Int, error) {
	var out [2]*uint256.Int
	if isZero(shares) {
		return out, fmt.Errorf("%w: shares must be positive", engine.ErrInvalidAmount)
	}

	p.mu.Lock()
	supply := p.totalSupply.Clone()
	if supply.IsZero() {
		p.mu.Unlock()
		return out, fmt.Errorf("%w: %w: %s has no liquidity", engine.ErrInvalidAmount, engine.ErrInsufficientBalance, p.symbol)
	}
	for _, s := range []side{side1, side2} {
		amount, err := calculator.MulDiv(shares, p.reserves[s], supply)
		if err != nil {
			p.mu.Unlock()
			return out, fmt.Errorf("%w: %w", engine.ErrInvalidAmount, err)
		}
		out[s] = amount
	}
	if err := p.burnLocked(caller, shares); err != nil {
		p.mu.Unlock()
		return out, err
	}
	if out[side1].IsZero() || out[side2].IsZero() {
		p.mu.Unlock()
		return out, fmt.Errorf("%w: burning %s shares pays out nothing", engine.ErrInvalidAmount, shares)
	}
	for _, s := range []side{side1, side2} {
		p.setReserveLocked(s, new(uint256.Int).Sub(p.reserves[s], out[s]))
	}
	p.mu.Unlock()

	for _, s := range []side{side1, side2} {
		if err := p.push(caller, s, legs[s], out[s]); err != nil {
			return out, err
		}
	}

	p.host.Emit(p.address, LiquidityRemoved{Amount: shares.Clone(), From: caller})
	p.logger.Debug("liquidity removed", "pair", p.symbol, "provider", caller.Hex(),
		"amount1", out[side1], "amount2", out[side2], "shares", shares)
	return out, nil
}

func isZero(v *uint256.Int) bool { return v == nil || v.IsZero() }
