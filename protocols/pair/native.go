package pair

import (
	"fmt"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// The entry points below are available on pairs whose one asset is the
// wrapped native token. Native value is moved from the caller and wrapped
// before reserves are credited; wrapped payouts are unwrapped and sent to the
// caller as native value. A failure anywhere reverts the wrap or unwrap too.

// AddLiquidityETH deposits tokenAmount of the non-native asset and value of
// native currency.
func (p *Pair) AddLiquidityETH(caller common.Address, tokenAmount, value *uint256.Int) (*uint256.Int, error) {
	if err := p.requireNative("addLiquidityETH"); err != nil {
		return nil, err
	}
	if isZero(tokenAmount) || isZero(value) {
		return nil, fmt.Errorf("%w: liquidity amounts must be positive", engine.ErrInvalidAmount)
	}
	var amounts [2]*uint256.Int
	amounts[p.nativeSide], amounts[p.nativeSide.other()] = value, tokenAmount

	var minted *uint256.Int
	err := p.call("addLiquidityETH", func() error {
		var err error
		minted, err = p.addLiquidity(caller, amounts, p.legs(true))
		return err
	})
	if err != nil {
		return nil, err
	}
	return minted, nil
}

// RemoveLiquidityETH burns shares of caller, paying the token side as tokens
// and the wrapped side as native currency.
func (p *Pair) RemoveLiquidityETH(caller common.Address, shares *uint256.Int) (tokenAmount, value *uint256.Int, err error) {
	if err := p.requireNative("removeLiquidityETH"); err != nil {
		return nil, nil, err
	}
	var out [2]*uint256.Int
	err = p.call("removeLiquidityETH", func() error {
		var err error
		out, err = p.removeLiquidity(caller, shares, p.legs(true))
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return out[p.nativeSide.other()], out[p.nativeSide], nil
}

// EthToTokenSwap sells value of native currency for the pair's token.
func (p *Pair) EthToTokenSwap(caller common.Address, value, minOut *uint256.Int) (*uint256.Int, error) {
	if err := p.requireNative("ethToTokenSwap"); err != nil {
		return nil, err
	}
	var out *uint256.Int
	err := p.call("ethToTokenSwap", func() error {
		var err error
		out, err = p.swap(caller, p.nativeSide, value, minOut, p.legs(true))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TokenToEthSwap sells tokenAmount of the pair's token for native currency.
func (p *Pair) TokenToEthSwap(caller common.Address, tokenAmount, minOut *uint256.Int) (*uint256.Int, error) {
	if err := p.requireNative("tokenToEthSwap"); err != nil {
		return nil, err
	}
	var out *uint256.Int
	err := p.call("tokenToEthSwap", func() error {
		var err error
		out, err = p.swap(caller, p.nativeSide.other(), tokenAmount, minOut, p.legs(true))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
