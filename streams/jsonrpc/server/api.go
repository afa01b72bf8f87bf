package server

import (
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/protocols/pair"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// ReservesResult is returned by amm_reserves.
type ReservesResult struct {
	Asset1   common.Address `json:"asset1"`
	Reserve1 *hexutil.Big   `json:"reserve1"`
	Asset2   common.Address `json:"asset2"`
	Reserve2 *hexutil.Big   `json:"reserve2"`
}

// RemoveLiquidityResult is returned by amm_removeLiquidity, in canonical asset order.
type RemoveLiquidityResult struct {
	Amount1 *hexutil.Big `json:"amount1"`
	Amount2 *hexutil.Big `json:"amount2"`
}

// RemoveLiquidityETHResult is returned by amm_removeLiquidityETH.
type RemoveLiquidityETHResult struct {
	TokenAmount *hexutil.Big `json:"tokenAmount"`
	Value       *hexutil.Big `json:"value"`
}

// --- Registry ---

// CreatePair creates the pair for a and b and returns its address.
func (s *Service) CreatePair(a, b common.Address) (common.Address, error) {
	var addr common.Address
	err := s.exec("createPair", func() error {
		var err error
		addr, err = s.factory.CreatePair(a, b)
		if err != nil {
			return err
		}
		s.metrics.SetPairs(s.factory.Len())
		return nil
	})
	return addr, err
}

// GetPair returns the pair address for a and b in either order, or the zero address.
func (s *Service) GetPair(a, b common.Address) common.Address {
	return s.factory.IsPairCreated(a, b)
}

// Pairs returns every pair address in creation order.
func (s *Service) Pairs() []common.Address {
	return s.factory.AllPairs()
}

// Tokens returns every asset listed in at least one pair.
func (s *Service) Tokens() []common.Address {
	return s.factory.Tokens()
}

// Pools returns a view of every pair in creation order.
func (s *Service) Pools() []pair.PoolView {
	return s.factory.View()
}

// --- Pricing ---

func (s *Service) Reserves(pairAddr common.Address) (*ReservesResult, error) {
	p, err := s.pair(pairAddr)
	if err != nil {
		return nil, err
	}
	r1, r2 := p.Reserves()
	return &ReservesResult{
		Asset1:   p.Asset1(),
		Reserve1: toBig(r1),
		Asset2:   p.Asset2(),
		Reserve2: toBig(r2),
	}, nil
}

// GetTokenAmount quotes the output of swapping amountIn of assetIn.
func (s *Service) GetTokenAmount(pairAddr common.Address, amountIn *hexutil.Big, assetIn common.Address) (*hexutil.Big, error) {
	p, err := s.pair(pairAddr)
	if err != nil {
		return nil, err
	}
	in, err := amount("amountIn", amountIn)
	if err != nil {
		return nil, err
	}
	out, err := p.GetTokenAmount(in, assetIn)
	if err != nil {
		return nil, toAPIError(err)
	}
	return toBig(out), nil
}

// SpotPrice returns the marginal price of assetIn in units of the other asset, as a decimal string.
func (s *Service) SpotPrice(pairAddr, assetIn common.Address) (string, error) {
	p, err := s.pair(pairAddr)
	if err != nil {
		return "", err
	}
	price, err := p.SpotPrice(assetIn)
	if err != nil {
		return "", toAPIError(err)
	}
	return price.String(), nil
}

// --- Liquidity ---

func (s *Service) AddLiquidity(caller, pairAddr common.Address, amountA, amountB *hexutil.Big, assetA common.Address) (*hexutil.Big, error) {
	p, err := s.pair(pairAddr)
	if err != nil {
		return nil, err
	}
	a, err := amount("amountA", amountA)
	if err != nil {
		return nil, err
	}
	b, err := amount("amountB", amountB)
	if err != nil {
		return nil, err
	}
	var shares *uint256.Int
	err = s.exec("addLiquidity", func() error {
		shares, err = p.AddLiquidity(caller, a, b, assetA)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toBig(shares), nil
}

func (s *Service) RemoveLiquidity(caller, pairAddr common.Address, shares *hexutil.Big) (*RemoveLiquidityResult, error) {
	p, err := s.pair(pairAddr)
	if err != nil {
		return nil, err
	}
	amt, err := amount("shares", shares)
	if err != nil {
		return nil, err
	}
	var out1, out2 *uint256.Int
	err = s.exec("removeLiquidity", func() error {
		out1, out2, err = p.RemoveLiquidity(caller, amt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &RemoveLiquidityResult{Amount1: toBig(out1), Amount2: toBig(out2)}, nil
}

func (s *Service) AddLiquidityETH(caller, pairAddr common.Address, tokenAmount, value *hexutil.Big) (*hexutil.Big, error) {
	p, err := s.pair(pairAddr)
	if err != nil {
		return nil, err
	}
	tokens, err := amount("tokenAmount", tokenAmount)
	if err != nil {
		return nil, err
	}
	v, err := amount("value", value)
	if err != nil {
		return nil, err
	}
	var shares *uint256.Int
	err = s.exec("addLiquidityETH", func() error {
		shares, err = p.AddLiquidityETH(caller, tokens, v)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toBig(shares), nil
}

func (s *Service) RemoveLiquidityETH(caller, pairAddr common.Address, shares *hexutil.Big) (*RemoveLiquidityETHResult, error) {
	p, err := s.pair(pairAddr)
	if err != nil {
		return nil, err
	}
	amt, err := amount("shares", shares)
	if err != nil {
		return nil, err
	}
	var tokens, value *uint256.Int
	err = s.exec("removeLiquidityETH", func() error {
		tokens, value, err = p.RemoveLiquidityETH(caller, amt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &RemoveLiquidityETHResult{TokenAmount: toBig(tokens), Value: toBig(value)}, nil
}

// --- Swaps ---

// Swap sells amountIn of assetIn. minOut may be omitted.
func (s *Service) Swap(caller, pairAddr common.Address, amountIn *hexutil.Big, assetIn common.Address, minOut *hexutil.Big) (*hexutil.Big, error) {
	p, err := s.pair(pairAddr)
	if err != nil {
		return nil, err
	}
	in, err := amount("amountIn", amountIn)
	if err != nil {
		return nil, err
	}
	var out *uint256.Int
	err = s.exec("swap", func() error {
		out, err = p.Swap(caller, in, optionalAmount(minOut), assetIn)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordVolume(p, assetIn, in)
	return toBig(out), nil
}

// EthToTokenSwap sells value of native currency. minOut may be omitted.
func (s *Service) EthToTokenSwap(caller, pairAddr common.Address, value, minOut *hexutil.Big) (*hexutil.Big, error) {
	p, err := s.pair(pairAddr)
	if err != nil {
		return nil, err
	}
	v, err := amount("value", value)
	if err != nil {
		return nil, err
	}
	var out *uint256.Int
	err = s.exec("ethToTokenSwap", func() error {
		out, err = p.EthToTokenSwap(caller, v, optionalAmount(minOut))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordVolume(p, s.factory.WrappedNative(), v)
	return toBig(out), nil
}

// TokenToEthSwap sells tokenAmount for native currency. minOut may be omitted.
func (s *Service) TokenToEthSwap(caller, pairAddr common.Address, tokenAmount, minOut *hexutil.Big) (*hexutil.Big, error) {
	p, err := s.pair(pairAddr)
	if err != nil {
		return nil, err
	}
	in, err := amount("tokenAmount", tokenAmount)
	if err != nil {
		return nil, err
	}
	var out *uint256.Int
	err = s.exec("tokenToEthSwap", func() error {
		out, err = p.TokenToEthSwap(caller, in, optionalAmount(minOut))
		return err
	})
	if err != nil {
		return nil, err
	}
	token := p.Asset1()
	if token == s.factory.WrappedNative() {
		token = p.Asset2()
	}
	s.recordVolume(p, token, in)
	return toBig(out), nil
}

// --- Balances and shares ---

// TransferShares moves LP shares of pairAddr from from to to.
func (s *Service) TransferShares(from, pairAddr, to common.Address, amt *hexutil.Big) (bool, error) {
	p, err := s.pair(pairAddr)
	if err != nil {
		return false, err
	}
	v, err := amount("amount", amt)
	if err != nil {
		return false, err
	}
	if err := s.exec("transferShares", func() error { return p.Transfer(from, to, v) }); err != nil {
		return false, err
	}
	return true, nil
}

// TransferSharesFrom moves LP shares of pairAddr from owner to to, spending spender's allowance.
func (s *Service) TransferSharesFrom(spender, pairAddr, owner, to common.Address, amt *hexutil.Big) (bool, error) {
	p, err := s.pair(pairAddr)
	if err != nil {
		return false, err
	}
	v, err := amount("amount", amt)
	if err != nil {
		return false, err
	}
	if err := s.exec("transferSharesFrom", func() error { return p.TransferFrom(spender, owner, to, v) }); err != nil {
		return false, err
	}
	return true, nil
}

// Approve sets spender's allowance over owner's balance of assetAddr, which
// may be a token or a pair's LP share.
func (s *Service) Approve(owner, assetAddr, spender common.Address, amt *hexutil.Big) (bool, error) {
	v, err := amount("amount", amt)
	if err != nil {
		return false, err
	}
	approve, err := s.approver(assetAddr)
	if err != nil {
		return false, err
	}
	if err := s.exec("approve", func() error { return approve(owner, spender, v) }); err != nil {
		return false, err
	}
	return true, nil
}

// BalanceOf returns holder's balance of assetAddr, which may be a token or a pair's LP share.
func (s *Service) BalanceOf(assetAddr, holder common.Address) (*hexutil.Big, error) {
	if p, ok := s.factory.Pair(assetAddr); ok {
		return toBig(p.BalanceOf(holder)), nil
	}
	a, ok := s.ledger.Asset(assetAddr)
	if !ok {
		return nil, toAPIError(fmt.Errorf("%w: unknown asset %s", engine.ErrInvalidAsset, assetAddr.Hex()))
	}
	return toBig(a.BalanceOf(holder)), nil
}

func (s *Service) ShareBalanceOf(pairAddr, holder common.Address) (*hexutil.Big, error) {
	p, err := s.pair(pairAddr)
	if err != nil {
		return nil, err
	}
	return toBig(p.BalanceOf(holder)), nil
}

func (s *Service) ShareAllowance(pairAddr, owner, spender common.Address) (*hexutil.Big, error) {
	p, err := s.pair(pairAddr)
	if err != nil {
		return nil, err
	}
	return toBig(p.Allowance(owner, spender)), nil
}

func (s *Service) TotalSupply(pairAddr common.Address) (*hexutil.Big, error) {
	p, err := s.pair(pairAddr)
	if err != nil {
		return nil, err
	}
	return toBig(p.TotalSupply()), nil
}

func (s *Service) NativeBalance(holder common.Address) *hexutil.Big {
	return toBig(s.ledger.NativeBalance(holder))
}

// Logs returns the committed event logs with index >= from.
func (s *Service) Logs(from hexutil.Uint64) []engine.Log {
	return s.ledger.LogsSince(uint64(from))
}

// --- helpers ---

func (s *Service) pair(addr common.Address) (*pair.Pair, error) {
	p, ok := s.factory.Pair(addr)
	if !ok {
		return nil, toAPIError(fmt.Errorf("%w: no pair at %s", engine.ErrInvalidAsset, addr.Hex()))
	}
	return p, nil
}

func (s *Service) approver(addr common.Address) (func(owner, spender common.Address, v *uint256.Int) error, error) {
	if p, ok := s.factory.Pair(addr); ok {
		return p.Approve, nil
	}
	if a, ok := s.ledger.Asset(addr); ok {
		return a.Approve, nil
	}
	return nil, toAPIError(fmt.Errorf("%w: unknown asset %s", engine.ErrInvalidAsset, addr.Hex()))
}

func (s *Service) recordVolume(p *pair.Pair, assetIn common.Address, in *uint256.Int) {
	symbol := assetIn.Hex()
	if a, ok := s.ledger.Asset(assetIn); ok {
		symbol = a.Symbol()
	}
	s.metrics.AddSwapVolume(p.Symbol(), symbol, decimal.NewFromBigInt(in.ToBig(), 0).InexactFloat64())
}

// amount converts a required RPC quantity.
func amount(name string, v *hexutil.Big) (*uint256.Int, error) {
	if v == nil {
		return nil, toAPIError(fmt.Errorf("%w: %s is required", engine.ErrInvalidAmount, name))
	}
	out, overflow := uint256.FromBig((*big.Int)(v))
	if overflow {
		return nil, toAPIError(fmt.Errorf("%w: %s exceeds 256 bits", engine.ErrInvalidAmount, name))
	}
	return out, nil
}

func optionalAmount(v *hexutil.Big) *uint256.Int {
	if v == nil {
		return nil
	}
	out, overflow := uint256.FromBig((*big.Int)(v))
	if overflow {
		// No output can exceed 256 bits, so the swap fails the slippage check.
		return new(uint256.Int).SetAllOne()
	}
	return out
}

func toBig(v *uint256.Int) *hexutil.Big {
	if v == nil {
		return (*hexutil.Big)(new(big.Int))
	}
	return (*hexutil.Big)(v.ToBig())
}
