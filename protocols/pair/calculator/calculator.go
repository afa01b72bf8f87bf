// Package calculator holds the constant-product pricing math of a pair.
// Everything works on 256-bit unsigned integers and reports overflow instead of wrapping.
package calculator

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// BasisPointDivisor represents 100% in basis points.
const BasisPointDivisor = 10000

var (
	basisPointDivisor = uint256.NewInt(BasisPointDivisor)

	// ErrNilAmount is returned when a nil pointer is passed for an amount.
	ErrNilAmount = errors.New("nil pointer passed as amount")
	// ErrOverflow is returned when an intermediate product does not fit in 256 bits.
	ErrOverflow = errors.New("arithmetic overflow")
	// ErrInvalidFee is returned for a fee of 100% or more.
	ErrInvalidFee = errors.New("fee must be below 10000 basis points")
	// ErrInvalidState is returned for internal calculation errors, like division by zero.
	ErrInvalidState = errors.New("invalid internal state")
	// ErrInsufficientLiquidity is returned when an amountOut is requested that is greater than or equal to the available reserve.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for swap")
)

// GetAmountOut returns the output of selling amountIn against (reserveIn, reserveOut)
// with a fee of feeBps basis points:
//
//	amountOut = amountIn*(10000-fee)*reserveOut / (reserveIn*10000 + amountIn*(10000-fee))
//
// Empty reserves price every trade at zero.
func GetAmountOut(amountIn, reserveIn, reserveOut *uint256.Int, feeBps uint16) (*uint256.Int, error) {
	if amountIn == nil || reserveIn == nil || reserveOut == nil {
		return nil, ErrNilAmount
	}
	if feeBps >= BasisPointDivisor {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFee, feeBps)
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return new(uint256.Int), nil
	}

	feeMultiplier := uint256.NewInt(uint64(BasisPointDivisor - feeBps))
	amountInWithFee, overflow := new(uint256.Int).MulOverflow(amountIn, feeMultiplier)
	if overflow {
		return nil, fmt.Errorf("%w: amountIn %s with fee", ErrOverflow, amountIn)
	}
	numerator, overflow := new(uint256.Int).MulOverflow(amountInWithFee, reserveOut)
	if overflow {
		return nil, fmt.Errorf("%w: numerator for reserveOut %s", ErrOverflow, reserveOut)
	}
	denominator, overflow := new(uint256.Int).MulOverflow(reserveIn, basisPointDivisor)
	if overflow {
		return nil, fmt.Errorf("%w: denominator for reserveIn %s", ErrOverflow, reserveIn)
	}
	if _, overflow = denominator.AddOverflow(denominator, amountInWithFee); overflow {
		return nil, fmt.Errorf("%w: denominator for reserveIn %s", ErrOverflow, reserveIn)
	}

	return numerator.Div(numerator, denominator), nil
}

// GetAmountIn returns the smallest input that yields at least amountOut.
func GetAmountIn(amountOut, reserveIn, reserveOut *uint256.Int, feeBps uint16) (*uint256.Int, error) {
	if amountOut == nil || reserveIn == nil || reserveOut == nil {
		return nil, ErrNilAmount
	}
	if feeBps >= BasisPointDivisor {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFee, feeBps)
	}
	if reserveIn.IsZero() || reserveOut.IsZero() || !amountOut.Lt(reserveOut) {
		return nil, fmt.Errorf("%w: requested amountOut (%s) is >= reserveOut (%s)", ErrInsufficientLiquidity, amountOut, reserveOut)
	}

	numerator, overflow := new(uint256.Int).MulOverflow(reserveIn, amountOut)
	if overflow {
		return nil, fmt.Errorf("%w: numerator", ErrOverflow)
	}
	if _, overflow = numerator.MulOverflow(numerator, basisPointDivisor); overflow {
		return nil, fmt.Errorf("%w: numerator", ErrOverflow)
	}
	denominator := new(uint256.Int).Sub(reserveOut, amountOut)
	denominator.Mul(denominator, uint256.NewInt(uint64(BasisPointDivisor-feeBps)))
	if denominator.IsZero() {
		return nil, fmt.Errorf("%w: pool denominator is zero", ErrInvalidState)
	}

	amountIn := numerator.Div(numerator, denominator)
	return amountIn.AddUint64(amountIn, 1), nil
}

// Quote returns amountA converted at the ratio reserveB/reserveA, rounded down.
func Quote(amountA, reserveA, reserveB *uint256.Int) (*uint256.Int, error) {
	if amountA == nil || reserveA == nil || reserveB == nil {
		return nil, ErrNilAmount
	}
	if reserveA.IsZero() {
		return nil, fmt.Errorf("%w: reserveA is zero", ErrInvalidState)
	}
	product, overflow := new(uint256.Int).MulOverflow(amountA, reserveB)
	if overflow {
		return nil, fmt.Errorf("%w: quote of %s", ErrOverflow, amountA)
	}
	return product.Div(product, reserveA), nil
}

// MulDiv returns floor(a*b/c).
func MulDiv(a, b, c *uint256.Int) (*uint256.Int, error) {
	if c.IsZero() {
		return nil, fmt.Errorf("%w: division by zero", ErrInvalidState)
	}
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s", ErrOverflow, a, b)
	}
	return product.Div(product, c), nil
}

// InitialShares returns floor(sqrt(amount1*amount2)), the share count minted for the first deposit.
func InitialShares(amount1, amount2 *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(amount1, amount2)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s", ErrOverflow, amount1, amount2)
	}
	return product.Sqrt(product), nil
}

// Min returns the smaller of a and b.
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a
	}
	return b
}
