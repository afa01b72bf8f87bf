package calculator

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustFromDecimal creates a uint256.Int from a base-10 string, for numbers
// larger than a uint64.
func mustFromDecimal(s string) *uint256.Int {
	n, err := uint256.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return n
}

func TestGetAmountOut(t *testing.T) {
	maxUint := new(uint256.Int).SetAllOne()

	testCases := []struct {
		name           string
		amountIn       *uint256.Int
		reserveIn      *uint256.Int
		reserveOut     *uint256.Int
		feeBps         uint16
		expectedAmount *uint256.Int
		expectedErr    error
	}{
		{
			name:           "Worked example",
			amountIn:       uint256.NewInt(100),
			reserveIn:      uint256.NewInt(1000),
			reserveOut:     uint256.NewInt(100),
			feeBps:         30,
			expectedAmount: uint256.NewInt(9),
		},
		{
			name:           "Standard Swap (USDC -> WETH)",
			amountIn:       uint256.NewInt(1_000_000),               // 1 USDC (6 decimals)
			reserveIn:      uint256.NewInt(100_000_000),             // 100 USDC
			reserveOut:     mustFromDecimal("50000000000000000000"), // 50 WETH
			feeBps:         30,
			expectedAmount: mustFromDecimal("493579017198530649"),
		},
		{
			name:           "Standard Swap (WETH -> USDC)",
			amountIn:       mustFromDecimal("1000000000000000000"),
			reserveIn:      mustFromDecimal("50000000000000000000"),
			reserveOut:     uint256.NewInt(100_000_000),
			feeBps:         30,
			expectedAmount: uint256.NewInt(1955016),
		},
		{
			name:           "Swap with Different Fee",
			amountIn:       uint256.NewInt(1_000_000),
			reserveIn:      uint256.NewInt(100_000_000),
			reserveOut:     mustFromDecimal("50000000000000000000"),
			feeBps:         100, // 1% fee
			expectedAmount: mustFromDecimal("490147539360332706"),
		},
		{
			name:           "Edge Case: Zero Liquidity",
			amountIn:       uint256.NewInt(1_000_000),
			reserveIn:      uint256.NewInt(0),
			reserveOut:     mustFromDecimal("50000000000000000000"),
			feeBps:         30,
			expectedAmount: uint256.NewInt(0),
		},
		{
			name:           "Edge Case: Zero Input",
			amountIn:       uint256.NewInt(0),
			reserveIn:      uint256.NewInt(1000),
			reserveOut:     uint256.NewInt(1000),
			feeBps:         30,
			expectedAmount: uint256.NewInt(0),
		},
		{
			name:        "Invalid Input: Nil AmountIn",
			reserveIn:   uint256.NewInt(1),
			reserveOut:  uint256.NewInt(1),
			expectedErr: ErrNilAmount,
		},
		{
			name:        "Invalid Input: Fee of 100%",
			amountIn:    uint256.NewInt(1),
			reserveIn:   uint256.NewInt(1),
			reserveOut:  uint256.NewInt(1),
			feeBps:      10000,
			expectedErr: ErrInvalidFee,
		},
		{
			name:        "Overflow",
			amountIn:    maxUint,
			reserveIn:   uint256.NewInt(1),
			reserveOut:  uint256.NewInt(1),
			feeBps:      30,
			expectedErr: ErrOverflow,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			amountOut, err := GetAmountOut(tc.amountIn, tc.reserveIn, tc.reserveOut, tc.feeBps)
			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, amountOut)
			assert.True(t, tc.expectedAmount.Eq(amountOut), "Expected %s, but got %s", tc.expectedAmount, amountOut)
		})
	}
}

func TestGetAmountIn(t *testing.T) {
	testCases := []struct {
		name           string
		amountOut      *uint256.Int
		reserveIn      *uint256.Int
		reserveOut     *uint256.Int
		expectedAmount *uint256.Int
		expectedErr    error
	}{
		{
			name:           "Standard Swap (USDC -> WETH)",
			amountOut:      mustFromDecimal("493579017198530649"),
			reserveIn:      uint256.NewInt(100_000_000),
			reserveOut:     mustFromDecimal("50000000000000000000"),
			expectedAmount: uint256.NewInt(1_000_000),
		},
		{
			name:           "Standard Swap (WETH -> USDC)",
			amountOut:      uint256.NewInt(1955016),
			reserveIn:      mustFromDecimal("50000000000000000000"),
			reserveOut:     uint256.NewInt(100_000_000),
			expectedAmount: mustFromDecimal("999999498234537320"),
		},
		{
			name:        "Output drains the reserve",
			amountOut:   uint256.NewInt(100),
			reserveIn:   uint256.NewInt(1000),
			reserveOut:  uint256.NewInt(100),
			expectedErr: ErrInsufficientLiquidity,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			amountIn, err := GetAmountIn(tc.amountOut, tc.reserveIn, tc.reserveOut, 30)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.expectedAmount.Eq(amountIn), "Expected %s, but got %s", tc.expectedAmount, amountIn)
		})
	}
}

func TestQuoteAndShares(t *testing.T) {
	q, err := Quote(uint256.NewInt(50), uint256.NewInt(1000), uint256.NewInt(300))
	require.NoError(t, err)
	assert.Equal(t, uint64(15), q.Uint64())

	_, err = Quote(uint256.NewInt(50), uint256.NewInt(0), uint256.NewInt(300))
	assert.ErrorIs(t, err, ErrInvalidState)

	shares, err := InitialShares(mustFromDecimal("1000000000000000"), uint256.NewInt(1_000_000))
	require.NoError(t, err)
	assert.Equal(t, uint64(31622776601), shares.Uint64())

	shares, err = InitialShares(uint256.NewInt(2), uint256.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), shares.Uint64(), "sqrt rounds down")

	_, err = InitialShares(new(uint256.Int).SetAllOne(), uint256.NewInt(2))
	assert.ErrorIs(t, err, ErrOverflow)

	v, err := MulDiv(uint256.NewInt(7), uint256.NewInt(10), uint256.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, uint64(23), v.Uint64())

	assert.Equal(t, uint64(3), Min(uint256.NewInt(3), uint256.NewInt(4)).Uint64())
}
