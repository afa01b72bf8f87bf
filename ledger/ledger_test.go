package ledger

import (
	"errors"
	"testing"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestTokenDeployment(t *testing.T) {
	l := New()
	usdt := l.NewToken("Tether", "USDT", 6)
	dai := l.NewToken("Dai", "DAI", 18)

	assert.NotEqual(t, usdt.Address(), dai.Address(), "each deployment gets a fresh address")
	assert.Equal(t, "USDT", usdt.Symbol())
	assert.Equal(t, uint8(6), usdt.Decimals())

	got, ok := l.Asset(usdt.Address())
	require.True(t, ok)
	assert.Equal(t, usdt.Address(), got.Address())

	_, ok = l.Asset(bob)
	assert.False(t, ok, "unknown addresses do not resolve")
}

func TestTokenTransfers(t *testing.T) {
	testCases := []struct {
		name        string
		from, to    common.Address
		amount      uint64
		expectedErr error
	}{
		{name: "Full balance", from: alice, to: bob, amount: 100},
		{name: "Partial balance", from: alice, to: bob, amount: 40},
		{name: "Zero amount", from: alice, to: bob, amount: 0},
		{name: "Over balance", from: alice, to: bob, amount: 101, expectedErr: engine.ErrInsufficientBalance},
		{name: "Zero recipient", from: alice, to: common.Address{}, amount: 1, expectedErr: ErrZeroRecipient},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := New()
			tok := l.NewToken("Token", "TKN", 18)
			require.NoError(t, tok.Mint(alice, u(100)))

			err := tok.Transfer(tc.from, tc.to, u(tc.amount))
			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Equal(t, u(100), tok.BalanceOf(alice), "failed transfer must not move funds")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, u(100-tc.amount), tok.BalanceOf(alice))
			assert.Equal(t, u(tc.amount), tok.BalanceOf(bob))
			assert.Equal(t, u(100), tok.TotalSupply())
		})
	}
}

func TestTransferFromSpendsAllowance(t *testing.T) {
	l := New()
	tok := l.NewToken("Token", "TKN", 18)
	require.NoError(t, tok.Mint(alice, u(100)))

	err := tok.TransferFrom(bob, alice, bob, u(10))
	assert.ErrorIs(t, err, engine.ErrInsufficientAllowance)

	require.NoError(t, tok.Approve(alice, bob, u(30)))
	require.NoError(t, tok.TransferFrom(bob, alice, bob, u(10)))

	assert.Equal(t, u(20), tok.Allowance(alice, bob))
	assert.Equal(t, u(90), tok.BalanceOf(alice))
	assert.Equal(t, u(10), tok.BalanceOf(bob))

	err = tok.TransferFrom(bob, alice, bob, u(21))
	assert.ErrorIs(t, err, engine.ErrInsufficientAllowance)
	assert.Equal(t, u(20), tok.Allowance(alice, bob), "failed transfer keeps the allowance")

	assert.ErrorIs(t, tok.Approve(alice, common.Address{}, u(1)), ErrZeroRecipient)
}

func TestSnapshotRevert(t *testing.T) {
	l := New()
	tok := l.NewToken("Token", "TKN", 18)
	require.NoError(t, tok.Mint(alice, u(100)))
	l.SetNativeBalance(alice, u(50))
	logsBefore := len(l.Logs())

	snap := l.Snapshot()
	require.NoError(t, tok.Transfer(alice, bob, u(60)))
	require.NoError(t, tok.Mint(bob, u(5)))
	require.NoError(t, tok.Approve(alice, bob, u(7)))
	require.NoError(t, l.TransferNative(alice, bob, u(20)))
	require.Greater(t, len(l.Logs()), logsBefore)

	l.RevertToSnapshot(snap)

	assert.Equal(t, u(100), tok.BalanceOf(alice))
	assert.True(t, tok.BalanceOf(bob).IsZero())
	assert.Equal(t, u(100), tok.TotalSupply())
	assert.True(t, tok.Allowance(alice, bob).IsZero())
	assert.Equal(t, u(50), l.NativeBalance(alice))
	assert.True(t, l.NativeBalance(bob).IsZero())
	assert.Len(t, l.Logs(), logsBefore, "logs emitted after the snapshot are dropped")

	t.Run("Finalise discards the journal", func(t *testing.T) {
		require.NoError(t, tok.Transfer(alice, bob, u(1)))
		l.Finalise()
		assert.Equal(t, 0, l.Snapshot())
		assert.Panics(t, func() { l.RevertToSnapshot(snap + 100) })
	})
}

func TestJournal(t *testing.T) {
	l := New()
	tok := l.NewToken("Token", "TKN", 18)
	require.NoError(t, tok.Mint(alice, u(100)))

	var order []int
	snap := l.Snapshot()
	l.Journal(func() { order = append(order, 1) })
	require.NoError(t, tok.Transfer(alice, bob, u(10)))
	l.Journal(func() {
		// the ledger lock is released while undo runs
		assert.Equal(t, u(100), tok.BalanceOf(alice), "ledger entries are already reverted")
		order = append(order, 2)
	})

	l.RevertToSnapshot(snap)
	assert.Equal(t, []int{2, 1}, order, "undo runs newest first")
	assert.Equal(t, u(100), tok.BalanceOf(alice))

	t.Run("Finalise drops pending undo", func(t *testing.T) {
		order = nil
		l.Journal(func() { order = append(order, 3) })
		l.Finalise()
		l.RevertToSnapshot(l.Snapshot())
		assert.Empty(t, order)
	})
}

func TestHooks(t *testing.T) {
	t.Run("Hook failure reverts the operation", func(t *testing.T) {
		l := New()
		tok := l.NewToken("Token", "TKN", 18)
		require.NoError(t, tok.Mint(alice, u(100)))
		boom := errors.New("boom")

		tok.SetHook(func(op Op, from, to common.Address, amount *uint256.Int) error {
			return boom
		})
		err := tok.Transfer(alice, bob, u(10))
		require.ErrorIs(t, err, boom)
		assert.Equal(t, u(100), tok.BalanceOf(alice))
		assert.True(t, tok.BalanceOf(bob).IsZero())
	})

	t.Run("Hook may call back into the ledger", func(t *testing.T) {
		l := New()
		tok := l.NewToken("Token", "TKN", 18)
		other := l.NewToken("Other", "OTH", 18)
		require.NoError(t, tok.Mint(alice, u(100)))
		require.NoError(t, other.Mint(bob, u(100)))

		var seen []Op
		tok.SetHook(func(op Op, from, to common.Address, amount *uint256.Int) error {
			seen = append(seen, op)
			if op != OpTransfer {
				return nil
			}
			// the hook's own change is journaled with the transfer
			return other.Transfer(bob, alice, amount)
		})
		require.NoError(t, tok.Transfer(alice, bob, u(10)))
		assert.Equal(t, []Op{OpTransfer}, seen)
		assert.Equal(t, u(10), other.BalanceOf(alice))

		tok.SetHook(nil)
		require.NoError(t, tok.Transfer(alice, bob, u(10)))
		assert.Equal(t, u(10), other.BalanceOf(alice), "removed hook no longer runs")
	})
}

func TestWrappedNative(t *testing.T) {
	l := New()
	weth := l.NewWrappedNative("ETH")
	assert.Equal(t, "Wrapped ETH", weth.Name())
	assert.Equal(t, uint8(18), weth.Decimals())

	l.SetNativeBalance(alice, u(1000))

	require.NoError(t, weth.Deposit(alice, u(400)))
	assert.Equal(t, u(600), l.NativeBalance(alice))
	assert.Equal(t, u(400), weth.BalanceOf(alice))
	assert.Equal(t, u(400), l.NativeBalance(weth.Address()), "wrapper is fully backed")

	require.NoError(t, weth.Withdraw(alice, bob, u(150)))
	assert.Equal(t, u(250), weth.BalanceOf(alice))
	assert.Equal(t, u(150), l.NativeBalance(bob))
	assert.Equal(t, u(250), weth.TotalSupply())

	t.Run("Deposit without native funds", func(t *testing.T) {
		err := weth.Deposit(bob, u(1000))
		require.ErrorIs(t, err, engine.ErrInsufficientBalance)
		assert.True(t, weth.BalanceOf(bob).IsZero())
		assert.Equal(t, u(150), l.NativeBalance(bob))
	})

	t.Run("Withdraw over balance", func(t *testing.T) {
		err := weth.Withdraw(alice, alice, u(251))
		require.ErrorIs(t, err, engine.ErrInsufficientBalance)
		assert.Equal(t, u(250), weth.BalanceOf(alice))
	})
}

func TestLogsSince(t *testing.T) {
	l := New()
	tok := l.NewToken("Token", "TKN", 18)
	require.NoError(t, tok.Mint(alice, u(3)))
	require.NoError(t, tok.Transfer(alice, bob, u(1)))

	logs := l.Logs()
	require.Len(t, logs, 2)
	assert.Equal(t, engine.EventName("Transfer"), logs[1].Name)
	assert.Equal(t, tok.Address(), logs[1].Address)

	ev, ok := logs[1].Event.(Transfer)
	require.True(t, ok)
	assert.Equal(t, alice, ev.From)
	assert.Equal(t, bob, ev.To)

	assert.Len(t, l.LogsSince(1), 1)
	assert.Nil(t, l.LogsSince(2))
}
