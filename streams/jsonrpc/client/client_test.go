package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/defistate/defistate-amm-go/differ"
	"github.com/defistate/defistate-amm-go/protocols/pair"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test Setup: Mock RPC Server ---

type MockPoolStreamer struct {
	events chan *SubscriptionEvent
	t      *testing.T
}

func SetupMockPoolStreamer(ctx context.Context, t *testing.T, port int, events []*SubscriptionEvent) (<-chan error, error) {
	eventChan := make(chan *SubscriptionEvent, len(events))
	for _, e := range events {
		eventChan <- e
	}
	close(eventChan)

	api := &MockPoolStreamer{events: eventChan, t: t}
	server := rpc.NewServer()
	if err := server.RegisterName(RpcNamespace, api); err != nil {
		return nil, fmt.Errorf("failed to register API: %v", err)
	}

	wsHandler := server.WebsocketHandler([]string{"*"})
	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: wsHandler}

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	go func() {
		<-ctx.Done()
		server.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	return errChan, nil
}

func (api *MockPoolStreamer) SubscribePoolStream(ctx context.Context) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}

	rpcSub := notifier.CreateSubscription()
	go func() {
		for event := range api.events {
			select {
			case <-rpcSub.Err():
				return
			default:
				if err := notifier.Notify(rpcSub.ID, event); err != nil {
					api.t.Logf("Error notifying subscriber: %v", err)
					return
				}
			}
		}
	}()
	return rpcSub, nil
}

// --- Test Helpers & Data Generation ---

func testPool(id uint64, r1, r2, supply int64) pair.PoolView {
	return pair.PoolView{
		ID:          id,
		Address:     common.BigToAddress(new(big.Int).SetUint64(id)),
		Asset1:      common.HexToAddress("0xa1"),
		Asset2:      common.HexToAddress("0xa2"),
		Reserve1:    big.NewInt(r1),
		Reserve2:    big.NewInt(r2),
		TotalSupply: big.NewInt(supply),
		FeeBps:      30,
		Symbol:      "A1-A2-LP",
	}
}

func generateTestEvents(t *testing.T) []*SubscriptionEvent {
	mustMarshal := func(v any) json.RawMessage {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		return data
	}
	now := uint64(time.Now().UnixNano())

	// --- Event 1: Full View ---
	full := differ.State{Sequence: 100, Timestamp: now, Pools: []pair.PoolView{testPool(1, 1000, 100, 316)}}
	event1 := &SubscriptionEvent{Type: "full", Payload: mustMarshal(full), SentAt: time.Now().UnixNano()}

	// --- Event 2: Diff ---
	diff := differ.StateDiff{
		FromSequence: 100,
		ToSequence:   101,
		Timestamp:    now,
		Pools: pair.PoolSystemDiff{
			Updates:   []pair.PoolView{testPool(1, 1100, 91, 316)},
			Additions: []pair.PoolView{testPool(2, 5, 5, 5)},
		},
	}
	event2 := &SubscriptionEvent{Type: "diff", Payload: mustMarshal(diff), SentAt: time.Now().UnixNano()}

	// --- Event 3: Malformed ---
	event3 := &SubscriptionEvent{Type: "full", Payload: json.RawMessage(`{"sequence":"not-a-number"}`)}

	// --- Event 4: Another Full ---
	event4 := &SubscriptionEvent{Type: "full", Payload: mustMarshal(differ.State{Sequence: 2})}

	return []*SubscriptionEvent{event1, event2, event3, event4}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Tests ---

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name string
		cfg  Config
	}{
		{name: "missing URL", cfg: Config{Logger: discardLogger(), BufferSize: 1}},
		{name: "zero buffer", cfg: Config{URL: "ws://localhost:1", Logger: discardLogger()}},
		{name: "missing logger", cfg: Config{URL: "ws://localhost:1", BufferSize: 1}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(context.Background(), tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestClient_SuccessfulSubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	testEvents := generateTestEvents(t)
	_, err := SetupMockPoolStreamer(ctx, t, 9988, testEvents[:1])
	require.NoError(t, err)

	client, err := NewClient(ctx, Config{
		URL:        "ws://localhost:9988",
		Logger:     discardLogger(),
		BufferSize: 10,
	})
	require.NoError(t, err)

	select {
	case state := <-client.State():
		assert.Equal(t, uint64(100), state.Sequence)
		require.Len(t, state.Pools, 1)
		assert.Equal(t, int64(1000), state.Pools[0].Reserve1.Int64())
	case <-time.After(2 * time.Second):
		t.Fatal("Test timed out waiting for state")
	}
}

func TestClient_DiffReconstruction(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	testEvents := generateTestEvents(t)
	_, err := SetupMockPoolStreamer(ctx, t, 9987, testEvents[:2])
	require.NoError(t, err)

	patcherCalled := false
	statePatcher := func(prev *differ.State, diff *differ.StateDiff) (*differ.State, error) {
		patcherCalled = true
		// Runs on the client goroutine, so only assert.
		assert.Len(t, prev.Pools, 1)
		if assert.Len(t, diff.Pools.Updates, 1) {
			assert.Equal(t, int64(1100), diff.Pools.Updates[0].Reserve1.Int64())
		}
		return defaultStatePatcher()(prev, diff)
	}

	client, err := NewClient(ctx, Config{
		URL:          "ws://localhost:9987",
		Logger:       discardLogger(),
		BufferSize:   10,
		StatePatcher: statePatcher,
	})
	require.NoError(t, err)

	select {
	case state1 := <-client.State():
		assert.Equal(t, uint64(100), state1.Sequence)
	case <-time.After(2 * time.Second):
		t.Fatal("Test timed out waiting for initial full state")
	}

	select {
	case state2 := <-client.State():
		assert.Equal(t, uint64(101), state2.Sequence)
		require.Len(t, state2.Pools, 2)
		assert.Equal(t, int64(91), state2.Pools[0].Reserve2.Int64())
		assert.Equal(t, uint64(2), state2.Pools[1].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("Test timed out waiting for patched state")
	}

	assert.True(t, patcherCalled, "The injected patcher should have been called")
}

func TestClient_DropsMalformedMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	testEvents := generateTestEvents(t)
	_, err := SetupMockPoolStreamer(ctx, t, 9989, append(testEvents[0:1], testEvents[2:4]...))
	require.NoError(t, err)

	client, err := NewClient(ctx, Config{
		URL:        "ws://localhost:9989",
		Logger:     discardLogger(),
		BufferSize: 10,
	})
	require.NoError(t, err)

	received := map[uint64]bool{}
	for i := 0; i < 2; i++ {
		select {
		case state := <-client.State():
			received[state.Sequence] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("Test timed out waiting for state %d", i+1)
		}
	}
	assert.Len(t, received, 2)
	assert.True(t, received[100])
	assert.True(t, received[2])
}

func TestClient_Reconnection(t *testing.T) {
	const testPort = 9990
	clientCtx, clientCancel := context.WithCancel(context.Background())
	defer clientCancel()

	client, err := NewClient(clientCtx, Config{
		URL:        fmt.Sprintf("ws://localhost:%d", testPort),
		Logger:     discardLogger(),
		BufferSize: 10,
	})
	require.NoError(t, err)

	server1Ctx, server1Cancel := context.WithCancel(clientCtx)
	event1 := []*SubscriptionEvent{{Type: "full", Payload: json.RawMessage(`{"sequence":1}`)}}
	_, err = SetupMockPoolStreamer(server1Ctx, t, testPort, event1)
	require.NoError(t, err)

	select {
	case state := <-client.State():
		assert.Equal(t, uint64(1), state.Sequence)
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for first message")
	}

	server1Cancel()
	time.Sleep(100 * time.Millisecond)

	server2Ctx, server2Cancel := context.WithCancel(clientCtx)
	defer server2Cancel()
	event2 := []*SubscriptionEvent{{Type: "full", Payload: json.RawMessage(`{"sequence":2}`)}}
	_, err = SetupMockPoolStreamer(server2Ctx, t, testPort, event2)
	require.NoError(t, err)

	select {
	case state := <-client.State():
		assert.Equal(t, uint64(2), state.Sequence)
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for client to reconnect")
	}
}

// --- StreamProcessor Tests ---

func TestStreamProcessor_FullAndDiffFlow(t *testing.T) {
	sp := NewStreamProcessor(discardLogger(), 10, nil)
	events := generateTestEvents(t)

	fullEventBytes, err := json.Marshal(events[0])
	require.NoError(t, err)
	require.NoError(t, sp.ProcessMessage(fullEventBytes))

	first := <-sp.State()
	assert.Equal(t, uint64(100), first.Sequence)

	diffEventBytes, err := json.Marshal(events[1])
	require.NoError(t, err)
	require.NoError(t, sp.ProcessMessage(diffEventBytes))

	second := <-sp.State()
	assert.Equal(t, uint64(101), second.Sequence)
	require.Len(t, second.Pools, 2)
	assert.Equal(t, int64(1100), second.Pools[0].Reserve1.Int64())
	assert.Equal(t, int64(1000), first.Pools[0].Reserve1.Int64(), "previous state is not mutated")
}

func TestStreamProcessor_ValidationErrors(t *testing.T) {
	sp := NewStreamProcessor(discardLogger(), 10, nil)
	events := generateTestEvents(t)

	diffEventBytes, err := json.Marshal(events[1])
	require.NoError(t, err)
	err = sp.ProcessMessage(diffEventBytes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "received diff before full state")

	assert.Error(t, sp.ProcessMessage([]byte(`{not-json}`)))
	assert.Error(t, sp.ProcessMessage([]byte(`{"type":"bogus"}`)))
}

func TestStreamProcessor_OutOfOrderDiff(t *testing.T) {
	sp := NewStreamProcessor(discardLogger(), 10, nil)
	events := generateTestEvents(t)

	fullEventBytes, err := json.Marshal(events[0])
	require.NoError(t, err)
	require.NoError(t, sp.ProcessMessage(fullEventBytes))
	<-sp.State()

	gap, err := json.Marshal(differ.StateDiff{FromSequence: 105, ToSequence: 106})
	require.NoError(t, err)
	gapBytes, err := json.Marshal(&SubscriptionEvent{Type: "diff", Payload: gap})
	require.NoError(t, err)

	// Should not error, but log warn and not emit state
	require.NoError(t, sp.ProcessMessage(gapBytes))
	select {
	case <-sp.State():
		t.Fatal("Should not emit state for out-of-order diff")
	default:
	}
}

func TestStreamProcessor_PatchError(t *testing.T) {
	failing := func(*differ.State, *differ.StateDiff) (*differ.State, error) {
		return nil, errors.New("boom")
	}
	sp := NewStreamProcessor(discardLogger(), 10, failing)
	events := generateTestEvents(t)

	for i, ev := range events[:2] {
		data, err := json.Marshal(ev)
		require.NoError(t, err)
		err = sp.ProcessMessage(data)
		if i == 0 {
			require.NoError(t, err)
			continue
		}
		assert.ErrorContains(t, err, "failed to patch state")
	}
}
