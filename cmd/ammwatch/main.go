package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/defistate/defistate-amm-go/differ"
	"github.com/defistate/defistate-amm-go/logging"
	"github.com/defistate/defistate-amm-go/streams/jsonrpc/client"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	DefaultClientStateBufferSize = 100
)

func main() {
	_ = godotenv.Load()

	url := flag.String("url", envOr("AMM_STREAM_URL", "ws://localhost:8545"), "WebSocket URL of the exchange daemon.")
	logLevel := flag.String("log-level", envOr("AMM_LOG_LEVEL", "info"), "Log level: debug, info, warn or error.")
	quiet := flag.Bool("quiet", false, "Only log updates, do not print the pool table.")
	flag.Parse()

	rootLogger := logging.NewLogger(os.Stderr, *logLevel)

	// Create a context that cancels when the OS sends an interrupt (Ctrl+C) or termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.NewClient(ctx, client.Config{
		URL:        *url,
		Logger:     rootLogger.With("component", "jsonrpc-client"),
		BufferSize: DefaultClientStateBufferSize,
	})
	if err != nil {
		rootLogger.Error("Failed to initialize Client", "url", *url, "error", err)
		os.Exit(1)
	}

	for {
		select {
		case state := <-c.State():
			rootLogger.Info("pool state updated", "sequence", state.Sequence, "pools", len(state.Pools))
			if !*quiet {
				renderPools(os.Stdout, state)
			}
		case err, ok := <-c.Err():
			if ok && err != nil {
				rootLogger.Error("Fatal client error", "error", err)
				os.Exit(1)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

// renderPools prints one row per pool with its reserves and the spot price of
// asset1 in asset2.
func renderPools(out io.Writer, state *differ.State) {
	ts := time.Unix(0, int64(state.Timestamp)).Format("15:04:05")
	fmt.Fprintf(out, "\n:: POOLS :: sequence #%d | %s\n", state.Sequence, ts)

	w := tabwriter.NewWriter(out, 0, 0, 4, ' ', 0)
	fmt.Fprintln(w, "ID\tSYMBOL\tADDRESS\tRESERVE1\tRESERVE2\tSHARES\tPRICE\t")
	fmt.Fprintln(w, "--\t------\t-------\t--------\t--------\t------\t-----\t")
	for _, p := range state.Pools {
		price := "-"
		if p.Reserve1 != nil && p.Reserve2 != nil && p.Reserve1.Sign() > 0 {
			price = decimal.NewFromBigInt(p.Reserve2, 0).
				DivRound(decimal.NewFromBigInt(p.Reserve1, 0), 18).
				String()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			p.ID, p.Symbol, p.Address.Hex(), p.Reserve1, p.Reserve2, p.TotalSupply, price)
	}
	w.Flush()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
