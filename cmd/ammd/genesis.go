package main

import (
	"fmt"

	"github.com/defistate/defistate-amm-go/cmd/ammd/config"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/protocols/factory"
	"github.com/ethereum/go-ethereum/common"
)

// genesis builds the ledger and factory described by cfg: it deploys the
// configured tokens, funds the configured holders and creates the listed pairs.
func genesis(cfg *config.Config, logger engine.Logger) (*ledger.Ledger, *factory.Factory, error) {
	l := ledger.New()
	bySymbol := make(map[string]common.Address)

	factoryCfg := &factory.Config{
		Address:  cfg.Factory(),
		Host:     l,
		Resolver: l,
		FeeBps:   cfg.Fee(),
		Logger:   logger,
	}

	if cfg.Native != nil {
		weth := l.NewWrappedNative(cfg.Native.Symbol)
		balances, err := config.Balances(cfg.Native.Balances, config.NativeDecimals())
		if err != nil {
			return nil, nil, fmt.Errorf("native balances: %w", err)
		}
		for holder, v := range balances {
			l.SetNativeBalance(holder, v)
		}
		factoryCfg.Native = l
		factoryCfg.WrappedNative = weth
		bySymbol[cfg.Native.Symbol] = weth.Address()
		logger.Info("wrapped native deployed", "symbol", weth.Symbol(), "address", weth.Address().Hex())
	}

	for _, tc := range cfg.Tokens {
		tok := l.NewToken(tc.Name, tc.Symbol, tc.Decimals)
		balances, err := config.Balances(tc.Balances, tc.Decimals)
		if err != nil {
			return nil, nil, fmt.Errorf("token %s balances: %w", tc.Symbol, err)
		}
		for holder, v := range balances {
			if err := tok.Mint(holder, v); err != nil {
				return nil, nil, fmt.Errorf("minting %s to %s: %w", tc.Symbol, holder.Hex(), err)
			}
		}
		bySymbol[tc.Symbol] = tok.Address()
		logger.Info("token deployed", "symbol", tc.Symbol, "address", tok.Address().Hex(), "holders", len(balances))
	}

	f, err := factory.New(factoryCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating factory: %w", err)
	}
	for _, p := range cfg.Pairs {
		if _, err := f.CreatePair(bySymbol[p[0]], bySymbol[p[1]]); err != nil {
			return nil, nil, fmt.Errorf("creating pair %s/%s: %w", p[0], p[1], err)
		}
	}

	// Genesis is not revertible.
	l.Finalise()
	return l, f, nil
}
