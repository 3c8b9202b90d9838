// Command junosale runs the token sale client: it connects a wallet through
// a local bridge daemon, watches the sale price and the wallet balances, and
// executes fixed-price token purchases against the sale contract.
//
// Usage:
//
//	junosale --config config.yaml
//	junosale setup              (interactive configuration wizard)
//	junosale (uses CLI arguments)
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/poodlabs/junosale/config"
	"github.com/poodlabs/junosale/internal"
	"github.com/poodlabs/junosale/internal/clients"
	"github.com/poodlabs/junosale/internal/setup"
	"github.com/poodlabs/junosale/internal/web"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		os.Args = []string{os.Args[0], "--config", "config.gen.yaml"}
	}

	conf, err := config.Get()
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}

	provider := clients.NewBridgeWalletProvider(conf.WalletBridge)
	app, err := internal.NewSaleApp(conf, provider, logger)
	if err != nil {
		logger.Fatal("failed to create sale client", zap.Error(err))
	}
	defer app.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// a rejected authorization leaves the client usable read-only;
		// the user can retry from the wallet side
		if err := app.Connect(ctx); err != nil {
			logger.Warn("wallet connect failed on startup", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		return app.Run(ctx)
	})

	if conf.ListenAddr != "" {
		srv := web.NewServer(conf.ListenAddr, app.Journal, app.Notifier, app.StateView)
		srv.Purchase = app.Purchase
		srv.Quote = app.Quote
		g.Go(func() error {
			return srv.Start(ctx)
		})
		logger.Info("dashboard started", zap.String("addr", conf.ListenAddr))
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(err.Error())
	}

	app.Disconnect()
}
