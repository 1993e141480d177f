// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/dispenser/api"
	"github.com/vechain/dispenser/api/admin"
	"github.com/vechain/dispenser/co"
	"github.com/vechain/dispenser/health"
	"github.com/vechain/dispenser/log"
	"github.com/vechain/dispenser/metrics"
	"github.com/vechain/dispenser/sim"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("Dispenser %s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Dispenser",
		Usage:     "Cross-chain staking incentive dispenser over a simulated bridge network",
		Copyright: "2025 VeChain Foundation <https://vechain.org/>",
		Flags: []cli.Flag{
			configFlag,
			dataDirFlag,
			verbosityFlag,
			logFormatFlag,
			duplicateDeliveriesFlag,
			messagesFirstFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiSlowQueriesThresholdFlag,
			enableAPILogsFlag,
			enableMetricsFlag,
			pprofFlag,
			enableAdminFlag,
			adminAddrFlag,
			relayIntervalFlag,
			epochIntervalFlag,
		},
		Action: serveAction,
		Commands: []cli.Command{
			{
				Name:  "simulate",
				Usage: "claim every staking target for a number of epochs and print the ledgers",
				Flags: []cli.Flag{
					configFlag,
					dataDirFlag,
					verbosityFlag,
					logFormatFlag,
					duplicateDeliveriesFlag,
					messagesFirstFlag,
					epochsFlag,
				},
				Action: simulateAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	logLevel, err := initLogger(ctx)
	if err != nil {
		return err
	}
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	net, err := openNetwork(ctx)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing network..."); net.Close() }()

	var kick co.Signal
	enableReqLogger := &atomic.Bool{}
	enableReqLogger.Store(ctx.Bool(enableAPILogsFlag.Name))

	handler, closeSubs := api.New(net, api.Options{
		AllowedOrigins:       ctx.String(apiCorsFlag.Name),
		PprofOn:              ctx.Bool(pprofFlag.Name),
		EnableReqLogger:      enableReqLogger,
		SlowQueriesThreshold: time.Duration(ctx.Uint64(apiSlowQueriesThresholdFlag.Name)) * time.Millisecond,
		EnableMetrics:        ctx.Bool(enableMetricsFlag.Name),
		OnChange:             kick.Signal,
	})
	defer func() { logger.Info("closing subscriptions..."); closeSubs() }()

	apiURL, srvCloser, err := startServer("API", ctx.String(apiAddrFlag.Name), handler)
	if err != nil {
		return err
	}
	defer func() { logger.Info("stopping API server..."); srvCloser() }()

	relayInterval := ctx.Duration(relayIntervalFlag.Name)
	healthStatus := health.New(3 * relayInterval)

	var adminURL string
	if ctx.Bool(enableAdminFlag.Name) {
		url, adminCloser, err := startServer("admin", ctx.String(adminAddrFlag.Name), admin.New(logLevel, enableReqLogger, healthStatus))
		if err != nil {
			return err
		}
		defer func() { logger.Info("stopping admin server..."); adminCloser() }()
		adminURL = url
	}

	printStartupMessage(net, ctx.String(dataDirFlag.Name), apiURL, adminURL)
	healthStatus.ServingStatus(true)

	g, gctx := errgroup.WithContext(handleExitSignal())
	g.Go(func() error {
		return relayLoop(gctx, net, relayInterval, &kick, healthStatus)
	})
	if interval := ctx.Duration(epochIntervalFlag.Name); interval > 0 {
		g.Go(func() error {
			return epochLoop(gctx, net, interval)
		})
	}
	return g.Wait()
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

// relayLoop runs a relay round every interval, or as soon as kick is signalled.
func relayLoop(ctx context.Context, net *sim.Network, interval time.Duration, kick *co.Signal, h *health.Health) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	waiter := kick.NewWaiter()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-waiter.C():
		}

		report, err := net.Relay()
		if err != nil {
			// a store failure leaves the network unusable
			return err
		}
		h.RelayRound(report.Delivered, report.Failed, len(net.Failures()) > 0)
		if report.Delivered+report.Failed > 0 {
			logger.Info("relay round",
				"delivered", report.Delivered,
				"failed", report.Failed,
				"duplicates", report.Duplicates,
			)
		}
	}
}

// epochLoop settles an epoch every interval.
func epochLoop(ctx context.Context, net *sim.Network, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			epoch, err := net.Checkpoint()
			if err != nil {
				return err
			}
			logger.Info("epoch settled", "epoch", epoch)
		}
	}
}
