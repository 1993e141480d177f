// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/co"
	"github.com/vechain/dispenser/log"
	"github.com/vechain/dispenser/sim"
)

func initLogger(ctx *cli.Context) (*slog.LevelVar, error) {
	lvl := &slog.LevelVar{}
	lvl.Set(log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)))

	var handler slog.Handler
	switch format := ctx.String(logFormatFlag.Name); format {
	case "json":
		handler = log.JSONHandlerWithLevel(os.Stdout, lvl)
	case "logfmt":
		handler = log.LogfmtHandlerWithLevel(os.Stdout, lvl)
	case "terminal", "":
		useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
		handler = log.NewTerminalHandlerWithLevel(os.Stderr, lvl, useColor)
	default:
		return nil, errors.Errorf("unknown log format %q", format)
	}
	log.SetDefault(log.NewLogger(handler))
	return lvl, nil
}

func loadConfig(ctx *cli.Context) (*sim.Config, error) {
	path := ctx.String(configFlag.Name)
	if path == "" {
		return sim.DefaultConfig(), nil
	}
	return sim.LoadConfig(path)
}

func openNetwork(ctx *cli.Context) (*sim.Network, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return nil, errors.Wrapf(err, "create data dir [%v]", dataDir)
		}
	}
	return sim.Open(cfg, dataDir, bridge.Options{
		DuplicateDeliveries: ctx.Bool(duplicateDeliveriesFlag.Name),
		MessagesFirst:       ctx.Bool(messagesFirstFlag.Name),
	})
}

func startServer(name, addr string, handler http.Handler) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen %v addr [%v]", name, addr)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	var goes co.Goes
	goes.Go(func() {
		srv.Serve(listener)
	})
	return "http://" + listener.Addr().String() + "/", func() {
		srv.Close()
		goes.Wait()
	}, nil
}

func printStartupMessage(net *sim.Network, dataDir, apiURL, adminURL string) {
	if dataDir == "" {
		dataDir = "Memory"
	}
	if adminURL == "" {
		adminURL = "disabled"
	}
	chains := make([]string, 0, len(net.Chains()))
	for _, id := range net.Chains() {
		sat, err := net.Satellite(id)
		if err != nil {
			continue
		}
		chains = append(chains, fmt.Sprintf("%v:%v", sat.Config.Name, sat.Config.Family))
	}

	fmt.Printf(`Starting %v
    Dispenser    [ %v ]
    Chains       [ %v ]
    Data dir     [ %v ]
    API portal   [ %v ]
    Admin        [ %v ]
`,
		fullVersion(),
		net.Dispenser().Address(),
		strings.Join(chains, " "),
		dataDir,
		apiURL,
		adminURL)
}
