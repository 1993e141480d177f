// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"time"

	cli "gopkg.in/urfave/cli.v1"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to the YAML network file, a network with one chain per bridge family if empty",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Usage: "directory for the chain databases, chains are kept in memory if empty",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-9)",
	}
	logFormatFlag = cli.StringFlag{
		Name:  "log-format",
		Value: "terminal",
		Usage: "log output format (terminal|json|logfmt)",
	}
	duplicateDeliveriesFlag = cli.BoolFlag{
		Name:  "duplicate-deliveries",
		Usage: "deliver every message of bridges without exactly-once delivery twice",
	}
	messagesFirstFlag = cli.BoolFlag{
		Name:  "messages-first",
		Usage: "relay instruction messages ahead of the token transfers they belong to",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8680",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiSlowQueriesThresholdFlag = cli.Uint64Flag{
		Name:  "api-slow-queries-threshold",
		Value: 0,
		Usage: "all queries with duration(ms) above threshold will be logged",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "enables API requests logging",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection, served at /metrics",
	}
	enableAdminFlag = cli.BoolFlag{
		Name:  "enable-admin",
		Usage: "enables the admin server: log level, API request logging and relay health",
	}
	adminAddrFlag = cli.StringFlag{
		Name:  "admin-addr",
		Value: "localhost:2113",
		Usage: "admin service listening address",
	}
	pprofFlag = cli.BoolFlag{
		Name:  "pprof",
		Usage: "turn on go-pprof",
	}
	relayIntervalFlag = cli.DurationFlag{
		Name:  "relay-interval",
		Value: 5 * time.Second,
		Usage: "interval between relay rounds, requests that queue envelopes trigger one early",
	}
	epochIntervalFlag = cli.DurationFlag{
		Name:  "epoch-interval",
		Value: 0,
		Usage: "interval between epoch checkpoints, epochs only advance through the API if zero",
	}
	epochsFlag = cli.UintFlag{
		Name:  "epochs",
		Value: 3,
		Usage: "number of epochs to simulate",
	}
)
