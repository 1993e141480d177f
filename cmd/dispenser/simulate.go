// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/dispenser/sim"
	"github.com/vechain/dispenser/xchain"
)

// simulationAccount claims and syncs in the simulation.
var simulationAccount = xchain.BytesToAddress([]byte("dispenser-simulation"))

func simulateAction(ctx *cli.Context) error {
	if _, err := initLogger(ctx); err != nil {
		return err
	}

	net, err := openNetwork(ctx)
	if err != nil {
		return err
	}
	defer net.Close()

	if err := simulate(net, int(ctx.Uint(epochsFlag.Name))); err != nil {
		return err
	}
	return printStatuses(os.Stdout, net)
}

// simulate settles epochs one by one, claiming every staking target of every chain for
// the settled epoch and reporting withheld amounts back once relayed.
func simulate(net *sim.Network, epochs int) error {
	if err := fundSimulationAccount(net); err != nil {
		return err
	}

	for i := 0; i < epochs; i++ {
		epoch, err := net.Checkpoint()
		if err != nil {
			return errors.WithMessage(err, "checkpoint")
		}
		if err := claimAll(net); err != nil {
			return errors.WithMessagef(err, "claim epoch %v", epoch)
		}
		if _, err := net.Relay(); err != nil {
			return err
		}
		if err := syncWithheld(net); err != nil {
			return errors.WithMessagef(err, "sync epoch %v", epoch)
		}
		report, err := net.Relay()
		if err != nil {
			return err
		}
		logger.Info("epoch simulated", "epoch", epoch, "failed", len(net.Failures()), "lastDelivered", report.Delivered)
	}
	return nil
}

func fundSimulationAccount(net *sim.Network) error {
	funds := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	if err := net.Fund(xchain.BaseChainID, simulationAccount, funds); err != nil {
		return err
	}
	for _, id := range net.Chains() {
		if err := net.Fund(id, simulationAccount, funds); err != nil {
			return err
		}
	}
	return nil
}

func claimAll(net *sim.Network) error {
	var (
		chainIDs []xchain.ChainID
		targets  [][]xchain.Bytes32
		payloads [][]byte
	)
	for _, id := range net.Chains() {
		sat, err := net.Satellite(id)
		if err != nil {
			return err
		}
		if len(sat.Config.Targets) == 0 {
			continue
		}
		payload, err := net.Payload(id, simulationAccount)
		if err != nil {
			return err
		}
		ts := make([]xchain.Bytes32, 0, len(sat.Config.Targets))
		for _, t := range sat.Config.Targets {
			ts = append(ts, t.Address.Bytes32())
		}
		chainIDs = append(chainIDs, id)
		targets = append(targets, ts)
		payloads = append(payloads, payload)
	}
	if len(chainIDs) == 0 {
		return nil
	}

	quotes, err := net.QuoteStaking(1, chainIDs, targets, payloads)
	if err != nil {
		return err
	}
	values := make([]*big.Int, len(quotes))
	for i, q := range quotes {
		values[i] = q.Cost
	}
	return net.ClaimStakingBatch(simulationAccount, 1, chainIDs, targets, payloads, values)
}

func syncWithheld(net *sim.Network) error {
	statuses, err := net.Statuses()
	if err != nil {
		return err
	}
	for _, s := range statuses {
		if s.Withheld.Sign() == 0 {
			continue
		}
		payload, err := net.Payload(s.ID, simulationAccount)
		if err != nil {
			return err
		}
		cost, err := net.QuoteSync(s.ID, payload)
		if err != nil {
			return err
		}
		amount, err := net.Sync(s.ID, simulationAccount, cost, payload)
		if err != nil {
			return err
		}
		logger.Debug("withheld synced", "chain", s.Name, "amount", amount)
	}
	return nil
}

func printStatuses(w io.Writer, net *sim.Network) error {
	statuses, err := net.Statuses()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHAIN\tFAMILY\tPHASE\tNONCE\tBALANCE\tWITHHELD\tCREDIT\tTARGET\tDEPOSITED")
	for _, s := range statuses {
		for i, t := range s.Targets {
			if i == 0 {
				fmt.Fprintf(tw, "%v (%v)\t%v\t%v\t%v\t%v\t%v\t%v\t%v\t%v\n",
					s.Name, s.ID, s.Family, s.Phase, s.Nonce, s.Balance, s.Withheld, s.Credit, t.Address, t.Deposited)
			} else {
				fmt.Fprintf(tw, "\t\t\t\t\t\t\t%v\t%v\n", t.Address, t.Deposited)
			}
		}
	}
	return tw.Flush()
}
