// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chains

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/dispenser/api/utils"
	"github.com/vechain/dispenser/sim"
)

// Chains serves the satellite chains and their ledgers.
type Chains struct {
	net    *sim.Network
	notify func()
}

// New creates the handlers. notify is called after every operation that may have queued
// envelopes for the relayer.
func New(net *sim.Network, notify func()) *Chains {
	if notify == nil {
		notify = func() {}
	}
	return &Chains{net, notify}
}

func (c *Chains) handleGetChains(w http.ResponseWriter, _ *http.Request) error {
	statuses, err := c.net.Statuses()
	if err != nil {
		return err
	}
	chains := make([]Chain, 0, len(statuses))
	for _, s := range statuses {
		chains = append(chains, convertChain(s))
	}
	return utils.WriteJSON(w, chains)
}

func (c *Chains) handleGetLedger(w http.ResponseWriter, req *http.Request) error {
	id, err := utils.ParseChainID(mux.Vars(req)["chain"])
	if err != nil {
		return err
	}
	s, err := c.net.Status(id)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, convertLedger(s))
}

func (c *Chains) handleRedeem(w http.ResponseWriter, req *http.Request) error {
	id, err := utils.ParseChainID(mux.Vars(req)["chain"])
	if err != nil {
		return err
	}
	var body RedeemRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.Amount == nil || body.Nonce == nil {
		return utils.BadRequest(errors.New("body: amount and nonce are required"))
	}
	if err := c.net.Redeem(id, body.Caller, body.Target, toBig(body.Amount), toBig(body.Nonce)); err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"redeemed": true})
}

func (c *Chains) handleSync(w http.ResponseWriter, req *http.Request) error {
	id, err := utils.ParseChainID(mux.Vars(req)["chain"])
	if err != nil {
		return err
	}
	var body SyncRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	var payload []byte
	if body.Payload != nil {
		payload = *body.Payload
	} else if payload, err = c.net.Payload(id, body.Caller); err != nil {
		return err
	}
	cost, err := c.net.QuoteSync(id, payload)
	if err != nil {
		return err
	}
	value := cost
	if body.Value != nil {
		value = toBig(body.Value)
	}
	amount, err := c.net.Sync(id, body.Caller, value, payload)
	if err != nil {
		return err
	}
	c.notify()
	return utils.WriteJSON(w, &SyncResult{Amount: hex(amount), Cost: hex(cost)})
}

func (c *Chains) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("chains_get_chains").
		HandlerFunc(utils.WrapHandlerFunc(c.handleGetChains))
	sub.Path("/{chain}/ledger").
		Methods(http.MethodGet).
		Name("chains_get_ledger").
		HandlerFunc(utils.WrapHandlerFunc(c.handleGetLedger))
	sub.Path("/{chain}/redeem").
		Methods(http.MethodPost).
		Name("chains_redeem").
		HandlerFunc(utils.WrapHandlerFunc(c.handleRedeem))
	sub.Path("/{chain}/sync").
		Methods(http.MethodPost).
		Name("chains_sync").
		HandlerFunc(utils.WrapHandlerFunc(c.handleSync))
}
