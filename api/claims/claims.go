// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package claims

import (
	"math/big"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/dispenser/api/utils"
	"github.com/vechain/dispenser/builtin/dispenser"
	"github.com/vechain/dispenser/sim"
	"github.com/vechain/dispenser/xchain"
)

// Claims serves incentive claims and epoch settlement.
type Claims struct {
	net    *sim.Network
	notify func()
}

// New creates the handlers. notify is called after every claim that queued envelopes.
func New(net *sim.Network, notify func()) *Claims {
	if notify == nil {
		notify = func() {}
	}
	return &Claims{net, notify}
}

type batch struct {
	chainIDs []xchain.ChainID
	targets  [][]xchain.Bytes32
	payloads [][]byte
}

func (c *Claims) parseStaking(req *http.Request) (*StakingRequest, *batch, error) {
	var body StakingRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return nil, nil, utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if len(body.Claims) == 0 {
		return nil, nil, utils.BadRequest(errors.New("body: no claims"))
	}
	b := &batch{}
	for _, cl := range body.Claims {
		var payload []byte
		if cl.Payload != nil {
			payload = *cl.Payload
		} else {
			var err error
			if payload, err = c.net.Payload(cl.ChainID, body.Caller); err != nil {
				return nil, nil, err
			}
		}
		b.chainIDs = append(b.chainIDs, cl.ChainID)
		b.targets = append(b.targets, cl.Targets)
		b.payloads = append(b.payloads, payload)
	}
	return &body, b, nil
}

func (c *Claims) handleQuote(w http.ResponseWriter, req *http.Request) error {
	body, b, err := c.parseStaking(req)
	if err != nil {
		return err
	}
	quotes, err := c.net.QuoteStaking(body.NumEpochs, b.chainIDs, b.targets, b.payloads)
	if err != nil {
		return err
	}
	out := make([]*Quote, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, convertQuote(q))
	}
	return utils.WriteJSON(w, out)
}

// handleStaking prices and submits the claim under one network lock. One target goes through
// ClaimStakingIncentives, anything larger through the batch entry point.
func (c *Claims) handleStaking(w http.ResponseWriter, req *http.Request) error {
	body, b, err := c.parseStaking(req)
	if err != nil {
		return err
	}
	values := make([]*big.Int, len(body.Claims))
	for i, cl := range body.Claims {
		values[i] = (*big.Int)(cl.Value)
	}
	quotes, err := c.net.ClaimStakingAtQuote(body.Caller, body.NumEpochs, b.chainIDs, b.targets, b.payloads, values)
	if err != nil {
		return err
	}
	c.notify()

	out := make([]*Quote, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, convertQuote(q))
	}
	return utils.WriteJSON(w, out)
}

func (c *Claims) handleOwner(w http.ResponseWriter, req *http.Request) error {
	var body OwnerRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	kinds := make([]dispenser.UnitKind, 0, len(body.Units))
	ids := make([]*big.Int, 0, len(body.Units))
	for _, u := range body.Units {
		if u.ID == nil {
			return utils.BadRequest(errors.New("body: unit id is required"))
		}
		kinds = append(kinds, u.Kind)
		ids = append(ids, (*big.Int)(u.ID))
	}
	reward, topUp, err := c.net.ClaimOwnerIncentives(body.Caller, kinds, ids)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &OwnerResult{Reward: hex(reward), TopUp: hex(topUp)})
}

func (c *Claims) handleRetain(w http.ResponseWriter, req *http.Request) error {
	var body RetainRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	amount, err := c.net.Retain(body.Caller)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"amount": hex(amount)})
}

func (c *Claims) handleCheckpoint(w http.ResponseWriter, _ *http.Request) error {
	epoch, err := c.net.Checkpoint()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"settledEpoch": epoch})
}

func (c *Claims) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/staking").
		Methods(http.MethodPost).
		Name("claims_staking").
		HandlerFunc(utils.WrapHandlerFunc(c.handleStaking))
	sub.Path("/staking/quote").
		Methods(http.MethodPost).
		Name("claims_staking_quote").
		HandlerFunc(utils.WrapHandlerFunc(c.handleQuote))
	sub.Path("/owner").
		Methods(http.MethodPost).
		Name("claims_owner").
		HandlerFunc(utils.WrapHandlerFunc(c.handleOwner))
	sub.Path("/retain").
		Methods(http.MethodPost).
		Name("claims_retain").
		HandlerFunc(utils.WrapHandlerFunc(c.handleRetain))
	sub.Path("/checkpoint").
		Methods(http.MethodPost).
		Name("claims_checkpoint").
		HandlerFunc(utils.WrapHandlerFunc(c.handleCheckpoint))
}
