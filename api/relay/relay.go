// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package relay

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/dispenser/api/utils"
	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/sim"
	"github.com/vechain/dispenser/xchain"
)

type Envelope struct {
	ID          xchain.Bytes32        `json:"id"`
	Kind        string                `json:"kind"`
	Seq         uint64                `json:"seq"`
	Source      xchain.ChainID        `json:"source"`
	Target      xchain.ChainID        `json:"target"`
	Sender      xchain.Address        `json:"sender"`
	Recipient   xchain.Address        `json:"recipient"`
	Data        hexutil.Bytes         `json:"data"`
	Amount      *math.HexOrDecimal256 `json:"amount"`
	RefundValue *math.HexOrDecimal256 `json:"refundValue"`
}

type Failure struct {
	Envelope *Envelope `json:"envelope"`
	Error    string    `json:"error"`
}

func convertEnvelope(env *bridge.Envelope) *Envelope {
	return &Envelope{
		ID:          env.ID(),
		Kind:        env.Kind.String(),
		Seq:         env.Seq,
		Source:      env.Source,
		Target:      env.Target,
		Sender:      env.Sender,
		Recipient:   env.Recipient,
		Data:        env.Data,
		Amount:      (*math.HexOrDecimal256)(env.Amount),
		RefundValue: (*math.HexOrDecimal256)(env.RefundValue),
	}
}

// Relay drives the relayer of the network.
type Relay struct {
	net *sim.Network
}

func New(net *sim.Network) *Relay {
	return &Relay{net}
}

func (r *Relay) handleRelay(w http.ResponseWriter, _ *http.Request) error {
	report, err := r.net.Relay()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, report)
}

func (r *Relay) handlePending(w http.ResponseWriter, _ *http.Request) error {
	envs, err := r.net.Pending()
	if err != nil {
		return err
	}
	out := make([]*Envelope, 0, len(envs))
	for _, env := range envs {
		out = append(out, convertEnvelope(env))
	}
	return utils.WriteJSON(w, out)
}

func (r *Relay) handleFailures(w http.ResponseWriter, _ *http.Request) error {
	failures := r.net.Failures()
	out := make([]*Failure, 0, len(failures))
	for _, f := range failures {
		out = append(out, &Failure{Envelope: convertEnvelope(f.Envelope), Error: f.Err.Error()})
	}
	return utils.WriteJSON(w, out)
}

func (r *Relay) handleRetry(w http.ResponseWriter, req *http.Request) error {
	id, err := xchain.ParseBytes32(mux.Vars(req)["id"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "id"))
	}
	if err := r.net.Retry(id); err != nil {
		if errors.Is(err, bridge.ErrUnknownDelivery) {
			return utils.NotFound(err)
		}
		return err
	}
	return utils.WriteJSON(w, utils.M{"retried": true})
}

func (r *Relay) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("relay_relay").
		HandlerFunc(utils.WrapHandlerFunc(r.handleRelay))
	sub.Path("/pending").
		Methods(http.MethodGet).
		Name("relay_get_pending").
		HandlerFunc(utils.WrapHandlerFunc(r.handlePending))
	sub.Path("/failures").
		Methods(http.MethodGet).
		Name("relay_get_failures").
		HandlerFunc(utils.WrapHandlerFunc(r.handleFailures))
	sub.Path("/failures/{id}").
		Methods(http.MethodPost).
		Name("relay_retry").
		HandlerFunc(utils.WrapHandlerFunc(r.handleRetry))
}
