// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bridge

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/vechain/dispenser/log"
	"github.com/vechain/dispenser/xchain"
)

var logger = log.WithContext("pkg", "bridge")

var (
	// ErrExactlyOnce is returned when replaying a delivery of a family that never replays.
	ErrExactlyOnce = errors.New("bridge: family delivers exactly once")
	// ErrUnknownDelivery is returned for an id the relayer never handled.
	ErrUnknownDelivery = errors.New("bridge: unknown delivery")
	// ErrNoRoute is returned when no endpoint serves the target side of a link.
	ErrNoRoute = errors.New("bridge: no endpoint for link")
)

// Options tune how adversarial the relayer is.
type Options struct {
	// DuplicateDeliveries executes every message of a family without exactly-once
	// delivery a second time right after the first.
	DuplicateDeliveries bool
	// MessagesFirst delivers all pending messages before any token transfer.
	MessagesFirst bool
}

// Failure is an envelope whose execution on the target chain reverted.
type Failure struct {
	Envelope *Envelope
	Err      error
}

// Report summarizes one relay round.
type Report struct {
	Delivered  int `json:"delivered"`
	Failed     int `json:"failed"`
	Duplicates int `json:"duplicates"`
}

type link struct {
	chain, peer xchain.ChainID
}

type pending struct {
	env *Envelope
	src *Endpoint
}

// Relayer moves envelopes between the endpoints of each link. Delivery is at least once
// and unordered across the token and message legs. The relayer is not safe for
// concurrent use; callers serialize it with the chains it touches.
type Relayer struct {
	opts      Options
	endpoints map[link]*Endpoint
	history   map[xchain.Bytes32]pending
	failures  map[xchain.Bytes32]Failure
}

func NewRelayer(opts Options, endpoints ...*Endpoint) *Relayer {
	r := &Relayer{
		opts:      opts,
		endpoints: make(map[link]*Endpoint),
		history:   make(map[xchain.Bytes32]pending),
		failures:  make(map[xchain.Bytes32]Failure),
	}
	for _, ep := range endpoints {
		r.Add(ep)
	}
	return r
}

// Add registers an endpoint.
func (r *Relayer) Add(ep *Endpoint) {
	r.endpoints[link{ep.Chain(), ep.Peer()}] = ep
}

// Options returns the relayer options.
func (r *Relayer) Options() Options {
	return r.opts
}

// Pending returns every envelope waiting in any outbox.
func (r *Relayer) Pending() ([]*Envelope, error) {
	items, err := r.collect()
	if err != nil {
		return nil, err
	}
	envs := make([]*Envelope, 0, len(items))
	for _, it := range items {
		envs = append(envs, it.env)
	}
	return envs, nil
}

func (r *Relayer) collect() ([]pending, error) {
	links := make([]link, 0, len(r.endpoints))
	for l := range r.endpoints {
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].chain != links[j].chain {
			return links[i].chain < links[j].chain
		}
		return links[i].peer < links[j].peer
	})

	var items []pending
	for _, l := range links {
		src := r.endpoints[l]
		envs, err := src.Pending()
		if err != nil {
			return nil, errors.Wrapf(err, "outbox of chain %v", l.chain)
		}
		metricPending().SetWithLabel(int64(len(envs)), map[string]string{"chain": l.chain.String()})
		for _, env := range envs {
			items = append(items, pending{env, src})
		}
	}
	if r.opts.MessagesFirst {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].env.Kind == KindMessage && items[j].env.Kind != KindMessage
		})
	}
	return items, nil
}

// Relay delivers every pending envelope once. A reverted delivery is recorded as a failure
// and can be retried with Retry; it does not stop the round.
func (r *Relayer) Relay() (*Report, error) {
	items, err := r.collect()
	if err != nil {
		return nil, err
	}
	report := &Report{}
	for _, it := range items {
		if err := r.execute(it); err != nil {
			report.Failed++
		} else {
			report.Delivered++
		}
		if err := it.src.markRelayed(it.env.Seq); err != nil {
			return report, errors.Wrap(err, "mark relayed")
		}
		r.history[it.env.ID()] = it

		if r.opts.DuplicateDeliveries && it.env.Kind == KindMessage && !it.src.Family().ExactlyOnce() {
			report.Duplicates++
			// the duplicate is expected to be rejected by the receiver
			_ = r.execute(it)
		}
	}
	if len(items) > 0 {
		logger.Debug("relayed", "delivered", report.Delivered, "failed", report.Failed, "duplicates", report.Duplicates)
	}
	return report, nil
}

// Replay executes an already relayed message again, as families without exactly-once
// delivery may do.
func (r *Relayer) Replay(id xchain.Bytes32) error {
	it, ok := r.history[id]
	if !ok {
		return errors.WithMessagef(ErrUnknownDelivery, "%v", id)
	}
	if it.src.Family().ExactlyOnce() {
		return errors.WithMessagef(ErrExactlyOnce, "%v", it.src.Family())
	}
	return r.execute(it)
}

// Retry executes a failed envelope again. On success it is no longer reported as failed.
func (r *Relayer) Retry(id xchain.Bytes32) error {
	f, ok := r.failures[id]
	if !ok {
		return errors.WithMessagef(ErrUnknownDelivery, "%v", id)
	}
	it := r.history[id]
	if err := r.execute(it); err != nil {
		return err
	}
	delete(r.failures, id)
	logger.Info("retried delivery", "id", id, "kind", f.Envelope.Kind)
	return nil
}

// Failures returns the deliveries that reverted and were not retried successfully.
func (r *Relayer) Failures() []Failure {
	out := make([]Failure, 0, len(r.failures))
	for _, f := range r.failures {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Envelope.Source != out[j].Envelope.Source {
			return out[i].Envelope.Source < out[j].Envelope.Source
		}
		return out[i].Envelope.Seq < out[j].Envelope.Seq
	})
	return out
}

func (r *Relayer) execute(it pending) error {
	env := it.env
	labels := map[string]string{"family": it.src.Family().String(), "kind": env.Kind.String()}

	dst, ok := r.endpoints[link{env.Target, env.Source}]
	if !ok {
		err := errors.WithMessagef(ErrNoRoute, "%v -> %v", env.Source, env.Target)
		r.fail(env, err, labels)
		return err
	}
	if err := dst.state.Atomic(func() error { return dst.deliver(env, it.src) }); err != nil {
		r.fail(env, err, labels)
		return err
	}
	labels["status"] = "ok"
	metricDeliveries().AddWithLabel(1, labels)
	logger.Trace("delivered", "id", env.ID(), "kind", env.Kind, "from", env.Source, "to", env.Target)
	return nil
}

func (r *Relayer) fail(env *Envelope, err error, labels map[string]string) {
	labels["status"] = "failed"
	metricDeliveries().AddWithLabel(1, labels)
	if _, replayed := r.history[env.ID()]; !replayed {
		r.failures[env.ID()] = Failure{Envelope: env, Err: err}
	}
	logger.Info("delivery reverted", "id", env.ID(), "kind", env.Kind, "from", env.Source, "to", env.Target, "error", err)
}
