// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sim

import (
	"math/big"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"

	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/builtin/depositprocessor"
	"github.com/vechain/dispenser/builtin/dispenser"
	"github.com/vechain/dispenser/builtin/targetdispenser"
	"github.com/vechain/dispenser/builtin/token"
	"github.com/vechain/dispenser/co"
	"github.com/vechain/dispenser/log"
	"github.com/vechain/dispenser/lvldb"
	"github.com/vechain/dispenser/state"
	"github.com/vechain/dispenser/xchain"
)

var logger = log.WithContext("pkg", "sim")

// ErrUnknownChain is returned for a chain the network does not serve.
var ErrUnknownChain = errors.New("sim: unknown chain")

// ContractAddress derives the address of a named contract on chain.
func ContractAddress(chain xchain.ChainID, name string) xchain.Address {
	return xchain.BytesToAddress(xchain.Blake2b(chain.Bytes(), []byte(name)).Bytes())
}

// Satellite is a destination chain with its half of the bridge link. Home is the base
// chain side of the link.
type Satellite struct {
	Config    ChainConfig
	State     *state.State
	Token     *token.Token
	Home      *bridge.Endpoint
	Remote    *bridge.Endpoint
	Processor *depositprocessor.Processor
	Ledger    *targetdispenser.Ledger
	Factory   *StakingFactory

	db *lvldb.LevelDB
}

// Network is the base chain and its satellites, linked by a relayer. Every operation runs
// under one lock and commits all chains when done, so a chain never sees half an operation.
type Network struct {
	mu    sync.Mutex
	cfg   Config
	owner xchain.Address

	db         *lvldb.LevelDB
	base       *state.State
	token      *token.Token
	weighting  *VoteWeighting
	tokenomics *Tokenomics
	treasury   *Treasury
	dispenser  *dispenser.Dispenser
	relayer    *bridge.Relayer

	relayFeed event.Feed
	scope     event.SubscriptionScope
	goes      co.Goes

	chains map[xchain.ChainID]*Satellite
	ids    []xchain.ChainID
}

func openStore(dataDir string, chain xchain.ChainID) (*lvldb.LevelDB, error) {
	if dataDir == "" {
		return lvldb.NewMem()
	}
	return lvldb.New(filepath.Join(dataDir, chain.String()), lvldb.Options{
		CacheSize:              16,
		OpenFilesCacheCapacity: 64,
	})
}

// Open loads the network stored under dataDir, deploying it on first use. An empty dataDir
// keeps every chain in memory.
func Open(cfg *Config, dataDir string, opts bridge.Options) (*Network, error) {
	c := *cfg
	c.fillDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	db, err := openStore(dataDir, xchain.BaseChainID)
	if err != nil {
		return nil, errors.Wrap(err, "open base chain")
	}
	base := xchain.BaseChainID
	n := &Network{
		cfg:     c,
		owner:   ContractAddress(base, "owner"),
		db:      db,
		base:    state.New(db),
		relayer: bridge.NewRelayer(opts),
		chains:  make(map[xchain.ChainID]*Satellite),
	}
	n.token = token.New(ContractAddress(base, "token"), n.base)
	n.weighting = NewVoteWeighting(ContractAddress(base, "vote-weighting"), n.base)
	n.tokenomics = NewTokenomics(ContractAddress(base, "tokenomics"), n.base, n.weighting)
	n.treasury = NewTreasury(ContractAddress(base, "treasury"), n.base, n.token)
	n.dispenser = dispenser.New(ContractAddress(base, "dispenser"), n.base, n.tokenomics, n.treasury)
	n.weighting.Bind(n.dispenser)

	for _, ch := range c.Chains {
		if err := n.attach(ch, dataDir); err != nil {
			n.Close()
			return nil, err
		}
	}
	if err := n.deploy(); err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

func (n *Network) attach(ch ChainConfig, dataDir string) error {
	db, err := openStore(dataDir, ch.ID)
	if err != nil {
		return errors.Wrapf(err, "open chain %v", ch.ID)
	}
	st := state.New(db)
	gasPrice := new(big.Int).SetUint64(ch.GasPrice)
	sat := &Satellite{
		Config: ch,
		State:  st,
		Token:  token.New(ContractAddress(ch.ID, "token"), st),
		db:     db,
	}
	sat.Home = bridge.NewEndpoint(bridge.Config{
		Family:       ch.Family,
		Address:      ContractAddress(xchain.BaseChainID, ch.Name+"-bridge"),
		Chain:        xchain.BaseChainID,
		Peer:         ch.ID,
		NativeID:     ch.BaseNativeID,
		PeerNativeID: ch.NativeID,
		Home:         true,
		GasPrice:     gasPrice,
	}, n.base, n.token)
	sat.Remote = bridge.NewEndpoint(bridge.Config{
		Family:       ch.Family,
		Address:      ContractAddress(ch.ID, "bridge"),
		Chain:        ch.ID,
		Peer:         xchain.BaseChainID,
		NativeID:     ch.NativeID,
		PeerNativeID: ch.BaseNativeID,
		GasPrice:     gasPrice,
	}, st, sat.Token)
	sat.Processor = depositprocessor.New(ContractAddress(xchain.BaseChainID, ch.Name+"-processor"),
		ch.ID, n.base, n.token, sat.Home, n.dispenser)
	sat.Factory = NewStakingFactory(ContractAddress(ch.ID, "staking-factory"), st)
	sat.Ledger = targetdispenser.New(targetdispenser.Config{
		Address:   ContractAddress(ch.ID, "target-dispenser"),
		Chain:     ch.ID,
		Processor: sat.Processor.Address(),
	}, st, sat.Token, sat.Remote, sat.Factory)

	n.dispenser.RegisterProcessor(sat.Processor)
	n.relayer.Add(sat.Home)
	n.relayer.Add(sat.Remote)
	n.chains[ch.ID] = sat
	n.ids = append(n.ids, ch.ID)
	return nil
}

func (n *Network) deploy() error {
	deployed, err := n.base.IsContract(n.dispenser.Address())
	if err != nil {
		return err
	}
	if deployed {
		logger.Info("opened deployed network", "chains", len(n.ids))
		return nil
	}

	cfg := n.cfg.Dispenser
	err = n.base.Atomic(func() error {
		if err := n.tokenomics.Setup(new(big.Int).SetUint64(cfg.StakingIncentive), new(big.Int).SetUint64(cfg.MaxTargetIncentive)); err != nil {
			return err
		}
		if err := n.base.SetBalance(n.treasury.Address(), new(big.Int).SetUint64(cfg.TreasuryBalance)); err != nil {
			return err
		}
		if err := n.dispenser.Initialize(n.owner, n.weighting.Address()); err != nil {
			return err
		}
		if err := n.dispenser.ChangeStakingParams(n.owner, cfg.MaxNumClaimingEpochs, cfg.MaxNumStakingTargets); err != nil {
			return err
		}
		processors := make([]xchain.Address, 0, len(n.ids))
		for _, id := range n.ids {
			sat := n.chains[id]
			if err := sat.Processor.Initialize(n.owner); err != nil {
				return err
			}
			if err := sat.Processor.SetL2TargetDispenser(n.owner, sat.Ledger.Address()); err != nil {
				return err
			}
			processors = append(processors, sat.Processor.Address())
		}
		if err := n.dispenser.SetDepositProcessorChainIDs(n.owner, processors, n.ids); err != nil {
			return err
		}
		for _, nm := range n.cfg.Nominees {
			if err := n.weighting.AddNominee(xchain.NewNominee(nm.Chain, nm.Target), nm.Weight); err != nil {
				return err
			}
		}
		if !cfg.Retainer.IsZero() {
			retainer := xchain.NewNominee(xchain.BaseChainID, cfg.Retainer)
			if err := n.weighting.AddNominee(retainer, cfg.RetainerWeight); err != nil {
				return err
			}
			return n.dispenser.ChangeRetainer(n.owner, retainer.Account)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "deploy base chain")
	}

	for _, id := range n.ids {
		sat := n.chains[id]
		err := sat.State.Atomic(func() error {
			if err := sat.Ledger.Initialize(n.owner); err != nil {
				return err
			}
			for _, t := range sat.Config.Targets {
				if err := sat.Factory.AddInstance(t.Address, new(big.Int).SetUint64(t.Limit)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "deploy chain %v", id)
		}
	}
	if err := n.commit(); err != nil {
		return err
	}
	logger.Info("deployed network", "chains", len(n.ids), "nominees", len(n.cfg.Nominees))
	return nil
}

func (n *Network) commit() error {
	if err := n.base.Commit(n.db.Bulk()); err != nil {
		return errors.Wrap(err, "commit base chain")
	}
	for _, id := range n.ids {
		sat := n.chains[id]
		if err := sat.State.Commit(sat.db.Bulk()); err != nil {
			return errors.Wrapf(err, "commit chain %v", id)
		}
	}
	return nil
}

// exec runs fn under the network lock and commits whatever it left in the chains.
func (n *Network) exec(fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	err := fn()
	if cerr := n.commit(); cerr != nil {
		logger.Error("commit failed", "error", cerr)
		return cerr
	}
	return err
}

// Close releases the chain stores.
func (n *Network) Close() error {
	n.scope.Close()
	n.goes.Wait()

	n.mu.Lock()
	defer n.mu.Unlock()

	err := n.db.Close()
	for _, id := range n.ids {
		if cerr := n.chains[id].db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Owner returns the account owning every deployed contract.
func (n *Network) Owner() xchain.Address { return n.owner }

// Chains returns the satellite chain ids in configuration order.
func (n *Network) Chains() []xchain.ChainID {
	return append([]xchain.ChainID(nil), n.ids...)
}

func (n *Network) Dispenser() *dispenser.Dispenser { return n.dispenser }
func (n *Network) Tokenomics() *Tokenomics          { return n.tokenomics }
func (n *Network) VoteWeighting() *VoteWeighting    { return n.weighting }
func (n *Network) Relayer() *bridge.Relayer         { return n.relayer }
func (n *Network) BaseState() *state.State          { return n.base }

// Satellite returns the chain with id.
func (n *Network) Satellite(id xchain.ChainID) (*Satellite, error) {
	sat, ok := n.chains[id]
	if !ok {
		return nil, errors.WithMessagef(ErrUnknownChain, "%v", id)
	}
	return sat, nil
}

func (n *Network) stateOf(chain xchain.ChainID) (*state.State, error) {
	if chain == xchain.BaseChainID {
		return n.base, nil
	}
	sat, err := n.Satellite(chain)
	if err != nil {
		return nil, err
	}
	return sat.State, nil
}

// Fund adds native balance to account on chain.
func (n *Network) Fund(chain xchain.ChainID, account xchain.Address, amount *big.Int) error {
	return n.exec(func() error {
		st, err := n.stateOf(chain)
		if err != nil {
			return err
		}
		return st.AddBalance(account, amount)
	})
}

// Balance returns the native balance of account on chain.
func (n *Network) Balance(chain xchain.ChainID, account xchain.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	st, err := n.stateOf(chain)
	if err != nil {
		return nil, err
	}
	return st.GetBalance(account)
}

// Payload returns a bridging payload suitable for chain.
func (n *Network) Payload(chain xchain.ChainID, refund xchain.Address) ([]byte, error) {
	sat, err := n.Satellite(chain)
	if err != nil {
		return nil, err
	}
	return DefaultPayload(sat.Config.Family, refund)
}

// Checkpoint settles the current epoch.
func (n *Network) Checkpoint() (epoch uint32, err error) {
	err = n.exec(func() error {
		epoch, err = n.tokenomics.Checkpoint()
		return err
	})
	if err == nil {
		logger.Info("epoch settled", "epoch", epoch)
	}
	return epoch, err
}

// Accrue credits owner incentives to a unit.
func (n *Network) Accrue(account xchain.Address, kind dispenser.UnitKind, id, reward, topUp *big.Int) error {
	return n.exec(func() error {
		return n.tokenomics.Accrue(account, kind, id, reward, topUp)
	})
}

func (n *Network) ClaimOwnerIncentives(caller xchain.Address, kinds []dispenser.UnitKind, ids []*big.Int) (reward, topUp *big.Int, err error) {
	err = n.exec(func() error {
		reward, topUp, err = n.dispenser.ClaimOwnerIncentives(caller, kinds, ids)
		return err
	})
	return reward, topUp, err
}

func (n *Network) QuoteStaking(numEpochs uint32, chainIDs []xchain.ChainID, targets [][]xchain.Bytes32, payloads [][]byte) ([]*dispenser.StakingQuote, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.dispenser.QuoteStakingClaim(numEpochs, chainIDs, targets, payloads)
}

func (n *Network) ClaimStaking(caller xchain.Address, value *big.Int, numEpochs uint32, chainID xchain.ChainID, target xchain.Bytes32, payload []byte) error {
	return n.exec(func() error {
		return n.dispenser.ClaimStakingIncentives(caller, value, numEpochs, chainID, target, payload)
	})
}

// ClaimStakingBatch claims for several chains, paying values[i] for chain i.
func (n *Network) ClaimStakingBatch(caller xchain.Address, numEpochs uint32, chainIDs []xchain.ChainID,
	targets [][]xchain.Bytes32, payloads [][]byte, values []*big.Int,
) error {
	total := new(big.Int)
	for _, v := range values {
		total.Add(total, v)
	}
	return n.exec(func() error {
		return n.dispenser.ClaimStakingIncentivesBatch(caller, total, numEpochs, chainIDs, targets, payloads, values)
	})
}

// ClaimStakingAtQuote prices a claim and submits it under one lock, so no relay round can
// change the cost in between. values[i], when set, replaces the quoted cost of chain i.
func (n *Network) ClaimStakingAtQuote(caller xchain.Address, numEpochs uint32, chainIDs []xchain.ChainID,
	targets [][]xchain.Bytes32, payloads [][]byte, values []*big.Int,
) (quotes []*dispenser.StakingQuote, err error) {
	err = n.exec(func() error {
		quotes, err = n.dispenser.QuoteStakingClaim(numEpochs, chainIDs, targets, payloads)
		if err != nil {
			return err
		}
		paid := make([]*big.Int, len(quotes))
		total := new(big.Int)
		for i, q := range quotes {
			paid[i] = q.Cost
			if i < len(values) && values[i] != nil {
				paid[i] = values[i]
			}
			total.Add(total, paid[i])
		}
		if len(chainIDs) == 1 && len(targets) == 1 && len(targets[0]) == 1 {
			return n.dispenser.ClaimStakingIncentives(caller, paid[0], numEpochs, chainIDs[0], targets[0][0], payloads[0])
		}
		return n.dispenser.ClaimStakingIncentivesBatch(caller, total, numEpochs, chainIDs, targets, payloads, paid)
	})
	if err != nil {
		return nil, err
	}
	return quotes, nil
}

func (n *Network) Retain(caller xchain.Address) (amount *big.Int, err error) {
	err = n.exec(func() error {
		amount, err = n.dispenser.Retain(caller)
		return err
	})
	return amount, err
}

// Relay delivers every pending envelope of every link. The report of a round that
// delivered or failed anything is sent to the relay subscribers.
func (n *Network) Relay() (report *bridge.Report, err error) {
	err = n.exec(func() error {
		report, err = n.relayer.Relay()
		return err
	})
	if err == nil && report.Delivered+report.Failed > 0 {
		n.goes.Go(func() { n.relayFeed.Send(report) })
	}
	return report, err
}

// SubscribeRelays subscribes ch to the reports of relay rounds.
func (n *Network) SubscribeRelays(ch chan *bridge.Report) event.Subscription {
	return n.scope.Track(n.relayFeed.Subscribe(ch))
}

// Retry re-executes a failed delivery.
func (n *Network) Retry(id xchain.Bytes32) error {
	return n.exec(func() error {
		return n.relayer.Retry(id)
	})
}

// Replay re-executes a delivered message.
func (n *Network) Replay(id xchain.Bytes32) error {
	return n.exec(func() error {
		return n.relayer.Replay(id)
	})
}

func (n *Network) Failures() []bridge.Failure {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.relayer.Failures()
}

// Pending returns the envelopes waiting to be relayed.
func (n *Network) Pending() ([]*bridge.Envelope, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.relayer.Pending()
}

func (n *Network) Redeem(chain xchain.ChainID, caller, target xchain.Address, amount, nonce *big.Int) error {
	return n.exec(func() error {
		sat, err := n.Satellite(chain)
		if err != nil {
			return err
		}
		return sat.Ledger.Redeem(caller, target, amount, nonce)
	})
}

func (n *Network) QuoteSync(chain xchain.ChainID, payload []byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	sat, err := n.Satellite(chain)
	if err != nil {
		return nil, err
	}
	return sat.Ledger.QuoteSync(payload)
}

// Sync reports the withheld amount of chain back to the dispenser.
func (n *Network) Sync(chain xchain.ChainID, caller xchain.Address, value *big.Int, payload []byte) (amount *big.Int, err error) {
	err = n.exec(func() error {
		sat, err := n.Satellite(chain)
		if err != nil {
			return err
		}
		amount, err = sat.Ledger.SyncWithheldTokens(caller, value, payload)
		return err
	})
	return amount, err
}
