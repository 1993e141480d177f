// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sim

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/builtin/dispenser"
	"github.com/vechain/dispenser/xchain"
)

// Config describes a simulated network: the base chain with its dispenser, the
// satellite chains it serves and the nominees voted in.
type Config struct {
	Dispenser DispenserConfig `yaml:"dispenser"`
	Chains    []ChainConfig   `yaml:"chains"`
	Nominees  []NomineeConfig `yaml:"nominees"`
}

type DispenserConfig struct {
	MaxNumClaimingEpochs uint32 `yaml:"max_num_claiming_epochs"`
	MaxNumStakingTargets uint32 `yaml:"max_num_staking_targets"`
	// StakingIncentive is the staking inflation of one epoch, shared by weight.
	StakingIncentive uint64 `yaml:"staking_incentive"`
	// MaxTargetIncentive caps what one nominee gets per epoch; the rest returns to the pool.
	MaxTargetIncentive uint64 `yaml:"max_target_incentive"`
	TreasuryBalance    uint64 `yaml:"treasury_balance"`
	// Retainer is a base chain account registered as nominee and made retainer.
	Retainer       xchain.Address `yaml:"retainer"`
	RetainerWeight uint64         `yaml:"retainer_weight"`
}

type ChainConfig struct {
	ID     xchain.ChainID `yaml:"id"`
	Name   string         `yaml:"name"`
	Family bridge.Family  `yaml:"family"`
	// NativeID and BaseNativeID number the chain and the base chain the way the bridge does.
	NativeID     uint64         `yaml:"native_id"`
	BaseNativeID uint64         `yaml:"base_native_id"`
	GasPrice     uint64         `yaml:"gas_price"`
	Targets      []TargetConfig `yaml:"staking_targets"`
}

// TargetConfig is a staking proxy deployed on a satellite chain.
type TargetConfig struct {
	Address xchain.Address `yaml:"address"`
	Limit   uint64         `yaml:"limit"`
}

type NomineeConfig struct {
	Chain  xchain.ChainID `yaml:"chain"`
	Target xchain.Address `yaml:"target"`
	Weight uint64         `yaml:"weight"`
}

// DefaultConfig is a network with one satellite chain per bridge family.
func DefaultConfig() *Config {
	target := func(b byte) xchain.Address { return xchain.Address{19: b} }
	targets := []TargetConfig{{Address: target(1), Limit: 1e6}, {Address: target(2), Limit: 1e6}}
	cfg := &Config{
		Dispenser: DispenserConfig{
			MaxNumClaimingEpochs: dispenser.DefaultMaxNumClaimingEpochs,
			MaxNumStakingTargets: dispenser.DefaultMaxNumStakingTargets,
			StakingIncentive:     1e6,
			MaxTargetIncentive:   2e5,
			TreasuryBalance:      1e12,
			Retainer:             target(0xee),
			RetainerWeight:       1,
		},
		Chains: []ChainConfig{
			{ID: 10, Name: "optimism", Family: bridge.Optimism, NativeID: 10, BaseNativeID: 1, Targets: targets},
			{ID: 100, Name: "gnosis", Family: bridge.Gnosis, NativeID: 100, BaseNativeID: 1, Targets: targets},
			{ID: 137, Name: "polygon", Family: bridge.Polygon, NativeID: 137, BaseNativeID: 1, Targets: targets},
			{ID: 42161, Name: "arbitrum", Family: bridge.Arbitrum, NativeID: 42161, BaseNativeID: 1, Targets: targets},
			{ID: 42220, Name: "celo", Family: bridge.Wormhole, NativeID: 14, BaseNativeID: 2, GasPrice: 1, Targets: targets},
		},
	}
	for _, c := range cfg.Chains {
		cfg.Nominees = append(cfg.Nominees,
			NomineeConfig{Chain: c.ID, Target: target(1), Weight: 2},
			NomineeConfig{Chain: c.ID, Target: target(2), Weight: 1},
		)
	}
	return cfg
}

// LoadConfig reads a YAML network file. Omitted dispenser limits take their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read network config")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse network config %s", path)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) fillDefaults() {
	if c.Dispenser.MaxNumClaimingEpochs == 0 {
		c.Dispenser.MaxNumClaimingEpochs = dispenser.DefaultMaxNumClaimingEpochs
	}
	if c.Dispenser.MaxNumStakingTargets == 0 {
		c.Dispenser.MaxNumStakingTargets = dispenser.DefaultMaxNumStakingTargets
	}
}

// Validate checks the network is consistent.
func (c *Config) Validate() error {
	if len(c.Chains) == 0 {
		return errors.New("no satellite chains")
	}
	chains := make(map[xchain.ChainID]bool)
	for _, ch := range c.Chains {
		if ch.ID == 0 || ch.ID == xchain.BaseChainID {
			return errors.Errorf("chain %s: invalid id %d", ch.Name, ch.ID)
		}
		if chains[ch.ID] {
			return errors.Errorf("chain %d: duplicated", ch.ID)
		}
		if ch.Family == 0 {
			return errors.Errorf("chain %d: missing bridge family", ch.ID)
		}
		chains[ch.ID] = true
	}
	for _, n := range c.Nominees {
		if !chains[n.Chain] {
			return errors.Errorf("nominee %v: unknown chain %d", n.Target, n.Chain)
		}
		if n.Target.IsZero() {
			return errors.Errorf("nominee on chain %d: zero target", n.Chain)
		}
	}
	return nil
}
