// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/builtin/dispenser"
	"github.com/vechain/dispenser/xchain"
)

const networkYAML = `
dispenser:
  staking_incentive: 1000
  max_target_incentive: 300
  treasury_balance: 100000
  retainer: "0x00000000000000000000000000000000000000ee"
  retainer_weight: 1
chains:
  - id: 8453
    name: base
    family: optimism
    native_id: 8453
    base_native_id: 1
    staking_targets:
      - address: "0x0000000000000000000000000000000000000001"
        limit: 500
  - id: 42220
    name: celo
    family: Wormhole
    native_id: 14
    base_native_id: 2
    gas_price: 3
nominees:
  - chain: 8453
    target: "0x0000000000000000000000000000000000000001"
    weight: 2
`

func writeConfig(t *testing.T, data string) string {
	path := filepath.Join(t.TempDir(), "network.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, networkYAML))
	require.NoError(t, err)

	assert.Equal(t, uint32(dispenser.DefaultMaxNumClaimingEpochs), cfg.Dispenser.MaxNumClaimingEpochs)
	assert.Equal(t, uint32(dispenser.DefaultMaxNumStakingTargets), cfg.Dispenser.MaxNumStakingTargets)
	assert.Equal(t, xchain.Address{19: 0xee}, cfg.Dispenser.Retainer)
	require.Len(t, cfg.Chains, 2)
	assert.Equal(t, bridge.Optimism, cfg.Chains[0].Family)
	assert.Equal(t, xchain.Address{19: 1}, cfg.Chains[0].Targets[0].Address)
	assert.Equal(t, uint64(500), cfg.Chains[0].Targets[0].Limit)
	assert.Equal(t, bridge.Wormhole, cfg.Chains[1].Family)
	assert.Equal(t, uint64(3), cfg.Chains[1].GasPrice)
	require.Len(t, cfg.Nominees, 1)
	assert.Equal(t, xchain.ChainID(8453), cfg.Nominees[0].Chain)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "chains:\n  - id: 10\n    family: zksync\n"))
	assert.ErrorContains(t, err, "unknown family")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		err    string
	}{
		{"default", func(*Config) {}, ""},
		{"no chains", func(c *Config) { c.Chains = nil }, "no satellite chains"},
		{"base chain", func(c *Config) { c.Chains[0].ID = xchain.BaseChainID }, "invalid id"},
		{"duplicated", func(c *Config) { c.Chains[1].ID = c.Chains[0].ID }, "duplicated"},
		{"no family", func(c *Config) { c.Chains[0].Family = 0 }, "missing bridge family"},
		{"unknown nominee chain", func(c *Config) { c.Nominees[0].Chain = 5 }, "unknown chain"},
		{"zero nominee", func(c *Config) { c.Nominees[0].Target = xchain.Address{} }, "zero target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.err == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.err)
			}
		})
	}
}
