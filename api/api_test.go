// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/dispenser/api/chains"
	"github.com/vechain/dispenser/api/claims"
	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/metrics"
	"github.com/vechain/dispenser/sim"
	"github.com/vechain/dispenser/xchain"
)

func init() {
	metrics.InitializePrometheusMetrics()
}

var caller = xchain.Address{0xc1}

func newServer(t *testing.T) (*sim.Network, *httptest.Server, *atomic.Int32) {
	net, err := sim.Open(sim.DefaultConfig(), "", bridge.Options{})
	require.NoError(t, err)
	require.NoError(t, net.Fund(xchain.BaseChainID, caller, big.NewInt(1e18)))

	changes := &atomic.Int32{}
	handler, closeSubs := New(net, Options{
		AllowedOrigins: "*",
		EnableMetrics:  true,
		OnChange:       func() { changes.Add(1) },
	})
	ts := httptest.NewServer(handler)
	t.Cleanup(func() {
		ts.Close()
		closeSubs()
		net.Close()
	})
	return net, ts, changes
}

func TestClaimAndRelay(t *testing.T) {
	net, ts, changes := newServer(t)

	body, code := httpGet(t, ts.URL+"/chains")
	require.Equal(t, http.StatusOK, code, string(body))
	var list []chains.Chain
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, len(net.Chains()))

	body, code = httpPost(t, ts.URL+"/claims/checkpoint", nil)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.JSONEq(t, `{"settledEpoch":1}`, string(body))

	chain := net.Chains()[0]
	req := &claims.StakingRequest{
		Caller:    caller,
		NumEpochs: 1,
		Claims: []claims.ChainClaim{{
			ChainID: chain,
			Targets: []xchain.Bytes32{xchain.Address{19: 1}.Bytes32()},
		}},
	}
	body, code = httpPost(t, ts.URL+"/claims/staking/quote", req)
	require.Equal(t, http.StatusOK, code, string(body))
	var quotes []claims.Quote
	require.NoError(t, json.Unmarshal(body, &quotes))
	require.Len(t, quotes, 1)
	assert.Equal(t, int64(125000), (*big.Int)(quotes[0].Total).Int64())

	body, code = httpPost(t, ts.URL+"/claims/staking", req)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.Equal(t, int32(1), changes.Load())

	// the epoch is already claimed
	body, code = httpPost(t, ts.URL+"/claims/staking", req)
	assert.Equal(t, http.StatusUnprocessableEntity, code, string(body))
	assert.Equal(t, int32(1), changes.Load())

	body, code = httpPost(t, ts.URL+"/relay", nil)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.JSONEq(t, `{"delivered":2,"failed":0,"duplicates":0}`, string(body))

	body, code = httpGet(t, ts.URL+"/chains/"+chain.String()+"/ledger")
	require.Equal(t, http.StatusOK, code, string(body))
	var ledger chains.Ledger
	require.NoError(t, json.Unmarshal(body, &ledger))
	assert.Equal(t, chain, ledger.ID)
	assert.Equal(t, int64(125000), (*big.Int)(ledger.Targets[0].Deposited).Int64())
	assert.Equal(t, int64(1), (*big.Int)(ledger.StakingBatchNonce).Int64())
}

func TestErrors(t *testing.T) {
	_, ts, _ := newServer(t)

	_, code := httpGet(t, ts.URL+"/chains/999/ledger")
	assert.Equal(t, http.StatusNotFound, code)

	_, code = httpGet(t, ts.URL+"/chains/abc/ledger")
	assert.Equal(t, http.StatusBadRequest, code)

	_, code = httpPost(t, ts.URL+"/claims/staking", &claims.StakingRequest{Caller: caller, NumEpochs: 1})
	assert.Equal(t, http.StatusBadRequest, code)

	_, code = httpPost(t, ts.URL+"/relay/failures/0x01", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	_, code = httpPost(t, ts.URL+"/relay/failures/"+xchain.Bytes32{1}.String(), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMetricsMiddleware(t *testing.T) {
	_, ts, _ := newServer(t)

	httpGet(t, ts.URL+"/chains")
	httpGet(t, ts.URL+"/chains/abc/ledger")

	body, _ := httpGet(t, ts.URL+"/metrics")
	parser := expfmt.TextParser{}
	families, err := parser.TextToMetricFamilies(bytes.NewReader(body))
	require.NoError(t, err)

	var okCount, badCount float64
	for _, m := range families["dispenser_api_request_count"].GetMetric() {
		labels := make(map[string]string)
		for _, l := range m.GetLabel() {
			labels[l.GetName()] = l.GetValue()
		}
		switch {
		case labels["name"] == "chains_get_chains" && labels["code"] == "200":
			okCount += m.GetCounter().GetValue()
		case labels["name"] == "chains_get_ledger" && labels["code"] == "400":
			badCount += m.GetCounter().GetValue()
		}
	}
	assert.GreaterOrEqual(t, okCount, float64(1))
	assert.GreaterOrEqual(t, badCount, float64(1))
}

func TestWebsocketMetrics(t *testing.T) {
	_, ts, _ := newServer(t)

	u := url.URL{Scheme: "ws", Host: strings.TrimPrefix(ts.URL, "http://"), Path: "/subscriptions/relays"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		res, err := http.Get(ts.URL + "/metrics")
		if err != nil {
			return false
		}
		defer res.Body.Close()
		parser := expfmt.TextParser{}
		families, err := parser.TextToMetricFamilies(res.Body)
		if err != nil {
			return false
		}
		for _, m := range families["dispenser_api_active_websocket_count"].GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "subject" && l.GetValue() == "relays" {
					return m.GetGauge().GetValue() >= 1
				}
			}
		}
		return false
	}, time.Second, 20*time.Millisecond)
}

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	if err != nil {
		t.Fatal(err)
	}
	r, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	return r, res.StatusCode
}

func httpPost(t *testing.T, url string, obj any) ([]byte, int) {
	var data []byte
	if obj != nil {
		var err error
		data, err = json.Marshal(obj)
		require.NoError(t, err)
	}
	res, err := http.Post(url, "application/json", bytes.NewReader(data)) //#nosec G107
	if err != nil {
		t.Fatal(err)
	}
	r, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	return r, res.StatusCode
}
