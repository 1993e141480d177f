// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/dispenser/builtin/dispenser"
	"github.com/vechain/dispenser/sim"
	"github.com/vechain/dispenser/state"
	"github.com/vechain/dispenser/xchain"
)

func serve(t *testing.T, err error) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	WrapHandlerFunc(func(http.ResponseWriter, *http.Request) error { return err })(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestWrapHandlerFunc(t *testing.T) {
	assert.Equal(t, http.StatusOK, serve(t, nil).Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, BadRequest(errors.New("bad"))).Code)
	assert.Equal(t, http.StatusNotFound, serve(t, NotFound(errors.New("none"))).Code)
	assert.Equal(t, http.StatusNotFound, serve(t, errors.WithMessage(sim.ErrUnknownChain, "5")).Code)
	assert.Equal(t, http.StatusInternalServerError, serve(t, errors.New("io")).Code)
	assert.Equal(t, http.StatusTeapot, serve(t, HTTPError(nil, http.StatusTeapot)).Code)
}

func TestWrapHandlerFuncRevert(t *testing.T) {
	d := dispenser.New(xchain.Address{0x01}, state.New(nil), nil, nil)
	err := d.SetPauseState(xchain.Address{0x02}, dispenser.AllPaused)
	require.True(t, errors.Is(err, dispenser.OwnerOnly))

	rec := serve(t, errors.Wrap(err, "pause"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body Reverted
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body.Error, "OwnerOnly")
	assert.True(t, strings.HasPrefix(body.Data, "0x"))
	assert.Len(t, body.Data, 10)
}

func TestParseChainID(t *testing.T) {
	id, err := ParseChainID("42161")
	require.NoError(t, err)
	assert.EqualValues(t, 42161, id)

	_, err = ParseChainID("arbitrum")
	assert.Error(t, err)
}
