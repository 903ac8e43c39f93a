package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/rollout/server"
	"github.com/ardnew/rollout/store"
)

func newTestServer(t *testing.T) (*server.Server, *store.Store) {
	t.Helper()

	st, err := store.Open(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() { st.Close() })

	return server.New(st, nil), st
}

func doJSON(t *testing.T, srv *server.Server, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)

	return resp
}

func TestHandleEvaluate_AdHocFormula(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/v1/evaluate", map[string]any{
		"formula": "0.5",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]float32
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.InDelta(t, 0.5, out["frequency"], 0.0001)
}

func TestHandleEvaluate_BadFormulaIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/v1/evaluate", map[string]any{
		"formula": "not(",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleEvaluate_MissingFormulaAndRuleIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/v1/evaluate", map[string]any{})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlePutRule_ThenListAndEvaluateByName(t *testing.T) {
	srv, _ := newTestServer(t)

	putResp := doJSON(t, srv, http.MethodPost, "/v1/rules", map[string]any{
		"name":    "always-on",
		"formula": "1",
	})
	defer putResp.Body.Close()
	assert.Equal(t, http.StatusCreated, putResp.StatusCode)

	listResp := doJSON(t, srv, http.MethodGet, "/v1/rules", nil)
	defer listResp.Body.Close()
	assert.Equal(t, http.StatusOK, listResp.StatusCode)

	var listed map[string][]store.Named
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&listed))
	require.Len(t, listed["rules"], 1)
	assert.Equal(t, "always-on", listed["rules"][0].Name)

	evalResp := doJSON(t, srv, http.MethodPost, "/v1/evaluate", map[string]any{
		"rule": "always-on",
	})
	defer evalResp.Body.Close()
	assert.Equal(t, http.StatusOK, evalResp.StatusCode)

	var out map[string]float32
	require.NoError(t, json.NewDecoder(evalResp.Body).Decode(&out))
	assert.InDelta(t, 1.0, out["frequency"], 0.0001)
}

func TestHandlePutRule_InvalidFormulaIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/v1/rules", map[string]any{
		"name":    "broken",
		"formula": "not(",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleDecide_RequiresRolloutID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/v1/decide", map[string]any{
		"formula": "1",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleDecide_ConstantFrequencyIsDeterministic(t *testing.T) {
	srv, _ := newTestServer(t)

	body := map[string]any{"formula": "1", "rolloutId": "user-42"}

	resp1 := doJSON(t, srv, http.MethodPost, "/v1/decide", body)
	defer resp1.Body.Close()

	var out1 map[string]any
	require.NoError(t, json.NewDecoder(resp1.Body).Decode(&out1))
	assert.Equal(t, true, out1["decision"])

	resp2 := doJSON(t, srv, http.MethodPost, "/v1/decide", body)
	defer resp2.Body.Close()

	var out2 map[string]any
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&out2))
	assert.Equal(t, out1["decision"], out2["decision"])
}

func TestEveryResponse_CarriesRequestID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, http.MethodGet, "/v1/rules", nil)
	defer resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}
