package chain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const tracked = "0x5555555555555555555555555555555555555555"

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

// fakeRPC answers the handful of eth_ methods the prober uses.
func fakeRPC(t *testing.T, code, callResult string) (*httptest.Server, *sync.Map) {
	t.Helper()
	seen := &sync.Map{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		seen.Store(req.Method, true)

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		switch req.Method {
		case "eth_getCode":
			resp["result"] = code
		case "eth_getBalance":
			resp["result"] = "0xde0b6b3a7640000"
		case "eth_blockNumber":
			resp["result"] = "0x10"
		case "eth_call":
			if callResult == "" {
				resp["error"] = map[string]any{"code": -32000, "message": "execution reverted"}
			} else {
				resp["result"] = callResult
			}
		default:
			resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func TestInspectMissingConfig(t *testing.T) {
	p := NewProber(Options{}, zerolog.Nop())
	_, err := p.Inspect(context.Background(), "ethereum", tracked)
	require.True(t, errors.Is(err, ErrNetworkNotConfigured))

	_, err = p.Inspect(context.Background(), "ethereum", "0x1234")
	require.True(t, errors.Is(err, ErrInvalidAddress))
}

func TestInspectDeployedPausable(t *testing.T) {
	srv, seen := fakeRPC(t, "0x6080604052", "0x"+strings.Repeat("0", 63)+"1")
	p := NewProber(Options{RPCURLs: map[string]string{"ethereum": srv.URL}}, zerolog.Nop())
	defer p.Close()

	got, err := p.Inspect(context.Background(), " Ethereum ", tracked)
	require.NoError(t, err)
	require.Equal(t, "ethereum", got.Network)
	require.True(t, got.HasCode)
	require.Equal(t, 5, got.CodeSize)
	require.EqualValues(t, 16, got.BlockNumber)
	require.Equal(t, "1", got.Balance.String())
	require.NotNil(t, got.Paused)
	require.True(t, *got.Paused)

	_, called := seen.Load("eth_call")
	require.True(t, called)
}

func TestInspectWithoutCode(t *testing.T) {
	srv, seen := fakeRPC(t, "0x", "")
	p := NewProber(Options{RPCURLs: map[string]string{"base": srv.URL}}, zerolog.Nop())
	defer p.Close()

	got, err := p.Inspect(context.Background(), "base", tracked)
	require.NoError(t, err)
	require.False(t, got.HasCode)
	require.Nil(t, got.Paused)

	_, called := seen.Load("eth_call")
	require.False(t, called, "paused() is only probed on deployed code")
}

func TestInspectNotPausable(t *testing.T) {
	srv, _ := fakeRPC(t, "0x60", "")
	p := NewProber(Options{RPCURLs: map[string]string{"ethereum": srv.URL}}, zerolog.Nop())
	defer p.Close()

	got, err := p.Inspect(context.Background(), "ethereum", tracked)
	require.NoError(t, err)
	require.True(t, got.HasCode)
	require.Nil(t, got.Paused)
}
