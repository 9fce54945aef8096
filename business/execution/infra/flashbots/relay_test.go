package flashbots

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

type recordedCall struct {
	Method    string
	Params    map[string]any
	Signature string
	Body      []byte
}

type fakeRelay struct {
	mu      sync.Mutex
	calls   []recordedCall
	handler func(method string) (status int, body string)
}

func (f *fakeRelay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req struct {
		Method string           `json:"method"`
		Params []map[string]any `json:"params"`
	}
	_ = json.Unmarshal(body, &req)

	call := recordedCall{Method: req.Method, Signature: r.Header.Get(SignatureHeader), Body: body}
	if len(req.Params) > 0 {
		call.Params = req.Params[0]
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	status, out := f.handler(req.Method)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(out))
}

func (f *fakeRelay) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Method
	}
	return out
}

func newTestRelay(t *testing.T, handler func(method string) (int, string), simulate bool) (*Relay, *fakeRelay) {
	t.Helper()

	fake := &fakeRelay{handler: handler}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	cfg := DefaultConfig(srv.URL)
	cfg.Simulate = simulate
	cfg.RequestTimeout = 2 * time.Second
	cfg.RequestsPerMinute = 0

	r, err := NewRelay(cfg, key, logger.NewNop())
	require.NoError(t, err)
	return r, fake
}

func signedTxs(t *testing.T, n int) []*types.Transaction {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	chainID := big.NewInt(42161)
	signer := types.LatestSignerForChainID(chainID)
	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	txs := make([]*types.Transaction, n)
	for i := range txs {
		txs[i], err = types.SignNewTx(key, signer, &types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     uint64(i),
			GasTipCap: big.NewInt(1),
			GasFeeCap: big.NewInt(2),
			Gas:       100_000,
			To:        &to,
		})
		require.NoError(t, err)
	}
	return txs
}

const okSimulation = `{"jsonrpc":"2.0","id":1,"result":{"bundleHash":"0xsim","results":[{"txHash":"0x1"},{"txHash":"0x2"}]}}`

func TestRelay_SubmitSimulatesThenSends(t *testing.T) {
	r, fake := newTestRelay(t, func(method string) (int, string) {
		if method == methodCallBundle {
			return http.StatusOK, okSimulation
		}
		return http.StatusOK, `{"jsonrpc":"2.0","id":2,"result":{"bundleHash":"0xabc"}}`
	}, true)

	txs := signedTxs(t, 2)
	res, err := r.Submit(context.Background(), txs, 101, "replace-me")
	require.NoError(t, err)

	assert.Equal(t, "0xabc", res.BundleHash)
	assert.True(t, res.TargetBound)
	assert.Equal(t, []string{methodCallBundle, methodSendBundle}, fake.methods())

	send := fake.calls[1]
	assert.Equal(t, "0x65", send.Params["blockNumber"])
	assert.Equal(t, "replace-me", send.Params["replacementUuid"])

	raw, ok := send.Params["txs"].([]any)
	require.True(t, ok)
	require.Len(t, raw, 2)
	first, err := txs[0].MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, hexutil.Encode(first), raw[0])

	sim := fake.calls[0]
	assert.Equal(t, "latest", sim.Params["stateBlockNumber"])
}

func TestRelay_SignatureHeaderVerifies(t *testing.T) {
	r, fake := newTestRelay(t, func(string) (int, string) {
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{"bundleHash":"0xabc"}}`
	}, false)

	_, err := r.Submit(context.Background(), signedTxs(t, 1), 5, "")
	require.NoError(t, err)
	require.Len(t, fake.calls, 1)

	call := fake.calls[0]
	addr, sigHex, found := strings.Cut(call.Signature, ":")
	require.True(t, found)
	assert.Equal(t, r.AuthAddress().Hex(), addr)

	sig, err := hexutil.Decode(sigHex)
	require.NoError(t, err)
	digest := accounts.TextHash([]byte(crypto.Keccak256Hash(call.Body).Hex()))
	pub, err := crypto.SigToPub(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, r.AuthAddress(), crypto.PubkeyToAddress(*pub))

	_, hasReplacement := call.Params["replacementUuid"]
	assert.False(t, hasReplacement)
}

func TestRelay_SimulationRevertIsRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "per-tx revert",
			body: `{"jsonrpc":"2.0","id":1,"result":{"results":[{"txHash":"0x1","revert":"no profit"}]}}`,
		},
		{
			name: "per-tx error",
			body: `{"jsonrpc":"2.0","id":1,"result":{"results":[{"txHash":"0x1"},{"txHash":"0x2","error":"execution reverted"}]}}`,
		},
		{
			name: "json-rpc error",
			body: `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"nonce too low"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, fake := newTestRelay(t, func(string) (int, string) {
				return http.StatusOK, tt.body
			}, true)

			_, err := r.Submit(context.Background(), signedTxs(t, 2), 10, "id")
			require.Error(t, err)
			assert.Equal(t, apperror.CodeBundleRejected, apperror.GetCode(err))
			assert.Equal(t, []string{methodCallBundle}, fake.methods(), "bundle must not be sent")
		})
	}
}

func TestRelay_SendErrorsAreSubmissionFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "json-rpc error", status: http.StatusOK, body: `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"invalid params"}}`},
		{name: "http 500", status: http.StatusInternalServerError, body: `upstream down`},
		{name: "garbage", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRelay(t, func(string) (int, string) {
				return tt.status, tt.body
			}, false)

			_, err := r.Submit(context.Background(), signedTxs(t, 1), 10, "")
			require.Error(t, err)
			assert.Equal(t, apperror.CodeRelaySubmissionFailed, apperror.GetCode(err))
		})
	}
}

func TestRelay_UnreachableRelay(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	cfg := DefaultConfig("http://127.0.0.1:1")
	cfg.RequestTimeout = 500 * time.Millisecond
	r, err := NewRelay(cfg, key, logger.NewNop())
	require.NoError(t, err)

	_, err = r.Submit(context.Background(), signedTxs(t, 1), 1, "")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeRelaySubmissionFailed))
}

func TestNewRelay_RequiresURLAndKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	_, err = NewRelay(DefaultConfig(""), key, logger.NewNop())
	assert.True(t, apperror.HasCode(err, apperror.CodeConfigurationError))

	_, err = NewRelay(DefaultConfig("http://relay"), nil, logger.NewNop())
	assert.True(t, apperror.HasCode(err, apperror.CodeConfigurationError))
}
