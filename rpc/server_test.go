package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"nhooyr.io/websocket"

	"loanft/config"
	"loanft/core"
	"loanft/core/events"
	"loanft/core/genesis"
	"loanft/core/types"
	"loanft/crypto"
	"loanft/indexer"
	"loanft/native/loan"
	"loanft/storage"
)

const (
	testChainID = 9
	testToken   = "test-token"
)

type account struct {
	key   *crypto.PrivateKey
	addr  [20]byte
	nonce uint64
}

func newAccount(t *testing.T) *account {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return &account{key: key, addr: key.PubKey().Address().Raw()}
}

func (a *account) String() string { return crypto.FromRaw(a.addr).String() }

func fill(b byte) [20]byte {
	var out [20]byte
	for i := range out {
		out[i] = b
	}
	return out
}

type harness struct {
	t          *testing.T
	node       *core.Node
	server     *Server
	http       *httptest.Server
	token      string
	borrower   *account
	lender     *account
	minter     *account
	collateral [20]byte
	interest   [20]byte
	requested  [20]byte
	commission [20]byte
}

func newHarness(t *testing.T, cfg config.RPCConfig, index *indexer.Indexer) *harness {
	t.Helper()
	h := &harness{
		t:          t,
		token:      cfg.AuthToken,
		borrower:   newAccount(t),
		lender:     newAccount(t),
		minter:     newAccount(t),
		collateral: fill(0xC1),
		interest:   fill(0xE1),
		requested:  fill(0xA1),
		commission: fill(0xCC),
	}
	spec := &genesis.GenesisSpec{
		GenesisTime: "2024-01-01T00:00:00Z",
		ChainID:     testChainID,
		Alloc: map[string]string{
			h.borrower.String(): "10",
			h.lender.String():   "10",
		},
		Registries: []genesis.RegistrySpec{
			{Address: crypto.FromRaw(h.collateral).String(), Kind: "unique", Minter: h.minter.String(), Name: "collateral"},
			{Address: crypto.FromRaw(h.interest).String(), Kind: "fungible", Minter: h.minter.String(), Name: "interest"},
			{Address: crypto.FromRaw(h.requested).String(), Kind: "fungible", Minter: h.minter.String(), Name: "requested"},
		},
		Collateral: []genesis.CollateralSpec{
			{Registry: crypto.FromRaw(h.collateral).String(), Owner: h.borrower.String(), AssetID: 1},
		},
		Units: []genesis.UnitsSpec{
			{Registry: crypto.FromRaw(h.interest).String(), Holder: h.borrower.String(), AssetID: 2, Amount: "2"},
			{Registry: crypto.FromRaw(h.requested).String(), Holder: h.lender.String(), AssetID: 1, Amount: "3"},
		},
	}
	node, err := core.NewNode(storage.NewMemDB(), core.Options{Genesis: spec})
	require.NoError(t, err)
	t.Cleanup(node.Close)
	if index != nil {
		node.SetEventSink(index)
	}
	h.node = node
	h.server = NewServer(node, index, cfg, nil)
	h.http = httptest.NewServer(h.server.Handler())
	t.Cleanup(h.http.Close)
	return h
}

func tokenConfig() config.RPCConfig {
	return config.RPCConfig{AuthToken: testToken, RateLimitPerSecond: 1000, RateLimitBurst: 1000}
}

type rawResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func (h *harness) callWithToken(token, method string, params ...interface{}) (int, rawResponse) {
	h.t.Helper()
	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(h.t, err)
	req, err := http.NewRequest(http.MethodPost, h.http.URL+"/", bytes.NewReader(body))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.http.Client().Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	require.NotEmpty(h.t, resp.Header.Get(requestIDHeader))
	var out rawResponse
	require.NoError(h.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (h *harness) call(method string, params ...interface{}) (int, rawResponse) {
	h.t.Helper()
	return h.callWithToken(h.token, method, params...)
}

func (h *harness) signed(from *account, txType types.TxType, to []byte, value int64, payload interface{}) *types.Transaction {
	h.t.Helper()
	tx := &types.Transaction{
		ChainID: testChainID,
		Type:    txType,
		Nonce:   from.nonce,
		To:      to,
		Value:   big.NewInt(value),
	}
	if payload != nil {
		data, err := types.EncodePayload(payload)
		require.NoError(h.t, err)
		tx.Data = data
	}
	require.NoError(h.t, tx.Sign(from.key.PrivateKey))
	return tx
}

// send submits a transaction and advances the local nonce when the node
// consumed it.
func (h *harness) send(from *account, txType types.TxType, to []byte, value int64, payload interface{}) (int, rawResponse) {
	h.t.Helper()
	status, resp := h.call("loan_sendTransaction", h.signed(from, txType, to, value, payload))
	if resp.Error == nil || resp.Error.Data != nil {
		from.nonce++
	}
	return status, resp
}

func (h *harness) mustSend(from *account, txType types.TxType, to []byte, value int64, payload interface{}) core.Receipt {
	h.t.Helper()
	status, resp := h.send(from, txType, to, value, payload)
	require.Nil(h.t, resp.Error, "unexpected error: %+v", resp.Error)
	require.Equal(h.t, http.StatusOK, status)
	var receipt core.Receipt
	require.NoError(h.t, json.Unmarshal(resp.Result, &receipt))
	require.True(h.t, receipt.Succeeded())
	return receipt
}

func (h *harness) createLoan() [20]byte {
	h.t.Helper()
	escrow := loan.DeriveAddress(h.borrower.addr, h.borrower.nonce)
	receipt := h.mustSend(h.borrower, types.TxTypeCreateLoan, nil, 0, types.CreateLoanPayload{
		Borrower:           h.borrower.String(),
		CollateralRegistry: crypto.FromRaw(h.collateral).String(),
		RequestedRegistry:  crypto.FromRaw(h.requested).String(),
		InterestRegistry:   crypto.FromRaw(h.interest).String(),
		CollateralAssetID:  1,
		RequestedAssetID:   1,
		TimeToPay:          2,
		LoanFee:            big.NewInt(1),
		CommissionWallet:   crypto.FromRaw(h.commission).String(),
	})
	require.Equal(h.t, crypto.FromRaw(escrow).String(), receipt.Escrow)
	return escrow
}

func (h *harness) approve(owner *account, registry, operator [20]byte) {
	h.t.Helper()
	h.mustSend(owner, types.TxTypeApprove, registry[:], 0, types.ApprovePayload{
		Operator: crypto.FromRaw(operator).String(),
		Approved: true,
	})
}

func decode(t *testing.T, resp rawResponse, out interface{}) {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected error: %+v", resp.Error)
	require.NoError(t, json.Unmarshal(resp.Result, out))
}

func TestHealthzAndMetrics(t *testing.T) {
	h := newHarness(t, tokenConfig(), nil)

	resp, err := h.http.Client().Get(h.http.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	h.call("bank_getNonce", h.borrower.String())
	resp, err = h.http.Client().Get(h.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "loan_rpc_requests_total")
}

func TestLoanLifecycleOverRPC(t *testing.T) {
	h := newHarness(t, tokenConfig(), nil)
	escrow := h.createLoan()
	escrowStr := crypto.FromRaw(escrow).String()
	h.approve(h.borrower, h.collateral, escrow)
	h.approve(h.borrower, h.interest, escrow)
	h.approve(h.lender, h.requested, escrow)

	var approved bool
	_, resp := h.call("asset_isApprovedForAll", crypto.FromRaw(h.interest).String(), h.borrower.String(), escrowStr)
	decode(t, resp, &approved)
	require.True(t, approved)

	h.mustSend(h.borrower, types.TxTypeCommitCollateral, escrow[:], 1,
		types.CommitCollateralPayload{CollateralAssetID: 1, InterestAssetID: 2})

	var owner string
	_, resp = h.call("asset_ownerOf", crypto.FromRaw(h.collateral).String(), 1)
	decode(t, resp, &owner)
	require.Equal(t, escrowStr, owner)

	h.mustSend(h.lender, types.TxTypeCommitRequestedAsset, escrow[:], 1, nil)

	var esc EscrowResult
	_, resp = h.call("loan_get", escrowStr)
	decode(t, resp, &esc)
	require.Equal(t, loan.PhaseLendDeposited.String(), esc.Phase)
	require.Equal(t, h.lender.String(), esc.Lender)
	require.Equal(t, uint64(2), esc.InterestAssetID)

	var borrower, wallet string
	var assetID uint64
	_, resp = h.call("loan_borrowerAddress", escrowStr)
	decode(t, resp, &borrower)
	require.Equal(t, h.borrower.String(), borrower)
	_, resp = h.call("loan_assetToRequestId", escrowStr)
	decode(t, resp, &assetID)
	require.Equal(t, uint64(1), assetID)
	_, resp = h.call("loan_commissionWallet", escrowStr)
	decode(t, resp, &wallet)
	require.Equal(t, crypto.FromRaw(h.commission).String(), wallet)

	var units string
	_, resp = h.call("asset_balanceOf", crypto.FromRaw(h.requested).String(), h.borrower.String(), 1)
	decode(t, resp, &units)
	require.Equal(t, "1", units)
	_, resp = h.call("asset_balanceOf", crypto.FromRaw(h.collateral).String(), escrowStr)
	decode(t, resp, &units)
	require.Equal(t, "1", units)

	var bal BalanceResult
	_, resp = h.call("bank_getBalance", crypto.FromRaw(h.commission).String())
	decode(t, resp, &bal)
	require.Equal(t, "2", bal.Balance)

	var list []EventResult
	_, resp = h.call("loan_listEvents", escrowStr)
	decode(t, resp, &list)
	var kinds []string
	for _, evt := range list {
		kinds = append(kinds, evt.Type)
	}
	require.Contains(t, kinds, loan.EventTypeLoanCreated)
	require.Contains(t, kinds, loan.EventTypeBorrowOrder)
	require.Contains(t, kinds, loan.EventTypeLendingOrder)

	var all []EscrowResult
	_, resp = h.call("loan_list")
	decode(t, resp, &all)
	require.Len(t, all, 1)
}

func TestLoanFailuresCarryLiteralReason(t *testing.T) {
	h := newHarness(t, tokenConfig(), nil)
	escrow := h.createLoan()

	cases := []struct {
		name    string
		from    *account
		value   int64
		status  int
		code    int
		message string
	}{
		{"not borrower", h.lender, 1, http.StatusForbidden, codeLoanAuthorization, "Token must be staked by borrower!"},
		{"wrong fee", h.borrower, 2, http.StatusPaymentRequired, codeLoanPayment, "You have to pay the Loan fee"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := h.send(tc.from, types.TxTypeCommitCollateral, escrow[:], tc.value,
				types.CommitCollateralPayload{CollateralAssetID: 1, InterestAssetID: 2})
			require.Equal(t, tc.status, status)
			require.NotNil(t, resp.Error)
			require.Equal(t, tc.code, resp.Error.Code)
			require.Equal(t, tc.message, resp.Error.Message)
			receipt, ok := resp.Error.Data.(map[string]interface{})
			require.True(t, ok)
			require.Equal(t, core.ReceiptStatusFailed, receipt["status"])
		})
	}

	status, resp := h.send(h.lender, types.TxTypeCommitRequestedAsset, escrow[:], 1, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, codeLoanAuthorization, resp.Error.Code)

	var nonce uint64
	_, resp = h.call("bank_getNonce", h.lender.String())
	decode(t, resp, &nonce)
	require.Equal(t, h.lender.nonce, nonce)
}

func TestRejectedTransactionHasNoReceipt(t *testing.T) {
	h := newHarness(t, tokenConfig(), nil)
	tx := h.signed(h.borrower, types.TxTypeTransfer, h.lender.addr[:], 1, nil)
	tx.Nonce = 5
	require.NoError(t, tx.Sign(h.borrower.key.PrivateKey))

	status, resp := h.call("loan_sendTransaction", tx)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeTxRejected, resp.Error.Code)
	require.Nil(t, resp.Error.Data)

	status, resp = h.call("loan_sendTransaction")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestUnknownEscrowIsNotFound(t *testing.T) {
	h := newHarness(t, tokenConfig(), nil)
	status, resp := h.call("loan_get", crypto.FromRaw(fill(0x42)).String())
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeNotFound, resp.Error.Code)

	status, resp = h.call("loan_get", "not-an-address")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestSendTransactionRequiresAuth(t *testing.T) {
	h := newHarness(t, tokenConfig(), nil)
	tx := h.signed(h.borrower, types.TxTypeTransfer, h.lender.addr[:], 1, nil)

	status, resp := h.callWithToken("", "loan_sendTransaction", tx)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	status, resp = h.callWithToken("wrong", "loan_sendTransaction", tx)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "invalid RPC credentials", resp.Error.Message)

	status, _ = h.callWithToken("", "bank_getNonce", h.borrower.String())
	require.Equal(t, http.StatusOK, status)
}

func TestSendTransactionRejectedWithoutConfiguredAuth(t *testing.T) {
	h := newHarness(t, config.RPCConfig{}, nil)
	tx := h.signed(h.borrower, types.TxTypeTransfer, h.lender.addr[:], 1, nil)
	status, resp := h.callWithToken("anything", "loan_sendTransaction", tx)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "RPC authentication not configured", resp.Error.Message)
}

func TestJWTBearerAuth(t *testing.T) {
	const secret = "jwt-secret"
	h := newHarness(t, config.RPCConfig{JWTSecret: secret, JWTIssuer: "loan-tests"}, nil)

	sign := func(key, issuer string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"iss": issuer,
			"exp": time.Now().Add(time.Minute).Unix(),
		})
		signed, err := token.SignedString([]byte(key))
		require.NoError(t, err)
		return signed
	}

	tx := h.signed(h.borrower, types.TxTypeTransfer, h.lender.addr[:], 1, nil)
	status, _ := h.callWithToken(sign("other", "loan-tests"), "loan_sendTransaction", tx)
	require.Equal(t, http.StatusUnauthorized, status)
	status, _ = h.callWithToken(sign(secret, "someone-else"), "loan_sendTransaction", tx)
	require.Equal(t, http.StatusUnauthorized, status)

	status, resp := h.callWithToken(sign(secret, "loan-tests"), "loan_sendTransaction", tx)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)
}

func TestSendTransactionRateLimited(t *testing.T) {
	h := newHarness(t, config.RPCConfig{AuthToken: testToken, RateLimitPerSecond: 0.001, RateLimitBurst: 1}, nil)

	status, resp := h.call("loan_sendTransaction")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	status, resp = h.call("loan_sendTransaction")
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, codeRateLimited, resp.Error.Code)

	status, _ = h.call("bank_getNonce", h.borrower.String())
	require.Equal(t, http.StatusOK, status)
}

func TestMalformedRequests(t *testing.T) {
	h := newHarness(t, tokenConfig(), nil)
	post := func(body string) (int, rawResponse) {
		resp, err := h.http.Client().Post(h.http.URL+"/", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		var out rawResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return resp.StatusCode, out
	}

	status, resp := post("{")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeParseError, resp.Error.Code)

	status, resp = post(`{"jsonrpc":"2.0","id":1,"method":"loan_unknown","params":[]}`)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)

	status, resp = post(`{"jsonrpc":"1.0","id":1,"method":"loan_get","params":[]}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidRequest, resp.Error.Code)

	status, resp = post(`{"jsonrpc":"2.0","id":1,"method":"index_listEscrows","params":[]}`)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestClientSourceIgnoresForwardedForWhenNotTrusted(t *testing.T) {
	server := NewServer(nil, nil, config.RPCConfig{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	require.Equal(t, "10.0.0.5", server.clientSource(req))

	trusting := NewServer(nil, nil, config.RPCConfig{TrustProxyHeaders: true, TrustedProxies: []string{"10.0.0.5"}}, nil)
	require.Equal(t, "203.0.113.9", trusting.clientSource(req))

	req.RemoteAddr = "10.0.0.6:1234"
	require.Equal(t, "10.0.0.6", trusting.clientSource(req))
}

func TestEventsWebsocketReplaysAndStreams(t *testing.T) {
	h := newHarness(t, tokenConfig(), nil)
	h.mustSend(h.borrower, types.TxTypeTransfer, h.lender.addr[:], 1, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws/events?after=1"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	nextTransfer := func() EventResult {
		for {
			_, data, err := conn.Read(ctx)
			require.NoError(t, err)
			var evt EventResult
			require.NoError(t, json.Unmarshal(data, &evt))
			if evt.Type == events.TypeTransfer && evt.Attributes["from"] == h.borrower.String() {
				return evt
			}
		}
	}

	first := nextTransfer()
	require.Equal(t, "1", first.Attributes["amount"])

	h.mustSend(h.borrower, types.TxTypeTransfer, h.lender.addr[:], 2, nil)
	second := nextTransfer()
	require.Equal(t, "2", second.Attributes["amount"])
	require.Greater(t, second.Sequence, first.Sequence)
}

func TestEventsWebsocketReplaysLongBacklogWithoutGaps(t *testing.T) {
	h := newHarness(t, tokenConfig(), nil)
	const backlog = 1100
	for i := 0; i < backlog; i++ {
		tx := h.signed(h.borrower, types.TxTypeApprove, h.interest[:], 0, types.ApprovePayload{
			Operator: h.lender.String(),
			Approved: true,
		})
		_, err := h.node.ApplyTransaction(context.Background(), tx)
		require.NoError(t, err)
		h.borrower.nonce++
	}
	latest, err := h.node.LatestSequence()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws/events?after=1"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	read := func() EventResult {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var evt EventResult
		require.NoError(t, json.Unmarshal(data, &evt))
		return evt
	}

	want := uint64(2)
	for want <= latest {
		evt := read()
		require.Equal(t, want, evt.Sequence)
		want++
	}

	h.mustSend(h.borrower, types.TxTypeTransfer, h.lender.addr[:], 1, nil)
	next := read()
	require.Equal(t, latest+1, next.Sequence)
	require.Equal(t, events.TypeTransfer, next.Type)
}

func TestHandlerRecordsServerSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(tracenoop.NewTracerProvider()) })

	h := newHarness(t, tokenConfig(), nil)
	srv := httptest.NewServer(h.server.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"node_chainId","params":[]}`)
	resp, err = http.Post(srv.URL+"/", "application/json", body)
	require.NoError(t, err)
	resp.Body.Close()

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	require.Contains(t, names, "loand.rpc")
}

func TestIndexMethods(t *testing.T) {
	ix, err := indexer.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })

	h := newHarness(t, tokenConfig(), ix)
	escrow := h.createLoan()
	escrowStr := crypto.FromRaw(escrow).String()

	var row indexer.EscrowRow
	_, resp := h.call("index_getEscrow", escrowStr)
	decode(t, resp, &row)
	require.Equal(t, h.borrower.String(), row.Borrower)
	require.Equal(t, loan.PhaseCreated.String(), row.Phase)

	var rows []indexer.EscrowRow
	_, resp = h.call("index_listEscrows", map[string]interface{}{"borrower": h.borrower.String()})
	decode(t, resp, &rows)
	require.Len(t, rows, 1)

	var fees string
	_, resp = h.call("index_feesCollected", crypto.FromRaw(h.commission).String())
	decode(t, resp, &fees)
	require.Equal(t, "0", fees)

	status, resp := h.call("index_getEscrow", crypto.FromRaw(fill(0x42)).String())
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeNotFound, resp.Error.Code)
}
