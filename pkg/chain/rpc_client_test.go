package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadAddress(t *testing.T) {
	got := padAddress("0xAbC0000000000000000000000000000000000001")
	assert.Len(t, got, 64)
	assert.Equal(t, "000000000000000000000000abc0000000000000000000000000000000000001", got)
}

func TestPadBig(t *testing.T) {
	got := padBig(big.NewInt(255))
	assert.Len(t, got, 64)
	assert.Equal(t, "00000000000000000000000000000000000000000000000000000000000000ff", got)
}

func TestTopicAddress(t *testing.T) {
	topic := "0x000000000000000000000000ABC0000000000000000000000000000000000001"
	assert.Equal(t, "0xabc0000000000000000000000000000000000001", topicAddress(topic))
}

func TestParseHexBig(t *testing.T) {
	n, ok := parseHexBig("0xff")
	require.True(t, ok)
	assert.Equal(t, int64(255), n.Int64())

	n, ok = parseHexBig("0x")
	require.True(t, ok)
	assert.Zero(t, n.Int64())

	_, ok = parseHexBig("0xzz")
	assert.False(t, ok)
}

func rpcServer(t *testing.T, handle func(method string, params []json.RawMessage) (interface{}, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
			ID     int               `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, rpcErr := handle(req.Method, req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestRPCClientTokenDecimals(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		assert.Equal(t, "eth_call", method)
		return "0x12", nil
	})
	defer srv.Close()

	c := NewRPCClient(srv.URL, "0x3333333333333333333333333333333333333333")
	dec, err := c.TokenDecimals(context.Background(), "0x2222222222222222222222222222222222222222")
	require.NoError(t, err)
	assert.Equal(t, int32(18), dec)
}

func TestRPCClientTransferSendsFromTreasury(t *testing.T) {
	treasury := "0x3333333333333333333333333333333333333333"
	var gotCall map[string]string
	srv := rpcServer(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		assert.Equal(t, "eth_sendTransaction", method)
		require.NoError(t, json.Unmarshal(params[0], &gotCall))
		return "0xdeadbeef", nil
	})
	defer srv.Close()

	c := NewRPCClient(srv.URL, treasury)
	hash, err := c.Transfer(context.Background(),
		"0x2222222222222222222222222222222222222222",
		"0x1111111111111111111111111111111111111111",
		big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", hash)
	assert.Equal(t, treasury, gotCall["from"])
	assert.Equal(t, "0x2222222222222222222222222222222222222222", gotCall["to"])
	assert.Equal(t, selTransfer+padAddress("0x1111111111111111111111111111111111111111")+padBig(big.NewInt(1000)), gotCall["data"])
}

func TestRPCClientTransfersToDecodesLogs(t *testing.T) {
	sender := "0x1111111111111111111111111111111111111111"
	recipient := "0x4444444444444444444444444444444444444444"
	srv := rpcServer(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		assert.Equal(t, "eth_getLogs", method)
		return []map[string]interface{}{
			{
				"address": "0x2222222222222222222222222222222222222222",
				"topics": []string{
					transferTopic,
					"0x" + padAddress(sender),
					"0x" + padAddress(recipient),
				},
				"data":            "0x" + padBig(big.NewInt(5000)),
				"transactionHash": "0xabc123",
			},
			// Malformed log rows are skipped, not fatal.
			{"address": "0x2222222222222222222222222222222222222222", "topics": []string{transferTopic}, "data": "0x0"},
		}, nil
	})
	defer srv.Close()

	c := NewRPCClient(srv.URL, "0x3333333333333333333333333333333333333333")
	transfers, err := c.TransfersTo(context.Background(), "0x2222222222222222222222222222222222222222", recipient)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, sender, transfers[0].From)
	assert.Equal(t, recipient, transfers[0].To)
	assert.Equal(t, int64(5000), transfers[0].Amount.Int64())
	assert.Equal(t, "0xabc123", transfers[0].TxHash)
}

func TestRPCClientPropagatesRPCErrors(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		return nil, &rpcError{Code: -32000, Message: "execution reverted"}
	})
	defer srv.Close()

	c := NewRPCClient(srv.URL, "0x3333333333333333333333333333333333333333")
	_, err := c.BalanceOf(context.Background(), "0x2222222222222222222222222222222222222222", "0x1111111111111111111111111111111111111111")
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("rpc error %d", -32000))
}
