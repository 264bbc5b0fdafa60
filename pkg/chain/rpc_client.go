package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"
)

// ERC-20 function selectors and the Transfer event topic.
const (
	selDecimals  = "0x313ce567"
	selBalanceOf = "0x70a08231"
	selTransfer  = "0xa9059cbb"

	transferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
)

// RPCClient talks to an EVM JSON-RPC endpoint over HTTP. Treasury transfers go
// through eth_sendTransaction, so the endpoint must hold (or proxy to a signer
// holding) the treasury account.
type RPCClient struct {
	URL      string
	Treasury string
	client   *http.Client
}

func NewRPCClient(url, treasury string) *RPCClient {
	return &RPCClient{
		URL:      url,
		Treasury: strings.ToLower(treasury),
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *RPCClient) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, _ := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc http %d: %s", resp.StatusCode, string(respBody))
	}
	var rr rpcResponse
	if err := json.Unmarshal(respBody, &rr); err != nil {
		return err
	}
	if rr.Error != nil {
		return rr.Error
	}
	return json.Unmarshal(rr.Result, out)
}

func (c *RPCClient) ethCall(ctx context.Context, to, data string) (string, error) {
	var result string
	err := c.call(ctx, "eth_call", []interface{}{
		map[string]string{"to": to, "data": data},
		"latest",
	}, &result)
	return result, err
}

func (c *RPCClient) TokenDecimals(ctx context.Context, token string) (int32, error) {
	out, err := c.ethCall(ctx, token, selDecimals)
	if err != nil {
		return 0, fmt.Errorf("decimals call: %w", err)
	}
	n, ok := parseHexBig(out)
	if !ok {
		return 0, fmt.Errorf("decimals: bad response %q", out)
	}
	return int32(n.Int64()), nil
}

func (c *RPCClient) BalanceOf(ctx context.Context, token, owner string) (*big.Int, error) {
	out, err := c.ethCall(ctx, token, selBalanceOf+padAddress(owner))
	if err != nil {
		return nil, fmt.Errorf("balanceOf call: %w", err)
	}
	n, ok := parseHexBig(out)
	if !ok {
		return nil, fmt.Errorf("balanceOf: bad response %q", out)
	}
	return n, nil
}

func (c *RPCClient) Transfer(ctx context.Context, token, to string, amount *big.Int) (string, error) {
	data := selTransfer + padAddress(to) + padBig(amount)
	var txHash string
	err := c.call(ctx, "eth_sendTransaction", []interface{}{
		map[string]string{"from": c.Treasury, "to": token, "data": data},
	}, &txHash)
	if err != nil {
		return "", fmt.Errorf("token transfer: %w", err)
	}
	return txHash, nil
}

type rpcLog struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	TransactionHash string   `json:"transactionHash"`
}

func (c *RPCClient) TransfersTo(ctx context.Context, token, recipient string) ([]TokenTransfer, error) {
	var logs []rpcLog
	err := c.call(ctx, "eth_getLogs", []interface{}{
		map[string]interface{}{
			"fromBlock": "0x0",
			"toBlock":   "latest",
			"address":   token,
			"topics":    []interface{}{transferTopic, nil, "0x" + padAddress(recipient)},
		},
	}, &logs)
	if err != nil {
		return nil, fmt.Errorf("getLogs: %w", err)
	}
	transfers := make([]TokenTransfer, 0, len(logs))
	for _, l := range logs {
		if len(l.Topics) < 3 {
			continue
		}
		amount, ok := parseHexBig(l.Data)
		if !ok {
			continue
		}
		transfers = append(transfers, TokenTransfer{
			Token:  strings.ToLower(l.Address),
			From:   topicAddress(l.Topics[1]),
			To:     topicAddress(l.Topics[2]),
			Amount: amount,
			TxHash: l.TransactionHash,
		})
	}
	return transfers, nil
}

// padAddress left-pads a 0x address to a 32-byte ABI word (without 0x prefix).
func padAddress(addr string) string {
	a := strings.TrimPrefix(strings.ToLower(addr), "0x")
	return strings.Repeat("0", 64-len(a)) + a
}

func padBig(n *big.Int) string {
	h := n.Text(16)
	return strings.Repeat("0", 64-len(h)) + h
}

func topicAddress(topic string) string {
	t := strings.TrimPrefix(strings.ToLower(topic), "0x")
	if len(t) < 40 {
		return "0x" + t
	}
	return "0x" + t[len(t)-40:]
}

func parseHexBig(s string) (*big.Int, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return big.NewInt(0), true
	}
	return new(big.Int).SetString(s, 16)
}
