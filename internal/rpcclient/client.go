// Package rpcclient is a JSON-RPC 2.0 client for EVM nodes: POST
// application/json with an atomic request-id counter, narrowed to the
// eth_call/eth_getLogs/eth_blockNumber/eth_getTransactionReceipt/
// eth_getBlockByNumber methods
// the indexer and registry builder need, plus a curl subprocess fallback
// for hosts where the Go HTTP client can't reach the RPC endpoint.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"sync/atomic"
	"time"
)

// Client talks JSON-RPC 2.0 to a single EVM node endpoint.
type Client struct {
	url        string
	httpClient *http.Client
	requestID  atomic.Uint64
}

// New builds a Client against rpcURL with a 12-second request timeout.
func New(rpcURL string) *Client {
	return &Client{
		url:        rpcURL,
		httpClient: &http.Client{Timeout: 12 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// Call performs a single JSON-RPC request and returns the raw result.
// On HTTP/network failure it falls back to a curl subprocess before
// declaring failure, matching the original registry builder's behavior.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("rpcclient: marshal request: %w", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		resp, err = c.postViaCurl(ctx, body)
		if err != nil {
			return nil, fmt.Errorf("rpcclient: %s failed via http and curl fallback: %w", method, err)
		}
	}

	var parsed rpcResponse
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return nil, fmt.Errorf("rpcclient: decode response for %s: %w", method, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("rpcclient: %s returned error %d: %s", method, parsed.Error.Code, parsed.Error.Message)
	}
	return parsed.Result, nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(httpResp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// postViaCurl shells out to curl when the stdlib HTTP client fails to reach
// the node, for environments that proxy outbound HTTP only through curl.
func (c *Client) postViaCurl(ctx context.Context, body []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "curl", "-sS", "--max-time", "12",
		"-H", "Content-Type: application/json",
		"-d", string(body), c.url)
	return cmd.Output()
}

// EthCall performs eth_call against `to` with ABI-encoded calldata, at the
// given block tag ("latest" unless the caller needs otherwise).
func (c *Client) EthCall(ctx context.Context, to, data, blockTag string) (string, error) {
	if blockTag == "" {
		blockTag = "latest"
	}
	params := []any{
		map[string]string{"to": to, "data": data},
		blockTag,
	}
	raw, err := c.Call(ctx, "eth_call", params)
	if err != nil {
		return "", err
	}
	var hexResult string
	if err := json.Unmarshal(raw, &hexResult); err != nil {
		return "", fmt.Errorf("rpcclient: eth_call result not a string: %w", err)
	}
	return hexResult, nil
}

// BlockNumber performs eth_blockNumber and returns the decoded height.
func (c *Client) BlockNumber(ctx context.Context) (int64, error) {
	raw, err := c.Call(ctx, "eth_blockNumber", []any{})
	if err != nil {
		return 0, err
	}
	var hexResult string
	if err := json.Unmarshal(raw, &hexResult); err != nil {
		return 0, fmt.Errorf("rpcclient: eth_blockNumber result not a string: %w", err)
	}
	return HexToInt64(hexResult), nil
}

// LogFilter mirrors the eth_getLogs filter object.
type LogFilter struct {
	FromBlock string     `json:"fromBlock"`
	ToBlock   string     `json:"toBlock"`
	Address   []string   `json:"address,omitempty"`
	Topics    [][]string `json:"topics,omitempty"`
}

// Log is a single decoded eth_getLogs entry (fields left as raw hex; the
// indexer decodes data/topics itself).
type Log struct {
	Address          string   `json:"address"`
	Topics           []string `json:"topics"`
	Data             string   `json:"data"`
	BlockNumber      string   `json:"blockNumber"`
	TransactionHash  string   `json:"transactionHash"`
	LogIndex         string   `json:"logIndex"`
}

// GetLogs performs eth_getLogs.
func (c *Client) GetLogs(ctx context.Context, filter LogFilter) ([]Log, error) {
	raw, err := c.Call(ctx, "eth_getLogs", []any{filter})
	if err != nil {
		return nil, err
	}
	var logs []Log
	if err := json.Unmarshal(raw, &logs); err != nil {
		return nil, fmt.Errorf("rpcclient: decode eth_getLogs result: %w", err)
	}
	return logs, nil
}

// Receipt is the subset of eth_getTransactionReceipt the indexer needs for
// gas cost accounting.
type Receipt struct {
	GasUsed           string `json:"gasUsed"`
	EffectiveGasPrice string `json:"effectiveGasPrice"`
}

// GetTransactionReceipt performs eth_getTransactionReceipt.
func (c *Client) GetTransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	raw, err := c.Call(ctx, "eth_getTransactionReceipt", []any{txHash})
	if err != nil {
		return nil, err
	}
	var r Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("rpcclient: decode receipt: %w", err)
	}
	return &r, nil
}

// GetBlockTimestamp performs eth_getBlockByNumber with fullTx=false and
// returns the block's timestamp.
func (c *Client) GetBlockTimestamp(ctx context.Context, blockNumberHex string) (int64, error) {
	raw, err := c.Call(ctx, "eth_getBlockByNumber", []any{blockNumberHex, false})
	if err != nil {
		return 0, err
	}
	var block struct {
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &block); err != nil {
		return 0, fmt.Errorf("rpcclient: decode block: %w", err)
	}
	return HexToInt64(block.Timestamp), nil
}
