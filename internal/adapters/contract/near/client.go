// Package near talks to the poll contract deployed on a NEAR network.
package near

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

// Client is a NEAR JSON-RPC client bound to one contract account. View calls
// go to the node; change calls are handed to a relayer that signs them for
// the session account.
type Client struct {
	nodeURL    string
	relayerURL string
	contract   string
	httpClient *http.Client
}

type Config struct {
	NodeURL      string
	RelayerURL   string
	ContractName string
	Timeout      time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.NodeURL == "" {
		return nil, errors.New("node RPC URL required")
	}
	if cfg.ContractName == "" {
		return nil, errors.New("contract name required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		nodeURL:    cfg.NodeURL,
		relayerURL: cfg.RelayerURL,
		contract:   cfg.ContractName,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

var _ ports.ContractClient = (*Client)(nil)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Name    string          `json:"name"`
	Data    json.RawMessage `json:"data"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type callFunctionResult struct {
	Result []int  `json:"result"`
	Error  string `json:"error"`
}

// View runs a read-only contract method at final finality and returns its
// JSON result. An empty result is returned as null.
func (c *Client) View(ctx context.Context, method string, args any) (json.RawMessage, error) {
	encoded, err := encodeArgs(args)
	if err != nil {
		return nil, err
	}

	result, err := c.rpc(ctx, "query", map[string]string{
		"request_type": "call_function",
		"finality":     "final",
		"account_id":   c.contract,
		"method_name":  method,
		"args_base64":  base64.StdEncoding.EncodeToString(encoded),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to view %s: %w", method, err)
	}

	var out callFunctionResult
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrCallFailed, method, out.Error)
	}

	payload := make([]byte, len(out.Result))
	for i, b := range out.Result {
		if b < 0 || b > 255 {
			return nil, fmt.Errorf("%w: %s returned a malformed byte array", domain.ErrCallFailed, method)
		}
		payload[i] = byte(b)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return json.RawMessage("null"), nil
	}
	return payload, nil
}

// AccessKey returns the permission accountID granted to publicKey.
func (c *Client) AccessKey(ctx context.Context, accountID, publicKey string) (ports.AccessKey, error) {
	result, err := c.rpc(ctx, "query", map[string]string{
		"request_type": "view_access_key",
		"finality":     "final",
		"account_id":   accountID,
		"public_key":   publicKey,
	})
	if err != nil {
		return ports.AccessKey{}, fmt.Errorf("failed to view access key: %w", err)
	}

	var out struct {
		Error      string          `json:"error"`
		Permission json.RawMessage `json:"permission"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return ports.AccessKey{}, fmt.Errorf("failed to decode access key: %w", err)
	}
	if out.Error != "" || len(out.Permission) == 0 {
		return ports.AccessKey{}, fmt.Errorf("%w: no access key %s for %s", domain.ErrInvalidAccountID, publicKey, accountID)
	}

	var full string
	if err := json.Unmarshal(out.Permission, &full); err == nil {
		if full != "FullAccess" {
			return ports.AccessKey{}, fmt.Errorf("%w: unknown permission %q", domain.ErrInvalidAccountID, full)
		}
		return ports.AccessKey{FullAccess: true}, nil
	}

	var perm struct {
		FunctionCall *struct {
			ReceiverID string `json:"receiver_id"`
		} `json:"FunctionCall"`
	}
	if err := json.Unmarshal(out.Permission, &perm); err != nil || perm.FunctionCall == nil {
		return ports.AccessKey{}, fmt.Errorf("%w: unknown permission %s", domain.ErrInvalidAccountID, out.Permission)
	}
	return ports.AccessKey{ReceiverID: perm.FunctionCall.ReceiverID}, nil
}

type relayRequest struct {
	SignerID   string          `json:"signer_id"`
	ReceiverID string          `json:"receiver_id"`
	MethodName string          `json:"method_name"`
	Args       json.RawMessage `json:"args"`
	Gas        string          `json:"gas"`
	Deposit    string          `json:"deposit"`
}

type executionOutcome struct {
	Status struct {
		SuccessValue *string         `json:"SuccessValue"`
		Failure      json.RawMessage `json:"Failure"`
	} `json:"status"`
}

// Call hands a change call to the relayer and returns the decoded
// SuccessValue of the final execution outcome.
func (c *Client) Call(ctx context.Context, call ports.ChangeCall) (json.RawMessage, error) {
	if c.relayerURL == "" {
		return nil, domain.ErrChangeUnavailable
	}
	if call.Signer == "" {
		return nil, domain.ErrNotSignedIn
	}

	args, err := encodeArgs(call.Args)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(relayRequest{
		SignerID:   call.Signer,
		ReceiverID: c.contract,
		MethodName: call.Method,
		Args:       args,
		Gas:        strconv.FormatUint(call.Gas, 10),
		Deposit:    "0",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode relay request: %w", err)
	}

	respBody, err := c.post(ctx, c.relayerURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to relay %s: %w", call.Method, err)
	}

	var outcome executionOutcome
	if err := json.Unmarshal(respBody, &outcome); err != nil {
		return nil, fmt.Errorf("failed to decode %s outcome: %w", call.Method, err)
	}
	if len(outcome.Status.Failure) > 0 && string(outcome.Status.Failure) != "null" {
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrCallFailed, call.Method, outcome.Status.Failure)
	}
	if outcome.Status.SuccessValue == nil {
		return nil, fmt.Errorf("%w: %s has no success value", domain.ErrCallFailed, call.Method)
	}

	value, err := base64.StdEncoding.DecodeString(*outcome.Status.SuccessValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %s success value: %v", domain.ErrCallFailed, call.Method, err)
	}
	if len(value) == 0 {
		return json.RawMessage("null"), nil
	}
	return value, nil
}

func (c *Client) rpc(ctx context.Context, method string, params any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      "near-poll",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.post(ctx, c.nodeURL, body)
	if err != nil {
		return nil, err
	}

	var resp rpcResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: http %d: %s", domain.ErrCallFailed, resp.StatusCode, bytes.TrimSpace(respBody))
	}
	return respBody, nil
}

func encodeArgs(args any) ([]byte, error) {
	if args == nil {
		return []byte("{}"), nil
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode args: %w", err)
	}
	return encoded, nil
}
