package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// RPC error codes with a sentinel mapping.
const (
	rpcInvalidAddressOrKey = -5  // No such mempool or blockchain transaction
	rpcVerifyRejected      = -26 // Transaction rejected by network rules
	rpcVerifyAlreadyInMem  = -27 // Transaction already in block chain
)

// DefaultRPCTimeout bounds a single JSON-RPC round trip.
const DefaultRPCTimeout = 30 * time.Second

// RPCClient talks JSON-RPC 1.0 to a bitcoind-compatible node (BSV or BCH).
type RPCClient struct {
	url    string
	user   string
	pass   string
	client *http.Client
	nextID atomic.Int64
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is an error reported by the node itself.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("network: rpc error %d: %s", e.Code, e.Message)
}

// Unwrap maps well-known node error codes onto package sentinels.
func (e *RPCError) Unwrap() error {
	switch e.Code {
	case rpcInvalidAddressOrKey:
		return ErrTxNotFound
	case rpcVerifyRejected:
		return ErrBroadcastRejected
	}
	return nil
}

// NewRPCClient returns a client for cfg. A zero cfg.Timeout selects DefaultRPCTimeout.
func NewRPCClient(cfg RPCConfig) *RPCClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRPCTimeout
	}
	return &RPCClient{
		url:  cfg.URL,
		user: cfg.User,
		pass: cfg.Password,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// Call invokes method and decodes its result into result, which may be nil.
//
// Transport failures wrap ErrConnectionFailed and undecodable replies wrap
// ErrInvalidResponse. Errors reported by the node are returned as *RPCError.
func (c *RPCClient) Call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	reqBody := rpcRequest{
		JSONRPC: "1.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("network: marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("network: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// bitcoind answers RPC errors with HTTP 500 and a JSON body.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: HTTP %d: check RPC credentials", ErrConnectionFailed, resp.StatusCode)
	}

	var rpcResp rpcResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 32<<20)).Decode(&rpcResp)
	if decodeErr != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("%w: HTTP %d", ErrConnectionFailed, resp.StatusCode)
		}
		return fmt.Errorf("%w: decode %s response: %w", ErrInvalidResponse, method, decodeErr)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if rpcResp.ID != reqBody.ID {
		return fmt.Errorf("%w: response id %d, want %d", ErrInvalidResponse, rpcResp.ID, reqBody.ID)
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("%w: unmarshal %s result: %w", ErrInvalidResponse, method, err)
		}
	}
	return nil
}

// isRPCCode reports whether err is a node error with code.
func isRPCCode(err error, code int) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == code
}
