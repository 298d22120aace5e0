package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// RPCRequestType represents the JSON-RPC methods that are callable
type RPCRequestType string

// RPCRequestType enumeration
const (
	RPCSubscribe   RPCRequestType = "subscribe"
	RPCUnsubscribe RPCRequestType = "unsubscribe"
	RPCTx          RPCRequestType = "blxr_tx"
	RPCPing        RPCRequestType = "ping"
)

// Request represents a JSON-RPC request sent over a websocket connection
type Request struct {
	ID      string      `json:"id"`
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// NewRequest returns a JSON-RPC 2.0 request
func NewRequest(id string, method string, params interface{}) *Request {
	return &Request{
		ID:      id,
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	}
}

// Response represents a JSON-RPC response or subscription notification received over a websocket connection
type Response struct {
	ID      string          `json:"id,omitempty"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// SubscriptionParams is the params member of subscription notifications
type SubscriptionParams struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

// RPCError represents a JSON-RPC error object included in failed responses
type RPCError struct {
	Code    RPCErrorCode `json:"code"`
	Message string       `json:"message"`
	Data    interface{}  `json:"data,omitempty"`
}

// Error implements the error interface
func (e *RPCError) Error() string {
	return fmt.Sprintf("code: %v, message: %v, data: %v", e.Code, e.Message, e.Data)
}

// RPCTxPayload is the payload of blxr_tx requests
type RPCTxPayload struct {
	Transaction string `json:"transaction"`
}

type rpcTxJSON struct {
	Transaction string `json:"transaction"`
}

// UnmarshalJSON provides a compatibility layer for go-ethereum style RPC calls, which are [object], instead of just object.
func (p *RPCTxPayload) UnmarshalJSON(b []byte) error {
	var payload rpcTxJSON

	err := json.Unmarshal(b, &payload)
	if err != nil {
		var compatPayload []rpcTxJSON
		err = json.Unmarshal(b, &compatPayload)
		if err != nil {
			return err
		}

		if len(compatPayload) != 1 {
			return fmt.Errorf("could not deserialize blxr_tx %v", string(b))
		}

		payload = compatPayload[0]
	}

	p.Transaction = payload.Transaction

	return nil
}
