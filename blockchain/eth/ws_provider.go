package eth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/astranet-network/gateway/blockchain"
	"github.com/astranet-network/gateway/metrics"
	"github.com/astranet-network/gateway/rpc"
	"github.com/astranet-network/gateway/utils"
)

var validRPCCallPayloadFields = []string{"data", "from", "to", "gasPrice", "gas", "address", "pos"}

var validRPCCallMethods = []string{"eth_call", "eth_getBalance", "eth_getTransactionCount", "eth_getCode", "eth_getStorageAt", "eth_blockNumber"}

var commandMethodsToRequiredPayloadFields = map[string][]string{
	"eth_call":                {"data"},
	"eth_getBalance":          {"address"},
	"eth_getTransactionCount": {"address"},
	"eth_getCode":             {"address"},
	"eth_getStorageAt":        {"address", "pos"},
	"eth_blockNumber":         {},
}

// WSProvider implements the blockchain.WSProvider interface for Ethereum nodes
type WSProvider struct {
	provider *rpc.Provider
	clock    utils.Clock
}

// NewWSProvider - returns a new instance of WSProvider
func NewWSProvider(ethWSUri string) blockchain.WSProvider {
	return &WSProvider{
		provider: rpc.NewProvider(ethWSUri),
		clock:    utils.RealClock{},
	}
}

// Dial establishes the websocket connection to the node
func (ws *WSProvider) Dial(ctx context.Context) error {
	return ws.provider.Dial(ctx)
}

// Reconnect drops the current connection and redials until it succeeds
func (ws *WSProvider) Reconnect(ctx context.Context) error {
	return ws.provider.Reconnect(ctx)
}

// Close terminates the websocket connection
func (ws *WSProvider) Close() error {
	return ws.provider.Close()
}

// Addr returns the websocket connection address
func (ws *WSProvider) Addr() string { return ws.provider.Addr() }

// IsOpen indicates whether the websocket connection is active
func (ws *WSProvider) IsOpen() bool { return ws.provider.IsOpen() }

// Subscribe subscribes to an Ethereum feed and returns the subscription ID
func (ws *WSProvider) Subscribe(ctx context.Context, feedName string, args ...interface{}) (string, error) {
	return ws.provider.Subscribe(ctx, feedName, args...)
}

// Unsubscribe closes the Ethereum subscription
func (ws *WSProvider) Unsubscribe(ctx context.Context, subscriptionID string) error {
	return ws.provider.Unsubscribe(ctx, subscriptionID)
}

// NextSubscriptionNotification blocks until the next notification for the subscription arrives
func (ws *WSProvider) NextSubscriptionNotification(ctx context.Context, subscriptionID string) (json.RawMessage, error) {
	return ws.provider.GetNextSubscriptionNotificationByID(ctx, subscriptionID)
}

// NextSubscriptionNotificationTimeout is like NextSubscriptionNotification, but gives up after the timeout
func (ws *WSProvider) NextSubscriptionNotificationTimeout(subscriptionID string, timeout time.Duration) (json.RawMessage, error) {
	return ws.provider.GetNextSubscriptionNotificationByIDTimeout(subscriptionID, timeout)
}

// CallRPC - executes Ethereum RPC calls, retrying when the node has not caught
// up to the requested block yet
func (ws *WSProvider) CallRPC(ctx context.Context, method string, payload []interface{}, options blockchain.RPCOptions) (interface{}, error) {
	var (
		response interface{}
		err      error
	)
	for retries := 0; retries < options.RetryAttempts; retries++ {
		response, err = ws.callRPCOnce(ctx, method, payload)
		if errors.Is(err, rpc.ErrConnectionClosed) {
			break
		}
		if (err != nil && strings.Contains(err.Error(), "header not found")) || response == nil {
			ws.clock.Sleep(options.RetryInterval)
			continue
		}
		break
	}
	if err != nil {
		metrics.IncrNodeCallFailure(ws.Addr(), method)
	}
	return response, err
}

func (ws *WSProvider) callRPCOnce(ctx context.Context, method string, payload []interface{}) (interface{}, error) {
	result, err := ws.provider.Call(ctx, method, payload)
	if err != nil {
		return nil, err
	}

	var response interface{}
	if err = json.Unmarshal(result, &response); err != nil {
		return nil, fmt.Errorf("unexpected %v result %v: %v", method, string(result), err)
	}
	return response, nil
}

// SendTransaction sends signed transaction in payload to node via CallRPC
func (ws *WSProvider) SendTransaction(ctx context.Context, rawTx string, options blockchain.RPCOptions) (interface{}, error) {
	return ws.CallRPC(ctx, "eth_sendRawTransaction", []interface{}{rawTx}, options)
}

// FetchTransactionReceipt fetches transaction receipt via CallRPC
func (ws *WSProvider) FetchTransactionReceipt(ctx context.Context, payload []interface{}, options blockchain.RPCOptions) (interface{}, error) {
	return ws.CallRPC(ctx, "eth_getTransactionReceipt", payload, options)
}

// FetchTransaction check status of a transaction via CallRPC
func (ws *WSProvider) FetchTransaction(ctx context.Context, payload []interface{}, options blockchain.RPCOptions) (interface{}, error) {
	return ws.CallRPC(ctx, "eth_getTransactionByHash", payload, options)
}

// FetchBlock query a block given height via CallRPC
func (ws *WSProvider) FetchBlock(ctx context.Context, payload []interface{}, options blockchain.RPCOptions) (interface{}, error) {
	return ws.CallRPC(ctx, "eth_getBlockByNumber", payload, options)
}

// ValidRPCCallMethods returns the valid RPC methods for eth_onBlock calls
func (ws *WSProvider) ValidRPCCallMethods() []string {
	return validRPCCallMethods
}

// ValidRPCCallPayloadFields returns the valid payload fields for eth_onBlock calls
func (ws *WSProvider) ValidRPCCallPayloadFields() []string {
	return validRPCCallPayloadFields
}

// RequiredPayloadFieldsForRPCMethod returns the payload fields a method cannot be called without
func (ws *WSProvider) RequiredPayloadFieldsForRPCMethod(method string) ([]string, bool) {
	requiredFields, ok := commandMethodsToRequiredPayloadFields[method]
	return requiredFields, ok
}

// ConstructRPCCallPayload builds the parameter list for an eth_onBlock RPC call
func (ws *WSProvider) ConstructRPCCallPayload(method string, callParams map[string]string, tag string) ([]interface{}, error) {
	switch method {
	case "eth_call":
		payload := []interface{}{callParams, tag}
		return payload, nil
	case "eth_blockNumber":
		return []interface{}{}, nil
	case "eth_getStorageAt":
		payload := []interface{}{callParams["address"], callParams["pos"], tag}
		return payload, nil
	case "eth_getBalance", "eth_getCode", "eth_getTransactionCount":
		payload := []interface{}{callParams["address"], tag}
		return payload, nil
	default:
		return nil, fmt.Errorf("unexpectedly, unhandled method %v", method)
	}
}
