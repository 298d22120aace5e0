package bxmock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/astranet-network/gateway/blockchain"
)

// MockWSProvider is a dummy struct that implements blockchain.WSProvider
type MockWSProvider struct {
	lock sync.Mutex

	// Receipt is returned from FetchTransactionReceipt calls
	Receipt map[string]interface{}

	// CallResponse is returned from CallRPC calls
	CallResponse interface{}

	// CallErr fails CallRPC calls when set
	CallErr error

	calledMethods []string
}

// NewMockWSProvider returns a new MockWSProvider
func NewMockWSProvider() *MockWSProvider {
	return &MockWSProvider{
		CallResponse: "response",
	}
}

// Dial is a no-op
func (m *MockWSProvider) Dial(ctx context.Context) error { return nil }

// Reconnect is a no-op
func (m *MockWSProvider) Reconnect(ctx context.Context) error { return nil }

// Close is a no-op
func (m *MockWSProvider) Close() error { return nil }

// Addr returns a fake address
func (m *MockWSProvider) Addr() string { return "ws://123.45.67.8:8546" }

// IsOpen always indicates an active connection
func (m *MockWSProvider) IsOpen() bool { return true }

// Subscribe returns a dummy subscription ID
func (m *MockWSProvider) Subscribe(ctx context.Context, feedName string, args ...interface{}) (string, error) {
	return "0x1", nil
}

// Unsubscribe is a no-op
func (m *MockWSProvider) Unsubscribe(ctx context.Context, subscriptionID string) error { return nil }

// NextSubscriptionNotification blocks until the context expires
func (m *MockWSProvider) NextSubscriptionNotification(ctx context.Context, subscriptionID string) (json.RawMessage, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// NextSubscriptionNotificationTimeout waits out the timeout
func (m *MockWSProvider) NextSubscriptionNotificationTimeout(subscriptionID string, timeout time.Duration) (json.RawMessage, error) {
	time.Sleep(timeout)
	return nil, fmt.Errorf("no new notification was received within the timeout")
}

// CallRPC returns the configured response, recording the called method
func (m *MockWSProvider) CallRPC(ctx context.Context, method string, payload []interface{}, options blockchain.RPCOptions) (interface{}, error) {
	m.lock.Lock()
	m.calledMethods = append(m.calledMethods, method)
	m.lock.Unlock()

	if m.CallErr != nil {
		return nil, m.CallErr
	}
	return m.CallResponse, nil
}

// CalledMethods returns the RPC methods called so far
func (m *MockWSProvider) CalledMethods() []string {
	m.lock.Lock()
	defer m.lock.Unlock()

	methods := make([]string, len(m.calledMethods))
	copy(methods, m.calledMethods)
	return methods
}

// SendTransaction returns a fake response with no error
func (m *MockWSProvider) SendTransaction(ctx context.Context, rawTx string, options blockchain.RPCOptions) (interface{}, error) {
	return m.CallRPC(ctx, "eth_sendRawTransaction", []interface{}{rawTx}, options)
}

// FetchTransactionReceipt returns the configured receipt
func (m *MockWSProvider) FetchTransactionReceipt(ctx context.Context, payload []interface{}, options blockchain.RPCOptions) (interface{}, error) {
	m.lock.Lock()
	m.calledMethods = append(m.calledMethods, "eth_getTransactionReceipt")
	m.lock.Unlock()

	if m.Receipt == nil {
		return nil, fmt.Errorf("no receipt configured")
	}
	return m.Receipt, nil
}

// FetchTransaction returns a fake response with no error
func (m *MockWSProvider) FetchTransaction(ctx context.Context, payload []interface{}, options blockchain.RPCOptions) (interface{}, error) {
	return m.CallRPC(ctx, "eth_getTransactionByHash", payload, options)
}

// FetchBlock returns a fake response with no error
func (m *MockWSProvider) FetchBlock(ctx context.Context, payload []interface{}, options blockchain.RPCOptions) (interface{}, error) {
	return m.CallRPC(ctx, "eth_getBlockByNumber", payload, options)
}

// ValidRPCCallMethods returns the eth methods accepted for onBlock calls
func (m *MockWSProvider) ValidRPCCallMethods() []string {
	return []string{"eth_call", "eth_getBalance", "eth_blockNumber"}
}

// ValidRPCCallPayloadFields returns the payload fields accepted for onBlock calls
func (m *MockWSProvider) ValidRPCCallPayloadFields() []string {
	return []string{"data", "from", "to", "gasPrice", "gas", "address", "pos"}
}

// RequiredPayloadFieldsForRPCMethod returns the required payload fields per method
func (m *MockWSProvider) RequiredPayloadFieldsForRPCMethod(method string) ([]string, bool) {
	switch method {
	case "eth_call":
		return []string{"data"}, true
	case "eth_getBalance":
		return []string{"address"}, true
	case "eth_blockNumber":
		return []string{}, true
	}
	return nil, false
}

// ConstructRPCCallPayload builds a minimal payload for the mocked methods
func (m *MockWSProvider) ConstructRPCCallPayload(method string, callParams map[string]string, tag string) ([]interface{}, error) {
	switch method {
	case "eth_call":
		return []interface{}{callParams, tag}, nil
	case "eth_getBalance":
		return []interface{}{callParams["address"], tag}, nil
	case "eth_blockNumber":
		return []interface{}{}, nil
	}
	return nil, fmt.Errorf("unexpectedly, unhandled method %v", method)
}
