package blockchain

import (
	"context"
	"encoding/json"
	"time"
)

// RPCOptions provides options to customize RPC calls made through WSProvider.CallRPC
type RPCOptions struct {
	RetryAttempts int
	RetryInterval time.Duration
}

// DefaultRPCOptions - provides default options for CallRPC
var DefaultRPCOptions = RPCOptions{RetryAttempts: 5, RetryInterval: 10 * time.Millisecond}

// WSProvider provides an interface to interact with a blockchain node via websocket RPC
type WSProvider interface {
	Dial(ctx context.Context) error
	Reconnect(ctx context.Context) error
	Close() error
	Addr() string
	IsOpen() bool

	Subscribe(ctx context.Context, feedName string, args ...interface{}) (string, error)
	Unsubscribe(ctx context.Context, subscriptionID string) error
	NextSubscriptionNotification(ctx context.Context, subscriptionID string) (json.RawMessage, error)
	NextSubscriptionNotificationTimeout(subscriptionID string, timeout time.Duration) (json.RawMessage, error)

	CallRPC(ctx context.Context, method string, payload []interface{}, options RPCOptions) (interface{}, error)
	FetchTransaction(ctx context.Context, payload []interface{}, options RPCOptions) (interface{}, error)
	FetchTransactionReceipt(ctx context.Context, payload []interface{}, options RPCOptions) (interface{}, error)
	FetchBlock(ctx context.Context, payload []interface{}, options RPCOptions) (interface{}, error)
	SendTransaction(ctx context.Context, rawTx string, options RPCOptions) (interface{}, error)

	ValidRPCCallMethods() []string
	ValidRPCCallPayloadFields() []string
	RequiredPayloadFieldsForRPCMethod(method string) ([]string, bool)
	ConstructRPCCallPayload(method string, callParams map[string]string, tag string) ([]interface{}, error)
}
