package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/astranet-network/gateway/jsonrpc"
)

var upgrader = websocket.Upgrader{}

func wsTestServer(t *testing.T, handler func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(conn)
	}))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func dialProvider(t *testing.T, server *httptest.Server) *Provider {
	t.Helper()

	provider := NewProvider(wsURL(server))
	require.NoError(t, provider.Dial(context.Background()))
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func writeResult(conn *websocket.Conn, id string, result string) error {
	return conn.WriteJSON(jsonrpc.Response{
		ID:      id,
		JSONRPC: "2.0",
		Result:  json.RawMessage(result),
	})
}

func writeNotification(conn *websocket.Conn, subscriptionID string, result string) error {
	params, _ := json.Marshal(jsonrpc.SubscriptionParams{
		Subscription: subscriptionID,
		Result:       json.RawMessage(result),
	})
	return conn.WriteJSON(jsonrpc.Response{
		JSONRPC: "2.0",
		Method:  "eth_subscription",
		Params:  params,
	})
}

func TestProviderCorrelatesOutOfOrderResponses(t *testing.T) {
	server := wsTestServer(t, func(conn *websocket.Conn) {
		requests := make([]jsonrpc.Request, 2)
		for i := range requests {
			if err := conn.ReadJSON(&requests[i]); err != nil {
				return
			}
		}
		// answer in reverse order, echoing the method name
		for i := len(requests) - 1; i >= 0; i-- {
			_ = writeResult(conn, requests[i].ID, fmt.Sprintf("%q", requests[i].Method))
		}
	})

	provider := dialProvider(t, server)

	var eg errgroup.Group
	for _, method := range []string{"test_first", "test_second"} {
		method := method
		eg.Go(func() error {
			result, err := provider.Call(context.Background(), method, nil)
			if err != nil {
				return err
			}
			if string(result) != fmt.Sprintf("%q", method) {
				return fmt.Errorf("response %v does not match request %v", string(result), method)
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())
}

func TestProviderCallRPCError(t *testing.T) {
	server := wsTestServer(t, func(conn *websocket.Conn) {
		var request jsonrpc.Request
		if err := conn.ReadJSON(&request); err != nil {
			return
		}
		_ = conn.WriteJSON(jsonrpc.Response{
			ID:      request.ID,
			JSONRPC: "2.0",
			Error: &jsonrpc.RPCError{
				Code:    jsonrpc.MethodNotFound,
				Message: "Invalid method",
			},
		})
	})

	provider := dialProvider(t, server)

	_, err := provider.Call(context.Background(), "bad_method", nil)
	var rpcErr *jsonrpc.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, jsonrpc.MethodNotFound, rpcErr.Code)
}

func TestProviderSubscription(t *testing.T) {
	server := wsTestServer(t, func(conn *websocket.Conn) {
		var request jsonrpc.Request
		if err := conn.ReadJSON(&request); err != nil {
			return
		}
		_ = writeResult(conn, request.ID, `"0xabc"`)
		_ = writeNotification(conn, "0xabc", `"0x01"`)
		_ = writeNotification(conn, "0xabc", `"0x02"`)

		// hold the connection open
		_, _, _ = conn.ReadMessage()
	})

	provider := dialProvider(t, server)

	subscriptionID, err := provider.Subscribe(context.Background(), "newPendingTransactions")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", subscriptionID)

	first, err := provider.GetNextSubscriptionNotificationByIDTimeout(subscriptionID, time.Second)
	require.NoError(t, err)
	assert.Equal(t, `"0x01"`, string(first))

	second, err := provider.GetNextSubscriptionNotificationByID(context.Background(), subscriptionID)
	require.NoError(t, err)
	assert.Equal(t, `"0x02"`, string(second))

	_, err = provider.GetNextSubscriptionNotificationByIDTimeout(subscriptionID, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrSubscriptionTimeout)

	_, err = provider.GetNextSubscriptionNotificationByIDTimeout("0xdef", time.Second)
	assert.Error(t, err)
}

func TestProviderConnectionClosed(t *testing.T) {
	accepted := make(chan struct{}, 2)
	server := wsTestServer(t, func(conn *websocket.Conn) {
		accepted <- struct{}{}
		var request jsonrpc.Request
		if err := conn.ReadJSON(&request); err != nil {
			return
		}
		// drop the connection instead of responding
		_ = conn.Close()
	})

	provider := dialProvider(t, server)
	<-accepted

	_, err := provider.Call(context.Background(), "test_call", nil)
	assert.ErrorIs(t, err, ErrConnectionClosed)

	assert.Eventually(t, func() bool { return !provider.IsOpen() }, time.Second, 10*time.Millisecond)
	_, err = provider.Call(context.Background(), "test_call", nil)
	assert.ErrorIs(t, err, ErrConnectionClosed)

	require.NoError(t, provider.Reconnect(context.Background()))
	<-accepted
	assert.True(t, provider.IsOpen())
}

func TestProviderCloseReleasesWaiters(t *testing.T) {
	server := wsTestServer(t, func(conn *websocket.Conn) {
		var request jsonrpc.Request
		if err := conn.ReadJSON(&request); err != nil {
			return
		}
		_ = writeResult(conn, request.ID, `"0xabc"`)
		_, _, _ = conn.ReadMessage()
	})

	provider := dialProvider(t, server)

	subscriptionID, err := provider.Subscribe(context.Background(), "newHeads")
	require.NoError(t, err)

	waitErr := make(chan error, 1)
	go func() {
		_, err := provider.GetNextSubscriptionNotificationByID(context.Background(), subscriptionID)
		waitErr <- err
	}()

	require.NoError(t, provider.Close())

	select {
	case err := <-waitErr:
		assert.ErrorIs(t, err, ErrConnectionClosed)
	case <-time.After(time.Second):
		require.Fail(t, "notification waiter was not released")
	}
}
