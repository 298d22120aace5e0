package servers

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	astragateway "github.com/astranet-network/gateway"
	"github.com/astranet-network/gateway/services/feed"
	"github.com/astranet-network/gateway/test/bxmock"
	"github.com/astranet-network/gateway/types"
)

const testNetworkNum = types.NetworkNum(1)

type serverFixture struct {
	feeds      *feed.Manager
	nodeWS     *bxmock.MockWSProvider
	txListener *bxmock.MockTxListener
	ws         *websocket.Conn
}

func newServerFixture(t *testing.T, withNode bool) serverFixture {
	t.Helper()

	feeds := feed.NewManager()
	for _, feedName := range availableFeeds {
		require.NoError(t, feeds.RegisterFeed(feed.NewFeed(feedName, testNetworkNum)))
	}

	nodeWS := bxmock.NewMockWSProvider()
	txListener := bxmock.NewMockTxListener()

	server := NewWSServer("", 0, feeds, nodeWS, txListener, testNetworkNum)
	if !withNode {
		server.nodeWS = nil
	}

	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	return serverFixture{
		feeds:      feeds,
		nodeWS:     nodeWS,
		txListener: txListener,
		ws:         ws,
	}
}

type clientResponse struct {
	Jsonrpc string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Result  interface{} `json:"result"`
	Error   *struct {
		Code    int64  `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type subscriptionMessage struct {
	Method string `json:"method"`
	Params struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

func writeMsgToWsAndReadResponse(t *testing.T, conn *websocket.Conn, msg []byte) (response []byte) {
	t.Helper()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))
	_, response, err := conn.ReadMessage()
	require.NoError(t, err)
	return response
}

func getClientResponse(t *testing.T, msg []byte) (cr clientResponse) {
	t.Helper()

	res := clientResponse{}
	require.NoError(t, json.Unmarshal(msg, &res))
	return res
}

func readSubscriptionMessage(t *testing.T, conn *websocket.Conn) subscriptionMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	msg := subscriptionMessage{}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "subscribe", msg.Method)
	return msg
}

func assertNoSubscriptionMessage(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, raw, err := conn.ReadMessage()
	require.Error(t, err, "unexpected message %s", raw)
	require.NoError(t, conn.SetReadDeadline(time.Time{}))
}

func subscribe(t *testing.T, fixture serverFixture, params string) string {
	t.Helper()

	request := fmt.Sprintf(`{"id": "1", "method": "subscribe", "params": %v}`, params)
	response := getClientResponse(t, writeMsgToWsAndReadResponse(t, fixture.ws, []byte(request)))
	require.Nil(t, response.Error)

	subscriptionID, ok := response.Result.(string)
	require.True(t, ok, "unexpected subscribe result %v", response.Result)
	require.True(t, fixture.feeds.SubscriptionExists(subscriptionID))
	return subscriptionID
}

func txNotification(t *testing.T, nonce uint64) *types.NewTransactionNotification {
	t.Helper()

	_, bxTx := bxmock.NewBxTransaction(ethtypes.LegacyTxType, nonce, testNetworkNum, types.TFLocalRegion)
	notification := types.CreateNewTransactionNotification(bxTx)
	require.NoError(t, notification.MakeBlockchainTransaction())
	return notification
}

func blockNotification(feedName types.FeedType, height int64, txHashes ...string) *types.BlockNotification {
	header := &ethtypes.Header{
		Number:     big.NewInt(height),
		Difficulty: big.NewInt(2),
		Extra:      []byte{},
	}

	notification := &types.BlockNotification{
		BlockHash: header.Hash(),
		Header:    types.ConvertEthHeaderToBlockNotificationHeader(header),
	}
	for _, txHash := range txHashes {
		notification.Transactions = append(notification.Transactions, map[string]interface{}{"hash": txHash})
	}
	notification.SetNotificationType(feedName)
	return notification
}

func TestPingRequest(t *testing.T) {
	fixture := newServerFixture(t, true)

	timeClientSendsRequest := time.Now().UTC()
	response := getClientResponse(t, writeMsgToWsAndReadResponse(t, fixture.ws, []byte(`{"id": "1", "method": "ping"}`)))
	timeClientReceivesResponse := time.Now().UTC()
	require.Nil(t, response.Error)

	result, err := json.Marshal(response.Result)
	require.NoError(t, err)
	pingResponse := rpcPingResponse{}
	require.NoError(t, json.Unmarshal(result, &pingResponse))

	timeServerReceivesRequest, err := time.Parse(astragateway.MicroSecTimeFormat, pingResponse.Pong)
	require.NoError(t, err)
	assert.True(t, timeClientReceivesResponse.After(timeServerReceivesRequest))
	assert.True(t, timeServerReceivesRequest.After(timeClientSendsRequest))
}

func TestUnsupportedMethod(t *testing.T) {
	fixture := newServerFixture(t, true)

	response := getClientResponse(t, writeMsgToWsAndReadResponse(t, fixture.ws, []byte(`{"id": "1", "method": "eth_getWork"}`)))
	require.NotNil(t, response.Error)
	assert.Equal(t, int64(-32601), response.Error.Code)
}

func TestBlxrTxRequest(t *testing.T) {
	for _, txType := range []uint8{ethtypes.LegacyTxType, ethtypes.AccessListTxType, ethtypes.DynamicFeeTxType} {
		fixture := newServerFixture(t, true)

		ethTx := bxmock.NewSignedEthTx(txType, 1, nil)
		rawTx, err := ethTx.MarshalBinary()
		require.NoError(t, err)

		request := fmt.Sprintf(`{"id": "1", "method": "blxr_tx", "params": {"transaction": "%v"}}`, hex.EncodeToString(rawTx))
		response := getClientResponse(t, writeMsgToWsAndReadResponse(t, fixture.ws, []byte(request)))
		require.Nil(t, response.Error)

		result, err := json.Marshal(response.Result)
		require.NoError(t, err)
		txResponse := rpcTxResponse{}
		require.NoError(t, json.Unmarshal(result, &txResponse))
		assert.Equal(t, ethTx.Hash().Hex()[2:], txResponse.TxHash)

		txs := fixture.txListener.Txs()
		require.Len(t, txs, 1)
		assert.Equal(t, ethTx.Hash().Hex()[2:], txs[0].Hash().String())
		assert.True(t, txs[0].Flags().ShouldDeliverToNode())
		assert.True(t, txs[0].HasContent())
	}
}

func TestBlxrTxInvalidTransaction(t *testing.T) {
	fixture := newServerFixture(t, true)

	response := getClientResponse(t, writeMsgToWsAndReadResponse(t, fixture.ws, []byte(`{"id": "1", "method": "blxr_tx", "params": {"transaction": "zzzz"}}`)))
	require.NotNil(t, response.Error)
	assert.Equal(t, int64(-32602), response.Error.Code)
	assert.Empty(t, fixture.txListener.Txs())
}

func TestSubscribeNewTxs(t *testing.T) {
	fixture := newServerFixture(t, true)

	subscriptionID := subscribe(t, fixture, `["newTxs", {"include": ["tx_hash", "local_region"]}]`)

	notification := txNotification(t, 1)
	fixture.feeds.Notify(testNetworkNum, notification)

	msg := readSubscriptionMessage(t, fixture.ws)
	assert.Equal(t, subscriptionID, msg.Params.Subscription)

	txResult := TxResult{}
	require.NoError(t, json.Unmarshal(msg.Params.Result, &txResult))
	require.NotNil(t, txResult.TxHash)
	assert.Equal(t, notification.GetHash(), *txResult.TxHash)
	require.NotNil(t, txResult.LocalRegion)
	assert.True(t, *txResult.LocalRegion)
	assert.Nil(t, txResult.Time)
}

func TestSubscribeNewTxsWithContents(t *testing.T) {
	fixture := newServerFixture(t, true)

	subscribe(t, fixture, `["newTxs", {"include": ["tx_contents"]}]`)

	fixture.feeds.Notify(testNetworkNum, txNotification(t, 1))

	msg := readSubscriptionMessage(t, fixture.ws)
	var txResult map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Params.Result, &txResult))
	contents, ok := txResult["txContents"].(map[string]interface{})
	require.True(t, ok, "missing txContents in %v", txResult)
	assert.Contains(t, contents, "gasPrice")
	assert.Contains(t, contents, "to")
}

func TestSubscribeNewTxsWithFilters(t *testing.T) {
	fixture := newServerFixture(t, true)

	matching := subscribe(t, fixture, `["newTxs", {"include": ["tx_hash"], "filters": "value = 1"}]`)
	fixture.feeds.Notify(testNetworkNum, txNotification(t, 1))

	msg := readSubscriptionMessage(t, fixture.ws)
	assert.Equal(t, matching, msg.Params.Subscription)

	request := fmt.Sprintf(`{"id": "2", "method": "unsubscribe", "params": ["%v"]}`, matching)
	response := getClientResponse(t, writeMsgToWsAndReadResponse(t, fixture.ws, []byte(request)))
	require.Nil(t, response.Error)

	// mock transactions carry value 1, the filter keeps them all out
	subscribe(t, fixture, `["newTxs", {"include": ["tx_hash"], "filters": "value > 100"}]`)
	fixture.feeds.Notify(testNetworkNum, txNotification(t, 2))
	assertNoSubscriptionMessage(t, fixture.ws)
}

func TestSubscribeRejectsBadRequests(t *testing.T) {
	fixture := newServerFixture(t, true)

	for _, params := range []string{
		`["fakeFeed", {"include": ["tx_hash"]}]`,
		`["newTxs"]`,
		`["newTxs", {}]`,
		`["newTxs", {"include": ["fake_param"]}]`,
		`["newTxs", {"include": ["tx_hash"], "filters": "value > = 10"}]`,
		`["newTxs", {"include": ["tx_hash"], "filters": "gas_price > 100 and max_fee_per_gas > 100"}]`,
		`["newBlocks", {"include": ["hash"], "filters": "value > 100"}]`,
		`["ethOnBlock", {"include": [], "call_params": [{"method": "eth_fake", "name": "call"}]}]`,
		`["ethOnBlock", {"include": [], "call_params": [{"method": "eth_call", "name": "call"}]}]`,
		`["ethOnBlock", {"include": [], "call_params": [{"method": "eth_blockNumber", "name": "a"}, {"method": "eth_blockNumber", "name": "a"}]}]`,
		`["ethOnBlock", {"include": [], "call_params": [{"method": "eth_blockNumber", "name": "call", "tag": "5"}]}]`,
	} {
		request := fmt.Sprintf(`{"id": "1", "method": "subscribe", "params": %v}`, params)
		response := getClientResponse(t, writeMsgToWsAndReadResponse(t, fixture.ws, []byte(request)))
		require.NotNil(t, response.Error, "expected an error for %v", params)
		assert.Equal(t, int64(-32602), response.Error.Code)
	}
	assert.Empty(t, fixture.feeds.Subscriptions())
}

func TestSubscribeRequiresNodeProvider(t *testing.T) {
	fixture := newServerFixture(t, false)

	response := getClientResponse(t, writeMsgToWsAndReadResponse(t, fixture.ws, []byte(`{"id": "1", "method": "subscribe", "params": ["pendingTxs", {"include": ["tx_hash"]}]}`)))
	require.NotNil(t, response.Error)

	// newTxs works without a node connection
	subscribe(t, fixture, `["newTxs", {"include": ["tx_hash"]}]`)
}

func TestSubscribeClientDisconnectRemovesSubscription(t *testing.T) {
	fixture := newServerFixture(t, true)

	subscriptionID := subscribe(t, fixture, `["newTxs", {"include": ["tx_hash"]}]`)

	// the feed stays quiet, dropping the connection alone must deregister
	require.NoError(t, fixture.ws.Close())
	assert.Eventually(t, func() bool {
		return !fixture.feeds.SubscriptionExists(subscriptionID)
	}, time.Second, 10*time.Millisecond)
}

func TestUnsubscribe(t *testing.T) {
	fixture := newServerFixture(t, true)

	subscriptionID := subscribe(t, fixture, `["newTxs", {"include": ["tx_hash"]}]`)

	request := fmt.Sprintf(`{"id": "2", "method": "unsubscribe", "params": ["%v"]}`, subscriptionID)
	response := getClientResponse(t, writeMsgToWsAndReadResponse(t, fixture.ws, []byte(request)))
	require.Nil(t, response.Error)
	assert.Equal(t, true, response.Result)

	assert.Eventually(t, func() bool {
		return !fixture.feeds.SubscriptionExists(subscriptionID)
	}, time.Second, 10*time.Millisecond)

	response = getClientResponse(t, writeMsgToWsAndReadResponse(t, fixture.ws, []byte(request)))
	require.NotNil(t, response.Error)
}

func TestSubscribeNewBlocks(t *testing.T) {
	fixture := newServerFixture(t, true)

	subscriptionID := subscribe(t, fixture, `["newBlocks", {"include": ["hash", "header"]}]`)

	notification := blockNotification(types.NewBlocksFeed, 100)
	fixture.feeds.Notify(testNetworkNum, notification)

	msg := readSubscriptionMessage(t, fixture.ws)
	assert.Equal(t, subscriptionID, msg.Params.Subscription)

	var blockResult map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Params.Result, &blockResult))
	assert.Equal(t, notification.BlockHash.Hex(), blockResult["hash"])
	header, ok := blockResult["header"].(map[string]interface{})
	require.True(t, ok, "missing header in %v", blockResult)
	assert.Equal(t, "0x64", header["number"])
}

func TestSubscribeTxReceipts(t *testing.T) {
	fixture := newServerFixture(t, true)
	fixture.nodeWS.Receipt = map[string]interface{}{
		"blockNumber":     "0x64",
		"status":          "0x1",
		"transactionHash": "0xaaaa",
	}

	subscribe(t, fixture, `["txReceipts", {"include": []}]`)

	fixture.feeds.Notify(testNetworkNum, blockNotification(types.TxReceiptsFeed, 100, "0xaaaa"))

	msg := readSubscriptionMessage(t, fixture.ws)
	var receipt map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Params.Result, &receipt))
	assert.Equal(t, "0x64", receipt["block_number"])
	assert.Equal(t, "0x1", receipt["status"])
	assert.Equal(t, "0xaaaa", receipt["transaction_hash"])
	assert.Contains(t, fixture.nodeWS.CalledMethods(), "eth_getTransactionReceipt")
}

func TestSubscribeEthOnBlock(t *testing.T) {
	fixture := newServerFixture(t, true)

	subscribe(t, fixture, `["ethOnBlock", {"include": [], "call_params": [{"method": "eth_blockNumber", "name": "height", "tag": "latest"}]}]`)

	fixture.feeds.Notify(testNetworkNum, blockNotification(types.OnBlockFeed, 100))

	type onBlockResult struct {
		Name        string `json:"name"`
		Response    string `json:"response"`
		BlockHeight string `json:"block_height"`
		Tag         string `json:"tag"`
	}

	first := onBlockResult{}
	msg := readSubscriptionMessage(t, fixture.ws)
	require.NoError(t, json.Unmarshal(msg.Params.Result, &first))
	assert.Equal(t, "height", first.Name)
	assert.Equal(t, "response", first.Response)
	assert.Equal(t, "0x64", first.BlockHeight)
	assert.Equal(t, "0x64", first.Tag)

	completed := onBlockResult{}
	msg = readSubscriptionMessage(t, fixture.ws)
	require.NoError(t, json.Unmarshal(msg.Params.Result, &completed))
	assert.Equal(t, astragateway.TaskCompletedEvent, completed.Name)

	assert.Contains(t, fixture.nodeWS.CalledMethods(), "eth_blockNumber")
}

func TestSubscribeEthOnBlockDisablesFailingCall(t *testing.T) {
	fixture := newServerFixture(t, true)
	fixture.nodeWS.CallErr = fmt.Errorf("execution reverted")

	subscribe(t, fixture, `["ethOnBlock", {"include": [], "call_params": [{"method": "eth_blockNumber", "name": "height"}]}]`)

	fixture.feeds.Notify(testNetworkNum, blockNotification(types.OnBlockFeed, 100))

	type onBlockResult struct {
		Name string `json:"name"`
	}

	disabled := onBlockResult{}
	msg := readSubscriptionMessage(t, fixture.ws)
	require.NoError(t, json.Unmarshal(msg.Params.Result, &disabled))
	assert.Equal(t, astragateway.TaskDisabledEvent, disabled.Name)

	completed := onBlockResult{}
	msg = readSubscriptionMessage(t, fixture.ws)
	require.NoError(t, json.Unmarshal(msg.Params.Result, &completed))
	assert.Equal(t, astragateway.TaskCompletedEvent, completed.Name)

	// the disabled call is skipped on the next block
	fixture.feeds.Notify(testNetworkNum, blockNotification(types.OnBlockFeed, 101))
	msg = readSubscriptionMessage(t, fixture.ws)
	require.NoError(t, json.Unmarshal(msg.Params.Result, &completed))
	assert.Equal(t, astragateway.TaskCompletedEvent, completed.Name)
}
