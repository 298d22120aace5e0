package servers

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/zhouzhuojie/conditions"

	astragateway "github.com/astranet-network/gateway"
	"github.com/astranet-network/gateway/blockchain"
	"github.com/astranet-network/gateway/jsonrpc"
	"github.com/astranet-network/gateway/metrics"
	"github.com/astranet-network/gateway/services/feed"
	"github.com/astranet-network/gateway/types"
)

type handlerObj struct {
	feeds         *feed.Manager
	nodeWS        blockchain.WSProvider
	txListener    blockchain.TxListener
	networkNum    types.NetworkNum
	remoteAddress string
	log           *log.Entry
}

// SendErrorMsg formats and sends an RPC error message back to the client
func SendErrorMsg(ctx context.Context, code jsonrpc.RPCErrorCode, data string, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	rpcError := &jsonrpc2.Error{
		Code:    int64(code),
		Message: jsonrpc.ErrorMsg[code],
	}
	rpcError.SetError(data)
	err := conn.ReplyWithError(ctx, req.ID, rpcError)
	if err != nil {
		log.Errorf("could not respond to client with error message: %v", err)
	}
}

func reply(ctx context.Context, conn *jsonrpc2.Conn, ID jsonrpc2.ID, result interface{}) error {
	if err := conn.Reply(ctx, ID, result); err != nil {
		return err
	}
	return nil
}

// Handle - handling client request
func (h *handlerObj) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	start := time.Now()
	metrics.IncrRPCRequestsTotal(req.Method)
	defer func() {
		h.log.Debugf("websocket handling for %v ended. Duration %v", jsonrpc.RPCRequestType(req.Method), time.Since(start))
	}()

	switch jsonrpc.RPCRequestType(req.Method) {
	case jsonrpc.RPCSubscribe:
		h.handleSubscribe(ctx, conn, req)
	case jsonrpc.RPCUnsubscribe:
		h.handleUnsubscribe(ctx, conn, req)
	case jsonrpc.RPCTx:
		h.handleTx(ctx, conn, req)
	case jsonrpc.RPCPing:
		response := rpcPingResponse{
			Pong: time.Now().UTC().Format(astragateway.MicroSecTimeFormat),
		}
		if err := reply(ctx, conn, req.ID, response); err != nil {
			h.log.Errorf("%v reply error - %v", jsonrpc.RPCPing, err)
		}
	default:
		err := fmt.Errorf("got unsupported method name: %v", req.Method)
		SendErrorMsg(ctx, jsonrpc.MethodNotFound, err.Error(), conn, req)
	}
}

func (h *handlerObj) handleSubscribe(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	request, err := h.createClientReq(req)
	if err != nil {
		SendErrorMsg(ctx, jsonrpc.InvalidParams, err.Error(), conn, req)
		return
	}
	feedName := request.feed
	if h.nodeWS == nil && feedName != types.NewTxsFeed && feedName != types.BDNBlocksFeed {
		errMsg := fmt.Sprintf("%v feed requires an eth-ws-uri startup parameter", feedName)
		SendErrorMsg(ctx, jsonrpc.InvalidParams, errMsg, conn, req)
		return
	}

	subscription, err := h.feeds.Subscribe(feed.FeedKey{Name: feedName, NetworkNum: h.networkNum}, request.options)
	if err != nil {
		SendErrorMsg(ctx, jsonrpc.InvalidParams, err.Error(), conn, req)
		return
	}
	defer func() { _ = h.feeds.Unsubscribe(subscription.ID) }()

	if err = reply(ctx, conn, req.ID, subscription.ID); err != nil {
		h.log.Errorf("error reply to subscriptionID %v: %v", subscription.ID, err)
		SendErrorMsg(ctx, jsonrpc.InternalError, err.Error(), conn, req)
		return
	}

	for {
		var notification types.Notification
		var ok bool
		select {
		case notification, ok = <-subscription.Notifications():
		case <-conn.DisconnectNotify():
			h.log.Debugf("client %v disconnected, dropping subscription %v", h.remoteAddress, subscription.ID)
			return
		}
		if !ok {
			// channel gets closed when the subscription is dropped for
			// being too slow, tell the client before hanging up
			if h.feeds.SubscriptionExists(subscription.ID) {
				SendErrorMsg(ctx, jsonrpc.InternalError, string(rune(websocket.CloseMessage)), conn, req)
			}
			return
		}
		switch feedName {
		case types.NewTxsFeed:
			tx := notification.(*types.NewTransactionNotification)
			if h.sendTxNotification(ctx, subscription.ID, request, conn, tx) != nil {
				return
			}
		case types.PendingTxsFeed:
			tx := notification.(*types.PendingTransactionNotification)
			if h.sendTxNotification(ctx, subscription.ID, request, conn, &tx.NewTransactionNotification) != nil {
				return
			}
		case types.BDNBlocksFeed, types.NewBlocksFeed:
			block := notification.(*types.BlockNotification)
			if h.sendNotification(ctx, subscription.ID, request, conn, block) != nil {
				return
			}
		case types.TxReceiptsFeed:
			block := notification.(*types.BlockNotification)
			if err = h.sendTxReceipts(ctx, subscription.ID, request, conn, block); err != nil {
				return
			}
		case types.OnBlockFeed:
			block := notification.(*types.BlockNotification)
			if err = h.runOnBlockCalls(ctx, subscription.ID, request, conn, block); err != nil {
				return
			}
		}
	}
}

func (h *handlerObj) sendTxReceipts(ctx context.Context, subscriptionID string, clientReq *clientReq, conn *jsonrpc2.Conn, block *types.BlockNotification) error {
	var wg sync.WaitGroup
	for _, tx := range block.Transactions {
		txHash, ok := tx["hash"].(string)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(txHash string) {
			defer wg.Done()
			response, err := h.nodeWS.FetchTransactionReceipt(ctx, []interface{}{txHash}, blockchain.RPCOptions{
				RetryAttempts: astragateway.MaxEthTxReceiptCallRetries,
				RetryInterval: astragateway.EthTxReceiptCallRetrySleepInterval,
			})
			if err != nil || response == nil {
				h.log.Errorf("failed to fetch transaction receipt for %v in block %v: %v", txHash, block.BlockHash, err)
				return
			}
			receipt, ok := response.(map[string]interface{})
			if !ok {
				h.log.Errorf("unexpected transaction receipt %v for %v", response, txHash)
				return
			}
			txReceiptNotification := types.NewTxReceiptNotification(receipt)
			if h.sendNotification(ctx, subscriptionID, clientReq, conn, txReceiptNotification) != nil {
				h.log.Errorf("failed to send tx receipt for %v", txHash)
			}
		}(txHash)
	}
	wg.Wait()
	h.log.Debugf("finished fetching transaction receipts for block %v", block.BlockHash)
	return nil
}

func (h *handlerObj) runOnBlockCalls(ctx context.Context, subscriptionID string, clientReq *clientReq, conn *jsonrpc2.Conn, block *types.BlockNotification) error {
	blockHeightStr := block.Header.Number
	hashStr := block.BlockHash.String()

	var wg sync.WaitGroup
	for _, c := range clientReq.calls {
		wg.Add(1)
		go func(call *RPCCall) {
			defer wg.Done()
			if !call.active {
				return
			}
			tag := "0x" + strconv.FormatInt(int64(int(block.Header.GetNumber())+call.blockOffset), 16)
			payload, err := h.nodeWS.ConstructRPCCallPayload(call.commandMethod, call.callPayload, tag)
			if err != nil {
				return
			}
			response, err := h.nodeWS.CallRPC(ctx, call.commandMethod, payload, blockchain.RPCOptions{
				RetryAttempts: astragateway.MaxEthOnBlockCallRetries,
				RetryInterval: astragateway.EthOnBlockCallRetrySleepInterval,
			})
			if err != nil {
				h.log.Debugf("disabling failed onBlock call %v: %v", call.callName, err)
				call.active = false
				taskDisabledNotification := types.NewOnBlockNotification(astragateway.TaskDisabledEvent, call.string(), blockHeightStr, tag, hashStr)
				if h.sendNotification(ctx, subscriptionID, clientReq, conn, taskDisabledNotification) != nil {
					h.log.Errorf("failed to send TaskDisabledEvent for %v", call.callName)
				}
				return
			}
			result, ok := response.(string)
			if !ok {
				serialized, _ := json.Marshal(response)
				result = string(serialized)
			}
			onBlockNotification := types.NewOnBlockNotification(call.callName, result, blockHeightStr, tag, hashStr)
			if h.sendNotification(ctx, subscriptionID, clientReq, conn, onBlockNotification) != nil {
				return
			}
		}(c)
	}
	wg.Wait()

	taskCompletedNotification := types.NewOnBlockNotification(astragateway.TaskCompletedEvent, "", blockHeightStr, blockHeightStr, hashStr)
	if err := h.sendNotification(ctx, subscriptionID, clientReq, conn, taskCompletedNotification); err != nil {
		h.log.Errorf("failed to send TaskCompletedEvent on block %v", blockHeightStr)
		return err
	}
	return nil
}

func (h *handlerObj) handleUnsubscribe(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params []string
	if req.Params != nil {
		_ = json.Unmarshal(*req.Params, &params)
	}
	if len(params) != 1 {
		err := fmt.Errorf("params %v with incorrect length", params)
		SendErrorMsg(ctx, jsonrpc.InvalidParams, err.Error(), conn, req)
		return
	}
	if err := h.feeds.Unsubscribe(params[0]); err != nil {
		h.log.Infof("subscription id %v was not found", params[0])
		SendErrorMsg(ctx, jsonrpc.InvalidParams, err.Error(), conn, req)
		return
	}
	if err := reply(ctx, conn, req.ID, true); err != nil {
		h.log.Errorf("error reply to %v: %v", h.remoteAddress, err)
	}
}

func (h *handlerObj) handleTx(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if h.txListener == nil {
		err := fmt.Errorf("%v is not enabled on this gateway", jsonrpc.RPCTx)
		SendErrorMsg(ctx, jsonrpc.InvalidRequest, err.Error(), conn, req)
		return
	}
	if req.Params == nil {
		SendErrorMsg(ctx, jsonrpc.InvalidParams, "params not found", conn, req)
		return
	}

	var params jsonrpc.RPCTxPayload
	err := json.Unmarshal(*req.Params, &params)
	if err != nil {
		h.log.Errorf("unmarshal req.Params error - %v", err)
		SendErrorMsg(ctx, jsonrpc.InvalidParams, err.Error(), conn, req)
		return
	}

	txBytes, err := hex.DecodeString(strings.TrimPrefix(params.Transaction, "0x"))
	if err != nil {
		h.log.Errorf("invalid hex string: %v", err)
		SendErrorMsg(ctx, jsonrpc.InvalidParams, err.Error(), conn, req)
		return
	}

	// Ethereum transactions encoded for RPC interfaces are slightly different
	// from the RLP encoded format, so decode + re-encode the transaction for
	// consistency. `UnmarshalBinary` should be used for RPC interfaces, while
	// rlp.DecodeBytes is used on the wire protocol.
	var ethTx ethtypes.Transaction
	err = ethTx.UnmarshalBinary(txBytes)
	if err != nil {
		h.log.Errorf("could not decode Ethereum transaction: %v", err)
		SendErrorMsg(ctx, jsonrpc.InvalidParams, err.Error(), conn, req)
		return
	}
	txContent, _ := rlp.EncodeToBytes(&ethTx)

	var hash types.SHA256Hash
	copy(hash[:], ethTx.Hash().Bytes())

	tx := types.NewBxTransaction(hash, h.networkNum, types.TFPaidTx|types.TFLocalRegion|types.TFDeliverToNode, time.Now())
	tx.SetContent(txContent)

	// call the listener, don't invoke in a go routine
	if err = h.txListener.HandleTx(tx); err != nil {
		h.log.Errorf("failed to process %v: %v", jsonrpc.RPCTx, err)
		SendErrorMsg(ctx, jsonrpc.InternalError, err.Error(), conn, req)
		return
	}

	response := rpcTxResponse{
		TxHash: tx.Hash().String(),
	}
	if err = reply(ctx, conn, req.ID, response); err != nil {
		h.log.Errorf("%v reply error - %v", jsonrpc.RPCTx, err)
		return
	}
	h.log.Infof("%v: Hash - 0x%v", jsonrpc.RPCTx, response.TxHash)
}

// sendNotification - build a response according to client request and notify client
func (h *handlerObj) sendNotification(ctx context.Context, subscriptionID string, clientReq *clientReq, conn *jsonrpc2.Conn, notification types.Notification) error {
	response := BlockResponse{
		Subscription: subscriptionID,
	}
	content := notification.WithFields(clientReq.options.Include)
	response.Result = content
	err := conn.Notify(ctx, string(jsonrpc.RPCSubscribe), response)
	if err != nil {
		h.log.Errorf("error reply to subscriptionID %v: %v", subscriptionID, err)
		return err
	}
	return nil
}

// sendTxNotification - build a response according to client request and notify
// client. Filters were already evaluated when the notification got published
// to the subscription queue.
func (h *handlerObj) sendTxNotification(ctx context.Context, subscriptionID string, clientReq *clientReq, conn *jsonrpc2.Conn, tx *types.NewTransactionNotification) error {
	hasTxContent := false

	response := TxResponse{
		Subscription: subscriptionID,
		Result:       TxResult{},
	}

	for _, param := range clientReq.options.Include {
		if strings.Contains(param, "tx_contents") {
			hasTxContent = true
		}
		switch param {
		case "tx_hash":
			txHash := tx.GetHash()
			response.Result.TxHash = &txHash
		case "time":
			timeNow := time.Now().Format(astragateway.MicroSecTimeFormat)
			response.Result.Time = &timeNow
		case "local_region":
			localRegion := tx.LocalRegion()
			response.Result.LocalRegion = &localRegion
		case "raw_tx":
			rawTx := hexutil.Encode(tx.RawTx())
			response.Result.RawTx = &rawTx
		}
	}
	if hasTxContent {
		txContent := tx.WithFields(clientReq.options.Include)
		if txContent.(*types.NewTransactionNotification).BlockchainTransaction == nil {
			return nil
		}
		response.Result.TxContents = txContent.(*types.NewTransactionNotification).BlockchainTransaction
	}

	err := conn.Notify(ctx, string(jsonrpc.RPCSubscribe), response)
	if err != nil {
		h.log.Errorf("error reply to subscriptionID %v: %v", subscriptionID, err)
		return err
	}

	return nil
}

func (h *handlerObj) createClientReq(req *jsonrpc2.Request) (*clientReq, error) {
	if req.Params == nil {
		return nil, fmt.Errorf("params not found")
	}
	request := subscriptionRequest{}
	var rpcParams []json.RawMessage
	err := json.Unmarshal(*req.Params, &rpcParams)
	if err != nil {
		return nil, err
	}
	if len(rpcParams) < 2 {
		h.log.Debugf("invalid param from request id %v, method %v, params %s", req.ID, req.Method, *req.Params)
		return nil, fmt.Errorf("number of params must be at least length 2. requested params: %s", *req.Params)
	}
	err = json.Unmarshal(rpcParams[0], &request.feed)
	if err != nil {
		return nil, err
	}
	if !types.Exists(request.feed, availableFeeds) {
		h.log.Debugf("invalid feed name from request id %v, method %v, params %s", req.ID, req.Method, *req.Params)
		return nil, fmt.Errorf("got unsupported feed name %v. possible feeds are %v", request.feed, availableFeeds)
	}
	err = json.Unmarshal(rpcParams[1], &request.options)
	if err != nil {
		return nil, err
	}
	if request.options.Include == nil {
		h.log.Debugf("invalid options from request id %v, method %v, params %s", req.ID, req.Method, *req.Params)
		return nil, fmt.Errorf("got unsupported params %v", string(rpcParams[1]))
	}
	request.options.Include, err = validateIncludeParam(request.feed, request.options.Include)
	if err != nil {
		return nil, err
	}

	var expr conditions.Expr
	if request.options.Filters != "" {
		if !types.Exists(request.feed, txFeeds) {
			return nil, fmt.Errorf("filters are not supported by the %v feed", request.feed)
		}
		expr, err = feed.ValidateFilters(request.options.Filters)
		if err != nil {
			h.log.Debugf("error parsing filters from request id %v, method %v, params %s: %v", req.ID, req.Method, *req.Params, err)
			return nil, err
		}
		if !feed.IsCorrectGasPriceFilters(expr.Args()) {
			return nil, fmt.Errorf("gas price filters must be used together with a type filter")
		}
	}

	calls := make(map[string]*RPCCall)
	if request.feed == types.OnBlockFeed {
		if h.nodeWS == nil {
			return nil, fmt.Errorf("%v feed requires an eth-ws-uri startup parameter", request.feed)
		}
		calls, err = parseCallParams(h.nodeWS, request.options.CallParams)
		if err != nil {
			return nil, err
		}
	}

	return &clientReq{
		feed:    request.feed,
		options: request.options,
		expr:    expr,
		calls:   calls,
	}, nil
}
