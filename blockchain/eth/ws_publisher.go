package eth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	astragateway "github.com/astranet-network/gateway"
	"github.com/astranet-network/gateway/blockchain"
	"github.com/astranet-network/gateway/metrics"
	"github.com/astranet-network/gateway/rpc"
	"github.com/astranet-network/gateway/services/feed"
	"github.com/astranet-network/gateway/types"
	"github.com/astranet-network/gateway/utils"
)

// PublisherStatus indicates the connection state of the node feed publisher
type PublisherStatus int

// PublisherStatus enumeration
const (
	PublisherDisconnected PublisherStatus = iota
	PublisherConnecting
	PublisherSubscribed
)

// String returns a readable representation of the publisher status
func (s PublisherStatus) String() string {
	switch s {
	case PublisherDisconnected:
		return "disconnected"
	case PublisherConnecting:
		return "connecting"
	case PublisherSubscribed:
		return "subscribed"
	}
	return "unknown"
}

const (
	newPendingTransactionsFeed = "newPendingTransactions"
	newHeadsFeed               = "newHeads"
)

// WsPublisher bridges a blockchain node's websocket feeds into the gateway
// feeds. Transactions accepted to the node mempool are published to the
// pendingTxs feed, new chain heads are handed to the chain state tracker.
type WsPublisher struct {
	provider      blockchain.WSProvider
	feeds         *feed.Manager
	txStore       blockchain.TxStore
	chainState    blockchain.ChainState
	broadcaster   blockchain.ConfirmedTxBroadcaster
	networkNum    types.NetworkNum
	minTxGasPrice *big.Int
	clock         utils.Clock
	log           *log.Entry

	lock    sync.Mutex
	status  PublisherStatus
	running bool
	cancel  context.CancelFunc
}

// WsPublisherArgs collects the collaborators of a WsPublisher. Broadcaster and
// MinTxGasPrice may be nil.
type WsPublisherArgs struct {
	Provider      blockchain.WSProvider
	Feeds         *feed.Manager
	TxStore       blockchain.TxStore
	ChainState    blockchain.ChainState
	Broadcaster   blockchain.ConfirmedTxBroadcaster
	NetworkNum    types.NetworkNum
	MinTxGasPrice *big.Int
}

// NewWsPublisher - returns a new instance of WsPublisher
func NewWsPublisher(args WsPublisherArgs) *WsPublisher {
	return &WsPublisher{
		provider:      args.Provider,
		feeds:         args.Feeds,
		txStore:       args.TxStore,
		chainState:    args.ChainState,
		broadcaster:   args.Broadcaster,
		networkNum:    args.NetworkNum,
		minTxGasPrice: args.MinTxGasPrice,
		clock:         utils.RealClock{},
		log: log.WithFields(log.Fields{
			"component":  "wsPublisher",
			"remoteAddr": args.Provider.Addr(),
		}),
	}
}

// Status returns the current connection state of the publisher
func (p *WsPublisher) Status() PublisherStatus {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.status
}

// Start connects to the node feeds and processes notifications until the
// context is canceled or Stop is called. Broken connections are redialed and
// resubscribed. Start is a no-op while the publisher is already running.
func (p *WsPublisher) Start(ctx context.Context) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.running {
		return
	}
	p.running = true

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	go p.run(ctx)
}

// Revive restarts a publisher that gave up earlier, presumably after its
// connection got disconnected and Stop was called
func (p *WsPublisher) Revive(ctx context.Context) {
	if p.Status() == PublisherDisconnected {
		p.log.Info("attempting to revive blockchain node feed")
		p.Start(ctx)
	}
}

// Stop terminates the publisher and its node connection. Stop is idempotent.
func (p *WsPublisher) Stop() {
	p.lock.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.lock.Unlock()

	if cancel != nil {
		cancel()
	}
	_ = p.provider.Close()
}

func (p *WsPublisher) run(ctx context.Context) {
	defer func() {
		p.lock.Lock()
		p.running = false
		p.status = PublisherDisconnected
		p.lock.Unlock()
	}()

	for ctx.Err() == nil {
		p.setStatus(PublisherConnecting)
		if err := p.provider.Reconnect(ctx); err != nil {
			p.log.Errorf("could not reach the node feed: %v", err)
			return
		}

		err := p.subscribeAndServe(ctx)
		if ctx.Err() != nil {
			return
		}
		p.log.Warnf("connection to the node feed was broken: %v, reconnecting...", err)
	}
}

func (p *WsPublisher) subscribeAndServe(ctx context.Context) error {
	txSubscription, err := p.provider.Subscribe(ctx, newPendingTransactionsFeed)
	if err != nil {
		return err
	}
	headsSubscription, err := p.provider.Subscribe(ctx, newHeadsFeed)
	if err != nil {
		return err
	}

	p.setStatus(PublisherSubscribed)
	p.log.Info("subscribed to the blockchain node feeds")

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return p.handleTxNotifications(ctx, txSubscription) })
	group.Go(func() error { return p.handleBlockNotifications(ctx, headsSubscription) })
	return group.Wait()
}

func (p *WsPublisher) handleTxNotifications(ctx context.Context, subscriptionID string) error {
	for {
		notification, err := p.provider.NextSubscriptionNotification(ctx, subscriptionID)
		if err != nil {
			return err
		}

		var txHash string
		if err = json.Unmarshal(notification, &txHash); err != nil {
			p.log.Warnf("discarding unparsable transaction notification %v: %v", string(notification), err)
			continue
		}
		hash, err := types.NewSHA256HashFromString(txHash)
		if err != nil {
			p.log.Warnf("discarding transaction notification with bad hash %v: %v", txHash, err)
			continue
		}

		p.processReceivedTransaction(ctx, hash)
	}
}

func (p *WsPublisher) processReceivedTransaction(ctx context.Context, hash types.SHA256Hash) {
	bxTx, ok := p.txStore.Tx(hash)
	if ok && bxTx.HasContent() {
		bxTx.AddFlags(types.TFLocalRegion)
		p.publishPendingTx(types.CreatePendingTransactionNotification(bxTx))
		p.broadcastConfirmedTx(bxTx)
		return
	}
	go p.fetchMissingTransaction(ctx, hash)
}

func (p *WsPublisher) fetchMissingTransaction(ctx context.Context, hash types.SHA256Hash) {
	response, err := p.provider.FetchTransaction(ctx, []interface{}{hash.Format(true)}, blockchain.DefaultRPCOptions)
	if err != nil {
		if errors.Is(err, rpc.ErrConnectionClosed) {
			p.log.Debugf("attempt to fetch transaction %v was interrupted by a broken connection, abandoning", hash)
			return
		}
		p.log.Warnf("failed to fetch transaction %v from the node: %v", hash, err)
		return
	}

	fields, ok := response.(map[string]interface{})
	if !ok {
		p.log.Debugf("transaction %v was not found in the node mempool", hash)
		metrics.IncrPendingTxMissingContents(uint32(p.networkNum))
		return
	}

	bxTx := types.NewBxTransaction(hash, p.networkNum, types.TFLocalRegion, p.clock.Now())

	if !p.aboveFeeFloor(fields) {
		metrics.IncrPendingTxBelowFeeFloor(uint32(p.networkNum))
	} else {
		ethTx, err := types.NewEthTransactionFromFields(fields)
		if err != nil {
			p.log.Warnf("discarding transaction %v with unparsable contents: %v", hash, err)
			return
		}
		notification := types.CreatePendingTransactionNotification(bxTx)
		notification.SetBlockchainTransaction(ethTx)
		p.publishPendingTx(notification)
	}

	p.broadcastConfirmedTx(bxTx)
}

// aboveFeeFloor gates node-announced transactions on the network's minimal
// gas price, type-2 transactions are judged by their fee cap
func (p *WsPublisher) aboveFeeFloor(fields map[string]interface{}) bool {
	if p.minTxGasPrice == nil {
		return true
	}

	feeField := "gasPrice"
	if txType, ok := fields["type"].(string); ok && txType == "0x2" {
		feeField = "maxFeePerGas"
	}
	feeStr, ok := fields[feeField].(string)
	if !ok {
		return false
	}
	fee, err := hexutil.DecodeBig(feeStr)
	if err != nil {
		return false
	}
	return fee.Cmp(p.minTxGasPrice) >= 0
}

func (p *WsPublisher) publishPendingTx(notification *types.PendingTransactionNotification) {
	notification.SetSource(types.FeedSourceBlockchainRPC)
	metrics.IncrPendingTxFromLocal(uint32(p.networkNum))
	p.feeds.Publish(feed.FeedKey{Name: types.PendingTxsFeed, NetworkNum: p.networkNum}, notification)
}

func (p *WsPublisher) broadcastConfirmedTx(bxTx *types.BxTransaction) {
	if p.broadcaster != nil {
		p.broadcaster.BroadcastConfirmedTx(bxTx)
	}
}

type blockHeader struct {
	Hash       string `json:"hash"`
	Number     string `json:"number"`
	Difficulty string `json:"difficulty"`
}

func (p *WsPublisher) handleBlockNotifications(ctx context.Context, subscriptionID string) error {
	for ctx.Err() == nil {
		notification, err := p.provider.NextSubscriptionNotificationTimeout(subscriptionID, astragateway.BlockFeedTimeout)
		if err != nil {
			if errors.Is(err, rpc.ErrSubscriptionTimeout) {
				return fmt.Errorf("no new block was received from the node within %v: %w", astragateway.BlockFeedTimeout, err)
			}
			return err
		}

		var header blockHeader
		if err = json.Unmarshal(notification, &header); err != nil {
			p.log.Warnf("discarding unparsable block notification %v: %v", string(notification), err)
			continue
		}
		if err = p.processBlockHeader(header); err != nil {
			p.log.Warnf("discarding bad block notification %v: %v", header, err)
		}
	}
	return ctx.Err()
}

func (p *WsPublisher) processBlockHeader(header blockHeader) error {
	hash, err := types.NewSHA256HashFromString(header.Hash)
	if err != nil {
		return err
	}
	height, err := hexutil.DecodeUint64(header.Number)
	if err != nil {
		return err
	}
	difficulty, err := hexutil.DecodeBig(header.Difficulty)
	if err != nil {
		return err
	}

	p.log.Tracef("node announced a new chain head %v at height %v", hash, height)
	if err = p.chainState.PublishBlock(height, hash, difficulty); err != nil {
		return err
	}
	p.chainState.SetLastConfirmedBlockParameters(height, difficulty)
	return nil
}

func (p *WsPublisher) setStatus(status PublisherStatus) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.status = status
}
