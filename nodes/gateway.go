package nodes

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	astragateway "github.com/astranet-network/gateway"
	"github.com/astranet-network/gateway/blockchain"
	"github.com/astranet-network/gateway/blockchain/eth"
	"github.com/astranet-network/gateway/config"
	"github.com/astranet-network/gateway/metrics"
	"github.com/astranet-network/gateway/servers"
	"github.com/astranet-network/gateway/services/feed"
	"github.com/astranet-network/gateway/types"
)

const shutdownTimeout = 5 * time.Second

// gatewayFeeds are registered for the served network on startup
var gatewayFeeds = []types.FeedType{
	types.NewTxsFeed,
	types.PendingTxsFeed,
	types.BDNBlocksFeed,
	types.NewBlocksFeed,
	types.OnBlockFeed,
	types.TxReceiptsFeed,
}

// gateway wires the feed manager, the websocket server and the blockchain
// node feed publisher into one runnable node. It backs the publisher's
// collaborator interfaces: transactions submitted by clients are stored and
// replayed when the node feed reports them, confirmed chain heads update the
// node's last confirmed block parameters.
type gateway struct {
	config    *config.Config
	feeds     *feed.Manager
	nodeWS    blockchain.WSProvider
	publisher *eth.WsPublisher
	wsServer  *servers.WSServer
	log       *log.Entry

	txLock sync.RWMutex
	txs    map[types.SHA256Hash]*types.BxTransaction

	chainLock           sync.Mutex
	confirmedHeight     uint64
	confirmedDifficulty *big.Int
}

// NewGateway assembles a gateway node from a validated configuration
func NewGateway(cfg *config.Config) (Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &gateway{
		config: cfg,
		feeds:  feed.NewManager(),
		txs:    make(map[types.SHA256Hash]*types.BxTransaction),
		log: log.WithFields(log.Fields{
			"component":  "gateway",
			"networkNum": cfg.NetworkNum,
		}),
	}

	for _, feedName := range gatewayFeeds {
		if err := g.feeds.RegisterFeed(feed.NewFeed(feedName, cfg.NetworkNum)); err != nil {
			return nil, err
		}
	}

	if cfg.EthWSUri != "" {
		g.nodeWS = eth.NewWSProvider(cfg.EthWSUri)
		g.publisher = eth.NewWsPublisher(eth.WsPublisherArgs{
			Provider:      g.nodeWS,
			Feeds:         g.feeds,
			TxStore:       g,
			ChainState:    g,
			Broadcaster:   g,
			NetworkNum:    cfg.NetworkNum,
			MinTxGasPrice: cfg.MinTxGasPrice,
		})
	}

	g.wsServer = servers.NewWSServer(cfg.WebsocketHost, cfg.WebsocketPort, g.feeds, g.nodeWS, g, cfg.NetworkNum)
	return g, nil
}

// Run starts the websocket server and the node feed publisher and blocks
// until the context is canceled or the server fails
func (g *gateway) Run(ctx context.Context) error {
	g.log.Infof("starting gateway for network %v", g.config.NetworkNum)
	if err := metrics.RegisterStatsd(); err != nil {
		g.log.Errorf("failed to register statsd client: %v", err)
	}

	group, ctx := errgroup.WithContext(ctx)
	if g.publisher != nil {
		g.publisher.Start(ctx)
	}
	group.Go(g.wsServer.Run)
	group.Go(func() error {
		<-ctx.Done()
		return g.Close()
	})
	return group.Wait()
}

// Close terminates the node feed publisher and shuts the websocket server down
func (g *gateway) Close() error {
	if g.publisher != nil {
		g.publisher.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return g.wsServer.Shutdown(ctx)
}

// HandleTx stores a client submitted transaction, publishes it to the newTxs
// feed and forwards it to the blockchain node when one is connected
func (g *gateway) HandleTx(tx *types.BxTransaction) error {
	g.Store(tx)

	notification := types.CreateNewTransactionNotification(tx)
	g.feeds.Notify(g.config.NetworkNum, notification)

	if g.nodeWS == nil {
		return nil
	}

	rawTx := hexutil.Encode(notification.RawTx())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), astragateway.WSProviderTimeout)
		defer cancel()
		if _, err := g.nodeWS.SendTransaction(ctx, rawTx, blockchain.DefaultRPCOptions); err != nil {
			g.log.Errorf("failed to forward transaction %v to the blockchain node: %v", tx.Hash(), err)
		}
	}()
	return nil
}

// Tx looks up a previously stored transaction by hash
func (g *gateway) Tx(hash types.SHA256Hash) (*types.BxTransaction, bool) {
	g.txLock.RLock()
	defer g.txLock.RUnlock()

	tx, ok := g.txs[hash]
	return tx, ok
}

// Store remembers a transaction for content reuse on node feed notifications
func (g *gateway) Store(tx *types.BxTransaction) {
	g.txLock.Lock()
	defer g.txLock.Unlock()

	if existing, ok := g.txs[tx.Hash()]; ok && existing.HasContent() {
		return
	}
	g.txs[tx.Hash()] = tx
}

// PublishBlock records a confirmed chain head observed on the node feed
func (g *gateway) PublishBlock(height uint64, hash types.SHA256Hash, difficulty *big.Int) error {
	g.log.Debugf("blockchain node confirmed block %v (%v)", height, hash)
	g.SetLastConfirmedBlockParameters(height, difficulty)
	return nil
}

// SetLastConfirmedBlockParameters updates the chain state used for tracking
// how far behind the node feed is
func (g *gateway) SetLastConfirmedBlockParameters(height uint64, difficulty *big.Int) {
	g.chainLock.Lock()
	defer g.chainLock.Unlock()

	if height < g.confirmedHeight {
		g.log.Debugf("ignoring confirmed block %v, already at %v", height, g.confirmedHeight)
		return
	}
	g.confirmedHeight = height
	g.confirmedDifficulty = difficulty
}

// LastConfirmedBlock returns the height and difficulty of the newest block
// confirmed by the blockchain node
func (g *gateway) LastConfirmedBlock() (uint64, *big.Int) {
	g.chainLock.Lock()
	defer g.chainLock.Unlock()

	return g.confirmedHeight, g.confirmedDifficulty
}

// BroadcastConfirmedTx streams a transaction confirmed by the blockchain node
// to opted-in peer gateways. The peer transport is supplied by the embedding
// relay layer, the gateway only gates on the confirmation toggle.
func (g *gateway) BroadcastConfirmedTx(tx *types.BxTransaction) {
	if !g.config.SendConfirmation {
		return
	}
	g.log.Tracef("streaming confirmed transaction %v to peer gateways", tx.Hash())
}
