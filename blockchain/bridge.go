package blockchain

import (
	"math/big"

	"github.com/astranet-network/gateway/types"
)

// TxStore tracks transactions already known to the gateway, so notifications
// sourced from the blockchain node can reuse previously seen contents
type TxStore interface {
	Tx(hash types.SHA256Hash) (*types.BxTransaction, bool)
	Store(tx *types.BxTransaction)
}

// ChainState accepts confirmed chain head updates observed on the node feed
type ChainState interface {
	PublishBlock(height uint64, hash types.SHA256Hash, difficulty *big.Int) error
	SetLastConfirmedBlockParameters(height uint64, difficulty *big.Int)
}

// ConfirmedTxBroadcaster forwards transactions confirmed by the blockchain
// node to peer gateways that opted into streaming
type ConfirmedTxBroadcaster interface {
	BroadcastConfirmedTx(tx *types.BxTransaction)
}

// TxListener accepts client-submitted transactions for distribution to the
// node and to the feed subscribers
type TxListener interface {
	HandleTx(tx *types.BxTransaction) error
}
