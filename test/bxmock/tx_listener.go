package bxmock

import (
	"sync"

	"github.com/astranet-network/gateway/types"
)

// MockTxListener records transactions submitted through the websocket interface
type MockTxListener struct {
	lock sync.Mutex

	// Err fails HandleTx calls when set
	Err error

	txs []*types.BxTransaction
}

// NewMockTxListener returns a new MockTxListener
func NewMockTxListener() *MockTxListener {
	return &MockTxListener{}
}

// HandleTx records the transaction
func (l *MockTxListener) HandleTx(tx *types.BxTransaction) error {
	if l.Err != nil {
		return l.Err
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	l.txs = append(l.txs, tx)
	return nil
}

// Txs returns the transactions received so far
func (l *MockTxListener) Txs() []*types.BxTransaction {
	l.lock.Lock()
	defer l.lock.Unlock()

	txs := make([]*types.BxTransaction, len(l.txs))
	copy(txs, l.txs)
	return txs
}
