package types

import (
	"sync"
	"time"
)

// TxContent represents a byte array containing full transaction bytes
type TxContent []byte

// BxTransaction represents a single transaction tracked by the gateway
type BxTransaction struct {
	m          sync.RWMutex
	hash       SHA256Hash
	content    TxContent
	addTime    time.Time
	flags      TxFlags
	networkNum NetworkNum
	sender     Sender
	rawTx      string
}

// NewBxTransaction creates a new transaction to be stored. Transactions are not expected to be initialized with content; it should be added via SetContent.
func NewBxTransaction(hash SHA256Hash, networkNum NetworkNum, flags TxFlags, timestamp time.Time) *BxTransaction {
	return &BxTransaction{
		hash:       hash,
		addTime:    timestamp,
		networkNum: networkNum,
		flags:      flags,
	}
}

// NewRawBxTransaction creates a new transaction directly from the hash and content. In general, NewRawBxTransaction should only be validated further before storing.
func NewRawBxTransaction(hash SHA256Hash, content TxContent) *BxTransaction {
	return &BxTransaction{
		hash:    hash,
		content: content,
	}
}

// Hash returns the transaction hash
func (bt *BxTransaction) Hash() SHA256Hash {
	bt.m.RLock()
	defer bt.m.RUnlock()

	return bt.hash
}

// Flags returns the transaction flags for routing
func (bt *BxTransaction) Flags() TxFlags {
	bt.m.RLock()
	defer bt.m.RUnlock()

	return bt.flags
}

// AddFlags adds the provided flag to the transaction flag set
func (bt *BxTransaction) AddFlags(flags TxFlags) {
	bt.m.Lock()
	defer bt.m.Unlock()

	bt.flags |= flags
}

// RemoveFlags sets off txFlag
func (bt *BxTransaction) RemoveFlags(flags TxFlags) {
	bt.m.Lock()
	defer bt.m.Unlock()

	bt.flags &^= flags
}

// Content returns the transaction contents (usually the blockchain transaction bytes)
func (bt *BxTransaction) Content() TxContent {
	bt.m.RLock()
	defer bt.m.RUnlock()

	return bt.content
}

// HasContent indicates if transaction has content bytes
func (bt *BxTransaction) HasContent() bool {
	bt.m.RLock()
	defer bt.m.RUnlock()

	return len(bt.content) > 0
}

// NetworkNum provides the network number of the transaction
func (bt *BxTransaction) NetworkNum() NetworkNum {
	bt.m.RLock()
	defer bt.m.RUnlock()

	return bt.networkNum
}

// Sender returns the transaction sender
func (bt *BxTransaction) Sender() Sender {
	bt.m.RLock()
	defer bt.m.RUnlock()

	return bt.sender
}

// SetSender sets the transaction sender
func (bt *BxTransaction) SetSender(sender Sender) {
	bt.m.Lock()
	defer bt.m.Unlock()

	copy(bt.sender[:], sender[:])
}

// AddTime returns the time the transaction was added
func (bt *BxTransaction) AddTime() time.Time {
	bt.m.RLock()
	defer bt.m.RUnlock()

	return bt.addTime
}

// SetAddTime sets the time the transaction was added
func (bt *BxTransaction) SetAddTime(t time.Time) {
	bt.m.Lock()
	defer bt.m.Unlock()

	bt.addTime = t
}

// GetRawTx returns preconfigured raw tx string, normally the raw tx is calculated based on tx content
func (bt *BxTransaction) GetRawTx() string {
	bt.m.RLock()
	defer bt.m.RUnlock()

	return bt.rawTx
}

// SetRawTx sets the raw_tx
func (bt *BxTransaction) SetRawTx(rawTx string) {
	bt.m.Lock()
	defer bt.m.Unlock()

	bt.rawTx = rawTx
}

// SetContent sets the blockchain transaction contents only if the contents are new and have never been set before. SetContent returns whether the content was updated.
func (bt *BxTransaction) SetContent(content TxContent) bool {
	bt.m.Lock()
	defer bt.m.Unlock()

	if len(bt.content) == 0 && len(content) > 0 {
		bt.content = make(TxContent, len(content))
		copy(bt.content, content)
		return true
	}

	return false
}

// BlockchainTransaction parses and returns a transaction for the given network number's spec
func (bt *BxTransaction) BlockchainTransaction() (BlockchainTransaction, error) {
	bt.m.RLock()
	defer bt.m.RUnlock()

	// only Ethereum based networks are supported
	return EthTransactionFromBytes(bt.hash, bt.content, bt.sender)
}
