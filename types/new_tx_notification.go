package types

import (
	"fmt"
	"sync"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	log "github.com/sirupsen/logrus"
)

// TxValidationStatus indicates the validation status of transaction notifications
type TxValidationStatus int

// TxValidationStatus types enumeration
const (
	TxPendingValidation TxValidationStatus = 0
	TxInvalid           TxValidationStatus = 1
	TxValid             TxValidationStatus = 2
)

// NewTransactionNotification - contains BxTransaction with the local region of the ethereum transaction and all its fields
type NewTransactionNotification struct {
	*BxTransaction
	BlockchainTransaction
	source           FeedSource
	validationStatus TxValidationStatus
	// lock prevents parallel parsing of the transaction contents
	lock *sync.Mutex
}

// CreateNewTransactionNotification - creates NewTransactionNotification object which contains bxTransaction and local region
func CreateNewTransactionNotification(bxTx *BxTransaction) *NewTransactionNotification {
	return &NewTransactionNotification{
		BxTransaction:    bxTx,
		source:           FeedSourceBDNSocket,
		validationStatus: TxPendingValidation,
		lock:             &sync.Mutex{},
	}
}

// MakeBlockchainTransaction parses the transaction contents exactly once
func (n *NewTransactionNotification) MakeBlockchainTransaction() error {
	var err error
	n.lock.Lock()
	defer n.lock.Unlock()
	if n.validationStatus == TxPendingValidation {
		n.BlockchainTransaction, err = n.BxTransaction.BlockchainTransaction()
		if err != nil {
			n.validationStatus = TxInvalid
			err = fmt.Errorf("invalid tx with hash %v: %v", n.BxTransaction.Hash(), err)
			log.Errorf("failed in MakeBlockchainTransaction - %v", err)
			return err
		}
		n.validationStatus = TxValid
	}
	if n.validationStatus == TxInvalid {
		return fmt.Errorf("invalid tx")
	}
	return nil
}

// SetBlockchainTransaction attaches already parsed transaction contents, skipping the rlp decode path
func (n *NewTransactionNotification) SetBlockchainTransaction(bt BlockchainTransaction) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.BlockchainTransaction = bt
	n.validationStatus = TxValid
}

// Filters - parses the transaction if needed and returns a map of requested fields and their values for evaluation
func (n *NewTransactionNotification) Filters(filters []string) map[string]interface{} {
	err := n.MakeBlockchainTransaction()
	if err != nil {
		return nil
	}
	return n.BlockchainTransaction.Filters(filters)
}

// WithFields - parses the transaction if needed and returns a notification carrying only the requested fields
func (n *NewTransactionNotification) WithFields(fields []string) Notification {
	trimmed := &NewTransactionNotification{
		BxTransaction:    n.BxTransaction,
		source:           n.source,
		validationStatus: TxInvalid,
		lock:             &sync.Mutex{},
	}
	if err := n.MakeBlockchainTransaction(); err != nil {
		return trimmed
	}
	trimmed.BlockchainTransaction = n.BlockchainTransaction.WithFields(fields)
	trimmed.validationStatus = TxValid
	return trimmed
}

// LocalRegion - returns whether the transaction was first seen in this gateway's region
func (n *NewTransactionNotification) LocalRegion() bool {
	return n.BxTransaction.Flags().IsLocalRegion()
}

// GetHash - returns the hash of the transaction
func (n *NewTransactionNotification) GetHash() string {
	return n.BxTransaction.hash.Format(true)
}

// RawTx - returns the tx raw content
// the tx bytes returned can be used directly to submit to an RPC endpoint
// rlp.DecodeBytes is used for the wire protocol, while MarshalBinary is used for the RPC interface
func (n *NewTransactionNotification) RawTx() []byte {
	var rawTx ethtypes.Transaction
	err := rlp.DecodeBytes(n.BxTransaction.content, &rawTx)
	if err != nil {
		log.Infof("invalid tx content %v with hash %v. error %v", n.BxTransaction.content, n.BxTransaction.Hash(), err)
	}
	marshalledTxBytes, err := rawTx.MarshalBinary()
	if err != nil {
		log.Infof("invalid raw eth tx %v error %v", n.BxTransaction.Hash(), err)
	}
	return marshalledTxBytes
}

// NotificationType - returns feed name
func (n *NewTransactionNotification) NotificationType() FeedType {
	return NewTxsFeed
}

// SetSource - sets the connection type the notification was received from
func (n *NewTransactionNotification) SetSource(source FeedSource) {
	n.source = source
}

// Source - the connection type the notification was received from
func (n *NewTransactionNotification) Source() FeedSource {
	return n.source
}
