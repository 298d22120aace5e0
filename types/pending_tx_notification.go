package types

import "sync"

// PendingTransactionNotification - contains BxTransaction with the local region of the ethereum transaction and all its fields
type PendingTransactionNotification struct {
	NewTransactionNotification
}

// CreatePendingTransactionNotification - creates PendingTransactionNotification object which contains bxTransaction and local region
func CreatePendingTransactionNotification(bxTx *BxTransaction) *PendingTransactionNotification {
	return &PendingTransactionNotification{
		NewTransactionNotification{
			BxTransaction:    bxTx,
			source:           FeedSourceBDNSocket,
			validationStatus: TxPendingValidation,
			lock:             &sync.Mutex{},
		},
	}
}

// NotificationType - returns feed name
func (n *PendingTransactionNotification) NotificationType() FeedType {
	return PendingTxsFeed
}
