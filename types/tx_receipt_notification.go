package types

import (
	"encoding/json"
)

const nullAddressStr = "0x"

// TxReceiptNotification - represents a transaction receipt feed entry
// to avoid deserializing/reserializing the message from Ethereum RPC, no conversion work is done
type TxReceiptNotification struct {
	receipt txReceipt
}

type txReceipt struct {
	BlockHash         string        `json:"block_hash,omitempty"`
	BlockNumber       string        `json:"block_number,omitempty"`
	ContractAddress   interface{}   `json:"contract_address,omitempty"`
	CumulativeGasUsed string        `json:"cumulative_gas_used,omitempty"`
	EffectiveGasPrice string        `json:"effective_gas_price,omitempty"`
	From              interface{}   `json:"from,omitempty"`
	GasUsed           string        `json:"gas_used,omitempty"`
	Logs              []interface{} `json:"logs,omitempty"`
	LogsBloom         string        `json:"logs_bloom,omitempty"`
	Status            string        `json:"status,omitempty"`
	To                interface{}   `json:"to,omitempty"`
	TransactionHash   string        `json:"transaction_hash,omitempty"`
	TransactionIndex  string        `json:"transaction_index,omitempty"`
	TxType            string        `json:"type,omitempty"`
}

// NewTxReceiptNotification returns a new TxReceiptNotification built from the receipt map returned by the node
func NewTxReceiptNotification(receipt map[string]interface{}) *TxReceiptNotification {
	txReceiptNotification := TxReceiptNotification{}

	if blockHash, ok := receipt["blockHash"]; ok {
		txReceiptNotification.receipt.BlockHash = blockHash.(string)
	}
	if blockNumber, ok := receipt["blockNumber"]; ok {
		txReceiptNotification.receipt.BlockNumber = blockNumber.(string)
	}
	if contractAddress, ok := receipt["contractAddress"]; ok {
		txReceiptNotification.receipt.ContractAddress = contractAddress
	}
	if cumulativeGasUsed, ok := receipt["cumulativeGasUsed"]; ok {
		txReceiptNotification.receipt.CumulativeGasUsed = cumulativeGasUsed.(string)
	}
	if effectiveGasPrice, ok := receipt["effectiveGasPrice"]; ok {
		txReceiptNotification.receipt.EffectiveGasPrice = effectiveGasPrice.(string)
	}
	if from, ok := receipt["from"]; ok {
		txReceiptNotification.receipt.From = from
	}
	if gasUsed, ok := receipt["gasUsed"]; ok {
		txReceiptNotification.receipt.GasUsed = gasUsed.(string)
	}
	if logs, ok := receipt["logs"]; ok {
		txReceiptNotification.receipt.Logs = logs.([]interface{})
	}
	if logsBloom, ok := receipt["logsBloom"]; ok {
		txReceiptNotification.receipt.LogsBloom = logsBloom.(string)
	}
	if status, ok := receipt["status"]; ok {
		txReceiptNotification.receipt.Status = status.(string)
	}
	if to, ok := receipt["to"]; ok {
		txReceiptNotification.receipt.To = to
	}
	if transactionHash, ok := receipt["transactionHash"]; ok {
		txReceiptNotification.receipt.TransactionHash = transactionHash.(string)
	}
	if transactionIndex, ok := receipt["transactionIndex"]; ok {
		txReceiptNotification.receipt.TransactionIndex = transactionIndex.(string)
	}
	if txType, ok := receipt["type"]; ok {
		txReceiptNotification.receipt.TxType = txType.(string)
	}

	return &txReceiptNotification
}

// MarshalJSON formats txReceiptNotification, including nil "to" field if requested
func (r *TxReceiptNotification) MarshalJSON() ([]byte, error) {
	marshalled, err := json.Marshal(r.receipt)
	if r.receipt.To != nullAddressStr {
		return marshalled, err
	}
	var mapWithNilToField map[string]interface{}
	json.Unmarshal(marshalled, &mapWithNilToField)
	mapWithNilToField["to"] = nil
	return json.Marshal(mapWithNilToField)
}

// WithFields -
func (r *TxReceiptNotification) WithFields(fields []string) Notification {
	txReceiptNotification := TxReceiptNotification{}
	for _, param := range fields {
		switch param {
		case "block_hash":
			txReceiptNotification.receipt.BlockHash = r.receipt.BlockHash
		case "block_number":
			txReceiptNotification.receipt.BlockNumber = r.receipt.BlockNumber
		case "contract_address":
			txReceiptNotification.receipt.ContractAddress = r.receipt.ContractAddress
		case "cumulative_gas_used":
			txReceiptNotification.receipt.CumulativeGasUsed = r.receipt.CumulativeGasUsed
		case "effective_gas_price":
			txReceiptNotification.receipt.EffectiveGasPrice = r.receipt.EffectiveGasPrice
		case "from":
			txReceiptNotification.receipt.From = r.receipt.From
		case "gas_used":
			txReceiptNotification.receipt.GasUsed = r.receipt.GasUsed
		case "logs":
			txReceiptNotification.receipt.Logs = r.receipt.Logs
		case "logs_bloom":
			txReceiptNotification.receipt.LogsBloom = r.receipt.LogsBloom
		case "status":
			txReceiptNotification.receipt.Status = r.receipt.Status
		case "to":
			txReceiptNotification.receipt.To = r.receipt.To
			if r.receipt.To == nil {
				txReceiptNotification.receipt.To = nullAddressStr
			}
		case "transaction_hash":
			txReceiptNotification.receipt.TransactionHash = r.receipt.TransactionHash
		case "transaction_index":
			txReceiptNotification.receipt.TransactionIndex = r.receipt.TransactionIndex
		case "type":
			txReceiptNotification.receipt.TxType = r.receipt.TxType
		}
	}
	return &txReceiptNotification
}

// Filters -
func (r *TxReceiptNotification) Filters(filters []string) map[string]interface{} {
	return nil
}

// LocalRegion -
func (r *TxReceiptNotification) LocalRegion() bool {
	return false
}

// GetHash -
func (r *TxReceiptNotification) GetHash() string {
	return r.receipt.BlockHash
}

// NotificationType - feed name
func (r *TxReceiptNotification) NotificationType() FeedType {
	return TxReceiptsFeed
}

// Source - receipts are fetched from the blockchain node's RPC interface
func (r *TxReceiptNotification) Source() FeedSource {
	return FeedSourceBlockchainRPC
}
