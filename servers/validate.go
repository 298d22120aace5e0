package servers

import (
	"fmt"

	"github.com/astranet-network/gateway/types"
	"github.com/astranet-network/gateway/utils"
)

var txContentFields = []string{"tx_contents.nonce", "tx_contents.tx_hash",
	"tx_contents.gas_price", "tx_contents.gas", "tx_contents.to", "tx_contents.value", "tx_contents.input",
	"tx_contents.v", "tx_contents.r", "tx_contents.s", "tx_contents.from", "tx_contents.type", "tx_contents.access_list",
	"tx_contents.chain_id", "tx_contents.max_priority_fee_per_gas", "tx_contents.max_fee_per_gas"}

var validTxParams = append(txContentFields, "tx_contents", "tx_hash", "local_region", "time", "raw_tx")

var validBlockParams = append(txContentFields, "hash", "header", "transactions", "uncles")

var validOnBlockParams = []string{"name", "response", "block_height", "tag"}

var validTxReceiptParams = []string{"block_hash", "block_number", "contract_address",
	"cumulative_gas_used", "effective_gas_price", "from", "gas_used", "logs", "logs_bloom",
	"status", "to", "transaction_hash", "transaction_index", "type"}

var validParams = map[types.FeedType][]string{
	types.NewTxsFeed:     validTxParams,
	types.BDNBlocksFeed:  validBlockParams,
	types.NewBlocksFeed:  validBlockParams,
	types.PendingTxsFeed: validTxParams,
	types.OnBlockFeed:    validOnBlockParams,
	types.TxReceiptsFeed: validTxReceiptParams,
}

var defaultTxParams = append(txContentFields, "tx_hash", "local_region", "time")

var availableFeeds = []types.FeedType{types.NewTxsFeed, types.NewBlocksFeed, types.BDNBlocksFeed, types.PendingTxsFeed, types.OnBlockFeed, types.TxReceiptsFeed}

// txFeeds are the feeds that stream transactions and accept filter expressions
var txFeeds = []types.FeedType{types.NewTxsFeed, types.PendingTxsFeed}

// validateIncludeParam checks every requested include against the feed's valid
// params and returns the normalized include list. An empty request selects the
// feed's defaults, "tx_contents" expands to all its fields.
func validateIncludeParam(feedType types.FeedType, include []string) ([]string, error) {
	if len(include) == 0 {
		switch feedType {
		case types.BDNBlocksFeed, types.NewBlocksFeed:
			return validBlockParams, nil
		case types.NewTxsFeed, types.PendingTxsFeed:
			return defaultTxParams, nil
		default:
			return validParams[feedType], nil
		}
	}

	var requestedFields []string
	for _, param := range include {
		if !utils.Exists(param, validParams[feedType]) {
			return nil, fmt.Errorf("got unsupported param %v for feed %v", param, feedType)
		}
		if param == "tx_contents" {
			requestedFields = append(requestedFields, txContentFields...)
		}
		requestedFields = append(requestedFields, param)
	}
	return requestedFields, nil
}
