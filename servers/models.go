package servers

import (
	"github.com/zhouzhuojie/conditions"

	"github.com/astranet-network/gateway/services/feed"
	"github.com/astranet-network/gateway/types"
)

// TxResponse - response of the jsonrpc params
type TxResponse struct {
	Subscription string   `json:"subscription"`
	Result       TxResult `json:"result"`
}

// TxResult - request of jsonrpc params
type TxResult struct {
	TxHash      *string                     `json:"txHash,omitempty"`
	TxContents  types.BlockchainTransaction `json:"txContents,omitempty"`
	LocalRegion *bool                       `json:"localRegion,omitempty"`
	Time        *string                     `json:"time,omitempty"`
	RawTx       *string                     `json:"rawTx,omitempty"`
}

// BlockResponse - response of the jsonrpc params
type BlockResponse struct {
	Subscription string             `json:"subscription"`
	Result       types.Notification `json:"result"`
}

type rpcPingResponse struct {
	Pong string `json:"pong"`
}

type rpcTxResponse struct {
	TxHash string `json:"txHash"`
}

type clientReq struct {
	feed    types.FeedType
	options feed.SubscriptionOptions
	expr    conditions.Expr
	calls   map[string]*RPCCall
}

type subscriptionRequest struct {
	feed    types.FeedType
	options feed.SubscriptionOptions
}
