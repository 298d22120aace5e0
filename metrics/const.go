package metrics

// Tags attached to gateway metrics
const (
	FeedName       = "gateway.feed.name"
	NetworkNum     = "blockchain.network_num"
	RPCMethod      = "gateway.rpc.method"
	RemoteEndpoint = "blockchain.endpoint"
)
