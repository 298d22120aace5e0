package types

// FeedSource identifies the connection type an event entered the gateway from
type FeedSource int

// FeedSource enumeration
const (
	FeedSourceBDNSocket FeedSource = iota
	FeedSourceBlockchainSocket
	FeedSourceBlockchainRPC
)

// FromBlockchain indicates whether the source is the local blockchain node rather than the BDN
func (s FeedSource) FromBlockchain() bool {
	return s == FeedSourceBlockchainSocket || s == FeedSourceBlockchainRPC
}

// String returns a readable representation of the feed source
func (s FeedSource) String() string {
	switch s {
	case FeedSourceBDNSocket:
		return "BDN"
	case FeedSourceBlockchainSocket:
		return "blockchain-ws"
	case FeedSourceBlockchainRPC:
		return "blockchain-rpc"
	}
	return "unknown"
}
