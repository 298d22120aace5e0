package types

import (
	"encoding/hex"
	"fmt"
)

// NodeEndpoint - represents the blockchain node endpoint a message arrived from
type NodeEndpoint struct {
	IP        string
	Port      int
	PublicKey string
}

// String returns string representation of NodeEndpoint
func (e NodeEndpoint) String() string {
	return fmt.Sprintf("%v %v %v", e.IP, e.Port, e.PublicKey)
}

// IPPort returns string of IP and Port
func (e NodeEndpoint) IPPort() string {
	return fmt.Sprintf("%v %v", e.IP, e.Port)
}

// NetworkNum represents the network that a message is being routed in (Ethereum Mainnet, Ethereum Goerli, etc.)
type NetworkNum uint32

// AllNetworkNum is the network number for feeds that facilitate messages from all networks
const AllNetworkNum NetworkNum = 0

// Sender represents sender type
type Sender [20]byte

// String returns string of the Sender
func (s Sender) String() string {
	return hex.EncodeToString(s[:])
}
