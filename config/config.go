// Package config carries the already validated runtime options of a gateway
// node. Values arrive from the embedding application, the gateway performs no
// flag or environment parsing of its own.
package config

import (
	"fmt"
	"math/big"

	"github.com/astranet-network/gateway/types"
)

// Config represents gateway node configuration
type Config struct {
	// NetworkNum identifies the blockchain network the node serves. Feeds are
	// registered and published under this number.
	NetworkNum types.NetworkNum

	// ChainID of the served network, used by clients submitting transactions
	ChainID int64

	WebsocketHost string
	WebsocketPort int

	// EthWSUri is the websocket endpoint of a blockchain node, used for the
	// pendingTxs, txReceipts and ethOnBlock feeds and for forwarding submitted
	// transactions. Optional, the newTxs and bdnBlocks feeds work without it.
	EthWSUri string

	// MinTxGasPrice keeps transactions priced below the floor out of the
	// pendingTxs feed. nil disables the gate.
	MinTxGasPrice *big.Int

	// SendConfirmation streams transactions confirmed by the blockchain node
	// to opted-in peer gateways
	SendConfirmation bool
}

// NetworkConfig returns the preset configuration for a named blockchain network
func NetworkConfig(network string) (Config, error) {
	switch network {
	case "mainnet":
		return MainnetConfig, nil
	case "testnet":
		return TestnetConfig, nil
	case "local":
		return LocalConfig, nil
	default:
		return Config{}, fmt.Errorf("network %v is not supported", network)
	}
}

// Validate checks the configuration for values the gateway cannot run with
func (c *Config) Validate() error {
	if c.NetworkNum == types.AllNetworkNum {
		return fmt.Errorf("network number %v is reserved for cross-network publishing", types.AllNetworkNum)
	}
	if c.WebsocketPort <= 0 || c.WebsocketPort > 65535 {
		return fmt.Errorf("invalid websocket port %v", c.WebsocketPort)
	}
	if c.MinTxGasPrice != nil && c.MinTxGasPrice.Sign() < 0 {
		return fmt.Errorf("minimum gas price %v may not be negative", c.MinTxGasPrice)
	}
	return nil
}
