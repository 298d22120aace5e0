package config

import "math/big"

// MainnetConfig is configuration for an instance serving Ethereum mainnet
var MainnetConfig = Config{
	NetworkNum:    5,
	ChainID:       1,
	WebsocketHost: "127.0.0.1",
	WebsocketPort: 28333,
	MinTxGasPrice: big.NewInt(1000000000),
}
