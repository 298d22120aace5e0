package config

// TestnetConfig is configuration for an instance serving the Holesky testnet
var TestnetConfig = Config{
	NetworkNum:    23,
	ChainID:       17000,
	WebsocketHost: "127.0.0.1",
	WebsocketPort: 28333,
}
