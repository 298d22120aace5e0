package config

// LocalConfig is configuration for running against a local dev chain
// (i.e. a single node started with --dev)
var LocalConfig = Config{
	NetworkNum:    1,
	ChainID:       1337,
	WebsocketHost: "127.0.0.1",
	WebsocketPort: 28333,
	EthWSUri:      "ws://127.0.0.1:8546",
}
