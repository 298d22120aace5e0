package config

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astranet-network/gateway/types"
)

func TestNetworkConfig(t *testing.T) {
	mainnet, err := NetworkConfig("mainnet")
	require.NoError(t, err)
	assert.Equal(t, int64(1), mainnet.ChainID)
	assert.NoError(t, mainnet.Validate())

	testnet, err := NetworkConfig("testnet")
	require.NoError(t, err)
	assert.Equal(t, int64(17000), testnet.ChainID)
	assert.NoError(t, testnet.Validate())

	local, err := NetworkConfig("local")
	require.NoError(t, err)
	assert.NotEmpty(t, local.EthWSUri)
	assert.NoError(t, local.Validate())

	_, err = NetworkConfig("ropsten")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{NetworkNum: 5, WebsocketPort: 28333}
	assert.NoError(t, valid.Validate())

	reservedNetwork := Config{NetworkNum: types.AllNetworkNum, WebsocketPort: 28333}
	assert.Error(t, reservedNetwork.Validate())

	badPort := Config{NetworkNum: 5, WebsocketPort: 0}
	assert.Error(t, badPort.Validate())

	negativeFloor := Config{NetworkNum: 5, WebsocketPort: 28333, MinTxGasPrice: big.NewInt(-1)}
	assert.Error(t, negativeFloor.Validate())
}
