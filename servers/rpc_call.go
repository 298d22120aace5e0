package servers

import (
	"encoding/json"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/astranet-network/gateway/blockchain"
	"github.com/astranet-network/gateway/utils"
)

// RPCCall represents customer call executed for onBlock feed
type RPCCall struct {
	commandMethod string
	blockOffset   int
	callName      string
	callPayload   map[string]string
	active        bool
}

func newCall(name string) *RPCCall {
	return &RPCCall{
		callName:    name,
		callPayload: make(map[string]string),
		active:      true,
	}
}

func (c *RPCCall) validatePayload(method string, requiredFields []string) error {
	for _, field := range requiredFields {
		_, ok := c.callPayload[field]
		if !ok {
			return fmt.Errorf("expected %v element in request payload for %v", field, method)
		}
	}
	return nil
}

func (c *RPCCall) string() string {
	payloadBytes, err := json.Marshal(c.callPayload)
	if err != nil {
		log.Errorf("failed to convert eth call to string: %v", err)
		return c.callName
	}

	return fmt.Sprintf("%+v", struct {
		commandMethod string
		blockOffset   int
		callName      string
		callPayload   string
		active        bool
	}{
		commandMethod: c.commandMethod,
		blockOffset:   c.blockOffset,
		callName:      c.callName,
		callPayload:   string(payloadBytes),
		active:        c.active,
	})
}

// parseCallParams validates the call_params of an ethOnBlock subscription
// against the node provider and builds the call table keyed by call name
func parseCallParams(nodeWS blockchain.WSProvider, callParams []map[string]string) (map[string]*RPCCall, error) {
	calls := make(map[string]*RPCCall)
	for idx, callParam := range callParams {
		if callParam == nil {
			return nil, fmt.Errorf("call-params cannot be nil")
		}
		call := newCall(strconv.Itoa(idx))
		for param, value := range callParam {
			switch param {
			case "method":
				isValidMethod := utils.Exists(value, nodeWS.ValidRPCCallMethods())
				if !isValidMethod {
					return nil, fmt.Errorf("invalid method %v provided. Supported methods: %v", value, nodeWS.ValidRPCCallMethods())
				}
				call.commandMethod = value
			case "tag":
				if value == "latest" {
					call.blockOffset = 0
					break
				}
				blockOffset, err := strconv.Atoi(value)
				if err != nil || blockOffset > 0 {
					return nil, fmt.Errorf("invalid value %v provided for tag. Supported values: latest, 0 or a negative number", value)
				}
				call.blockOffset = blockOffset
			case "name":
				_, nameExists := calls[value]
				if nameExists {
					return nil, fmt.Errorf("unique name must be provided for each call: call %v already exists", value)
				}
				call.callName = value
			default:
				isValidPayloadField := utils.Exists(param, nodeWS.ValidRPCCallPayloadFields())
				if !isValidPayloadField {
					return nil, fmt.Errorf("invalid payload field %v provided. Supported fields: %v", param, nodeWS.ValidRPCCallPayloadFields())
				}
				call.callPayload[param] = value
			}
		}
		requiredFields, ok := nodeWS.RequiredPayloadFieldsForRPCMethod(call.commandMethod)
		if !ok {
			return nil, fmt.Errorf("unexpectedly, unable to find required fields for method %v", call.commandMethod)
		}
		if err := call.validatePayload(call.commandMethod, requiredFields); err != nil {
			return nil, err
		}
		calls[call.callName] = call
	}
	return calls, nil
}
