package chain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EscrowABI is the interface of the milestone escrow contract. Bytecode is loaded
// separately from the compiled artifact because only deployment needs it.
const EscrowABI = `[
	{"type":"constructor","stateMutability":"nonpayable","inputs":[
		{"name":"client","type":"address"},
		{"name":"beneficiary","type":"address"},
		{"name":"admin","type":"address"},
		{"name":"depositAmount","type":"uint256"},
		{"name":"balanceAmount","type":"uint256"}
	]},
	{"type":"function","name":"fundDeposit","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"fundBalance","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"recordDepositFiat","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"recordBalanceFiat","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"release","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"refund","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"split","stateMutability":"nonpayable","inputs":[{"name":"clientPercent","type":"uint8"}],"outputs":[]},
	{"type":"function","name":"pause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"unpause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"paused","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"DepositFunded","anonymous":false,"inputs":[
		{"name":"payer","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"BalanceFunded","anonymous":false,"inputs":[
		{"name":"payer","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"FiatRecorded","anonymous":false,"inputs":[
		{"name":"admin","type":"address","indexed":true},
		{"name":"milestone","type":"uint8","indexed":false}
	]},
	{"type":"event","name":"Released","anonymous":false,"inputs":[
		{"name":"beneficiary","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"Refunded","anonymous":false,"inputs":[
		{"name":"client","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"Split","anonymous":false,"inputs":[
		{"name":"clientAmount","type":"uint256","indexed":false},
		{"name":"beneficiaryAmount","type":"uint256","indexed":false},
		{"name":"clientPercent","type":"uint8","indexed":false}
	]},
	{"type":"event","name":"Paused","anonymous":false,"inputs":[
		{"name":"account","type":"address","indexed":false}
	]},
	{"type":"event","name":"Unpaused","anonymous":false,"inputs":[
		{"name":"account","type":"address","indexed":false}
	]}
]`

// ParseEscrowABI parses the embedded contract interface.
func ParseEscrowABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(EscrowABI))
}

// LoadBytecode reads deployment bytecode from a compiled artifact. Both the
// hardhat/foundry shape ({"bytecode": "0x..."} or {"bytecode": {"object": "0x..."}})
// and a bare hex file are accepted.
func LoadBytecode(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		return decodeBytecode(string(trimmed))
	}

	var artifact struct {
		Bytecode json.RawMessage `json:"bytecode"`
	}
	if err := json.Unmarshal(trimmed, &artifact); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	if len(artifact.Bytecode) == 0 {
		return nil, fmt.Errorf("artifact %s has no bytecode", path)
	}

	var hexCode string
	if err := json.Unmarshal(artifact.Bytecode, &hexCode); err != nil {
		var obj struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(artifact.Bytecode, &obj); err != nil {
			return nil, fmt.Errorf("artifact %s: unsupported bytecode format", path)
		}
		hexCode = obj.Object
	}
	return decodeBytecode(hexCode)
}

func decodeBytecode(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	code, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode hex: %w", err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("empty bytecode")
	}
	return code, nil
}
