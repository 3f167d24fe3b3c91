package evmchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// multicallAddr is the canonical Multicall3 deployment address, present
// at the same address on every chain that has it deployed. Grounded on
// the teacher's balances.go constant.
var multicallAddr = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

const multicallABIJSON = `[
  {"inputs":[{"components":[{"name":"target","type":"address"},{"name":"allowFailure","type":"bool"},{"name":"callData","type":"bytes"}],"name":"calls","type":"tuple[]"}],"name":"aggregate3","outputs":[{"components":[{"name":"success","type":"bool"},{"name":"returnData","type":"bytes"}],"name":"returnData","type":"tuple[]"}],"stateMutability":"payable","type":"function"},
  {"inputs":[{"name":"addr","type":"address"}],"name":"getEthBalance","outputs":[{"name":"balance","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const erc20BalanceOfABIJSON = `[{"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

type multicall3Call struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// AddressBalance holds the native and token balances read for one
// address in one BatchBalances call.
type AddressBalance struct {
	Address common.Address
	Native  *big.Int
	Token   *big.Int
}

// BatchBalances reads native + tokenAddr balances for every address in
// one RPC round trip via Multicall3.aggregate3, grounded on the
// teacher's balances.go fetchChainBalances.
func (c *Client) BatchBalances(ctx context.Context, tokenAddr common.Address, addrs []common.Address) ([]AddressBalance, error) {
	if len(addrs) == 0 {
		return nil, nil
	}

	multicallABI, err := abi.JSON(strings.NewReader(multicallABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing multicall abi: %w", err)
	}
	erc20ABI, err := abi.JSON(strings.NewReader(erc20BalanceOfABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing erc20 abi: %w", err)
	}

	var calls []multicall3Call
	for _, addr := range addrs {
		ethData, err := multicallABI.Pack("getEthBalance", addr)
		if err != nil {
			return nil, fmt.Errorf("packing getEthBalance: %w", err)
		}
		calls = append(calls, multicall3Call{Target: multicallAddr, AllowFailure: true, CallData: ethData})

		balData, err := erc20ABI.Pack("balanceOf", addr)
		if err != nil {
			return nil, fmt.Errorf("packing balanceOf: %w", err)
		}
		calls = append(calls, multicall3Call{Target: tokenAddr, AllowFailure: true, CallData: balData})
	}

	callData, err := multicallABI.Pack("aggregate3", calls)
	if err != nil {
		return nil, fmt.Errorf("packing aggregate3: %w", err)
	}

	output, err := c.Call(ctx, geth.CallMsg{To: &multicallAddr, Data: callData})
	if err != nil {
		return nil, fmt.Errorf("calling aggregate3: %w", err)
	}

	decoded, err := multicallABI.Unpack("aggregate3", output)
	if err != nil {
		return nil, fmt.Errorf("unpacking aggregate3: %w", err)
	}

	rawResults, ok := decoded[0].([]struct {
		Success    bool   `json:"success"`
		ReturnData []byte `json:"returnData"`
	})
	if !ok {
		return nil, fmt.Errorf("unexpected aggregate3 return type")
	}

	results := make([]AddressBalance, len(addrs))
	for i, addr := range addrs {
		native := big.NewInt(0)
		tok := big.NewInt(0)

		ethIdx, tokIdx := i*2, i*2+1
		if ethIdx < len(rawResults) && rawResults[ethIdx].Success && len(rawResults[ethIdx].ReturnData) >= 32 {
			native.SetBytes(rawResults[ethIdx].ReturnData)
		}
		if tokIdx < len(rawResults) && rawResults[tokIdx].Success && len(rawResults[tokIdx].ReturnData) >= 32 {
			tok.SetBytes(rawResults[tokIdx].ReturnData)
		}

		results[i] = AddressBalance{Address: addr, Native: native, Token: tok}
	}

	return results, nil
}
