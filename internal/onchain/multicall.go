package onchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Multicall batches per-holder balanceOf lookups into one Multicall3
// aggregate round trip, so a report costs one RPC call no matter how many
// accounts the store holds.
type Multicall struct {
	client        *Client
	multicallAddr common.Address
	tokenAddr     common.Address
	mcABI         abi.ABI
	erc20ABI      abi.ABI
}

type multicallCall struct {
	Target   common.Address
	CallData []byte
}

func NewMulticall(client *Client, multicallAddr, tokenAddr string) (*Multicall, error) {
	mcABI, err := abi.JSON(mustMulticallABI())
	if err != nil {
		return nil, fmt.Errorf("parse multicall ABI: %w", err)
	}
	erc20ABI, err := abi.JSON(mustERC20ABI())
	if err != nil {
		return nil, fmt.Errorf("parse ERC20 ABI: %w", err)
	}
	return &Multicall{
		client:        client,
		multicallAddr: common.HexToAddress(multicallAddr),
		tokenAddr:     common.HexToAddress(tokenAddr),
		mcABI:         mcABI,
		erc20ABI:      erc20ABI,
	}, nil
}

// Balances returns the token balance of every holder, aligned by index with
// the input. A failure here is fatal to the caller's report: there is no
// partial fallback for the balance snapshot.
func (m *Multicall) Balances(ctx context.Context, holders []common.Address) ([]*big.Int, error) {
	calls := make([]multicallCall, len(holders))
	for i, holder := range holders {
		data, err := m.erc20ABI.Pack("balanceOf", holder)
		if err != nil {
			return nil, fmt.Errorf("pack balanceOf(%s): %w", holder.Hex(), err)
		}
		calls[i] = multicallCall{Target: m.tokenAddr, CallData: data}
	}

	input, err := m.mcABI.Pack("aggregate", calls)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate: %w", err)
	}

	output, err := m.client.CallContract(ctx, m.multicallAddr, input)
	if err != nil {
		return nil, fmt.Errorf("aggregate call: %w", err)
	}

	return m.decodeAggregate(output, len(holders))
}

func (m *Multicall) decodeAggregate(output []byte, want int) ([]*big.Int, error) {
	results, err := m.mcABI.Unpack("aggregate", output)
	if err != nil {
		return nil, fmt.Errorf("unpack aggregate: %w", err)
	}
	if len(results) != 2 {
		return nil, fmt.Errorf("aggregate returned %d values, want 2", len(results))
	}
	returnData, ok := results[1].([][]byte)
	if !ok {
		return nil, fmt.Errorf("aggregate returnData has unexpected type %T", results[1])
	}
	if len(returnData) != want {
		return nil, fmt.Errorf("aggregate returned %d results for %d holders", len(returnData), want)
	}

	balances := make([]*big.Int, len(returnData))
	for i, data := range returnData {
		balances[i] = new(big.Int).SetBytes(data)
	}
	return balances, nil
}
