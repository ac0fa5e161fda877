package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"hashstake/dashboard/internal/models"
)

// boundContract pairs a parsed ABI with an address and a read backend
type boundContract struct {
	address common.Address
	abi     abi.ABI
	caller  ethereum.ContractCaller
}

func newBoundContract(address common.Address, abiJSON string, caller ethereum.ContractCaller) (*boundContract, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}
	return &boundContract{address: address, abi: parsed, caller: caller}, nil
}

// call runs a read-only method against the latest block and returns its unpacked outputs
func (b *boundContract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	result, err := b.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &b.address,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	out, err := b.abi.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return out, nil
}

// callUint runs a method whose first output is a uint256
func (b *boundContract) callUint(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := b.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s returned %T, want uint256", method, out[0])
	}
	return v, nil
}

// prepare packs a state-changing call for submission
func (b *boundContract) prepare(method string, args ...interface{}) (*models.Call, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}
	return &models.Call{
		To:     b.address,
		Method: method,
		Args:   args,
		Data:   data,
	}, nil
}
