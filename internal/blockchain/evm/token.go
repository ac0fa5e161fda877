package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"hashstake/dashboard/internal/models"
)

// TokenABI is the ERC20 subset the dashboard uses
const TokenABI = `[
	{
		"inputs": [{"internalType": "address", "name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "owner", "type": "address"},
			{"internalType": "address", "name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "spender", "type": "address"},
			{"internalType": "uint256", "name": "value", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// Token provides methods to interact with the staking token
type Token struct {
	contract *boundContract
}

// NewToken binds the ERC20 token at address
func NewToken(address common.Address, caller ethereum.ContractCaller) (*Token, error) {
	contract, err := newBoundContract(address, TokenABI, caller)
	if err != nil {
		return nil, fmt.Errorf("failed to bind token: %w", err)
	}
	return &Token{contract: contract}, nil
}

// Address returns the token contract address
func (t *Token) Address() common.Address {
	return t.contract.address
}

// BalanceOf returns the token balance of owner in base units
func (t *Token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return t.contract.callUint(ctx, "balanceOf", owner)
}

// Allowance returns how much spender may pull from owner
func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return t.contract.callUint(ctx, "allowance", owner, spender)
}

// PrepareApprove builds approve(spender, amount)
func (t *Token) PrepareApprove(spender common.Address, amount *big.Int) (*models.Call, error) {
	return t.contract.prepare("approve", spender, amount)
}
