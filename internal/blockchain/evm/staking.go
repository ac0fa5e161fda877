package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"hashstake/dashboard/internal/models"
)

// StakingABI is the ABI of the tiered staking contract
const StakingABI = `[
	{
		"inputs": [],
		"name": "availableRewards",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getPoolInfo",
		"outputs": [
			{"internalType": "uint256", "name": "totalStaked", "type": "uint256"},
			{"internalType": "uint256", "name": "rewardBalance", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "user", "type": "address"}],
		"name": "getUserStakes",
		"outputs": [{"internalType": "uint256[]", "name": "", "type": "uint256[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "user", "type": "address"}],
		"name": "getUserStakeSummary",
		"outputs": [
			{"internalType": "uint256", "name": "totalStaked", "type": "uint256"},
			{"internalType": "uint256", "name": "totalRewards", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "APR_3M",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "APR_6M",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "APR_12M",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "amount", "type": "uint256"}],
		"name": "fundRewards",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "amount", "type": "uint256"},
			{"internalType": "uint256", "name": "tier", "type": "uint256"}
		],
		"name": "stake",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "tier", "type": "uint256"}],
		"name": "claimReward",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "tier", "type": "uint256"}],
		"name": "unstake",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// Staking provides methods to interact with the tiered staking contract
type Staking struct {
	contract *boundContract
}

// NewStaking binds the staking contract at address
func NewStaking(address common.Address, caller ethereum.ContractCaller) (*Staking, error) {
	contract, err := newBoundContract(address, StakingABI, caller)
	if err != nil {
		return nil, fmt.Errorf("failed to bind staking contract: %w", err)
	}
	return &Staking{contract: contract}, nil
}

// Address returns the staking contract address
func (s *Staking) Address() common.Address {
	return s.contract.address
}

// AvailableRewards returns the reward pool balance
func (s *Staking) AvailableRewards(ctx context.Context) (*big.Int, error) {
	return s.contract.callUint(ctx, "availableRewards")
}

// PoolInfo returns the total amount staked across all users
func (s *Staking) PoolInfo(ctx context.Context) (*big.Int, error) {
	return s.contract.callUint(ctx, "getPoolInfo")
}

// UserStakes returns the raw stakes vector of user. The length is not
// checked here; decoding belongs to the caller.
func (s *Staking) UserStakes(ctx context.Context, user common.Address) ([]*big.Int, error) {
	out, err := s.contract.call(ctx, "getUserStakes", user)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("getUserStakes returned no values")
	}
	return flattenUints(out[0])
}

// UserStakeSummary returns the aggregate stake of user
func (s *Staking) UserStakeSummary(ctx context.Context, user common.Address) (models.UserSummary, error) {
	out, err := s.contract.call(ctx, "getUserStakeSummary", user)
	if err != nil {
		return models.UserSummary{}, err
	}
	if len(out) < 2 {
		return models.UserSummary{}, fmt.Errorf("getUserStakeSummary returned %d values, want 2", len(out))
	}
	staked, ok1 := out[0].(*big.Int)
	rewards, ok2 := out[1].(*big.Int)
	if !ok1 || !ok2 {
		return models.UserSummary{}, fmt.Errorf("getUserStakeSummary returned unexpected types %T, %T", out[0], out[1])
	}
	return models.UserSummary{TotalStaked: staked, TotalRewards: rewards}, nil
}

// TierRate returns the APR of tier in basis points
func (s *Staking) TierRate(ctx context.Context, tier models.TierID) (*big.Int, error) {
	method, err := rateMethod(tier)
	if err != nil {
		return nil, err
	}
	return s.contract.callUint(ctx, method)
}

// PrepareFundRewards builds fundRewards(amount)
func (s *Staking) PrepareFundRewards(amount *big.Int) (*models.Call, error) {
	return s.contract.prepare("fundRewards", amount)
}

// PrepareStake builds stake(amount, tier)
func (s *Staking) PrepareStake(amount *big.Int, tier models.TierID) (*models.Call, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("invalid tier: %d", tier)
	}
	return s.contract.prepare("stake", amount, big.NewInt(int64(tier)))
}

// PrepareClaimReward builds claimReward(tier)
func (s *Staking) PrepareClaimReward(tier models.TierID) (*models.Call, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("invalid tier: %d", tier)
	}
	return s.contract.prepare("claimReward", big.NewInt(int64(tier)))
}

// PrepareUnstake builds unstake(tier)
func (s *Staking) PrepareUnstake(tier models.TierID) (*models.Call, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("invalid tier: %d", tier)
	}
	return s.contract.prepare("unstake", big.NewInt(int64(tier)))
}

func rateMethod(tier models.TierID) (string, error) {
	switch tier {
	case models.Tier3M:
		return "APR_3M", nil
	case models.Tier6M:
		return "APR_6M", nil
	case models.Tier12M:
		return "APR_12M", nil
	}
	return "", fmt.Errorf("invalid tier: %d", tier)
}

// flattenUints accepts the shapes go-ethereum unpacks a uint256 list into
func flattenUints(v interface{}) ([]*big.Int, error) {
	switch vals := v.(type) {
	case []*big.Int:
		return vals, nil
	case [9]*big.Int:
		return vals[:], nil
	case []interface{}:
		out := make([]*big.Int, len(vals))
		for i, e := range vals {
			n, ok := e.(*big.Int)
			if !ok {
				return nil, fmt.Errorf("stakes element %d is %T, want uint256", i, e)
			}
			out[i] = n
		}
		return out, nil
	}
	return nil, fmt.Errorf("stakes vector has unexpected type %T", v)
}
