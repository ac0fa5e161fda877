package staking

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"hashstake/dashboard/internal/models"
)

// WalletProvider exposes the currently connected account, nil when disconnected
type WalletProvider interface {
	Account() *models.Account
}

// TokenContract is the ERC20 token being staked
type TokenContract interface {
	Address() common.Address
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	PrepareApprove(spender common.Address, amount *big.Int) (*models.Call, error)
}

// StakingContract is the tiered staking contract
type StakingContract interface {
	Address() common.Address
	AvailableRewards(ctx context.Context) (*big.Int, error)
	// PoolInfo returns the total amount staked in the pool
	PoolInfo(ctx context.Context) (*big.Int, error)
	// UserStakes returns the flat (principal, reward, secondsRemaining) x 3 vector
	UserStakes(ctx context.Context, user common.Address) ([]*big.Int, error)
	UserStakeSummary(ctx context.Context, user common.Address) (models.UserSummary, error)
	// TierRate returns the APR of a tier scaled by 100
	TierRate(ctx context.Context, tier models.TierID) (*big.Int, error)

	PrepareFundRewards(amount *big.Int) (*models.Call, error)
	PrepareStake(amount *big.Int, tier models.TierID) (*models.Call, error)
	PrepareClaimReward(tier models.TierID) (*models.Call, error)
	PrepareUnstake(tier models.TierID) (*models.Call, error)
}

// Submitter signs and submits a prepared call for an account and returns
// only once the transaction is confirmed on chain. A transaction that was
// sent but failed may come back with both an error and a receipt holding
// its hash.
type Submitter interface {
	SubmitAndWait(ctx context.Context, from models.Account, call *models.Call) (*models.Receipt, error)
}
