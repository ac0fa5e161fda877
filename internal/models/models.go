package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TierID identifies one of the three lock-duration tiers of the staking contract
type TierID uint8

const (
	Tier3M  TierID = 1
	Tier6M  TierID = 2
	Tier12M TierID = 3
)

// Tiers lists all tier ids in display order
var Tiers = [3]TierID{Tier3M, Tier6M, Tier12M}

// Valid reports whether t is one of the contract's tier ids
func (t TierID) Valid() bool {
	return t >= Tier3M && t <= Tier12M
}

// Months returns the lock duration of the tier
func (t TierID) Months() int {
	switch t {
	case Tier3M:
		return 3
	case Tier6M:
		return 6
	case Tier12M:
		return 12
	}
	return 0
}

// Name returns the display name of the tier, e.g. "3M Tier"
func (t TierID) Name() string {
	switch t {
	case Tier3M:
		return "3M Tier"
	case Tier6M:
		return "6M Tier"
	case Tier12M:
		return "12M Tier"
	}
	return "Unknown Tier"
}

// Index returns the zero-based position of the tier in the stakes vector
func (t TierID) Index() int {
	return int(t) - 1
}

// Account is a connected wallet identity
type Account struct {
	Address common.Address
	CanSign bool // false for watch-only wallets
}

// TokenState holds the token balance and the allowance granted to the staking contract
type TokenState struct {
	Balance   *big.Int // nil until read
	Allowance *big.Int // nil until read
}

// PoolState holds global pool figures
type PoolState struct {
	TotalStaked      *big.Int
	AvailableRewards *big.Int
}

// StakeRecord is the per-tier stake of one account
type StakeRecord struct {
	Tier             TierID
	Principal        *big.Int
	ClaimableReward  *big.Int
	SecondsRemaining int64
}

// Active reports whether the record holds a non-zero principal
func (r StakeRecord) Active() bool {
	return r.Principal != nil && r.Principal.Sign() > 0
}

// StakeRecords is the decoded getUserStakes result, indexed by TierID.Index()
type StakeRecords [3]StakeRecord

// Get returns the record for a tier
func (s *StakeRecords) Get(tier TierID) StakeRecord {
	return s[tier.Index()]
}

// UserSummary is the aggregate stake of an account as reported by the contract
type UserSummary struct {
	TotalStaked  *big.Int
	TotalRewards *big.Int
}

// Call is a prepared contract call ready for submission
type Call struct {
	To     common.Address
	Method string
	Args   []interface{}
	Data   []byte
}

// Receipt is the confirmation of a submitted call
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// TxStatus represents the state of a submitted transaction
type TxStatus string

const (
	TxStatusSubmitted TxStatus = "SUBMITTED"
	TxStatusConfirmed TxStatus = "CONFIRMED"
	TxStatusRejected  TxStatus = "REJECTED"
	TxStatusFailed    TxStatus = "FAILED"
)

// TxRecord is the audit row of one submitted contract call
type TxRecord struct {
	ID           int64     `db:"id"`
	OperationID  string    `db:"operation_id"`
	Account      string    `db:"account"`
	Contract     string    `db:"contract"`
	Method       string    `db:"method"`
	Tier         *int      `db:"tier"`
	Amount       *string   `db:"amount"` // base units, decimal string
	Status       TxStatus  `db:"status"`
	TxHash       *string   `db:"tx_hash"`
	ErrorMessage *string   `db:"error_message"`
	CreatedAt    time.Time `db:"created_at"`
}

// PoolSnapshot is a persisted reading of the pool figures
type PoolSnapshot struct {
	ID               int64     `db:"id"`
	TotalStaked      string    `db:"total_staked"`
	AvailableRewards string    `db:"available_rewards"`
	TakenAt          time.Time `db:"taken_at"`
}
