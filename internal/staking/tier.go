package staking

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"hashstake/dashboard/internal/models"
	"hashstake/dashboard/internal/units"
)

const (
	stakesVectorLen = 9
	fieldsPerTier   = 3
)

// TierState is the display state of a tier, derived from its stake record
type TierState string

const (
	TierEmpty              TierState = "EMPTY"
	TierLocked             TierState = "LOCKED"
	TierMaturedWithRewards TierState = "MATURED_WITH_REWARDS"
	TierMaturedSettled     TierState = "MATURED_SETTLED"
)

// ActionKind is the primary action offered for a tier
type ActionKind string

const (
	ActionStake   ActionKind = "stake"
	ActionClaim   ActionKind = "claim"
	ActionUnstake ActionKind = "unstake"
)

// DeriveTierState computes the tier state from a stake record's fields
func DeriveTierState(principal, reward *big.Int, secondsRemaining int64) TierState {
	if principal == nil || principal.Sign() <= 0 {
		return TierEmpty
	}
	if secondsRemaining > 0 {
		return TierLocked
	}
	if reward != nil && reward.Sign() > 0 {
		return TierMaturedWithRewards
	}
	return TierMaturedSettled
}

// StateOf derives the state of a stake record
func StateOf(r models.StakeRecord) TierState {
	return DeriveTierState(r.Principal, r.ClaimableReward, r.SecondsRemaining)
}

// Offers reports whether the state offers the given action and whether it is enabled.
// Stake enablement depends on input state and is decided by the caller.
func (s TierState) Offers(action ActionKind, reward *big.Int) (offered, enabled bool) {
	switch s {
	case TierEmpty:
		return action == ActionStake, action == ActionStake
	case TierLocked:
		return action == ActionClaim, action == ActionClaim && reward != nil && reward.Sign() > 0
	case TierMaturedWithRewards:
		return action == ActionClaim, action == ActionClaim
	case TierMaturedSettled:
		return action == ActionUnstake, action == ActionUnstake
	}
	return false, false
}

// DecodeStakeRecords turns the flat getUserStakes vector into one typed record per tier.
// The vector must hold exactly 9 non-nil values.
func DecodeStakeRecords(values []*big.Int) (*models.StakeRecords, error) {
	if len(values) != stakesVectorLen {
		return nil, fmt.Errorf("%w: got %d", ErrMalformedStakes, len(values))
	}
	for i, v := range values {
		if v == nil {
			return nil, fmt.Errorf("%w: element %d is missing", ErrMalformedStakes, i)
		}
	}

	var records models.StakeRecords
	for _, tier := range models.Tiers {
		base := tier.Index() * fieldsPerTier
		records[tier.Index()] = models.StakeRecord{
			Tier:             tier,
			Principal:        new(big.Int).Set(values[base]),
			ClaimableReward:  new(big.Int).Set(values[base+1]),
			SecondsRemaining: clampSeconds(values[base+2]),
		}
	}
	return &records, nil
}

func clampSeconds(v *big.Int) int64 {
	if v.IsInt64() {
		return v.Int64()
	}
	if v.Sign() < 0 {
		return math.MinInt64
	}
	return math.MaxInt64
}

// FormatRemainingTime renders a countdown as "Dd Hh Mm", or "Finished" once it has run out
func FormatRemainingTime(secs int64) string {
	if secs <= 0 {
		return "Finished"
	}
	days := secs / 86400
	hours := (secs % 86400) / 3600
	minutes := (secs % 3600) / 60
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}

// FormatAPR renders a rate scaled by 100 as a whole percentage, e.g. 1200 -> "12%"
func FormatAPR(rate *big.Int) string {
	if rate == nil {
		return "0%"
	}
	return new(big.Int).Quo(rate, big.NewInt(100)).String() + "%"
}

// ClampAmount applies the stake-amount input rule: negative numbers become "0",
// anything else is kept verbatim
func ClampAmount(raw string) string {
	if units.IsNegativeNumber(raw) {
		return "0"
	}
	return raw
}

// IsApproved reports whether amount, in whole tokens, is covered by allowance.
// Unparseable or negative input and an unknown allowance all count as not approved.
func IsApproved(amount string, allowance *big.Int) bool {
	if allowance == nil || strings.TrimSpace(amount) == "" {
		return false
	}
	base, err := units.ToBaseUnits(amount)
	if err != nil || base.Sign() < 0 {
		return false
	}
	return base.Cmp(allowance) <= 0
}
