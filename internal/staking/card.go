package staking

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"hashstake/dashboard/internal/models"
	"hashstake/dashboard/internal/units"
)

// TierCard is the state machine of one tier. Its only state beyond the
// contract's stake record is the in-flight flag and the last local error.
type TierCard struct {
	tier   models.TierID
	panel  *Panel
	logger *zap.Logger
	guard  txGuard

	mu       sync.Mutex
	localErr string
}

func newTierCard(tier models.TierID, panel *Panel) *TierCard {
	return &TierCard{
		tier:   tier,
		panel:  panel,
		logger: panel.logger.Named("tier").With(zap.Int("tier", int(tier))),
	}
}

// Tier returns the tier id of the card
func (c *TierCard) Tier() models.TierID {
	return c.tier
}

// Processing reports whether a transaction of this tier is in flight
func (c *TierCard) Processing() bool {
	return c.guard.busy()
}

// Error returns the last error of this tier
func (c *TierCard) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localErr
}

func (c *TierCard) setLocal(msg string) {
	c.mu.Lock()
	c.localErr = msg
	c.mu.Unlock()
}

// record surfaces err on the card and on the panel
func (c *TierCard) record(err error) error {
	c.setLocal(err.Error())
	c.panel.SetError(err.Error())
	c.logger.Error("Tier action failed", zap.Error(err))
	return err
}

// current returns the tier's stake record and derived state
func (c *TierCard) current() (models.StakeRecord, TierState, error) {
	c.panel.mu.RLock()
	stakes := c.panel.stakes
	c.panel.mu.RUnlock()
	if stakes == nil {
		return models.StakeRecord{}, "", fmt.Errorf("%w: stake records not loaded", ErrDataUnavailable)
	}
	rec := stakes.Get(c.tier)
	return rec, StateOf(rec), nil
}

// Stake approves the staking contract if the allowance does not cover
// amount, then stakes amount into this tier. Each transaction is awaited
// before the next step; after the stake confirms, allowance, balance and
// stake records are refreshed in that order.
func (c *TierCard) Stake(ctx context.Context, acct *models.Account, amount string) error {
	if acct == nil {
		return ErrNoAccount
	}
	amountBase, err := units.ToPositiveBaseUnits(amount)
	if err != nil {
		return fmt.Errorf("%w: stake amount: %v", ErrInvalidAmount, err)
	}

	_, state, err := c.current()
	if err != nil {
		return err
	}
	if state != TierEmpty {
		return fmt.Errorf("%w: %s already has an active stake", ErrActionUnavailable, c.tier.Name())
	}

	if !c.guard.begin() {
		return ErrTxInFlight
	}
	defer c.guard.end()
	c.setLocal("")
	c.panel.SetError("")

	p := c.panel
	if !p.IsApproved(amount) {
		approveCall, err := p.token.PrepareApprove(p.staking.Address(), amountBase)
		if err != nil {
			return c.record(err)
		}
		if _, err := p.submit(ctx, *acct, approveCall); err != nil {
			return c.record(err)
		}
		p.refreshAfter(ctx, approveCall.Method, p.refreshAllowanceFn(acct))
	}

	stakeCall, err := p.staking.PrepareStake(amountBase, c.tier)
	if err != nil {
		return c.record(err)
	}
	if _, err := p.submit(ctx, *acct, stakeCall); err != nil {
		return c.record(err)
	}

	c.logger.Info("Stake confirmed",
		zap.String("account", acct.Address.Hex()),
		zap.String("amount", amountBase.String()))

	p.refreshAfter(ctx, stakeCall.Method,
		p.refreshAllowanceFn(acct),
		p.refreshBalanceFn(acct),
		p.refreshStakesFn(acct))
	return nil
}

// Claim claims the tier's rewards and refreshes the stake records
func (c *TierCard) Claim(ctx context.Context, acct *models.Account) error {
	if acct == nil {
		return ErrNoAccount
	}
	rec, state, err := c.current()
	if err != nil {
		return err
	}
	if _, enabled := state.Offers(ActionClaim, rec.ClaimableReward); !enabled {
		return fmt.Errorf("%w: nothing to claim in %s", ErrActionUnavailable, c.tier.Name())
	}

	if !c.guard.begin() {
		return ErrTxInFlight
	}
	defer c.guard.end()
	c.setLocal("")
	c.panel.SetError("")

	p := c.panel
	call, err := p.staking.PrepareClaimReward(c.tier)
	if err != nil {
		return c.record(err)
	}
	if _, err := p.submit(ctx, *acct, call); err != nil {
		return c.record(err)
	}

	p.refreshAfter(ctx, call.Method, p.refreshStakesFn(acct))
	return nil
}

// Unstake withdraws a matured, settled stake and refreshes allowance,
// balance and stake records
func (c *TierCard) Unstake(ctx context.Context, acct *models.Account) error {
	if acct == nil {
		return ErrNoAccount
	}
	rec, state, err := c.current()
	if err != nil {
		return err
	}
	if _, enabled := state.Offers(ActionUnstake, rec.ClaimableReward); !enabled {
		return fmt.Errorf("%w: %s cannot be unstaked yet", ErrActionUnavailable, c.tier.Name())
	}

	if !c.guard.begin() {
		return ErrTxInFlight
	}
	defer c.guard.end()
	c.setLocal("")
	c.panel.SetError("")

	p := c.panel
	call, err := p.staking.PrepareUnstake(c.tier)
	if err != nil {
		return c.record(err)
	}
	if _, err := p.submit(ctx, *acct, call); err != nil {
		return c.record(err)
	}

	p.refreshAfter(ctx, call.Method,
		p.refreshAllowanceFn(acct),
		p.refreshBalanceFn(acct),
		p.refreshStakesFn(acct))
	return nil
}
