package staking

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashstake/dashboard/internal/models"
)

func TestPanel_OnAmountChange(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "12.5", h.panel.OnAmountChange("12.5"))
	assert.Equal(t, "12.5", h.panel.Amount())

	assert.Equal(t, "0", h.panel.OnAmountChange("-3"))
	assert.Equal(t, "0", h.panel.Amount())

	assert.Equal(t, "", h.panel.OnAmountChange(""))
	assert.Equal(t, "1.", h.panel.OnAmountChange("1."))
}

func TestPanel_IsApprovedUsesLastAllowance(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.panel.IsApproved("1"))

	h.token.setAllowance(tokens(1))
	require.NoError(t, h.panel.RefreshAllowance(context.Background(), h.acct))
	assert.True(t, h.panel.IsApproved("1"))
	assert.False(t, h.panel.IsApproved("1.0000001"))

	h.panel.Disconnect()
	assert.False(t, h.panel.IsApproved("1"), "allowance is unknown once disconnected")
}

func TestPanel_PrepareFund(t *testing.T) {
	h := newHarness(t)

	for _, amount := range []string{"", "0", "-5", "abc"} {
		_, err := h.panel.PrepareFund(amount)
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %q", amount)
	}

	call, err := h.panel.PrepareFund("25")
	require.NoError(t, err)
	assert.Equal(t, "fundRewards", call.Method)
	assert.Equal(t, 0, tokens(25).Cmp(call.Args[0].(*big.Int)))
}

func TestPanel_FundFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.sub.onSubmit = func(call *models.Call) {
		switch call.Method {
		case "approve":
			h.token.setAllowance(call.Args[1].(*big.Int))
		case "fundRewards":
			h.staking.mu.Lock()
			h.staking.rewards = new(big.Int).Add(h.staking.rewards, call.Args[0].(*big.Int))
			h.staking.mu.Unlock()
		}
	}

	view := h.panel.View(h.acct)
	assert.Equal(t, FundNotApproved, view.Fund.State)
	assert.Equal(t, "Approve Fund", view.Fund.Action.Label)
	assert.False(t, view.Fund.Action.Enabled, "no amount entered")

	h.panel.SetFundAmount("20")
	view = h.panel.View(h.acct)
	assert.Equal(t, FundNotApproved, view.Fund.State)
	assert.True(t, view.Fund.Action.Enabled)

	err := h.panel.Fund(ctx, h.acct)
	assert.ErrorIs(t, err, ErrNotApproved)
	assert.Empty(t, h.rec.submitted())

	require.NoError(t, h.panel.ApproveFund(ctx, h.acct))
	assert.Equal(t, FundApprovedReady, h.panel.FundState())
	assert.Equal(t, "Fund Contract", h.panel.View(h.acct).Fund.Action.Label)

	h.rec.reset()
	require.NoError(t, h.panel.Fund(ctx, h.acct))
	assert.Equal(t, []string{"submit:fundRewards", "read:rewards"}, h.rec.list())
	assert.Equal(t, "", h.panel.FundAmount())
	assert.Equal(t, "1020", h.panel.View(h.acct).Token.AvailableRewards)
}

func TestPanel_FundValidationIsRecorded(t *testing.T) {
	h := newHarness(t)
	h.panel.SetFundAmount("0")

	err := h.panel.Fund(context.Background(), h.acct)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Contains(t, h.panel.Error(), "invalid amount for fund")
	assert.Empty(t, h.rec.submitted())

	assert.ErrorIs(t, h.panel.ApproveFund(context.Background(), h.acct), ErrInvalidAmount)
}

func TestPanel_FundFailureKeepsInput(t *testing.T) {
	h := newHarness(t)
	h.token.setAllowance(tokens(100))
	require.NoError(t, h.panel.RefreshAllowance(context.Background(), h.acct))
	h.panel.SetFundAmount("10")
	h.sub.failOn = map[string]error{"fundRewards": errors.New("execution reverted")}

	err := h.panel.Fund(context.Background(), h.acct)
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.Equal(t, "10", h.panel.FundAmount())
	assert.Contains(t, h.panel.Error(), "execution reverted")
	assert.Equal(t, FundApprovedReady, h.panel.FundState())
}

func TestPanel_ViewDisconnected(t *testing.T) {
	h := newHarness(t)
	view := h.panel.View(nil)
	assert.False(t, view.Connected)
	assert.Equal(t, msgConnectWallet, view.Message)
}

func TestPanel_ViewConnected(t *testing.T) {
	h := newHarness(t)
	h.staking.setTier(models.Tier6M, tokens(100), tokens(5), 90061)
	h.staking.setTier(models.Tier12M, tokens(40), big.NewInt(0), 0)
	h.staking.summary = models.UserSummary{TotalStaked: tokens(140), TotalRewards: tokens(5)}
	require.NoError(t, h.panel.Refresh(context.Background(), h.acct))
	h.panel.OnAmountChange("10")

	view := h.panel.View(h.acct)
	require.True(t, view.Connected)
	assert.Equal(t, aliceAddr.Hex(), view.Account)
	assert.Equal(t, "HASH", view.Token.Symbol)
	assert.Equal(t, "50", view.Token.Balance)
	assert.Equal(t, "0", view.Token.Allowance)
	assert.Equal(t, "1000", view.Token.AvailableRewards)
	assert.False(t, view.Token.Loading)

	require.False(t, view.Board.Loading)
	assert.Equal(t, "140", view.Board.Summary.UserTotalStaked)
	assert.Equal(t, "5", view.Board.Summary.UserTotalRewards)
	assert.Equal(t, "5000", view.Board.Summary.PoolTotalStaked)
	require.Len(t, view.Board.Tiers, 3)

	empty := view.Board.Tiers[0]
	assert.Equal(t, "3M Tier", empty.Name)
	assert.Equal(t, "5%", empty.APR)
	assert.Equal(t, TierEmpty, empty.State)
	assert.Equal(t, "N/A", empty.Remaining)
	assert.Equal(t, "Approve & Stake", empty.Action.Label)
	assert.True(t, empty.Action.Enabled)

	locked := view.Board.Tiers[1]
	assert.Equal(t, TierLocked, locked.State)
	assert.Equal(t, "10%", locked.APR)
	assert.Equal(t, "100", locked.Staked)
	assert.Equal(t, "1d 1h 1m", locked.Remaining)
	assert.Equal(t, "5", locked.ClaimableRewards)
	assert.Equal(t, ActionView{Kind: "claim", Label: "Claim Rewards", Enabled: true}, locked.Action)

	settled := view.Board.Tiers[2]
	assert.Equal(t, TierMaturedSettled, settled.State)
	assert.Equal(t, "Finished", settled.Remaining)
	assert.Equal(t, ActionView{Kind: "unstake", Label: "Unstake", Enabled: true}, settled.Action)
}

func TestPanel_ViewStakeLabelOnceApproved(t *testing.T) {
	h := newHarness(t)
	h.token.setAllowance(tokens(10))
	require.NoError(t, h.panel.RefreshAllowance(context.Background(), h.acct))

	h.panel.OnAmountChange("10")
	assert.Equal(t, "Stake", h.panel.View(h.acct).Board.Tiers[0].Action.Label)

	h.panel.OnAmountChange("")
	tier := h.panel.View(h.acct).Board.Tiers[0]
	assert.Equal(t, "Approve & Stake", tier.Action.Label)
	assert.False(t, tier.Action.Enabled)
}

func TestPanel_ViewDisablesAmountsThatCannotConvert(t *testing.T) {
	h := newHarness(t)

	for _, amount := range []string{"1e3", "Inf", "0.0000000000000000001"} {
		h.panel.OnAmountChange(amount)
		assert.False(t, h.panel.View(h.acct).Board.Tiers[0].Action.Enabled, "stake amount %q", amount)

		h.panel.SetFundAmount(amount)
		assert.False(t, h.panel.View(h.acct).Fund.Action.Enabled, "fund amount %q", amount)
	}

	h.panel.OnAmountChange("1000")
	assert.True(t, h.panel.View(h.acct).Board.Tiers[0].Action.Enabled)
}

func TestPanel_MalformedStakesMakeBoardUnavailable(t *testing.T) {
	h := newHarness(t)
	h.staking.mu.Lock()
	h.staking.stakes = h.staking.stakes[:6]
	h.staking.mu.Unlock()

	err := h.panel.RefreshStakes(context.Background(), h.acct)
	assert.ErrorIs(t, err, ErrMalformedStakes)

	view := h.panel.View(h.acct)
	assert.False(t, view.Board.Loading)
	assert.Equal(t, msgStakesMissing, view.Board.Message)
	assert.Empty(t, view.Board.Tiers)

	assert.ErrorIs(t, h.card(t, models.Tier3M).Stake(context.Background(), h.acct, "1"), ErrDataUnavailable)
}

func TestPanel_AccountSwitchDropsScopedState(t *testing.T) {
	h := newHarness(t)
	h.token.setAllowance(tokens(7))
	require.NoError(t, h.panel.RefreshAllowance(context.Background(), h.acct))
	require.True(t, h.panel.IsApproved("7"))

	bob := &models.Account{Address: bobAddr, CanSign: true}
	h.token.readErr = errors.New("rpc down")
	err := h.panel.RefreshBalance(context.Background(), bob)
	assert.ErrorIs(t, err, ErrDataUnavailable)

	assert.False(t, h.panel.IsApproved("7"), "alice's allowance must not apply to bob")
	view := h.panel.View(bob)
	assert.True(t, view.Token.Loading)
	assert.True(t, view.Board.Loading)
}

func TestPanel_RatesReadOnce(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.panel.Refresh(context.Background(), h.acct))
	require.NoError(t, h.panel.RefreshRates(context.Background()))

	h.staking.mu.Lock()
	defer h.staking.mu.Unlock()
	assert.Equal(t, 3, h.staking.rateHits)
}

func TestPanel_RefreshWithoutAccount(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.panel.Refresh(context.Background(), nil))

	events := h.rec.list()
	assert.ElementsMatch(t, []string{"read:rewards", "read:pool"}, events)
	assert.ErrorIs(t, h.panel.RefreshBoard(context.Background(), nil), ErrNoAccount)
}

func TestPanel_RefreshBoard(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.panel.RefreshBoard(context.Background(), h.acct))
	assert.ElementsMatch(t, []string{"read:stakes", "read:summary", "read:pool"}, h.rec.list())
}

func TestPanel_LateReadDoesNotOverwriteRefreshAfterConfirmation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.token.setAllowance(tokens(100))
	require.NoError(t, h.panel.Refresh(ctx, h.acct))
	h.sub.onSubmit = func(call *models.Call) {
		if call.Method == "stake" {
			h.staking.setTier(models.Tier3M, tokens(10), big.NewInt(0), 7776000)
		}
	}

	hold, ready := make(chan struct{}), make(chan struct{})
	h.staking.mu.Lock()
	h.staking.holdStakes, h.staking.stakesReady = hold, ready
	h.staking.mu.Unlock()

	polled := make(chan error, 1)
	go func() { polled <- h.panel.RefreshStakes(ctx, h.acct) }()
	<-ready

	require.NoError(t, h.card(t, models.Tier3M).Stake(ctx, h.acct, "10"))
	assert.Equal(t, TierLocked, h.panel.View(h.acct).Board.Tiers[0].State)

	close(hold)
	require.NoError(t, <-polled)
	assert.Equal(t, TierLocked, h.panel.View(h.acct).Board.Tiers[0].State)
	assert.Equal(t, "10", h.panel.View(h.acct).Board.Tiers[0].Staked)
}

func TestPanel_LateGlobalReadIsDropped(t *testing.T) {
	h := newHarness(t)
	old := h.panel.issue()
	require.NoError(t, h.panel.RefreshAvailableRewards(context.Background()))

	h.panel.storeGlobal(fieldRewards, old, func() { h.panel.availableRewards = big.NewInt(1) })
	assert.Equal(t, 0, tokens(1000).Cmp(h.panel.Pool().AvailableRewards))
}
