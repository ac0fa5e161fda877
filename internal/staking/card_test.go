package staking

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hashstake/dashboard/internal/models"
)

func newHarness(t *testing.T) *harness {
	t.Helper()
	rec := &recorder{}
	h := &harness{
		rec: rec,
		token: &fakeToken{
			rec:       rec,
			balance:   tokens(50),
			allowance: big.NewInt(0),
		},
		staking: &fakeStaking{
			rec:     rec,
			stakes:  zeroStakes(),
			summary: models.UserSummary{TotalStaked: big.NewInt(0), TotalRewards: big.NewInt(0)},
			rewards: tokens(1000),
			total:   tokens(5000),
			rates: map[models.TierID]*big.Int{
				models.Tier3M:  big.NewInt(500),
				models.Tier6M:  big.NewInt(1000),
				models.Tier12M: big.NewInt(2000),
			},
		},
		acct: &models.Account{Address: aliceAddr, CanSign: true},
	}
	h.sub = &fakeSubmitter{rec: rec}
	h.panel = NewPanel(h.token, h.staking, h.sub, "", zap.NewNop())

	require.NoError(t, h.panel.Refresh(context.Background(), h.acct))
	rec.reset()
	return h
}

func (h *harness) card(t *testing.T, tier models.TierID) *TierCard {
	t.Helper()
	card, err := h.panel.Board().Card(tier)
	require.NoError(t, err)
	return card
}

func TestTierCard_StakeApprovesThenStakes(t *testing.T) {
	h := newHarness(t)
	h.sub.onSubmit = func(call *models.Call) {
		if call.Method == "approve" {
			h.token.setAllowance(call.Args[1].(*big.Int))
		}
	}

	err := h.card(t, models.Tier6M).Stake(context.Background(), h.acct, "10")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"submit:approve",
		"read:allowance",
		"submit:stake",
		"read:allowance",
		"read:balance",
		"read:stakes",
	}, h.rec.list())

	calls := h.rec.submitted()
	require.Len(t, calls, 2)
	assert.Equal(t, stakingAddr, calls[0].Args[0])
	assert.Equal(t, 0, tokens(10).Cmp(calls[0].Args[1].(*big.Int)))
	assert.Equal(t, 0, tokens(10).Cmp(calls[1].Args[0].(*big.Int)))
	assert.Equal(t, int64(models.Tier6M), calls[1].Args[1].(*big.Int).Int64())

	assert.Empty(t, h.panel.Error())
	assert.False(t, h.card(t, models.Tier6M).Processing())
}

func TestTierCard_StakeSkipsApproveWhenCovered(t *testing.T) {
	h := newHarness(t)
	h.token.setAllowance(tokens(100))
	require.NoError(t, h.panel.RefreshAllowance(context.Background(), h.acct))
	h.rec.reset()

	require.NoError(t, h.card(t, models.Tier3M).Stake(context.Background(), h.acct, "10"))

	assert.Equal(t, []string{
		"submit:stake",
		"read:allowance",
		"read:balance",
		"read:stakes",
	}, h.rec.list())
}

func TestTierCard_StakeApproveFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.sub.failOn = map[string]error{"approve": errors.New("user denied transaction signature")}

	card := h.card(t, models.Tier12M)
	err := card.Stake(context.Background(), h.acct, "10")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransactionFailed)

	assert.Equal(t, []string{"submit:approve"}, h.rec.list())
	assert.Contains(t, h.panel.Error(), "user denied transaction signature")
	assert.Contains(t, card.Error(), "user denied transaction signature")
	assert.False(t, card.Processing())
}

func TestTierCard_StakeFailureAfterApprove(t *testing.T) {
	h := newHarness(t)
	h.sub.failOn = map[string]error{"stake": ErrTransactionRejected}

	err := h.card(t, models.Tier3M).Stake(context.Background(), h.acct, "1")
	assert.ErrorIs(t, err, ErrTransactionRejected)
	assert.Equal(t, []string{"submit:approve", "read:allowance", "submit:stake"}, h.rec.list())
	assert.False(t, h.card(t, models.Tier3M).Processing())
}

func TestTierCard_StakeValidation(t *testing.T) {
	h := newHarness(t)
	card := h.card(t, models.Tier3M)

	for _, amount := range []string{"", "0", "-1", "abc", "0.0000000000000000001"} {
		err := card.Stake(context.Background(), h.acct, amount)
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %q", amount)
	}
	assert.Empty(t, h.rec.list(), "validation errors must not reach the submitter")
	assert.Empty(t, h.panel.Error())

	assert.ErrorIs(t, card.Stake(context.Background(), nil, "1"), ErrDataUnavailable)
}

func TestTierCard_StakeRequiresEmptyTier(t *testing.T) {
	h := newHarness(t)
	h.staking.setTier(models.Tier3M, tokens(5), big.NewInt(0), 3600)
	require.NoError(t, h.panel.RefreshStakes(context.Background(), h.acct))

	err := h.card(t, models.Tier3M).Stake(context.Background(), h.acct, "1")
	assert.ErrorIs(t, err, ErrActionUnavailable)
}

func TestTierCard_RejectsReentryButTiersAreIndependent(t *testing.T) {
	h := newHarness(t)
	h.token.setAllowance(tokens(100))
	require.NoError(t, h.panel.RefreshAllowance(context.Background(), h.acct))

	h.sub.entered = make(chan string, 4)
	h.sub.release = make(chan struct{})

	ctx := context.Background()
	first := h.card(t, models.Tier3M)
	second := h.card(t, models.Tier6M)

	done := make(chan error, 2)
	go func() { done <- first.Stake(ctx, h.acct, "1") }()
	assert.Equal(t, "stake", <-h.sub.entered)

	assert.True(t, first.Processing())
	assert.ErrorIs(t, first.Stake(ctx, h.acct, "1"), ErrTxInFlight)

	view := h.panel.View(h.acct)
	assert.Equal(t, "Processing...", view.Board.Tiers[0].Action.Label)
	assert.False(t, view.Board.Tiers[0].Action.Enabled)

	go func() { done <- second.Stake(ctx, h.acct, "2") }()
	assert.Equal(t, "stake", <-h.sub.entered)
	assert.True(t, second.Processing())

	close(h.sub.release)
	require.NoError(t, <-done)
	require.NoError(t, <-done)
	assert.False(t, first.Processing())
	assert.False(t, second.Processing())
}

func TestTierCard_Claim(t *testing.T) {
	h := newHarness(t)
	h.staking.setTier(models.Tier6M, tokens(100), tokens(5), 3600)
	require.NoError(t, h.panel.RefreshStakes(context.Background(), h.acct))
	h.rec.reset()

	require.NoError(t, h.card(t, models.Tier6M).Claim(context.Background(), h.acct))
	assert.Equal(t, []string{"submit:claimReward", "read:stakes"}, h.rec.list())
}

func TestTierCard_ClaimDisabledWithoutRewards(t *testing.T) {
	h := newHarness(t)
	h.staking.setTier(models.Tier6M, tokens(100), big.NewInt(0), 3600)
	require.NoError(t, h.panel.RefreshStakes(context.Background(), h.acct))
	h.rec.reset()

	err := h.card(t, models.Tier6M).Claim(context.Background(), h.acct)
	assert.ErrorIs(t, err, ErrActionUnavailable)
	assert.Empty(t, h.rec.list())
}

func TestTierCard_Unstake(t *testing.T) {
	h := newHarness(t)
	h.staking.setTier(models.Tier12M, tokens(100), big.NewInt(0), 0)
	require.NoError(t, h.panel.RefreshStakes(context.Background(), h.acct))
	h.rec.reset()

	card := h.card(t, models.Tier12M)
	assert.ErrorIs(t, card.Claim(context.Background(), h.acct), ErrActionUnavailable)

	require.NoError(t, card.Unstake(context.Background(), h.acct))
	assert.Equal(t, []string{
		"submit:unstake",
		"read:allowance",
		"read:balance",
		"read:stakes",
	}, h.rec.list())
}

func TestTierCard_UnstakeNotOfferedWithPendingRewards(t *testing.T) {
	h := newHarness(t)
	h.staking.setTier(models.Tier12M, tokens(100), tokens(1), 0)
	require.NoError(t, h.panel.RefreshStakes(context.Background(), h.acct))

	card := h.card(t, models.Tier12M)
	assert.ErrorIs(t, card.Unstake(context.Background(), h.acct), ErrActionUnavailable)
	require.NoError(t, card.Claim(context.Background(), h.acct))
}

func TestTierCard_WatchOnlyWalletIsRejected(t *testing.T) {
	h := newHarness(t)
	watch := &models.Account{Address: aliceAddr}

	err := h.card(t, models.Tier3M).Stake(context.Background(), watch, "1")
	assert.ErrorIs(t, err, ErrTransactionRejected)
	assert.Empty(t, h.rec.submitted())
	assert.NotEmpty(t, h.panel.Error())
}

func TestBoard_UnknownTier(t *testing.T) {
	h := newHarness(t)
	_, err := h.panel.Board().Card(models.TierID(4))
	assert.Error(t, err)
	_, err = h.panel.Board().Card(models.TierID(0))
	assert.Error(t, err)
}
