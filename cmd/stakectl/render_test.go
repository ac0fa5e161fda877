package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"hashstake/dashboard/internal/staking"
)

func TestRenderView_Disconnected(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer

	renderView(&buf, staking.DashboardView{Message: "Please connect your wallet to continue.", Error: "boom"})

	out := buf.String()
	assert.Contains(t, out, "Please connect your wallet")
	assert.Contains(t, out, "Error: boom")
	assert.NotContains(t, out, "Your Stakes")
}

func TestRenderView_Board(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer

	renderView(&buf, staking.DashboardView{
		Connected: true,
		Account:   "0xA11CE",
		Token: staking.TokenInfoView{
			Address: "0xT0KEN", Symbol: "HASH",
			Balance: "250", Allowance: "100", AvailableRewards: "1000",
		},
		Board: staking.BoardView{
			Summary: staking.SummaryView{UserTotalStaked: "10", UserTotalRewards: "1", PoolTotalStaked: "5000"},
			Tiers: []staking.TierView{
				{
					Tier: 1, Name: "3M Tier", APR: "5%", State: staking.TierLocked,
					Staked: "10", ClaimableRewards: "1", Remaining: "1d 1h 1m",
					Action: staking.ActionView{Kind: "claim", Label: "Claim Rewards", Enabled: true},
				},
				{
					Tier: 2, Name: "6M Tier", APR: "10%", State: staking.TierEmpty,
					Staked: "0", ClaimableRewards: "0", Remaining: "N/A",
					Action: staking.ActionView{Kind: "stake", Label: "Approve & Stake"},
					Error:  "transaction rejected",
				},
			},
		},
		Fund: staking.FundView{State: "NOT_APPROVED", Action: staking.ActionView{Label: "Approve Fund"}},
	})

	out := buf.String()
	assert.Contains(t, out, "Balance:           250 HASH")
	assert.Contains(t, out, "Pool total: 5000")
	assert.Contains(t, out, "1: 3M Tier")
	assert.Contains(t, out, "1d 1h 1m")
	assert.Contains(t, out, "Approve & Stake (disabled)")
	assert.Contains(t, out, "6M Tier: transaction rejected")
	assert.Contains(t, out, "Amount: -")
	assert.Contains(t, out, "Approve Fund (disabled)")
}

func TestRenderView_BoardStates(t *testing.T) {
	color.NoColor = true

	var loading bytes.Buffer
	renderView(&loading, staking.DashboardView{Connected: true, Token: staking.TokenInfoView{Loading: true}, Board: staking.BoardView{Loading: true}})
	assert.Contains(t, loading.String(), "Loading...")

	var missing bytes.Buffer
	renderView(&missing, staking.DashboardView{Connected: true, Board: staking.BoardView{Message: "Could not load stake data."}})
	assert.Contains(t, missing.String(), "Could not load stake data.")
}
