package staking

import (
	"math/big"
	"time"

	"hashstake/dashboard/internal/models"
	"hashstake/dashboard/internal/units"
)

const (
	msgConnectWallet = "Please connect your wallet to continue."
	msgStakesMissing = "Could not load stake data. Please ensure your wallet is connected and try refreshing."
)

// ActionView is a button as the dashboard renders it
type ActionView struct {
	Kind    string `json:"kind"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

// TokenInfoView is the token info section
type TokenInfoView struct {
	Address          string `json:"address"`
	Symbol           string `json:"symbol"`
	Balance          string `json:"balance"`
	Allowance        string `json:"allowance"`
	AvailableRewards string `json:"available_rewards"`
	Loading          bool   `json:"loading"`
}

// StakeInputView is the stake amount section
type StakeInputView struct {
	Amount string `json:"amount"`
}

// SummaryView is the aggregate section of the board
type SummaryView struct {
	UserTotalStaked  string `json:"user_total_staked"`
	UserTotalRewards string `json:"user_total_rewards"`
	PoolTotalStaked  string `json:"pool_total_staked"`
}

// TierView is one tier card
type TierView struct {
	Tier             int        `json:"tier"`
	Name             string     `json:"name"`
	Months           int        `json:"months"`
	APR              string     `json:"apr"`
	State            TierState  `json:"state"`
	Staked           string     `json:"staked"`
	Remaining        string     `json:"remaining"`
	ClaimableRewards string     `json:"claimable_rewards"`
	Action           ActionView `json:"action"`
	Processing       bool       `json:"processing"`
	Error            string     `json:"error,omitempty"`
}

// BoardView is the "Your Stakes" section
type BoardView struct {
	Loading bool        `json:"loading"`
	Message string      `json:"message,omitempty"`
	Summary SummaryView `json:"summary"`
	Tiers   []TierView  `json:"tiers"`
}

// FundView is the fund-the-pool section
type FundView struct {
	Amount string     `json:"amount"`
	State  FundState  `json:"state"`
	Action ActionView `json:"action"`
}

// DashboardView is everything the dashboard renders for one wallet
type DashboardView struct {
	Connected bool           `json:"connected"`
	Account   string         `json:"account,omitempty"`
	Message   string         `json:"message,omitempty"`
	Token     TokenInfoView  `json:"token"`
	Stake     StakeInputView `json:"stake"`
	Board     BoardView      `json:"board"`
	Fund      FundView       `json:"fund"`
	Error     string         `json:"error,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// View renders the panel for acct. A nil account renders the disconnected screen.
func (p *Panel) View(acct *models.Account) DashboardView {
	if acct == nil {
		return DashboardView{Message: msgConnectWallet, Error: p.Error()}
	}

	amount := p.Amount()
	fundAmount := p.FundAmount()
	fundState := p.FundState()
	approved := p.IsApproved(amount)

	p.mu.RLock()
	defer p.mu.RUnlock()

	scoped := p.bound && p.owner == acct.Address
	view := DashboardView{
		Connected: true,
		Account:   acct.Address.Hex(),
		Token: TokenInfoView{
			Address:          p.token.Address().Hex(),
			Symbol:           p.symbol,
			AvailableRewards: units.WholeTokens(p.availableRewards),
			Loading:          !scoped || p.balance == nil || p.allowance == nil || p.availableRewards == nil,
		},
		Stake: StakeInputView{Amount: amount},
		Fund: FundView{
			Amount: fundAmount,
			State:  fundState,
			Action: fundAction(fundState, fundAmount),
		},
		Error:     p.lastError,
		UpdatedAt: p.updatedAt,
	}
	if scoped {
		view.Token.Balance = units.WholeTokens(p.balance)
		view.Token.Allowance = units.WholeTokens(p.allowance)
	}

	switch {
	case !scoped || !p.stakesLoaded || p.summary == nil || p.totalStaked == nil:
		view.Board.Loading = true
	case p.stakes == nil:
		view.Board.Message = msgStakesMissing
	default:
		view.Board.Summary = SummaryView{
			UserTotalStaked:  units.WholeTokens(p.summary.TotalStaked),
			UserTotalRewards: units.WholeTokens(p.summary.TotalRewards),
			PoolTotalStaked:  units.WholeTokens(p.totalStaked),
		}
		view.Board.Tiers = make([]TierView, 0, len(models.Tiers))
		for _, card := range p.board.cards {
			rec := p.stakes.Get(card.tier)
			view.Board.Tiers = append(view.Board.Tiers,
				card.view(rec, p.rates[card.tier.Index()], amount, approved))
		}
	}

	return view
}

func (c *TierCard) view(rec models.StakeRecord, rate *big.Int, amount string, approved bool) TierView {
	state := StateOf(rec)
	processing := c.Processing()
	v := TierView{
		Tier:       int(c.tier),
		Name:       c.tier.Name(),
		Months:     c.tier.Months(),
		APR:        FormatAPR(rate),
		State:      state,
		Processing: processing,
		Error:      c.Error(),
	}

	if state == TierEmpty {
		v.Staked = "0"
		v.Remaining = "N/A"
		v.ClaimableRewards = "0"
	} else {
		v.Staked = units.WholeTokens(rec.Principal)
		v.Remaining = FormatRemainingTime(rec.SecondsRemaining)
		v.ClaimableRewards = units.WholeTokens(rec.ClaimableReward)
	}
	v.Action = tierAction(state, rec.ClaimableReward, amount, approved, processing)
	return v
}

func tierAction(state TierState, reward *big.Int, amount string, approved, processing bool) ActionView {
	switch state {
	case TierEmpty:
		label := "Stake"
		switch {
		case processing:
			label = "Processing..."
		case !approved:
			label = "Approve & Stake"
		}
		return ActionView{
			Kind:    string(ActionStake),
			Label:   label,
			Enabled: !processing && units.IsPositiveAmount(amount),
		}
	case TierLocked, TierMaturedWithRewards:
		_, enabled := state.Offers(ActionClaim, reward)
		return ActionView{Kind: string(ActionClaim), Label: "Claim Rewards", Enabled: enabled && !processing}
	default:
		return ActionView{Kind: string(ActionUnstake), Label: "Unstake", Enabled: !processing}
	}
}

func fundAction(state FundState, amount string) ActionView {
	switch state {
	case FundConfirming:
		return ActionView{Kind: "fund", Label: "Processing...", Enabled: false}
	case FundApprovedReady:
		return ActionView{Kind: "fund", Label: "Fund Contract", Enabled: true}
	}
	return ActionView{Kind: "approve_fund", Label: "Approve Fund", Enabled: units.IsPositiveAmount(amount)}
}
