package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"hashstake/dashboard/internal/staking"
)

var (
	okColor   = color.New(color.FgGreen)
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	headColor = color.New(color.FgCyan, color.Bold)
)

// renderView prints the dashboard as the web page lays it out
func renderView(w io.Writer, view staking.DashboardView) {
	if !view.Connected {
		warnColor.Fprintln(w, view.Message)
		renderError(w, view.Error)
		return
	}

	headColor.Fprintln(w, "Token")
	fmt.Fprintf(w, "  Account:           %s\n", view.Account)
	fmt.Fprintf(w, "  Token:             %s\n", view.Token.Address)
	if view.Token.Loading {
		fmt.Fprintln(w, "  Loading...")
	} else {
		fmt.Fprintf(w, "  Balance:           %s %s\n", view.Token.Balance, view.Token.Symbol)
		fmt.Fprintf(w, "  Allowance:         %s %s\n", view.Token.Allowance, view.Token.Symbol)
		fmt.Fprintf(w, "  Available rewards: %s %s\n", view.Token.AvailableRewards, view.Token.Symbol)
	}
	fmt.Fprintln(w)

	headColor.Fprintln(w, "Your Stakes")
	switch {
	case view.Board.Loading:
		fmt.Fprintln(w, "  Loading...")
	case view.Board.Message != "":
		warnColor.Fprintf(w, "  %s\n", view.Board.Message)
	default:
		fmt.Fprintf(w, "  Total staked: %s  Total rewards: %s  Pool total: %s\n",
			view.Board.Summary.UserTotalStaked,
			view.Board.Summary.UserTotalRewards,
			view.Board.Summary.PoolTotalStaked)
		renderTiers(w, view.Board.Tiers)
	}
	fmt.Fprintln(w)

	headColor.Fprintln(w, "Fund Rewards")
	fmt.Fprintf(w, "  Amount: %s  State: %s  Next: %s\n", orDash(view.Fund.Amount), view.Fund.State, actionLabel(view.Fund.Action))

	renderError(w, view.Error)
}

func renderTiers(w io.Writer, tiers []staking.TierView) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Tier", "APR", "Staked", "Rewards", "Remaining", "State", "Action"})
	table.SetAutoFormatHeaders(false)
	for _, t := range tiers {
		table.Append([]string{
			fmt.Sprintf("%d: %s", t.Tier, t.Name),
			t.APR,
			t.Staked,
			t.ClaimableRewards,
			t.Remaining,
			string(t.State),
			actionLabel(t.Action),
		})
	}
	table.Render()

	for _, t := range tiers {
		if t.Error != "" {
			errColor.Fprintf(w, "  %s: %s\n", t.Name, t.Error)
		}
	}
}

func actionLabel(a staking.ActionView) string {
	if a.Label == "" {
		return "-"
	}
	if !a.Enabled {
		return a.Label + " (disabled)"
	}
	return a.Label
}

func renderError(w io.Writer, msg string) {
	if msg != "" {
		errColor.Fprintf(w, "Error: %s\n", msg)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
