package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"hashstake/dashboard/internal/blockchain/evm"
	"hashstake/dashboard/internal/config"
	"hashstake/dashboard/internal/models"
	"hashstake/dashboard/internal/staking"
)

var commandStatus = &cli.Command{
	Name:  "status",
	Usage: "show balances, tiers and the reward pool of the configured wallet",
	Flags: []cli.Flag{jsonFlag},
	Action: func(c *cli.Context) error {
		return withSession(c, func(ctx context.Context, s *session) error {
			view := s.panel.View(s.acct)
			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			renderView(os.Stdout, view)
			return nil
		})
	},
}

var commandStake = &cli.Command{
	Name:  "stake",
	Usage: "stake into an empty tier, approving the amount first if needed",
	Flags: []cli.Flag{tierFlag, amountFlag},
	Action: func(c *cli.Context) error {
		return withTier(c, func(ctx context.Context, s *session, card *staking.TierCard) error {
			amount := s.panel.OnAmountChange(c.String("amount"))
			return s.run("Stake", func() error { return card.Stake(ctx, s.acct, amount) })
		})
	},
}

var commandClaim = &cli.Command{
	Name:  "claim",
	Usage: "claim the rewards of a tier",
	Flags: []cli.Flag{tierFlag},
	Action: func(c *cli.Context) error {
		return withTier(c, func(ctx context.Context, s *session, card *staking.TierCard) error {
			return s.run("Claim", func() error { return card.Claim(ctx, s.acct) })
		})
	},
}

var commandUnstake = &cli.Command{
	Name:  "unstake",
	Usage: "withdraw the principal of a matured tier once its rewards are claimed",
	Flags: []cli.Flag{tierFlag},
	Action: func(c *cli.Context) error {
		return withTier(c, func(ctx context.Context, s *session, card *staking.TierCard) error {
			return s.run("Unstake", func() error { return card.Unstake(ctx, s.acct) })
		})
	},
}

var commandApproveFund = &cli.Command{
	Name:  "approve-fund",
	Usage: "approve the staking contract to pull a reward pool deposit",
	Flags: []cli.Flag{amountFlag},
	Action: func(c *cli.Context) error {
		return withSession(c, func(ctx context.Context, s *session) error {
			s.panel.SetFundAmount(c.String("amount"))
			return s.run("Approve fund", func() error { return s.panel.ApproveFund(ctx, s.acct) })
		})
	},
}

var commandFund = &cli.Command{
	Name:  "fund",
	Usage: "deposit an approved amount into the reward pool",
	Flags: []cli.Flag{amountFlag},
	Action: func(c *cli.Context) error {
		return withSession(c, func(ctx context.Context, s *session) error {
			s.panel.SetFundAmount(c.String("amount"))
			return s.run("Fund", func() error { return s.panel.Fund(ctx, s.acct) })
		})
	},
}

// session is one loaded panel bound to the configured wallet
type session struct {
	client *evm.Client
	panel  *staking.Panel
	acct   *models.Account
	logger *zap.Logger
}

func openSession(c *cli.Context) (*session, error) {
	if path := c.String(configFlag.Name); path != "" {
		os.Setenv("CONFIG_FILE", path)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if c.Bool(verboseFlag.Name) {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}

	client, err := evm.NewClient(&cfg.Chain, &cfg.Wallet, cfg.Worker.ConfirmTimeout, logger)
	if err != nil {
		return nil, err
	}
	token, err := evm.NewToken(common.HexToAddress(cfg.Chain.TokenAddress), client.Caller())
	if err != nil {
		client.Close()
		return nil, err
	}
	stakingContract, err := evm.NewStaking(common.HexToAddress(cfg.Chain.StakingAddress), client.Caller())
	if err != nil {
		client.Close()
		return nil, err
	}

	return &session{
		client: client,
		panel:  staking.NewPanel(token, stakingContract, client, cfg.Chain.TokenSymbol, logger),
		acct:   evm.NewWallet(client, &cfg.Wallet).Account(),
		logger: logger,
	}, nil
}

func (s *session) Close() {
	s.client.Close()
	s.logger.Sync()
}

// withSession opens a session, loads every contract value and runs fn
func withSession(c *cli.Context, fn func(ctx context.Context, s *session) error) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	s, err := openSession(c)
	if err != nil {
		return fatalf("failed to start: %v", err)
	}
	defer s.Close()

	if err := s.panel.Refresh(ctx, s.acct); err != nil {
		warnColor.Fprintf(os.Stderr, "Some values could not be loaded: %v\n", err)
	}
	return fn(ctx, s)
}

func withTier(c *cli.Context, fn func(ctx context.Context, s *session, card *staking.TierCard) error) error {
	n := c.Int(tierFlag.Name)
	tier := models.TierID(n)
	if n < 1 || !tier.Valid() {
		return fatalf("unknown tier %d", n)
	}
	return withSession(c, func(ctx context.Context, s *session) error {
		card, err := s.panel.Board().Card(tier)
		if err != nil {
			return fatalf("%v", err)
		}
		return fn(ctx, s, card)
	})
}

// run executes one action and prints its outcome followed by the refreshed dashboard
func (s *session) run(label string, action func() error) error {
	if s.acct == nil {
		return fatalf("%s: %v", label, staking.ErrNoAccount)
	}

	err := action()
	renderView(os.Stdout, s.panel.View(s.acct))
	if err != nil {
		return fatalf("%s failed [%s]: %v", label, staking.Classify(err), err)
	}
	okColor.Fprintf(os.Stdout, "%s confirmed\n", label)
	return nil
}
