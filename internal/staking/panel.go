package staking

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hashstake/dashboard/internal/models"
	"hashstake/dashboard/internal/units"
)

// DefaultSymbol is the display symbol of the staked token
const DefaultSymbol = "HASH"

// Panel holds the dashboard state of one wallet: input fields, the latest
// contract reads and the fund-the-pool flow. It owns the StakeBoard.
//
// Account-scoped reads are bound to the account passed into the refresh
// operations; passing a different account drops the previous account's data.
type Panel struct {
	token     TokenContract
	staking   StakingContract
	submitter Submitter
	symbol    string
	logger    *zap.Logger
	board     *Board

	mu               sync.RWMutex
	owner            common.Address
	bound            bool
	amount           string
	fundAmount       string
	balance          *big.Int
	allowance        *big.Int
	availableRewards *big.Int
	totalStaked      *big.Int
	stakes           *models.StakeRecords
	stakesLoaded     bool
	summary          *models.UserSummary
	rates            [3]*big.Int
	lastError        string
	updatedAt        time.Time

	// readSeq numbers each read when it is issued; stored keeps the newest
	// number applied per field so an older read landing late is dropped
	readSeq uint64
	stored  [numReadFields]uint64

	fund txGuard
}

type readField int

const (
	fieldBalance readField = iota
	fieldAllowance
	fieldStakes
	fieldSummary
	fieldRewards
	fieldPoolInfo
	numReadFields
)

// NewPanel creates a panel and its board of three tier cards
func NewPanel(
	token TokenContract,
	stakingContract StakingContract,
	submitter Submitter,
	symbol string,
	logger *zap.Logger,
) *Panel {
	if symbol == "" {
		symbol = DefaultSymbol
	}
	p := &Panel{
		token:     token,
		staking:   stakingContract,
		submitter: submitter,
		symbol:    symbol,
		logger:    logger.Named("panel"),
	}
	p.board = newBoard(p)
	return p
}

// Board returns the stake board owned by the panel
func (p *Panel) Board() *Board {
	return p.board
}

// Symbol returns the token symbol used for display
func (p *Panel) Symbol() string {
	return p.symbol
}

// ==================== Inputs ====================

// OnAmountChange stores the stake amount input and returns the stored value
func (p *Panel) OnAmountChange(raw string) string {
	v := ClampAmount(raw)
	p.mu.Lock()
	p.amount = v
	p.mu.Unlock()
	return v
}

// Amount returns the current stake amount input
func (p *Panel) Amount() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.amount
}

// SetFundAmount stores the fund amount input verbatim
func (p *Panel) SetFundAmount(raw string) {
	p.mu.Lock()
	p.fundAmount = raw
	p.mu.Unlock()
}

// FundAmount returns the current fund amount input
func (p *Panel) FundAmount() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fundAmount
}

// IsApproved checks amount against the last read allowance
func (p *Panel) IsApproved(amount string) bool {
	p.mu.RLock()
	allowance := p.allowance
	p.mu.RUnlock()
	return IsApproved(amount, allowance)
}

// ==================== Errors ====================

// SetError records the panel-global error message
func (p *Panel) SetError(msg string) {
	p.mu.Lock()
	p.lastError = msg
	p.mu.Unlock()
}

// Error returns the panel-global error message
func (p *Panel) Error() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastError
}

func (p *Panel) recordError(err error) error {
	p.SetError(err.Error())
	return err
}

// ==================== Reads ====================

// Disconnect drops all account-scoped state
func (p *Panel) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bound = false
	p.owner = common.Address{}
	p.resetScopedLocked()
}

func (p *Panel) resetScopedLocked() {
	p.balance = nil
	p.allowance = nil
	p.stakes = nil
	p.stakesLoaded = false
	p.summary = nil
}

func (p *Panel) bind(addr common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bound && p.owner == addr {
		return
	}
	if p.bound {
		p.logger.Info("Account changed, dropping previous account state",
			zap.String("previous", p.owner.Hex()),
			zap.String("account", addr.Hex()))
	}
	p.owner = addr
	p.bound = true
	p.resetScopedLocked()
}

// issue numbers a read before it is sent
func (p *Panel) issue() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readSeq++
	return p.readSeq
}

// staleLocked reports whether a newer read of field was already stored,
// and records seq as the newest otherwise
func (p *Panel) staleLocked(field readField, seq uint64) bool {
	if seq < p.stored[field] {
		return true
	}
	p.stored[field] = seq
	return false
}

// storeScoped applies fn only if addr is still the bound account and no
// newer read of field has landed, so a slow read never overwrites fresher data
func (p *Panel) storeScoped(addr common.Address, field readField, seq uint64, fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.bound || p.owner != addr {
		return
	}
	if p.staleLocked(field, seq) {
		p.logger.Debug("Dropping stale read", zap.Int("field", int(field)), zap.Uint64("seq", seq))
		return
	}
	fn()
	p.updatedAt = time.Now()
}

func (p *Panel) storeGlobal(field readField, seq uint64, fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.staleLocked(field, seq) {
		return
	}
	fn()
	p.updatedAt = time.Now()
}

func readError(what string, err error) error {
	return fmt.Errorf("%w: failed to read %s: %w", ErrDataUnavailable, what, err)
}

// RefreshBalance re-reads the token balance of acct
func (p *Panel) RefreshBalance(ctx context.Context, acct *models.Account) error {
	if acct == nil {
		return ErrNoAccount
	}
	p.bind(acct.Address)
	seq := p.issue()
	balance, err := p.token.BalanceOf(ctx, acct.Address)
	if err != nil {
		return readError("balance", err)
	}
	p.storeScoped(acct.Address, fieldBalance, seq, func() { p.balance = balance })
	return nil
}

// RefreshAllowance re-reads the allowance acct granted to the staking contract
func (p *Panel) RefreshAllowance(ctx context.Context, acct *models.Account) error {
	if acct == nil {
		return ErrNoAccount
	}
	p.bind(acct.Address)
	seq := p.issue()
	allowance, err := p.token.Allowance(ctx, acct.Address, p.staking.Address())
	if err != nil {
		return readError("allowance", err)
	}
	p.storeScoped(acct.Address, fieldAllowance, seq, func() { p.allowance = allowance })
	return nil
}

// RefreshStakes re-reads and decodes the per-tier stake records of acct.
// A failed or malformed read leaves the records unavailable.
func (p *Panel) RefreshStakes(ctx context.Context, acct *models.Account) error {
	if acct == nil {
		return ErrNoAccount
	}
	p.bind(acct.Address)

	seq := p.issue()
	values, err := p.staking.UserStakes(ctx, acct.Address)
	if err != nil {
		p.storeScoped(acct.Address, fieldStakes, seq, func() {
			p.stakes = nil
			p.stakesLoaded = true
		})
		return readError("user stakes", err)
	}

	records, err := DecodeStakeRecords(values)
	if err != nil {
		p.logger.Warn("Malformed stakes vector",
			zap.String("account", acct.Address.Hex()),
			zap.Int("length", len(values)),
			zap.Error(err))
	}
	p.storeScoped(acct.Address, fieldStakes, seq, func() {
		p.stakes = records
		p.stakesLoaded = true
	})
	return err
}

// RefreshSummary re-reads the aggregate stake summary of acct
func (p *Panel) RefreshSummary(ctx context.Context, acct *models.Account) error {
	if acct == nil {
		return ErrNoAccount
	}
	p.bind(acct.Address)
	seq := p.issue()
	summary, err := p.staking.UserStakeSummary(ctx, acct.Address)
	if err != nil {
		return readError("user stake summary", err)
	}
	p.storeScoped(acct.Address, fieldSummary, seq, func() { p.summary = &summary })
	return nil
}

// RefreshAvailableRewards re-reads the reward pool balance
func (p *Panel) RefreshAvailableRewards(ctx context.Context) error {
	seq := p.issue()
	rewards, err := p.staking.AvailableRewards(ctx)
	if err != nil {
		return readError("available rewards", err)
	}
	p.storeGlobal(fieldRewards, seq, func() { p.availableRewards = rewards })
	return nil
}

// RefreshPoolInfo re-reads the total amount staked in the pool
func (p *Panel) RefreshPoolInfo(ctx context.Context) error {
	seq := p.issue()
	total, err := p.staking.PoolInfo(ctx)
	if err != nil {
		return readError("pool info", err)
	}
	p.storeGlobal(fieldPoolInfo, seq, func() { p.totalStaked = total })
	return nil
}

// RefreshRates reads the tier rates that are not known yet; rates never change
func (p *Panel) RefreshRates(ctx context.Context) error {
	for _, tier := range models.Tiers {
		p.mu.RLock()
		known := p.rates[tier.Index()] != nil
		p.mu.RUnlock()
		if known {
			continue
		}

		rate, err := p.staking.TierRate(ctx, tier)
		if err != nil {
			return readError(fmt.Sprintf("APR of %s", tier.Name()), err)
		}
		p.mu.Lock()
		p.rates[tier.Index()] = rate
		p.mu.Unlock()
	}
	return nil
}

// Pool returns the last read pool figures; unread fields are nil
func (p *Panel) Pool() models.PoolState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return models.PoolState{
		TotalStaked:      copyInt(p.totalStaked),
		AvailableRewards: copyInt(p.availableRewards),
	}
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// RefreshBoard refreshes what the board shows: stakes, summary and pool info
func (p *Panel) RefreshBoard(ctx context.Context, acct *models.Account) error {
	if acct == nil {
		return ErrNoAccount
	}
	var g errgroup.Group
	g.Go(func() error { return p.RefreshStakes(ctx, acct) })
	g.Go(func() error { return p.RefreshSummary(ctx, acct) })
	g.Go(func() error { return p.RefreshPoolInfo(ctx) })
	return g.Wait()
}

// Refresh issues every read the dashboard needs. Global reads always run;
// account reads run only when acct is connected. Reads are independent and
// the first error is returned after all of them finish.
func (p *Panel) Refresh(ctx context.Context, acct *models.Account) error {
	var g errgroup.Group
	g.Go(func() error { return p.RefreshAvailableRewards(ctx) })
	g.Go(func() error { return p.RefreshPoolInfo(ctx) })
	g.Go(func() error { return p.RefreshRates(ctx) })

	if acct == nil {
		p.Disconnect()
	} else {
		p.bind(acct.Address)
		g.Go(func() error { return p.RefreshBalance(ctx, acct) })
		g.Go(func() error { return p.RefreshAllowance(ctx, acct) })
		g.Go(func() error { return p.RefreshStakes(ctx, acct) })
		g.Go(func() error { return p.RefreshSummary(ctx, acct) })
	}
	return g.Wait()
}

// refreshAfter runs post-confirmation refreshes in order. The transaction has
// already succeeded, so refresh failures are only logged.
func (p *Panel) refreshAfter(ctx context.Context, method string, fns ...func(context.Context) error) {
	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			p.logger.Warn("Refresh after confirmation failed",
				zap.String("method", method),
				zap.Error(err))
		}
	}
}

func (p *Panel) refreshAllowanceFn(acct *models.Account) func(context.Context) error {
	return func(ctx context.Context) error { return p.RefreshAllowance(ctx, acct) }
}

func (p *Panel) refreshBalanceFn(acct *models.Account) func(context.Context) error {
	return func(ctx context.Context) error { return p.RefreshBalance(ctx, acct) }
}

func (p *Panel) refreshStakesFn(acct *models.Account) func(context.Context) error {
	return func(ctx context.Context) error { return p.RefreshStakes(ctx, acct) }
}

// ==================== Transactions ====================

func (p *Panel) submit(ctx context.Context, acct models.Account, call *models.Call) (*models.Receipt, error) {
	if !acct.CanSign {
		return nil, txError(call.Method,
			fmt.Errorf("%w: wallet %s is watch-only", ErrTransactionRejected, acct.Address.Hex()))
	}

	p.logger.Info("Submitting transaction",
		zap.String("account", acct.Address.Hex()),
		zap.String("to", call.To.Hex()),
		zap.String("method", call.Method))

	receipt, err := p.submitter.SubmitAndWait(ctx, acct, call)
	if err != nil {
		p.logger.Error("Transaction failed",
			zap.String("method", call.Method),
			zap.Error(err))
		return nil, txError(call.Method, err)
	}

	p.logger.Info("Transaction confirmed",
		zap.String("method", call.Method),
		zap.String("tx_hash", receipt.TxHash.Hex()),
		zap.Uint64("block_number", receipt.BlockNumber))

	return receipt, nil
}

// PrepareFund builds the fundRewards call for amount, in whole tokens
func (p *Panel) PrepareFund(amount string) (*models.Call, error) {
	base, err := units.ToPositiveBaseUnits(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount for fund: %v", ErrInvalidAmount, err)
	}
	return p.staking.PrepareFundRewards(base)
}

// FundState is the state of the fund-the-pool flow
type FundState string

const (
	FundNotApproved   FundState = "NOT_APPROVED"
	FundApprovedReady FundState = "APPROVED_READY"
	FundConfirming    FundState = "CONFIRMING"
)

// FundState derives the fund flow state from the fund input and allowance
func (p *Panel) FundState() FundState {
	if p.fund.busy() {
		return FundConfirming
	}
	if p.IsApproved(p.FundAmount()) {
		return FundApprovedReady
	}
	return FundNotApproved
}

// ApproveFund approves the staking contract to pull the fund amount
func (p *Panel) ApproveFund(ctx context.Context, acct *models.Account) error {
	if acct == nil {
		return ErrNoAccount
	}
	amount := p.FundAmount()
	base, err := units.ToPositiveBaseUnits(amount)
	if err != nil {
		return fmt.Errorf("%w: invalid amount for fund approval: %v", ErrInvalidAmount, err)
	}

	if !p.fund.begin() {
		return ErrTxInFlight
	}
	defer p.fund.end()
	p.SetError("")

	call, err := p.token.PrepareApprove(p.staking.Address(), base)
	if err != nil {
		return p.recordError(err)
	}
	if _, err := p.submit(ctx, *acct, call); err != nil {
		return p.recordError(err)
	}

	p.refreshAfter(ctx, call.Method, p.refreshAllowanceFn(acct))
	return nil
}

// Fund sends the fund amount into the reward pool. On confirmation the fund
// input is cleared and the available rewards are re-read.
func (p *Panel) Fund(ctx context.Context, acct *models.Account) error {
	if acct == nil {
		return ErrNoAccount
	}
	if !p.fund.begin() {
		return ErrTxInFlight
	}
	defer p.fund.end()
	p.SetError("")

	amount := p.FundAmount()
	call, err := p.PrepareFund(amount)
	if err != nil {
		return p.recordError(err)
	}
	if !p.IsApproved(amount) {
		return p.recordError(fmt.Errorf("%w: approve %s %s before funding", ErrNotApproved, amount, p.symbol))
	}

	if _, err := p.submit(ctx, *acct, call); err != nil {
		return p.recordError(err)
	}

	p.SetFundAmount("")
	p.refreshAfter(ctx, call.Method, func(ctx context.Context) error {
		return p.RefreshAvailableRewards(ctx)
	})
	return nil
}

// txGuard is an in-flight flag preventing re-entrant submissions
type txGuard struct {
	mu       sync.Mutex
	inFlight bool
}

func (g *txGuard) begin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight {
		return false
	}
	g.inFlight = true
	return true
}

func (g *txGuard) end() {
	g.mu.Lock()
	g.inFlight = false
	g.mu.Unlock()
}

func (g *txGuard) busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}
