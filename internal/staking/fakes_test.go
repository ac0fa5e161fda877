package staking

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"hashstake/dashboard/internal/models"
	"hashstake/dashboard/internal/units"
)

var (
	tokenAddr   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	stakingAddr = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	aliceAddr   = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bobAddr     = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), units.One())
}

// recorder keeps the ordered log of reads and submissions seen by the fakes
type recorder struct {
	mu     sync.Mutex
	events []string
	calls  []*models.Call
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recorder) addCall(call *models.Call) {
	r.mu.Lock()
	r.events = append(r.events, "submit:"+call.Method)
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) submitted() []*models.Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Call(nil), r.calls...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.calls = nil
	r.mu.Unlock()
}

type fakeToken struct {
	rec *recorder

	mu        sync.Mutex
	balance   *big.Int
	allowance *big.Int
	readErr   error
}

func (f *fakeToken) Address() common.Address { return tokenAddr }

func (f *fakeToken) BalanceOf(_ context.Context, _ common.Address) (*big.Int, error) {
	f.rec.add("read:balance")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeToken) Allowance(_ context.Context, _, _ common.Address) (*big.Int, error) {
	f.rec.add("read:allowance")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return new(big.Int).Set(f.allowance), nil
}

func (f *fakeToken) PrepareApprove(spender common.Address, amount *big.Int) (*models.Call, error) {
	return &models.Call{To: tokenAddr, Method: "approve", Args: []interface{}{spender, amount}}, nil
}

func (f *fakeToken) setAllowance(v *big.Int) {
	f.mu.Lock()
	f.allowance = v
	f.mu.Unlock()
}

type fakeStaking struct {
	rec *recorder

	mu       sync.Mutex
	stakes   []*big.Int
	summary  models.UserSummary
	rewards  *big.Int
	total    *big.Int
	rates    map[models.TierID]*big.Int
	rateHits int

	// holdStakes parks the next UserStakes call after it has read its values
	holdStakes  chan struct{}
	stakesReady chan struct{}
}

func (f *fakeStaking) Address() common.Address { return stakingAddr }

func (f *fakeStaking) AvailableRewards(context.Context) (*big.Int, error) {
	f.rec.add("read:rewards")
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.rewards), nil
}

func (f *fakeStaking) PoolInfo(context.Context) (*big.Int, error) {
	f.rec.add("read:pool")
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.total), nil
}

func (f *fakeStaking) UserStakes(_ context.Context, _ common.Address) ([]*big.Int, error) {
	f.rec.add("read:stakes")
	f.mu.Lock()
	out := make([]*big.Int, len(f.stakes))
	for i, v := range f.stakes {
		out[i] = new(big.Int).Set(v)
	}
	hold, ready := f.holdStakes, f.stakesReady
	f.holdStakes, f.stakesReady = nil, nil
	f.mu.Unlock()

	if hold != nil {
		close(ready)
		<-hold
	}
	return out, nil
}

func (f *fakeStaking) UserStakeSummary(_ context.Context, _ common.Address) (models.UserSummary, error) {
	f.rec.add("read:summary")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summary, nil
}

func (f *fakeStaking) TierRate(_ context.Context, tier models.TierID) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rateHits++
	return f.rates[tier], nil
}

func (f *fakeStaking) PrepareFundRewards(amount *big.Int) (*models.Call, error) {
	return &models.Call{To: stakingAddr, Method: "fundRewards", Args: []interface{}{amount}}, nil
}

func (f *fakeStaking) PrepareStake(amount *big.Int, tier models.TierID) (*models.Call, error) {
	return &models.Call{To: stakingAddr, Method: "stake", Args: []interface{}{amount, big.NewInt(int64(tier))}}, nil
}

func (f *fakeStaking) PrepareClaimReward(tier models.TierID) (*models.Call, error) {
	return &models.Call{To: stakingAddr, Method: "claimReward", Args: []interface{}{big.NewInt(int64(tier))}}, nil
}

func (f *fakeStaking) PrepareUnstake(tier models.TierID) (*models.Call, error) {
	return &models.Call{To: stakingAddr, Method: "unstake", Args: []interface{}{big.NewInt(int64(tier))}}, nil
}

func (f *fakeStaking) setTier(tier models.TierID, principal, reward *big.Int, secs int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	base := tier.Index() * 3
	f.stakes[base] = principal
	f.stakes[base+1] = reward
	f.stakes[base+2] = big.NewInt(secs)
}

type fakeSubmitter struct {
	rec *recorder

	mu       sync.Mutex
	failOn   map[string]error
	onSubmit func(call *models.Call)
	entered  chan string
	release  chan struct{}
}

func (s *fakeSubmitter) SubmitAndWait(_ context.Context, _ models.Account, call *models.Call) (*models.Receipt, error) {
	s.rec.addCall(call)

	s.mu.Lock()
	entered, release := s.entered, s.release
	err := s.failOn[call.Method]
	hook := s.onSubmit
	s.mu.Unlock()

	if entered != nil {
		entered <- call.Method
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	if hook != nil {
		hook(call)
	}
	return &models.Receipt{TxHash: common.HexToHash("0x01"), BlockNumber: 1}, nil
}

type harness struct {
	rec     *recorder
	token   *fakeToken
	staking *fakeStaking
	sub     *fakeSubmitter
	panel   *Panel
	acct    *models.Account
}

func zeroStakes() []*big.Int {
	out := make([]*big.Int, stakesVectorLen)
	for i := range out {
		out[i] = big.NewInt(0)
	}
	return out
}
