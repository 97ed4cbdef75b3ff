package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// in-memory хранилища вместо postgres

type memStore struct {
	mu          sync.Mutex
	users       map[int64]*domain.User
	referrals   map[string]int64
	withdrawals []domain.Withdrawal
	lastID      int64

	codeCollisions int // сколько следующих вставок упадут на коллизии кода
	failCreate     error
	failCredit     error // ошибка начисления бонуса, откатывает всю регистрацию
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[int64]*domain.User),
		referrals: make(map[string]int64),
	}
}

func (m *memStore) insert(u *domain.User) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	if m.codeCollisions > 0 {
		m.codeCollisions--
		return repository.ErrReferralCodeTaken
	}
	if _, ok := m.referrals[u.ReferralCode]; ok {
		return repository.ErrReferralCodeTaken
	}
	m.lastID++
	u.ID = m.lastID
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	m.referrals[u.ReferralCode] = u.ID
	return nil
}

func (m *memStore) findByUsername(username string) *domain.User {
	for _, u := range m.users {
		if u.Username == username {
			return u
		}
	}
	return nil
}

func (m *memStore) Create(_ context.Context, u *domain.User, bonus *repository.ReferralBonus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findByUsername(u.Username) != nil {
		return repository.ErrUsernameTaken
	}

	var referrer *domain.User
	if bonus != nil {
		if m.failCredit != nil {
			return m.failCredit
		}
		r, ok := m.users[bonus.ReferrerID]
		if !ok {
			return repository.ErrNotFound
		}
		referrer = r
	}

	if err := m.insert(u); err != nil {
		return err
	}
	if referrer != nil {
		referrer.ReferralEarnings = referrer.ReferralEarnings.Add(bonus.Amount)
	}
	return nil
}

func (m *memStore) CreateIfAbsent(_ context.Context, u *domain.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findByUsername(u.Username) != nil {
		return false, nil
	}
	if err := m.insert(u); err != nil {
		return false, err
	}
	return true, nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.findByUsername(username)
	if u == nil {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// держит мьютекс на все время fn, как FOR UPDATE держит строку
func (m *memStore) UpdateLocked(_ context.Context, id int64, fn func(tx pgx.Tx, u *domain.User) error) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	pending := len(m.withdrawals)
	if err := fn(nil, &cp); err != nil {
		m.withdrawals = m.withdrawals[:pending]
		return nil, err
	}
	if cp.Balance.IsNegative() {
		return nil, errors.New("balance check constraint")
	}
	m.users[id] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) GetByCode(_ context.Context, code string) (*domain.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.referrals[code]
	if !ok {
		return nil, nil
	}
	return &domain.Referral{ReferralCode: code, ReferrerID: id}, nil
}

func (m *memStore) TopEarners(_ context.Context, limit int) ([]repository.ReferralStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.ReferralStat
	for _, u := range m.users {
		if u.ReferralEarnings.IsPositive() {
			out = append(out, repository.ReferralStat{UserID: u.ID, Username: u.Username, ReferralEarnings: u.ReferralEarnings})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReferralEarnings.GreaterThan(out[j].ReferralEarnings) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// вызывается изнутри UpdateLocked, мьютекс уже взят
func (m *memStore) CreateWithTx(_ context.Context, _ pgx.Tx, w *domain.Withdrawal) error {
	w.ID = int64(len(m.withdrawals) + 1)
	w.CreatedAt = time.Now()
	m.withdrawals = append(m.withdrawals, *w)
	return nil
}

func (m *memStore) GetByUserID(_ context.Context, userID int64, limit int) ([]domain.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Withdrawal
	for i := len(m.withdrawals) - 1; i >= 0 && len(out) < limit; i-- {
		if m.withdrawals[i].UserID == userID {
			out = append(out, m.withdrawals[i])
		}
	}
	return out, nil
}

type memAudit struct {
	mu   sync.Mutex
	logs []domain.AuditLog
}

func (a *memAudit) Create(_ context.Context, log *domain.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, *log)
	return nil
}

func (a *memAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

type chanPayout chan domain.Withdrawal

func (c chanPayout) Send(_ context.Context, w domain.Withdrawal) error {
	c <- w
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store  *memStore
	audit  *memAudit
	payout chanPayout
	clock  *clock
	svc    *RewardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  newMemStore(),
		audit:  &memAudit{},
		payout: make(chanPayout, 16),
		clock:  &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
	}
	f.svc = NewRewardService(f.store, f.store, f.store, NewAuditService(f.audit), f.payout, Options{Now: f.clock.Now})
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRegister_ZeroBalancesAndUniqueCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	codes := make(map[string]struct{})
	for _, name := range []string{"alice", "bob", "carol"} {
		u, err := f.svc.Register(ctx, name, "")
		require.NoError(t, err)
		assert.True(t, u.Balance.IsZero())
		assert.True(t, u.ReferralEarnings.IsZero())
		assert.Len(t, u.ReferralCode, domain.ReferralCodeLength)
		codes[u.ReferralCode] = struct{}{}
	}
	assert.Len(t, codes, 3)
	assert.Equal(t, []string{domain.AuditActionRegister, domain.AuditActionRegister, domain.AuditActionRegister}, f.audit.actions())
}

func TestRegister_ReferralCreditsReferrer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	referrer, err := f.svc.Register(ctx, "alice", "")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "bob", referrer.ReferralCode)
	require.NoError(t, err)

	got, _ := f.store.GetByID(ctx, referrer.ID)
	assert.Equal(t, "0.001", got.ReferralEarnings.String())
	assert.True(t, got.Balance.IsZero())

	_, err = f.svc.Register(ctx, "carol", referrer.ReferralCode)
	require.NoError(t, err)
	got, _ = f.store.GetByID(ctx, referrer.ID)
	assert.Equal(t, "0.002", got.ReferralEarnings.String())
	assert.Contains(t, f.audit.actions(), domain.AuditActionReferralCredit)
}

func TestRegister_UnknownReferralCodeIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice, err := f.svc.Register(ctx, "alice", "")
	require.NoError(t, err)

	bob, err := f.svc.Register(ctx, "bob", "zzzzzzzz")
	require.NoError(t, err)
	assert.NotZero(t, bob.ID)

	got, _ := f.store.GetByID(ctx, alice.ID)
	assert.True(t, got.ReferralEarnings.IsZero())
	assert.True(t, got.Balance.IsZero())
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "   ", "")
	assert.ErrorIs(t, err, ErrUsernameRequired)

	_, err = f.svc.Register(ctx, "alice", "")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, "alice", "")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegister_RetriesReferralCodeCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.codeCollisions = 2
	u, err := f.svc.Register(ctx, "alice", "")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	f.store.codeCollisions = referralCodeAttempts
	_, err = f.svc.Register(ctx, "bob", "")
	assert.ErrorIs(t, err, repository.ErrReferralCodeTaken)
}

func TestRegister_StoreError(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection refused")
	f.store.failCreate = boom

	_, err := f.svc.Register(context.Background(), "alice", "")
	assert.ErrorIs(t, err, boom)
}

func TestRegister_ReferralCreditFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice, err := f.svc.Register(ctx, "alice", "")
	require.NoError(t, err)

	reset := errors.New("connection reset")
	f.store.failCredit = reset
	_, err = f.svc.Register(ctx, "bob", alice.ReferralCode)
	assert.ErrorIs(t, err, reset)

	bob, _ := f.store.GetByUsername(ctx, "bob")
	assert.Nil(t, bob)
	assert.Len(t, f.store.users, 1)

	// повтор после сбоя проходит и отдает id и код
	f.store.failCredit = nil
	bob, err = f.svc.Register(ctx, "bob", alice.ReferralCode)
	require.NoError(t, err)
	assert.NotZero(t, bob.ID)
	assert.Len(t, bob.ReferralCode, domain.ReferralCodeLength)

	got, _ := f.store.GetByID(ctx, alice.ID)
	assert.Equal(t, "0.001", got.ReferralEarnings.String())
}

func TestRegisterChatUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, created, err := f.svc.RegisterChatUser(ctx, "alice", 1001)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, u.TgID)
	assert.EqualValues(t, 1001, *u.TgID)
	assert.Len(t, u.ReferralCode, domain.ReferralCodeLength)

	again, created, err := f.svc.RegisterChatUser(ctx, "alice", 1001)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)

	_, _, err = f.svc.RegisterChatUser(ctx, "", 1002)
	assert.ErrorIs(t, err, ErrUsernameRequired)

	// бот и api создают одну и ту же сущность
	_, err = f.svc.Register(ctx, "alice", "")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegisterChatUser_ConcurrentFirstMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := f.svc.RegisterChatUser(ctx, "alice", 7)
			assert.NoError(t, err)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	assert.Len(t, f.store.users, 1)
}

func TestClaimReward_Cooldown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.svc.Register(ctx, "alice", "")
	require.NoError(t, err)

	// last_claimed не задан - первый клейм сразу
	balance, err := f.svc.ClaimReward(ctx, u.ID, dec("10"))
	require.NoError(t, err)
	assert.Equal(t, "10", balance.String())

	f.clock.Advance(30*time.Minute + 500*time.Millisecond)
	_, err = f.svc.ClaimReward(ctx, u.ID, dec("10"))
	var cooldown *CooldownError
	require.ErrorAs(t, err, &cooldown)
	assert.Equal(t, 89*time.Minute+59*time.Second+500*time.Millisecond, cooldown.Remaining)
	assert.Equal(t, "You must wait before claiming again. Try again in 1h 29m 59s.", err.Error())

	got, _ := f.store.GetByID(ctx, u.ID)
	assert.Equal(t, "10", got.Balance.String())

	f.clock.Advance(90 * time.Minute)
	balance, err = f.svc.ClaimReward(ctx, u.ID, dec("2.5"))
	require.NoError(t, err)
	assert.Equal(t, "12.5", balance.String())

	got, _ = f.store.GetByID(ctx, u.ID)
	require.NotNil(t, got.LastClaimed)
	assert.True(t, got.LastClaimed.Equal(f.clock.Now()))
}

func TestClaimReward_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.svc.Register(ctx, "alice", "")
	require.NoError(t, err)

	_, err = f.svc.ClaimReward(ctx, 999, dec("1"))
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.ClaimReward(ctx, u.ID, dec("0"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.ClaimReward(ctx, u.ID, dec("-5"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// пользователь ищется раньше проверки суммы
	_, err = f.svc.ClaimReward(ctx, 999, dec("0"))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestClaimReward_RejectsAmountsTheStoreWouldRound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.svc.Register(ctx, "alice", "")
	require.NoError(t, err)

	_, err = f.svc.ClaimReward(ctx, u.ID, dec("0.000000001"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.svc.ClaimReward(ctx, u.ID, dec("1000000000000"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// отказ не запускает кулдаун
	got, _ := f.store.GetByID(ctx, u.ID)
	assert.Nil(t, got.LastClaimed)
	assert.True(t, got.Balance.IsZero())

	balance, err := f.svc.ClaimReward(ctx, u.ID, dec("0.00000001"))
	require.NoError(t, err)
	assert.Equal(t, "0.00000001", balance.String())
}

func TestWithdraw_RejectsAmountsTheStoreWouldRound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.svc.Register(ctx, "alice", "")
	require.NoError(t, err)
	_, err = f.svc.ClaimReward(ctx, u.ID, dec("10"))
	require.NoError(t, err)

	_, err = f.svc.Withdraw(ctx, u.ID, dec("3.000000001"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	balance, _ := f.svc.GetBalance(ctx, u.ID)
	assert.Equal(t, "10", balance.String())
	history, _ := f.svc.Withdrawals(ctx, u.ID, 10)
	assert.Empty(t, history)

	_, err = f.svc.Withdraw(ctx, u.ID, dec("3.00000001"))
	require.NoError(t, err)
	balance, _ = f.svc.GetBalance(ctx, u.ID)
	assert.Equal(t, "6.99999999", balance.String())
}

func TestWithdraw_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.svc.Register(ctx, "alice", "")
	require.NoError(t, err)

	// ниже минимума - отказ независимо от баланса
	_, err = f.svc.Withdraw(ctx, u.ID, dec("2.99"))
	assert.ErrorIs(t, err, ErrBelowMinimum)
	assert.Equal(t, "Minimum withdrawal is $3", err.Error())

	_, err = f.svc.ClaimReward(ctx, u.ID, dec("100"))
	require.NoError(t, err)
	_, err = f.svc.Withdraw(ctx, u.ID, dec("2.99"))
	assert.ErrorIs(t, err, ErrBelowMinimum)

	_, err = f.svc.Withdraw(ctx, u.ID, dec("100.01"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	w, err := f.svc.Withdraw(ctx, u.ID, dec("3"))
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusPending, w.Status)
	assert.Equal(t, "3", w.Amount.String())

	balance, err := f.svc.GetBalance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "97", balance.String())

	// весь остаток
	_, err = f.svc.Withdraw(ctx, u.ID, dec("97"))
	require.NoError(t, err)
	balance, _ = f.svc.GetBalance(ctx, u.ID)
	assert.True(t, balance.IsZero())

	history, err := f.svc.Withdrawals(ctx, u.ID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	_, err = f.svc.Withdraw(ctx, 999, dec("5"))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestWithdraw_SendsPayout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, _ := f.svc.Register(ctx, "alice", "")
	_, err := f.svc.ClaimReward(ctx, u.ID, dec("5"))
	require.NoError(t, err)

	w, err := f.svc.Withdraw(ctx, u.ID, dec("4"))
	require.NoError(t, err)

	select {
	case sent := <-f.payout:
		assert.Equal(t, w.ID, sent.ID)
		assert.Equal(t, u.ID, sent.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("payout was not sent")
	}
	assert.Contains(t, f.audit.actions(), domain.AuditActionWithdrawRequest)
}

func TestWithdraw_ConcurrentNeverOverdraws(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, _ := f.svc.Register(ctx, "alice", "")
	_, err := f.svc.ClaimReward(ctx, u.ID, dec("10"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Withdraw(ctx, u.ID, dec("3")); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrInsufficientFunds)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	balance, _ := f.svc.GetBalance(ctx, u.ID)
	assert.Equal(t, "1", balance.String())
}

func TestGetBalance_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetBalance(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.Withdrawals(context.Background(), 42, 10)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestScenario_RegisterClaimWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Register(ctx, "userA", "")
	require.NoError(t, err)
	assert.True(t, a.Balance.IsZero())

	balance, err := f.svc.ClaimReward(ctx, a.ID, dec("10"))
	require.NoError(t, err)
	assert.Equal(t, "10", balance.String())

	_, err = f.svc.Withdraw(ctx, a.ID, dec("3"))
	require.NoError(t, err)
	balance, _ = f.svc.GetBalance(ctx, a.ID)
	assert.Equal(t, "7", balance.String())

	_, err = f.svc.Withdraw(ctx, a.ID, dec("10"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	balance, _ = f.svc.GetBalance(ctx, a.ID)
	assert.Equal(t, "7", balance.String())
}

func TestTopReferrers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, _ := f.svc.Register(ctx, "alice", "")
	_, err := f.svc.Register(ctx, "bob", alice.ReferralCode)
	require.NoError(t, err)

	top, err := f.svc.TopReferrers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "alice", top[0].Username)
	assert.Equal(t, "0.001", top[0].ReferralEarnings.String())
}
