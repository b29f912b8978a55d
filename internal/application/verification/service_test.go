package verification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/otp-auth-api/internal/application/session"
	"github.com/otp-auth-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockVerificationStore struct{ mock.Mock }

func (m *mockVerificationStore) Insert(ctx context.Context, v *domain.Verification) error {
	return m.Called(ctx, v).Error(0)
}
func (m *mockVerificationStore) LatestUnused(ctx context.Context, identifier string, t domain.IdentifierType, flow domain.AuthFlow, step domain.AuthStep) (*domain.Verification, error) {
	args := m.Called(ctx, identifier, t, flow, step)
	if v, _ := args.Get(0).(*domain.Verification); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockVerificationStore) MarkUsed(ctx context.Context, scope, verificationID string, at time.Time) error {
	return m.Called(ctx, scope, verificationID, at).Error(0)
}
func (m *mockVerificationStore) IncrementAttempts(ctx context.Context, scope, verificationID string) (int, error) {
	args := m.Called(ctx, scope, verificationID)
	return args.Int(0), args.Error(1)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByIdentifier(ctx context.Context, identifier string, t domain.IdentifierType) (*domain.User, error) {
	args := m.Called(ctx, identifier, t)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRegistrar struct{ mock.Mock }

func (m *mockRegistrar) Register(ctx context.Context, identifier string, t domain.IdentifierType, name string) (*domain.User, error) {
	args := m.Called(ctx, identifier, t, name)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSessionCreator struct{ mock.Mock }

func (m *mockSessionCreator) Create(ctx context.Context, userID string, ip, userAgent *string) (*session.CreateResult, error) {
	args := m.Called(ctx, userID, ip, userAgent)
	if r, _ := args.Get(0).(*session.CreateResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type mockSMSSender struct{ mock.Mock }

func (m *mockSMSSender) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

// --- builders ---

func newTestService(vs VerificationStore, us UserStore, reg UserRegistrar, sc SessionCreator, ml Mailer, sms SMSSender) Service {
	return NewService(ServiceDeps{
		VerificationRepo: vs,
		UserRepo:         us,
		Registrar:        reg,
		Sessions:         sc,
		Mailer:           ml,
		SMSSender:        sms,
	})
}

func freshVerification(code string) *domain.Verification {
	now := time.Now().UTC()
	return &domain.Verification{
		VerificationID: "v1",
		Scope:          domain.VerificationScope("a@b.com", domain.IdentifierEmail, domain.FlowSignIn, domain.StepDefault),
		Identifier:     "a@b.com",
		IdentifierType: domain.IdentifierEmail,
		Flow:           domain.FlowSignIn,
		Step:           domain.StepDefault,
		Code:           code,
		CreatedAt:      now,
		ExpiresAt:      now.Add(time.Minute),
	}
}

func signInInput(code string) VerifyCodeInput {
	return VerifyCodeInput{
		Identifier: "a@b.com",
		Type:       domain.IdentifierEmail,
		Flow:       domain.FlowSignIn,
		Step:       domain.StepDefault,
		Code:       code,
	}
}

func createResult(userID string) *session.CreateResult {
	return &session.CreateResult{
		Session: &domain.Session{
			SessionID: "s1",
			Token:     "opaque-token",
			UserID:    userID,
			ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
		},
		CookieToken: "signed-cookie",
	}
}

// --- SendCode ---

func TestSendCode_EmailHappyPath(t *testing.T) {
	vs := &mockVerificationStore{}
	ml := &mockMailer{}
	vs.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Verification")).Return(nil)
	ml.On("SendEmail", "a@b.com", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(vs, nil, nil, nil, ml, nil)
	res, err := svc.SendCode(context.Background(), SendCodeInput{
		Identifier: "a@b.com",
		Type:       domain.IdentifierEmail,
		Flow:       domain.FlowSignIn,
		Step:       domain.StepDefault,
	})

	require.NoError(t, err)
	assert.True(t, res.Sent)
	assert.WithinDuration(t, time.Now().Add(domain.CodeTTL), res.ExpiresAt, 5*time.Second)

	inserted := vs.Calls[0].Arguments.Get(1).(*domain.Verification)
	assert.Len(t, inserted.Code, 6)
	assert.Equal(t, "a@b.com#email#sign_in#default", inserted.Scope)
	assert.Nil(t, inserted.UsedAt)
	vs.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestSendCode_PhoneUsesSMSChannel(t *testing.T) {
	vs := &mockVerificationStore{}
	sms := &mockSMSSender{}
	vs.On("Insert", mock.Anything, mock.Anything).Return(nil)
	sms.On("SendSMS", mock.Anything, "13900001111", mock.Anything).Return(nil)

	svc := newTestService(vs, nil, nil, nil, nil, sms)
	res, err := svc.SendCode(context.Background(), SendCodeInput{
		Identifier: "13900001111",
		Type:       domain.IdentifierPhone,
		Flow:       domain.FlowSignUp,
		Step:       domain.StepRegister,
	})

	require.NoError(t, err)
	assert.True(t, res.Sent)
	sms.AssertExpectations(t)
}

func TestSendCode_StoreFailure(t *testing.T) {
	vs := &mockVerificationStore{}
	vs.On("Insert", mock.Anything, mock.Anything).Return(errors.New("dynamo down"))

	svc := newTestService(vs, nil, nil, nil, &mockMailer{}, nil)
	_, err := svc.SendCode(context.Background(), SendCodeInput{
		Identifier: "a@b.com",
		Type:       domain.IdentifierEmail,
		Flow:       domain.FlowSignIn,
		Step:       domain.StepDefault,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSendFailed))
}

func TestSendCode_DeliveryFailure_DistinctFromStoreFailure(t *testing.T) {
	vs := &mockVerificationStore{}
	ml := &mockMailer{}
	vs.On("Insert", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp refused"))

	svc := newTestService(vs, nil, nil, nil, ml, nil)
	_, err := svc.SendCode(context.Background(), SendCodeInput{
		Identifier: "a@b.com",
		Type:       domain.IdentifierEmail,
		Flow:       domain.FlowSignIn,
		Step:       domain.StepDefault,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeliveryFailed))
	assert.False(t, errors.Is(err, ErrSendFailed))
}

// --- VerifyCode: rejection ladder ---

func TestVerifyCode_NoRecord(t *testing.T) {
	vs := &mockVerificationStore{}
	vs.On("LatestUnused", mock.Anything, "a@b.com", domain.IdentifierEmail, domain.FlowSignIn, domain.StepDefault).
		Return(nil, domain.ErrNotFound)

	svc := newTestService(vs, nil, nil, nil, nil, nil)
	_, err := svc.VerifyCode(context.Background(), signInInput("123456"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodeNotFound))
}

func TestVerifyCode_Expired(t *testing.T) {
	v := freshVerification("123456")
	v.ExpiresAt = time.Now().Add(-time.Second)
	vs := &mockVerificationStore{}
	vs.On("LatestUnused", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(v, nil)

	svc := newTestService(vs, nil, nil, nil, nil, nil)
	_, err := svc.VerifyCode(context.Background(), signInInput("123456"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodeExpired))
}

func TestVerifyCode_AlreadyUsed(t *testing.T) {
	v := freshVerification("123456")
	used := time.Now().Add(-time.Second)
	v.UsedAt = &used
	vs := &mockVerificationStore{}
	vs.On("LatestUnused", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(v, nil)

	svc := newTestService(vs, nil, nil, nil, nil, nil)
	_, err := svc.VerifyCode(context.Background(), signInInput("123456"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodeUsed))
}

// An exhausted attempt budget must be indistinguishable from true expiry.
func TestVerifyCode_AttemptBudgetExhausted_MasksAsExpired(t *testing.T) {
	v := freshVerification("123456")
	v.AttemptCount = domain.MaxVerificationAttempts
	vs := &mockVerificationStore{}
	vs.On("LatestUnused", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(v, nil)

	svc := newTestService(vs, nil, nil, nil, nil, nil)
	_, err := svc.VerifyCode(context.Background(), signInInput("123456"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodeExpired))
	assert.Equal(t, ErrCodeExpired.Error(), err.Error())
}

func TestVerifyCode_WrongCode_ReportsRemainingAttempts(t *testing.T) {
	v := freshVerification("123456")
	vs := &mockVerificationStore{}
	vs.On("LatestUnused", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(v, nil)
	vs.On("IncrementAttempts", mock.Anything, v.Scope, v.VerificationID).Return(1, nil)

	svc := newTestService(vs, nil, nil, nil, nil, nil)
	_, err := svc.VerifyCode(context.Background(), signInInput("654321"))

	require.Error(t, err)
	var incorrect *IncorrectCodeError
	require.True(t, errors.As(err, &incorrect))
	assert.Equal(t, 4, incorrect.Remaining)
	assert.Contains(t, err.Error(), "4 attempts remaining")
	vs.AssertExpectations(t)
}

func TestVerifyCode_WrongCode_CountsDownAcrossGuesses(t *testing.T) {
	v := freshVerification("123456")
	vs := &mockVerificationStore{}
	vs.On("LatestUnused", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(v, nil)
	for i := 1; i <= 4; i++ {
		vs.On("IncrementAttempts", mock.Anything, v.Scope, v.VerificationID).Return(i, nil).Once()
	}

	svc := newTestService(vs, nil, nil, nil, nil, nil)
	for want := 4; want >= 1; want-- {
		_, err := svc.VerifyCode(context.Background(), signInInput("654321"))
		var incorrect *IncorrectCodeError
		require.True(t, errors.As(err, &incorrect))
		assert.Equal(t, want, incorrect.Remaining)
	}
}

// The fifth wrong guess exhausts the budget; the caller sees the expiry
// message, not a zero-remaining count.
func TestVerifyCode_FifthWrongGuess_MasksAsExpired(t *testing.T) {
	v := freshVerification("123456")
	vs := &mockVerificationStore{}
	vs.On("LatestUnused", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(v, nil)
	vs.On("IncrementAttempts", mock.Anything, v.Scope, v.VerificationID).Return(domain.MaxVerificationAttempts, nil)

	svc := newTestService(vs, nil, nil, nil, nil, nil)
	_, err := svc.VerifyCode(context.Background(), signInInput("654321"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodeExpired))
}

func TestVerifyCode_RedemptionRaceLoser_SeesAlreadyUsed(t *testing.T) {
	v := freshVerification("123456")
	vs := &mockVerificationStore{}
	vs.On("LatestUnused", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(v, nil)
	vs.On("MarkUsed", mock.Anything, v.Scope, v.VerificationID, mock.Anything).Return(domain.ErrConflict)

	svc := newTestService(vs, nil, nil, nil, nil, nil)
	_, err := svc.VerifyCode(context.Background(), signInInput("123456"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodeUsed))
}

// --- VerifyCode: sign-in branch ---

func TestVerifyCode_SignIn_HappyPath(t *testing.T) {
	v := freshVerification("123456")
	vs := &mockVerificationStore{}
	us := &mockUserStore{}
	sc := &mockSessionCreator{}
	vs.On("LatestUnused", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(v, nil)
	vs.On("MarkUsed", mock.Anything, v.Scope, v.VerificationID, mock.Anything).Return(nil)
	us.On("GetByIdentifier", mock.Anything, "a@b.com", domain.IdentifierEmail).
		Return(&domain.User{UserID: "u1", Email: "a@b.com"}, nil)
	sc.On("Create", mock.Anything, "u1", mock.Anything, mock.Anything).Return(createResult("u1"), nil)

	svc := newTestService(vs, us, nil, sc, nil, nil)
	res, err := svc.VerifyCode(context.Background(), signInInput("123456"))

	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, "u1", res.UserID)
	assert.Equal(t, "opaque-token", res.SessionToken)
	assert.Equal(t, "signed-cookie", res.CookieToken)
	vs.AssertExpectations(t)
	us.AssertExpectations(t)
	sc.AssertExpectations(t)
}

func TestVerifyCode_SignIn_UserMissing(t *testing.T) {
	v := freshVerification("123456")
	vs := &mockVerificationStore{}
	us := &mockUserStore{}
	vs.On("LatestUnused", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(v, nil)
	vs.On("MarkUsed", mock.Anything, v.Scope, v.VerificationID, mock.Anything).Return(nil)
	us.On("GetByIdentifier", mock.Anything, "a@b.com", domain.IdentifierEmail).Return(nil, domain.ErrNotFound)

	svc := newTestService(vs, us, nil, nil, nil, nil)
	_, err := svc.VerifyCode(context.Background(), signInInput("123456"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

// --- VerifyCode: sign-up branch ---

func TestVerifyCode_SignUp_RequiresName(t *testing.T) {
	v := freshVerification("123456")
	v.Flow = domain.FlowSignUp
	v.Step = domain.StepRegister
	vs := &mockVerificationStore{}
	vs.On("LatestUnused", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(v, nil)
	vs.On("MarkUsed", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(vs, nil, nil, nil, nil, nil)
	in := signInInput("123456")
	in.Flow = domain.FlowSignUp
	in.Step = domain.StepRegister
	_, err := svc.VerifyCode(context.Background(), in)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNameRequired))
}

func TestVerifyCode_SignUp_CreatesUserAndSession(t *testing.T) {
	v := freshVerification("123456")
	v.Flow = domain.FlowSignUp
	v.Step = domain.StepRegister
	vs := &mockVerificationStore{}
	reg := &mockRegistrar{}
	sc := &mockSessionCreator{}
	vs.On("LatestUnused", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(v, nil)
	vs.On("MarkUsed", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	reg.On("Register", mock.Anything, "a@b.com", domain.IdentifierEmail, "Ada").
		Return(&domain.User{UserID: "u2", Email: "a@b.com", Name: "Ada"}, nil)
	sc.On("Create", mock.Anything, "u2", mock.Anything, mock.Anything).Return(createResult("u2"), nil)

	svc := newTestService(vs, nil, reg, sc, nil, nil)
	in := signInInput("123456")
	in.Flow = domain.FlowSignUp
	in.Step = domain.StepRegister
	in.Name = "Ada"
	res, err := svc.VerifyCode(context.Background(), in)

	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, "u2", res.UserID)
	reg.AssertNumberOfCalls(t, "Register", 1)
}

// --- concurrent redemption against a store with real conditional semantics ---

type fakeStore struct {
	mu sync.Mutex
	v  *domain.Verification
}

func (f *fakeStore) Insert(ctx context.Context, v *domain.Verification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.v = v
	return nil
}

func (f *fakeStore) LatestUnused(ctx context.Context, identifier string, t domain.IdentifierType, flow domain.AuthFlow, step domain.AuthStep) (*domain.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.v == nil || f.v.UsedAt != nil {
		return nil, domain.ErrNotFound
	}
	cp := *f.v
	return &cp, nil
}

func (f *fakeStore) MarkUsed(ctx context.Context, scope, verificationID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.v.UsedAt != nil {
		return domain.ErrConflict
	}
	f.v.UsedAt = &at
	return nil
}

func (f *fakeStore) IncrementAttempts(ctx context.Context, scope, verificationID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.v.AttemptCount++
	return f.v.AttemptCount, nil
}

func TestVerifyCode_ConcurrentRedemption_ExactlyOneWins(t *testing.T) {
	store := &fakeStore{v: freshVerification("123456")}
	us := &mockUserStore{}
	sc := &mockSessionCreator{}
	us.On("GetByIdentifier", mock.Anything, "a@b.com", domain.IdentifierEmail).
		Return(&domain.User{UserID: "u1"}, nil)
	sc.On("Create", mock.Anything, "u1", mock.Anything, mock.Anything).Return(createResult("u1"), nil)

	svc := newTestService(store, us, nil, sc, nil, nil)

	const racers = 8
	results := make(chan error, racers)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < racers; i++ {
		go func() {
			start.Wait()
			_, err := svc.VerifyCode(context.Background(), signInInput("123456"))
			results <- err
		}()
	}
	start.Done()

	var wins, losses int
	for i := 0; i < racers; i++ {
		err := <-results
		if err == nil {
			wins++
			continue
		}
		require.True(t, errors.Is(err, ErrCodeUsed) || errors.Is(err, ErrCodeNotFound))
		losses++
	}

	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, losses)
	sc.AssertNumberOfCalls(t, "Create", 1)
}
