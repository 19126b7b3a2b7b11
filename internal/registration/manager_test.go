package registration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"amora/internal/config"
	"amora/internal/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetUserByEmail(ctx context.Context, email string) (database.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(database.User), args.Error(1)
}

func (m *mockStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(database.User), args.Error(1)
}

// CreateAccount echoes the params back as the persisted row, the same way
// the database does via RETURNING.
func (m *mockStore) CreateAccount(ctx context.Context, params database.CreateAccountParams) (database.User, error) {
	args := m.Called(ctx, params)
	if err := args.Error(1); err != nil {
		return database.User{}, err
	}
	return database.User{
		ID:              params.ID,
		Email:           params.Email,
		PasswordHash:    params.PasswordHash,
		FirstName:       params.FirstName,
		GenderID:        params.GenderID,
		IntentionID:     params.IntentionID,
		IsConfirmed:     params.IsConfirmed,
		PreferredMinAge: params.PreferredMinAge,
		PreferredMaxAge: params.PreferredMaxAge,
		CreatedAt:       params.Now,
		UpdatedAt:       params.Now,
	}, nil
}

func (m *mockStore) ConfirmUser(ctx context.Context, id uuid.UUID, now time.Time) (database.User, bool, error) {
	args := m.Called(ctx, id, now)
	return args.Get(0).(database.User), args.Bool(1), args.Error(2)
}

func (m *mockStore) CreateRegistrationToken(ctx context.Context, params database.CreateRegistrationTokenParams) (database.RegistrationToken, error) {
	args := m.Called(ctx, params)
	if err := args.Error(1); err != nil {
		return database.RegistrationToken{}, err
	}
	return database.RegistrationToken{
		ID:        params.ID,
		Content:   params.Content,
		UserID:    params.UserID,
		CreatedAt: params.Now,
	}, nil
}

func (m *mockStore) GetRegistrationTokenByContent(ctx context.Context, content string) (database.RegistrationToken, error) {
	args := m.Called(ctx, content)
	return args.Get(0).(database.RegistrationToken), args.Error(1)
}

func (m *mockStore) DeleteRegistrationToken(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockStore) GetGenderByID(ctx context.Context, id int) (database.Gender, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(database.Gender), args.Error(1)
}

func (m *mockStore) GetIntentionByID(ctx context.Context, id int) (database.Intention, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(database.Intention), args.Error(1)
}

type mockCaptcha struct {
	mock.Mock
}

func (m *mockCaptcha) Verify(ctx context.Context, id uuid.UUID, answer string) (bool, error) {
	args := m.Called(ctx, id, answer)
	return args.Bool(0), args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendRegistrationMail(ctx context.Context, user database.User, tokenContent string) error {
	args := m.Called(ctx, user, tokenContent)
	return args.Error(0)
}

func (m *mockMailer) SendAccountConfirmed(ctx context.Context, user database.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userID uuid.UUID, title, message string) error {
	args := m.Called(ctx, userID, title, message)
	return args.Error(0)
}

type mockAuditor struct {
	mock.Mock
}

func (m *mockAuditor) LogEvent(ctx context.Context, ownerID uuid.UUID, eventType string, data map[string]any) error {
	args := m.Called(ctx, ownerID, eventType, data)
	return args.Error(0)
}

type managerMocks struct {
	store    *mockStore
	captcha  *mockCaptcha
	mailer   *mockMailer
	notifier *mockNotifier
	auditor  *mockAuditor
}

func testConfig() config.RegistrationConfig {
	return config.RegistrationConfig{
		TokenLength: 30,
		MinAge:      18,
		MaxAge:      99,
		AgeRange:    5,
	}
}

func newTestManager(environment string) (Manager, *managerMocks) {
	mocks := &managerMocks{
		store:    &mockStore{},
		captcha:  &mockCaptcha{},
		mailer:   &mockMailer{},
		notifier: &mockNotifier{},
		auditor:  &mockAuditor{},
	}
	spam := NewSpamDomainFilter(discardLogger(), "/nonexistent/temp-mail.txt", environment)
	manager := NewManager(discardLogger(), mocks.store, mocks.captcha, mocks.mailer,
		mocks.notifier, mocks.auditor, spam, testConfig())
	return manager, mocks
}

func validRequest() RegisterRequest {
	return RegisterRequest{
		Email:       "John.Doe+promo@gmail.com",
		Password:    "Sup3r!Secret",
		FirstName:   "John",
		DateOfBirth: time.Now().AddDate(-25, 0, 0),
		GenderID:    1,
		IntentionID: 2,
		CaptchaID:   uuid.New(),
		CaptchaText: "12",
	}
}

func TestManager_Register_Success(t *testing.T) {
	manager, mocks := newTestManager(config.EnvironmentDevelopment)
	req := validRequest()

	mocks.captcha.On("Verify", mock.Anything, req.CaptchaID, "12").Return(true, nil)
	// Dedup must run against the normalized address, not the raw input.
	mocks.store.On("GetUserByEmail", mock.Anything, "johndoe@gmail.com").
		Return(database.User{}, database.ErrUserNotFound)
	mocks.store.On("GetGenderByID", mock.Anything, 1).Return(database.Gender{ID: 1, Name: "male"}, nil)
	mocks.store.On("GetIntentionByID", mock.Anything, 2).Return(database.Intention{ID: 2, Name: "date"}, nil)
	mocks.store.On("CreateAccount", mock.Anything, mock.MatchedBy(func(p database.CreateAccountParams) bool {
		return p.Email == "johndoe@gmail.com" &&
			!p.IsConfirmed &&
			p.PreferredMinAge == 20 && p.PreferredMaxAge == 30 &&
			p.PasswordHash.IsSet
	})).Return(database.User{}, nil)
	mocks.store.On("CreateRegistrationToken", mock.Anything, mock.MatchedBy(func(p database.CreateRegistrationTokenParams) bool {
		return len(p.Content) == 30
	})).Return(database.RegistrationToken{}, nil)
	mocks.mailer.On("SendRegistrationMail", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mocks.auditor.On("LogEvent", mock.Anything, mock.Anything, "user.register", mock.Anything).Return(nil)

	token, err := manager.Register(context.Background(), req)

	require.NoError(t, err)
	assert.Len(t, token, 30)
	mocks.mailer.AssertCalled(t, "SendRegistrationMail", mock.Anything, mock.Anything, token)
	mocks.store.AssertExpectations(t)

	// The stored password is a hash of the submitted one, never the plaintext.
	for _, call := range mocks.store.Calls {
		if call.Method == "CreateAccount" {
			params := call.Arguments.Get(1).(database.CreateAccountParams)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(params.PasswordHash.Val), []byte(req.Password)))
		}
	}
}

func TestManager_Register_Failures(t *testing.T) {
	tests := []struct {
		name          string
		environment   string
		mutate        func(*RegisterRequest)
		setupMocks    func(*managerMocks, RegisterRequest)
		expectedError error
	}{
		{
			name:        "captcha rejected",
			environment: config.EnvironmentDevelopment,
			setupMocks: func(m *managerMocks, req RegisterRequest) {
				m.captcha.On("Verify", mock.Anything, req.CaptchaID, req.CaptchaText).Return(false, nil)
			},
			expectedError: ErrCaptchaInvalid,
		},
		{
			name:        "malformed email",
			environment: config.EnvironmentDevelopment,
			mutate: func(req *RegisterRequest) {
				req.Email = "not-an-address"
			},
			setupMocks: func(m *managerMocks, req RegisterRequest) {
				m.captcha.On("Verify", mock.Anything, req.CaptchaID, req.CaptchaText).Return(true, nil)
			},
			expectedError: ErrEmailInvalid,
		},
		{
			name:        "email taken after normalization",
			environment: config.EnvironmentDevelopment,
			setupMocks: func(m *managerMocks, req RegisterRequest) {
				m.captcha.On("Verify", mock.Anything, req.CaptchaID, req.CaptchaText).Return(true, nil)
				m.store.On("GetUserByEmail", mock.Anything, "johndoe@gmail.com").
					Return(database.User{ID: uuid.New()}, nil)
			},
			expectedError: ErrEmailTaken,
		},
		{
			name:        "below minimum age",
			environment: config.EnvironmentDevelopment,
			mutate: func(req *RegisterRequest) {
				req.DateOfBirth = time.Now().AddDate(-16, 0, 0)
			},
			setupMocks: func(m *managerMocks, req RegisterRequest) {
				m.captcha.On("Verify", mock.Anything, req.CaptchaID, req.CaptchaText).Return(true, nil)
				m.store.On("GetUserByEmail", mock.Anything, mock.Anything).
					Return(database.User{}, database.ErrUserNotFound)
			},
			expectedError: ErrAgeTooLow,
		},
		{
			name:        "concurrent duplicate loses on unique index",
			environment: config.EnvironmentDevelopment,
			setupMocks: func(m *managerMocks, req RegisterRequest) {
				m.captcha.On("Verify", mock.Anything, req.CaptchaID, req.CaptchaText).Return(true, nil)
				m.store.On("GetUserByEmail", mock.Anything, mock.Anything).
					Return(database.User{}, database.ErrUserNotFound)
				m.store.On("GetGenderByID", mock.Anything, 1).Return(database.Gender{ID: 1}, nil)
				m.store.On("GetIntentionByID", mock.Anything, 2).Return(database.Intention{ID: 2}, nil)
				m.store.On("CreateAccount", mock.Anything, mock.Anything).
					Return(database.User{}, database.ErrDuplicateEmail)
			},
			expectedError: ErrEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, mocks := newTestManager(tt.environment)
			req := validRequest()
			if tt.mutate != nil {
				tt.mutate(&req)
			}
			tt.setupMocks(mocks, req)

			token, err := manager.Register(context.Background(), req)

			assert.ErrorIs(t, err, tt.expectedError)
			assert.Empty(t, token)
			// A failed sign-up must never leave a token behind.
			mocks.store.AssertNotCalled(t, "CreateRegistrationToken", mock.Anything, mock.Anything)
			mocks.mailer.AssertNotCalled(t, "SendRegistrationMail", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestManager_Register_SpamDomainRejectedInProduction(t *testing.T) {
	manager, mocks := newTestManager(config.EnvironmentProduction)
	path := writeDenylist(t, "mailinator.com\n")
	manager.spam = NewSpamDomainFilter(discardLogger(), path, config.EnvironmentProduction)

	req := validRequest()
	req.Email = "someone@mailinator.com"

	mocks.captcha.On("Verify", mock.Anything, req.CaptchaID, req.CaptchaText).Return(true, nil)
	mocks.store.On("GetUserByEmail", mock.Anything, "someone@mailinator.com").
		Return(database.User{}, database.ErrUserNotFound)

	_, err := manager.Register(context.Background(), req)

	assert.ErrorIs(t, err, ErrEmailSpam)
	mocks.store.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything)
}

func TestManager_Register_MailFailureDoesNotRollBack(t *testing.T) {
	manager, mocks := newTestManager(config.EnvironmentDevelopment)
	req := validRequest()

	mocks.captcha.On("Verify", mock.Anything, req.CaptchaID, req.CaptchaText).Return(true, nil)
	mocks.store.On("GetUserByEmail", mock.Anything, mock.Anything).
		Return(database.User{}, database.ErrUserNotFound)
	mocks.store.On("GetGenderByID", mock.Anything, 1).Return(database.Gender{ID: 1}, nil)
	mocks.store.On("GetIntentionByID", mock.Anything, 2).Return(database.Intention{ID: 2}, nil)
	mocks.store.On("CreateAccount", mock.Anything, mock.Anything).Return(database.User{}, nil)
	mocks.store.On("CreateRegistrationToken", mock.Anything, mock.Anything).
		Return(database.RegistrationToken{}, nil)
	mocks.mailer.On("SendRegistrationMail", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("smtp unreachable"))
	mocks.auditor.On("LogEvent", mock.Anything, mock.Anything, "user.register", mock.Anything).Return(nil)

	token, err := manager.Register(context.Background(), req)

	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestManager_RegisterOAuth(t *testing.T) {
	manager, mocks := newTestManager(config.EnvironmentDevelopment)

	mocks.store.On("GetUserByEmail", mock.Anything, "johndoe@gmail.com").
		Return(database.User{}, database.ErrUserNotFound)
	mocks.store.On("GetGenderByID", mock.Anything, 1).Return(database.Gender{ID: 1}, nil)
	mocks.store.On("GetIntentionByID", mock.Anything, 2).Return(database.Intention{ID: 2}, nil)
	mocks.store.On("CreateAccount", mock.Anything, mock.MatchedBy(func(p database.CreateAccountParams) bool {
		return p.IsConfirmed && !p.PasswordHash.IsSet && p.Email == "johndoe@gmail.com"
	})).Return(database.User{}, nil)
	mocks.mailer.On("SendAccountConfirmed", mock.Anything, mock.Anything).Return(nil)
	mocks.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mocks.auditor.On("LogEvent", mock.Anything, mock.Anything, "user.register_oauth", mock.Anything).Return(nil)

	req := RegisterRequest{
		FirstName:   "John",
		DateOfBirth: time.Now().AddDate(-30, 0, 0),
		GenderID:    1,
		IntentionID: 2,
	}
	account, err := manager.RegisterOAuth(context.Background(), req, "John.Doe+work@gmail.com")

	require.NoError(t, err)
	assert.True(t, account.User.IsConfirmed)
	assert.False(t, account.User.PasswordHash.IsSet)

	// No token on the OAuth path; captcha never consulted.
	mocks.store.AssertNotCalled(t, "CreateRegistrationToken", mock.Anything, mock.Anything)
	mocks.captcha.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
	mocks.mailer.AssertCalled(t, "SendAccountConfirmed", mock.Anything, mock.Anything)

	// Relationship collections exist from the start, empty but never nil.
	assert.NotNil(t, account.Interests)
	assert.NotNil(t, account.Images)
	assert.NotNil(t, account.Likes)
	assert.NotNil(t, account.Conversations)
	assert.NotNil(t, account.Messages)
	assert.NotNil(t, account.Notifications)
	assert.NotNil(t, account.Hides)
	assert.NotNil(t, account.Blocks)
	assert.NotNil(t, account.Reports)
	assert.NotNil(t, account.WebPushSubs)
	assert.NotNil(t, account.Donations)
	assert.Empty(t, account.Interests)
}

func TestManager_RegisterOAuth_EmailTaken(t *testing.T) {
	manager, mocks := newTestManager(config.EnvironmentDevelopment)

	mocks.store.On("GetUserByEmail", mock.Anything, "johndoe@gmail.com").
		Return(database.User{ID: uuid.New()}, nil)

	_, err := manager.RegisterOAuth(context.Background(), RegisterRequest{
		FirstName:   "John",
		DateOfBirth: time.Now().AddDate(-30, 0, 0),
		GenderID:    1,
		IntentionID: 2,
	}, "john.doe@gmail.com")

	assert.ErrorIs(t, err, ErrEmailTaken)
	mocks.store.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything)
}

func TestManager_Confirm(t *testing.T) {
	userID := uuid.New()
	tokenID := uuid.New()
	token := database.RegistrationToken{ID: tokenID, Content: "abc123", UserID: userID}

	tests := []struct {
		name          string
		setupMocks    func(*managerMocks)
		expectedError error
	}{
		{
			name: "token not found",
			setupMocks: func(m *managerMocks) {
				m.store.On("GetRegistrationTokenByContent", mock.Anything, "abc123").
					Return(database.RegistrationToken{}, database.ErrTokenNotFound)
			},
			expectedError: ErrTokenNotFound,
		},
		{
			name: "token orphaned",
			setupMocks: func(m *managerMocks) {
				m.store.On("GetRegistrationTokenByContent", mock.Anything, "abc123").Return(token, nil)
				m.store.On("ConfirmUser", mock.Anything, userID, mock.Anything).
					Return(database.User{}, false, database.ErrUserNotFound)
			},
			expectedError: ErrTokenOrphaned,
		},
		{
			name: "already confirmed",
			setupMocks: func(m *managerMocks) {
				m.store.On("GetRegistrationTokenByContent", mock.Anything, "abc123").Return(token, nil)
				m.store.On("ConfirmUser", mock.Anything, userID, mock.Anything).
					Return(database.User{ID: userID, IsConfirmed: true}, false, nil)
			},
			expectedError: ErrAlreadyConfirmed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, mocks := newTestManager(config.EnvironmentDevelopment)
			tt.setupMocks(mocks)

			_, err := manager.Confirm(context.Background(), "abc123")

			assert.ErrorIs(t, err, tt.expectedError)
			mocks.mailer.AssertNotCalled(t, "SendAccountConfirmed", mock.Anything, mock.Anything)
		})
	}
}

func TestManager_Confirm_Success(t *testing.T) {
	manager, mocks := newTestManager(config.EnvironmentDevelopment)
	userID := uuid.New()
	tokenID := uuid.New()
	confirmedUser := database.User{ID: userID, Email: "user@example.com", IsConfirmed: true}

	mocks.store.On("GetRegistrationTokenByContent", mock.Anything, "abc123").
		Return(database.RegistrationToken{ID: tokenID, Content: "abc123", UserID: userID}, nil)
	mocks.store.On("ConfirmUser", mock.Anything, userID, mock.Anything).
		Return(confirmedUser, true, nil)
	mocks.store.On("DeleteRegistrationToken", mock.Anything, tokenID).Return(nil)
	mocks.mailer.On("SendAccountConfirmed", mock.Anything, confirmedUser).Return(nil)
	mocks.notifier.On("Notify", mock.Anything, userID, mock.Anything, mock.Anything).Return(nil)
	mocks.auditor.On("LogEvent", mock.Anything, userID, "user.confirm", mock.Anything).Return(nil)

	user, err := manager.Confirm(context.Background(), "abc123")

	require.NoError(t, err)
	assert.True(t, user.IsConfirmed)
	mocks.store.AssertExpectations(t)
	mocks.mailer.AssertExpectations(t)
}

// fakeConfirmStore is a minimal in-memory store for exercising concurrent
// confirmation. Only the methods Confirm touches are implemented.
type fakeConfirmStore struct {
	mu           sync.Mutex
	user         database.User
	token        database.RegistrationToken
	tokenDeleted bool
}

func (s *fakeConfirmStore) GetRegistrationTokenByContent(ctx context.Context, content string) (database.RegistrationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokenDeleted || s.token.Content != content {
		return database.RegistrationToken{}, database.ErrTokenNotFound
	}
	return s.token, nil
}

func (s *fakeConfirmStore) ConfirmUser(ctx context.Context, id uuid.UUID, now time.Time) (database.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user.ID != id {
		return database.User{}, false, database.ErrUserNotFound
	}
	if s.user.IsConfirmed {
		return s.user, false, nil
	}
	s.user.IsConfirmed = true
	return s.user, true, nil
}

func (s *fakeConfirmStore) DeleteRegistrationToken(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenDeleted = true
	return nil
}

func (s *fakeConfirmStore) GetUserByEmail(ctx context.Context, email string) (database.User, error) {
	return database.User{}, database.ErrUserNotFound
}

func (s *fakeConfirmStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	return database.User{}, database.ErrUserNotFound
}

func (s *fakeConfirmStore) CreateAccount(ctx context.Context, params database.CreateAccountParams) (database.User, error) {
	return database.User{}, errors.New("not implemented")
}

func (s *fakeConfirmStore) CreateRegistrationToken(ctx context.Context, params database.CreateRegistrationTokenParams) (database.RegistrationToken, error) {
	return database.RegistrationToken{}, errors.New("not implemented")
}

func (s *fakeConfirmStore) GetGenderByID(ctx context.Context, id int) (database.Gender, error) {
	return database.Gender{}, database.ErrGenderNotFound
}

func (s *fakeConfirmStore) GetIntentionByID(ctx context.Context, id int) (database.Intention, error) {
	return database.Intention{}, database.ErrIntentionNotFound
}

type countingMailer struct {
	mu        sync.Mutex
	confirmed int
}

func (m *countingMailer) SendRegistrationMail(ctx context.Context, user database.User, tokenContent string) error {
	return nil
}

func (m *countingMailer) SendAccountConfirmed(ctx context.Context, user database.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmed++
	return nil
}

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, userID uuid.UUID, title, message string) error {
	return nil
}

type noopAuditor struct{}

func (noopAuditor) LogEvent(ctx context.Context, ownerID uuid.UUID, eventType string, data map[string]any) error {
	return nil
}

func TestManager_Confirm_ConcurrentSingleWinner(t *testing.T) {
	userID := uuid.New()
	store := &fakeConfirmStore{
		user:  database.User{ID: userID, Email: "user@example.com"},
		token: database.RegistrationToken{ID: uuid.New(), Content: "race-token", UserID: userID},
	}
	mailer := &countingMailer{}
	spam := NewSpamDomainFilter(discardLogger(), "/nonexistent", config.EnvironmentDevelopment)
	manager := NewManager(discardLogger(), store, &mockCaptcha{}, mailer,
		noopNotifier{}, noopAuditor{}, spam, testConfig())

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = manager.Confirm(context.Background(), "race-token")
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrAlreadyConfirmed), errors.Is(err, ErrTokenNotFound):
			// losing racers must land on a terminal failure
		default:
			t.Fatalf("unexpected error from concurrent confirm: %v", err)
		}
	}

	assert.Equal(t, 1, wins, "exactly one caller may win the confirmation")
	assert.Equal(t, 1, mailer.confirmed, "exactly one confirmation mail may be sent")
	assert.True(t, store.user.IsConfirmed)
}
