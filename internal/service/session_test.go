package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/cms-admin/internal/adapters/backendapi"
	domainauth "github.com/target/cms-admin/internal/domain/auth"
	"github.com/target/cms-admin/internal/mocks"
	mockauth "github.com/target/cms-admin/internal/mocks/auth"
	"github.com/target/cms-admin/internal/ports"
	"github.com/target/cms-admin/internal/tokenstore"
	"go.uber.org/mock/gomock"
)

var (
	adaIdentity = domainauth.Identity{ID: 7, Name: "Ada", Email: "a@b.com", Roles: []string{"news"}}
	bobIdentity = domainauth.Identity{ID: 8, Name: "Bob", Email: "bob@b.com", Roles: []string{"super_admin"}}
)

// twoLocationStore mirrors the browser layout: a primary and a secondary location.
type twoLocationStore struct {
	primary   *tokenstore.MemoryBackend
	secondary *tokenstore.MemoryBackend
	*tokenstore.Store
}

func newTwoLocationStore() *twoLocationStore {
	p := tokenstore.NewMemoryBackend("cookie")
	s := tokenstore.NewMemoryBackend("secondary")
	return &twoLocationStore{
		primary:   p,
		secondary: s,
		Store: tokenstore.New(tokenstore.Options{
			Backends: []ports.TokenBackend{p, s},
			Logger:   quietLogger(),
		}),
	}
}

func (s *twoLocationStore) bothEmpty(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, ok, err := s.primary.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "primary location should be empty")
	_, ok, err = s.secondary.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "secondary location should be empty")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSessions(api ports.SessionAPI) *Sessions {
	return NewSessions(SessionsOptions{API: api, Logger: quietLogger()})
}

func TestSessionManager_InitWithoutCredential(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockSessionAPI(ctrl)
	api.EXPECT().Me(gomock.Any(), gomock.Any()).Times(0)

	m := newSessions(api).New(newTwoLocationStore())
	assert.Equal(t, domainauth.StateInitializing, m.State())

	snap := m.Init(context.Background())
	assert.Equal(t, domainauth.StateUnauthenticated, snap.State)
	assert.Nil(t, snap.Identity)
	assert.False(t, snap.Loading())
}

func TestSessionManager_InitValidCredential(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockSessionAPI(ctrl)
	api.EXPECT().Me(gomock.Any(), "tok").Return(adaIdentity, nil).Times(1)

	ctx := context.Background()
	store := newTwoLocationStore()
	store.Set(ctx, "tok")
	m := newSessions(api).New(store)

	snap := m.Init(ctx)
	assert.Equal(t, domainauth.StateAuthenticated, snap.State)
	require.NotNil(t, snap.Identity)
	assert.Equal(t, adaIdentity, *snap.Identity)

	// Init only validates once.
	assert.Equal(t, snap, m.Init(ctx))
}

func TestSessionManager_InitRejectedCredentialClearsStore(t *testing.T) {
	for name, failure := range map[string]error{
		"expired":   domainauth.ErrSessionExpired,
		"non-2xx":   &backendapi.APIError{Status: 500, Message: "HTTP error! status: 500"},
		"transport": errors.New("dial tcp: connection refused"),
	} {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			api := mocks.NewMockSessionAPI(ctrl)
			api.EXPECT().Me(gomock.Any(), "stale").Return(domainauth.Identity{}, failure)

			ctx := context.Background()
			store := newTwoLocationStore()
			store.Set(ctx, "stale")
			m := newSessions(api).New(store)

			snap := m.Init(ctx)
			assert.Equal(t, domainauth.StateUnauthenticated, snap.State)
			assert.Nil(t, snap.Identity)
			store.bothEmpty(t)
		})
	}
}

func TestSessionManager_LoginSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockSessionAPI(ctrl)
	in := ports.LoginInput{Email: "a@b.com", Password: "pw", RememberMe: false}
	api.EXPECT().Login(gomock.Any(), in).Return(ports.LoginResult{Token: "tok-1", User: adaIdentity}, nil)

	ctx := context.Background()
	store := newTwoLocationStore()
	m := newSessions(api).New(store)
	m.Init(ctx)

	require.NoError(t, m.Login(ctx, in))
	assert.Equal(t, domainauth.StateAuthenticated, m.State())
	assert.Equal(t, &adaIdentity, m.Identity())

	got, ok := store.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, "tok-1", got)
	v, _, _ := store.secondary.Load(ctx)
	assert.Equal(t, "tok-1", v)
}

func TestSessionManager_LoginFailureSurfacesBackendMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockSessionAPI(ctrl)
	api.EXPECT().Login(gomock.Any(), gomock.Any()).
		Return(ports.LoginResult{}, &backendapi.APIError{Status: 401, Message: "Invalid credentials"})

	ctx := context.Background()
	store := newTwoLocationStore()
	m := newSessions(api).New(store)
	m.Init(ctx)

	err := m.Login(ctx, ports.LoginInput{Email: "a@b.com", Password: "wrong"})
	require.Error(t, err)
	assert.EqualError(t, err, "Invalid credentials")

	var loginErr *LoginError
	require.ErrorAs(t, err, &loginErr)
	var apiErr *backendapi.APIError
	assert.ErrorAs(t, err, &apiErr)

	assert.Equal(t, domainauth.StateUnauthenticated, m.State())
	assert.Nil(t, m.Identity())
	store.bothEmpty(t)
}

func TestSessionManager_LoginFailureFallsBackToGenericMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockSessionAPI(ctrl)
	api.EXPECT().Login(gomock.Any(), gomock.Any()).
		Return(ports.LoginResult{}, errors.New("backend POST /admin/login: connection reset"))

	m := newSessions(api).New(newTwoLocationStore())
	err := m.Login(context.Background(), ports.LoginInput{})
	assert.EqualError(t, err, DefaultLoginMessage)
}

func TestSessionManager_LoginFailureLeavesExistingCredential(t *testing.T) {
	backend := mockauth.NewFakeBackend(mockauth.Account{Password: "pw", Identity: adaIdentity})
	backend.Grant("kept", adaIdentity.Email)

	ctx := context.Background()
	store := newTwoLocationStore()
	store.Set(ctx, "kept")
	m := newSessions(backend).New(store)
	m.Init(ctx)

	err := m.Login(ctx, ports.LoginInput{Email: adaIdentity.Email, Password: "nope"})
	assert.EqualError(t, err, "Invalid credentials")

	got, ok := store.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, "kept", got)
	assert.Equal(t, domainauth.StateAuthenticated, m.State())
}

func TestSessionManager_LogoutAlwaysClears(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockSessionAPI(ctrl)
	api.EXPECT().Me(gomock.Any(), "tok").Return(adaIdentity, nil)
	api.EXPECT().Logout(gomock.Any(), "tok").Return(context.DeadlineExceeded)

	ctx := context.Background()
	store := newTwoLocationStore()
	store.Set(ctx, "tok")
	m := newSessions(api).New(store)
	require.Equal(t, domainauth.StateAuthenticated, m.Init(ctx).State)

	out := m.Logout(ctx, "/admin/login")
	assert.Equal(t, domainauth.RedirectTo("/admin/login"), out)
	assert.Equal(t, domainauth.StateUnauthenticated, m.State())
	assert.Nil(t, m.Identity())
	store.bothEmpty(t)
}

func TestSessionManager_LogoutWithoutCredentialSkipsBackend(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockSessionAPI(ctrl)
	api.EXPECT().Logout(gomock.Any(), gomock.Any()).Times(0)

	m := newSessions(api).New(newTwoLocationStore())
	out := m.Logout(context.Background(), "/admin/login")
	assert.True(t, out.IsRedirect())
	assert.Equal(t, domainauth.StateUnauthenticated, m.State())
}

func TestSessionManager_CallExpiredFromAnyEndpoint(t *testing.T) {
	backend := mockauth.NewFakeBackend(mockauth.Account{Password: "pw", Identity: adaIdentity})
	backend.Grant("tok", adaIdentity.Email)

	ctx := context.Background()
	store := newTwoLocationStore()
	store.Set(ctx, "tok")
	m := newSessions(backend).New(store)
	require.Equal(t, domainauth.StateAuthenticated, m.Init(ctx).State)

	var seen string
	err := m.Call(ctx, func(_ context.Context, credential string) error {
		seen = credential
		return domainauth.ErrSessionExpired
	})
	assert.Equal(t, "tok", seen)
	assert.ErrorIs(t, err, domainauth.ErrSessionExpired)
	assert.Equal(t, domainauth.StateUnauthenticated, m.State())
	assert.Nil(t, m.Identity())
	store.bothEmpty(t)

	guard := NewGuard(GuardOptions{})
	out, handled := guard.OnError(err, "/admin/contacts")
	assert.True(t, handled)
	assert.Equal(t, domainauth.RedirectTo("/admin/login"), out)

	out, handled = guard.OnError(err, "/admin/login")
	assert.True(t, handled)
	assert.False(t, out.IsRedirect())
}

func TestSessionManager_CallOtherErrorsKeepSession(t *testing.T) {
	backend := mockauth.NewFakeBackend(mockauth.Account{Password: "pw", Identity: adaIdentity})
	backend.Grant("tok", adaIdentity.Email)

	ctx := context.Background()
	store := newTwoLocationStore()
	store.Set(ctx, "tok")
	m := newSessions(backend).New(store)
	m.Init(ctx)

	boom := &backendapi.APIError{Status: 422, Message: "The title field is required."}
	err := m.Call(ctx, func(context.Context, string) error { return boom })
	assert.Same(t, boom, err)
	assert.Equal(t, domainauth.StateAuthenticated, m.State())

	_, ok := store.Get(ctx)
	assert.True(t, ok)
}

func TestSessionManager_StaleFailureDoesNotClearNewerLogin(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockSessionAPI(ctrl)

	entered := make(chan struct{})
	release := make(chan struct{})
	api.EXPECT().Me(gomock.Any(), "old").DoAndReturn(func(context.Context, string) (domainauth.Identity, error) {
		close(entered)
		<-release
		return domainauth.Identity{}, domainauth.ErrSessionExpired
	})
	api.EXPECT().Login(gomock.Any(), gomock.Any()).Return(ports.LoginResult{Token: "new", User: bobIdentity}, nil)
	api.EXPECT().Me(gomock.Any(), "new").Return(bobIdentity, nil)

	ctx := context.Background()
	store := newTwoLocationStore()
	store.Set(ctx, "old")
	m := newSessions(api).New(store)

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.CheckAuth(ctx)
	}()
	<-entered
	assert.Equal(t, domainauth.StateValidating, m.State())

	require.NoError(t, m.Login(ctx, ports.LoginInput{Email: bobIdentity.Email, Password: "pw"}))
	m.CheckAuth(ctx)
	require.Equal(t, domainauth.StateAuthenticated, m.State())

	close(release)
	<-done

	got, ok := store.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, "new", got)
	assert.Equal(t, &bobIdentity, m.Identity())
	assert.Equal(t, domainauth.StateAuthenticated, m.State())
}

func TestSessionManager_StaleResultAfterExternalCredentialChange(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockSessionAPI(ctrl)

	entered := make(chan struct{})
	release := make(chan struct{})
	api.EXPECT().Me(gomock.Any(), "first").DoAndReturn(func(context.Context, string) (domainauth.Identity, error) {
		close(entered)
		<-release
		return adaIdentity, nil
	})

	ctx := context.Background()
	store := newTwoLocationStore()
	store.Set(ctx, "first")
	m := newSessions(api).New(store)

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.CheckAuth(ctx)
	}()
	<-entered

	// Another tab logged out.
	store.Clear(ctx)
	close(release)
	<-done

	assert.Nil(t, m.Identity(), "identity must not outlive the credential it was fetched with")
	assert.Equal(t, domainauth.StateUnauthenticated, m.State())
	store.bothEmpty(t)
}

func TestSessions_CoalescesConcurrentValidation(t *testing.T) {
	backend := mockauth.NewFakeBackend(mockauth.Account{Password: "pw", Identity: adaIdentity})
	backend.Grant("shared", adaIdentity.Email)

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	backend.MeFunc = func(_ context.Context, credential string) (domainauth.Identity, error) {
		entered <- struct{}{}
		<-release
		if backend.Valid(credential) {
			return adaIdentity, nil
		}
		return domainauth.Identity{}, domainauth.ErrSessionExpired
	}

	sessions := newSessions(backend)
	ctx := context.Background()

	var wg sync.WaitGroup
	snaps := make([]Snapshot, 2)
	for i := range snaps {
		store := newTwoLocationStore()
		store.Set(ctx, "shared")
		m := sessions.New(store)
		wg.Add(1)
		go func() {
			defer wg.Done()
			snaps[i] = m.Init(ctx)
		}()
		if i == 0 {
			<-entered
		}
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, backend.Calls("Me"))
	for _, s := range snaps {
		assert.Equal(t, domainauth.StateAuthenticated, s.State)
	}
}

func TestSessionManager_AuthorizeAndSnapshotCopy(t *testing.T) {
	backend := mockauth.NewFakeBackend(mockauth.Account{Password: "pw", Identity: adaIdentity})
	backend.Grant("tok", adaIdentity.Email)

	ctx := context.Background()
	store := newTwoLocationStore()
	store.Set(ctx, "tok")
	m := newSessions(backend).New(store)

	assert.False(t, m.Authorize(domainauth.RoleNews), "no identity before validation")
	m.Init(ctx)

	assert.True(t, m.Authorize(domainauth.RoleNews))
	assert.False(t, m.Authorize(domainauth.RoleProjects))

	snap := m.Snapshot()
	snap.Identity.Roles[0] = "projects"
	assert.False(t, m.Authorize(domainauth.RoleProjects))
}
