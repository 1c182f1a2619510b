package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/chatline/internal/common"
	"github.com/dmitrijs2005/chatline/internal/logging"
	"github.com/dmitrijs2005/chatline/internal/server/auth"
	"github.com/dmitrijs2005/chatline/internal/server/hub"
	"github.com/dmitrijs2005/chatline/internal/server/messages"
	"github.com/dmitrijs2005/chatline/internal/server/models"
	"github.com/dmitrijs2005/chatline/internal/server/sessions"
)

type fakeUsersRepo struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	byEmail map[string]*models.User
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (r *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[user.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	u := *user
	u.CreatedAt = time.Now()
	r.byID[u.ID] = &u
	r.byEmail[u.Email] = &u
	out := u
	return &out, nil
}

func (r *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

func (r *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

func (r *fakeUsersRepo) UpdateVerification(ctx context.Context, id string, code string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.VerificationCode = &code
	u.VerificationExpiry = &expiry
	return nil
}

func (r *fakeUsersRepo) MarkVerified(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.EmailVerified = true
	u.VerificationCode = nil
	u.VerificationExpiry = nil
	return nil
}

func (r *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	delete(r.byEmail, u.Email)
	delete(r.byID, id)
	return nil
}

// code returns the outstanding verification code for email, bypassing mail
// delivery.
func (r *fakeUsersRepo) code(t *testing.T, email string) string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	require.True(t, ok, "user %s not found", email)
	require.NotNil(t, u.VerificationCode)
	return *u.VerificationCode
}

type fakeMessagesRepo struct {
	mu     sync.Mutex
	users  *fakeUsersRepo
	nextID int64
	rows   []*models.Message
}

func (r *fakeMessagesRepo) Create(ctx context.Context, senderID string, text string) (*models.Message, error) {
	sender, err := r.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, common.ErrorNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m := &models.Message{
		ID:        r.nextID,
		Text:      text,
		SenderID:  senderID,
		CreatedAt: time.Now(),
		Sender:    sender.Public(),
	}
	r.rows = append(r.rows, m)
	return m, nil
}

func (r *fakeMessagesRepo) ListRecent(ctx context.Context, limit int) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Message
	for i := len(r.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.rows[i])
	}
	return out, nil
}

type fakeSessionsRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Session
}

func newFakeSessionsRepo() *fakeSessionsRepo {
	return &fakeSessionsRepo{rows: make(map[string]*models.Session)}
}

func (r *fakeSessionsRepo) Create(ctx context.Context, token string, userID string, validity time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[token] = &models.Session{Token: token, UserID: userID, ExpiresAt: time.Now().Add(validity)}
	return nil
}

func (r *fakeSessionsRepo) Find(ctx context.Context, token string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *s
	return &out, nil
}

func (r *fakeSessionsRepo) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, token)
	return nil
}

type noopNotifier struct{}

func (noopNotifier) SendVerificationCode(ctx context.Context, email string, code string) error {
	return nil
}

type testApp struct {
	router   http.Handler
	users    *fakeUsersRepo
	hub      *hub.Hub
	sessions *sessions.Manager
	codec    *sessions.CookieCodec
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	usersRepo := newFakeUsersRepo()
	messagesRepo := &fakeMessagesRepo{users: usersRepo}
	sessionsRepo := newFakeSessionsRepo()

	authService := auth.NewService(usersRepo, noopNotifier{}, auth.NewBcryptVerifier(4), logger)
	sessionManager := sessions.NewManager(sessionsRepo, time.Hour)
	codec := sessions.NewCookieCodec("test-secret")

	h := hub.NewHub(logger)
	go h.Run()
	t.Cleanup(func() { _ = h.Shutdown(time.Second) })

	messageService := messages.NewService(messagesRepo, h)

	server := NewServer(":0", logger, authService, sessionManager, codec, messageService, h, time.Hour)

	return &testApp{
		router:   server.routes(),
		users:    usersRepo,
		hub:      h,
		sessions: sessionManager,
		codec:    codec,
	}
}

func (a *testApp) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookieName && c.MaxAge >= 0 {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func (a *testApp) register(t *testing.T, email, password string) {
	t.Helper()
	rr := a.do(t, http.MethodPost, "/auth/register",
		map[string]string{"email": email, "password": password}, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

// verifiedSession registers, verifies, and returns the session cookie set
// by the implicit login.
func (a *testApp) verifiedSession(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	a.register(t, email, password)
	rr := a.do(t, http.MethodPost, "/auth/verify",
		map[string]string{"email": email, "code": a.users.code(t, email)}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return sessionCookie(t, rr)
}

func TestRegister(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(t, http.MethodPost, "/auth/register",
		map[string]string{"email": "Alice@Example.com", "password": "secret1", "name": "Alice"}, nil)

	require.Equal(t, http.StatusCreated, rr.Code)
	body := decodeBody(t, rr)
	assert.NotEmpty(t, body["userId"])

	// No session until the email is verified.
	assert.Empty(t, rr.Result().Cookies())

	u, err := app.users.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.False(t, u.EmailVerified)
	assert.NotNil(t, u.VerificationCode)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice@example.com", "secret1")

	rr := app.do(t, http.MethodPost, "/auth/register",
		map[string]string{"email": "alice@example.com", "password": "other12"}, nil)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "email or phone already in use", decodeBody(t, rr)["error"])
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"malformed email", map[string]string{"email": "not-an-email", "password": "secret1"}},
		{"short password", map[string]string{"email": "bob@example.com", "password": "123"}},
		{"bad phone", map[string]string{"email": "bob@example.com", "password": "secret1", "phone": "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := app.do(t, http.MethodPost, "/auth/register", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestVerifyLogsUserIn(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice@example.com", "secret1")

	rr := app.do(t, http.MethodPost, "/auth/verify",
		map[string]string{"email": "alice@example.com", "code": app.users.code(t, "alice@example.com")}, nil)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cookie := sessionCookie(t, rr)
	assert.True(t, cookie.HttpOnly)

	status := app.do(t, http.MethodGet, "/auth/status", nil, cookie)
	require.Equal(t, http.StatusOK, status.Code)
	body := decodeBody(t, status)
	assert.Equal(t, true, body["authenticated"])
}

func TestVerifyWrongCode(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice@example.com", "secret1")

	rr := app.do(t, http.MethodPost, "/auth/verify",
		map[string]string{"email": "alice@example.com", "code": "000000"}, nil)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, rr.Result().Cookies())
}

func TestLoginBeforeVerification(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice@example.com", "secret1")

	rr := app.do(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "alice@example.com", "password": "secret1"}, nil)

	require.Equal(t, http.StatusForbidden, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["needsVerification"])
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Empty(t, rr.Result().Cookies())
}

func TestLoginInvalidCredentials(t *testing.T) {
	app := newTestApp(t)
	app.verifiedSession(t, "alice@example.com", "secret1")

	wrongPassword := app.do(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "alice@example.com", "password": "wrong99"}, nil)
	unknownEmail := app.do(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "nobody@example.com", "password": "secret1"}, nil)

	// Both failures must be indistinguishable.
	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestLoginSuccess(t *testing.T) {
	app := newTestApp(t)
	app.verifiedSession(t, "alice@example.com", "secret1")

	rr := app.do(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "alice@example.com", "password": "secret1"}, nil)

	require.Equal(t, http.StatusOK, rr.Code)
	cookie := sessionCookie(t, rr)

	user := decodeBody(t, rr)["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", user["email"])

	status := app.do(t, http.MethodGet, "/auth/status", nil, cookie)
	assert.Equal(t, true, decodeBody(t, status)["authenticated"])
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	cookie := app.verifiedSession(t, "alice@example.com", "secret1")

	rr := app.do(t, http.MethodPost, "/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)

	// The session is gone even though the client may resend the cookie.
	status := app.do(t, http.MethodGet, "/auth/status", nil, cookie)
	assert.Equal(t, false, decodeBody(t, status)["authenticated"])

	// Logging out again, or with no session at all, still succeeds.
	again := app.do(t, http.MethodPost, "/auth/logout", nil, cookie)
	assert.Equal(t, http.StatusOK, again.Code)
	bare := app.do(t, http.MethodPost, "/auth/logout", nil, nil)
	assert.Equal(t, http.StatusOK, bare.Code)
}

func TestStatusUnauthenticated(t *testing.T) {
	app := newTestApp(t)

	noCookie := app.do(t, http.MethodGet, "/auth/status", nil, nil)
	require.Equal(t, http.StatusOK, noCookie.Code)
	assert.Equal(t, false, decodeBody(t, noCookie)["authenticated"])

	tampered := app.do(t, http.MethodGet, "/auth/status", nil,
		&http.Cookie{Name: sessionCookieName, Value: "garbage"})
	require.Equal(t, http.StatusOK, tampered.Code)
	assert.Equal(t, false, decodeBody(t, tampered)["authenticated"])
}

func TestMessagesRequireAuth(t *testing.T) {
	app := newTestApp(t)

	list := app.do(t, http.MethodGet, "/messages", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, list.Code)

	create := app.do(t, http.MethodPost, "/messages", map[string]string{"text": "hi"}, nil)
	assert.Equal(t, http.StatusUnauthorized, create.Code)
}

func TestCreateMessageRequiresVerifiedEmail(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice@example.com", "secret1")

	// Manufacture a session for the still-unverified user to exercise the
	// verification gate in isolation.
	u, err := app.users.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	token, err := app.sessions.Create(context.Background(), u.ID)
	require.NoError(t, err)
	value, err := app.codec.Encode(token)
	require.NoError(t, err)
	cookie := &http.Cookie{Name: sessionCookieName, Value: value}

	rr := app.do(t, http.MethodPost, "/messages", map[string]string{"text": "hi"}, cookie)

	require.Equal(t, http.StatusForbidden, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["needsVerification"])
	assert.Equal(t, "alice@example.com", body["email"])

	// Reading history only needs a session.
	list := app.do(t, http.MethodGet, "/messages", nil, cookie)
	assert.Equal(t, http.StatusOK, list.Code)
}

func TestCreateAndListMessages(t *testing.T) {
	app := newTestApp(t)
	cookie := app.verifiedSession(t, "alice@example.com", "secret1")

	rr := app.do(t, http.MethodPost, "/messages", map[string]string{"text": "  hello  "}, cookie)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeBody(t, rr)
	assert.Equal(t, "hello", created["text"])
	assert.Equal(t, "alice@example.com", created["sender"].(map[string]any)["email"])

	for i := 0; i < 3; i++ {
		r := app.do(t, http.MethodPost, "/messages", map[string]string{"text": fmt.Sprintf("msg %d", i)}, cookie)
		require.Equal(t, http.StatusCreated, r.Code)
	}

	list := app.do(t, http.MethodGet, "/messages", nil, cookie)
	require.Equal(t, http.StatusOK, list.Code)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &all))
	require.Len(t, all, 4)
	assert.Equal(t, "hello", all[0]["text"])
	assert.Equal(t, "msg 2", all[3]["text"])

	limited := app.do(t, http.MethodGet, "/messages?take=2", nil, cookie)
	var window []map[string]any
	require.NoError(t, json.Unmarshal(limited.Body.Bytes(), &window))
	require.Len(t, window, 2)
	assert.Equal(t, "msg 1", window[0]["text"])
	assert.Equal(t, "msg 2", window[1]["text"])
}

func TestCreateMessageValidation(t *testing.T) {
	app := newTestApp(t)
	cookie := app.verifiedSession(t, "alice@example.com", "secret1")

	empty := app.do(t, http.MethodPost, "/messages", map[string]string{"text": "   "}, cookie)
	assert.Equal(t, http.StatusBadRequest, empty.Code)

	long := app.do(t, http.MethodPost, "/messages",
		map[string]string{"text": strings.Repeat("a", 1001)}, cookie)
	assert.Equal(t, http.StatusBadRequest, long.Code)
}

func TestListMessagesEmpty(t *testing.T) {
	app := newTestApp(t)
	cookie := app.verifiedSession(t, "alice@example.com", "secret1")

	rr := app.do(t, http.MethodGet, "/messages", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestResendCode(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice@example.com", "secret1")
	first := app.users.code(t, "alice@example.com")

	var second string
	// The code is random; retry the resend in the unlikely event of a repeat.
	for i := 0; i < 5; i++ {
		rr := app.do(t, http.MethodPost, "/auth/resend-code",
			map[string]string{"email": "alice@example.com"}, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		second = app.users.code(t, "alice@example.com")
		if second != first {
			break
		}
	}
	assert.NotEqual(t, first, second)

	// The superseded code no longer verifies.
	stale := app.do(t, http.MethodPost, "/auth/verify",
		map[string]string{"email": "alice@example.com", "code": first}, nil)
	assert.Equal(t, http.StatusBadRequest, stale.Code)
}

func TestResendCodeAlreadyVerified(t *testing.T) {
	app := newTestApp(t)
	app.verifiedSession(t, "alice@example.com", "secret1")

	rr := app.do(t, http.MethodPost, "/auth/resend-code",
		map[string]string{"email": "alice@example.com"}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteAccount(t *testing.T) {
	app := newTestApp(t)
	cookie := app.verifiedSession(t, "alice@example.com", "secret1")

	rr := app.do(t, http.MethodDelete, "/auth/account", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)

	status := app.do(t, http.MethodGet, "/auth/status", nil, cookie)
	assert.Equal(t, false, decodeBody(t, status)["authenticated"])

	_, err := app.users.GetByEmail(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDeleteAccountRequiresAuth(t *testing.T) {
	app := newTestApp(t)
	rr := app.do(t, http.MethodDelete, "/auth/account", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rr := app.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decodeBody(t, rr)["ok"])
}

func TestWebsocketRequiresAuth(t *testing.T) {
	app := newTestApp(t)

	srv := httptest.NewServer(app.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebsocketReceivesNewMessages(t *testing.T) {
	app := newTestApp(t)
	cookie := app.verifiedSession(t, "alice@example.com", "secret1")

	srv := httptest.NewServer(app.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{"Cookie": {cookie.String()}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	// The handshake response can reach the client before the server side
	// finishes attaching to the hub; give registration a moment to land.
	time.Sleep(100 * time.Millisecond)

	post := app.do(t, http.MethodPost, "/messages", map[string]string{"text": "hello"}, cookie)
	require.Equal(t, http.StatusCreated, post.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event struct {
		Event string          `json:"event"`
		Data  *models.Message `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "new_message", event.Event)
	require.NotNil(t, event.Data)
	assert.Equal(t, "hello", event.Data.Text)
	assert.Equal(t, "alice@example.com", event.Data.Sender.Email)
}
