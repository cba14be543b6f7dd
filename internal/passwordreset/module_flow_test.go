package passwordreset

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/otpreset/internal/notification"
	"github.com/shandysiswandi/otpreset/internal/pkg/clock"
	"github.com/shandysiswandi/otpreset/internal/pkg/hash"
	"github.com/shandysiswandi/otpreset/internal/pkg/instrument"
	"github.com/shandysiswandi/otpreset/internal/pkg/mail"
	"github.com/shandysiswandi/otpreset/internal/pkg/router"
	"github.com/shandysiswandi/otpreset/internal/pkg/validator"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var codePattern = regexp.MustCompile(`reset code is: ([0-9]{6})`)

type outbox struct {
	mu   sync.Mutex
	msgs []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

func (*outbox) Close() error { return nil }

func (o *outbox) lastCode(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.msgs) == 0 {
		t.Fatal("no mail sent")
	}
	m := codePattern.FindStringSubmatch(o.msgs[len(o.msgs)-1].TextBody)
	if m == nil {
		t.Fatalf("no code in mail body: %q", o.msgs[len(o.msgs)-1].TextBody)
	}
	return m[1]
}

type uuidStub struct{}

func (uuidStub) Generate() string { return "test-cid" }

func newFlowServer(t *testing.T) (*httptest.Server, *outbox, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("requires docker")
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("otpreset"),
		postgres.WithUsername("otpreset"),
		postgres.WithPassword("otpreset"),
		postgres.WithInitScripts(filepath.Join("..", "..", "migrations", "0001_init.sql")),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	for _, q := range []string{
		`INSERT INTO users (id, email) VALUES ('u1', 'user@example.com')`,
		`INSERT INTO user_credentials (user_id, password) VALUES ('u1', 'old-hash')`,
		`INSERT INTO password_reset_profiles (user_id) VALUES ('u1')`,
	} {
		if _, err := pool.Exec(ctx, q); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	cfg := newConfig(t, `
modules:
  notification:
    retry:
      max_retries: 0
  passwordreset:
    sealing_key: "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="
    notifier:
      driver: mail
    secret_store:
      driver: postgres
`)
	ins := instrument.NewNoop()
	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatal(err)
	}
	box := &outbox{}

	notif, err := notification.New(notification.Dependency{
		Config:     cfg,
		Instrument: ins,
		Validator:  v,
		Mail:       box,
	})
	if err != nil {
		t.Fatalf("notification.New: %v", err)
	}

	r := router.NewRouter(router.Config{Config: cfg, UUID: uuidStub{}, Instrument: ins})
	err = New(Dependency{
		DBConn:       pool,
		Notification: notif,
		Config:       cfg,
		Instrument:   ins,
		Clock:        clock.NewFixed(time.Unix(1_700_000_700, 0)),
		Validator:    v,
		Hash:         hash.NewBcrypt(4, ""),
		Router:       r,
	})
	if err != nil {
		t.Fatalf("passwordreset.New: %v", err)
	}

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, box, pool
}

func postJSON(t *testing.T, url string, payload any) (int, map[string]any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, body
}

func TestPasswordResetFlow(t *testing.T) {
	srv, box, pool := newFlowServer(t)
	requestURL := srv.URL + "/api/v1/password-reset/request"
	verifyURL := srv.URL + "/api/v1/password-reset/verify"

	// Issue
	status, body := postJSON(t, requestURL, map[string]string{"email": "user@example.com"})
	if status != http.StatusOK || body["success"] != true || body["expiresInMinutes"] != float64(10) {
		t.Fatalf("request: %d %v", status, body)
	}
	code := box.lastCode(t)

	// Reissuing within the window resends the same code
	if status, _ := postJSON(t, requestURL, map[string]string{"email": "user@example.com"}); status != http.StatusOK {
		t.Fatalf("second request: %d", status)
	}
	if again := box.lastCode(t); again != code {
		t.Fatalf("code changed within window: %s != %s", again, code)
	}

	// Verify
	status, body = postJSON(t, verifyURL, map[string]string{"email": "user@example.com", "otp": code, "newPassword": "NewPass123"})
	if status != http.StatusOK || body["message"] != "Password has been reset successfully" {
		t.Fatalf("verify: %d %v", status, body)
	}

	var stored string
	if err := pool.QueryRow(context.Background(), `SELECT password FROM user_credentials WHERE user_id = 'u1'`).Scan(&stored); err != nil {
		t.Fatal(err)
	}
	if stored == "old-hash" || stored == "NewPass123" {
		t.Fatalf("password not replaced by a hash: %q", stored)
	}

	// The secret is gone, so the same code no longer works
	status, body = postJSON(t, verifyURL, map[string]string{"email": "user@example.com", "otp": code, "newPassword": "NewPass123"})
	if status != http.StatusBadRequest || body["message"] != "No pending password reset for this account" {
		t.Fatalf("replay: %d %v", status, body)
	}
}

func TestPasswordResetFlowRejections(t *testing.T) {
	srv, box, _ := newFlowServer(t)

	tests := []struct {
		name    string
		path    string
		payload map[string]string
		status  int
		message string
	}{
		{name: "missing email", path: "/request", payload: map[string]string{}, status: 400, message: "Email is required"},
		{name: "invalid email", path: "/request", payload: map[string]string{"email": "not-an-email"}, status: 400, message: "Invalid email format"},
		{name: "unknown user", path: "/request", payload: map[string]string{"email": "nobody@example.com"}, status: 404, message: "User not found"},
		{name: "bad otp format", path: "/verify", payload: map[string]string{"email": "user@example.com", "otp": "12a456", "newPassword": "NewPass123"}, status: 400, message: "OTP must be 6 digits"},
		{name: "weak password", path: "/verify", payload: map[string]string{"email": "user@example.com", "otp": "123456", "newPassword": "short1"}, status: 400, message: "Password must be between 8 and 72 characters"},
		{name: "no pending reset", path: "/verify", payload: map[string]string{"email": "user@example.com", "otp": "123456", "newPassword": "NewPass123"}, status: 400, message: "No pending password reset for this account"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := postJSON(t, srv.URL+"/api/v1/password-reset"+tt.path, tt.payload)

			if status != tt.status || body["message"] != tt.message || body["success"] != false {
				t.Fatalf("got %d %v, want %d %q", status, body, tt.status, tt.message)
			}
		})
	}

	if len(box.msgs) != 0 {
		t.Fatalf("rejected requests must not send mail, sent %d", len(box.msgs))
	}
}
