package usecase

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shandysiswandi/otpreset/internal/pkg/otp"
)

func TestOTPRequest_Validation(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{name: "missing", email: "", want: ReasonMissingEmail},
		{name: "blank", email: "   ", want: ReasonMissingEmail},
		{name: "malformed", email: "not-an-email", want: ReasonInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t, "")

			// Act
			out, err := f.uc.OTPRequest(context.Background(), OTPRequestInput{Email: tt.email})

			// Assert
			if out != nil {
				t.Fatalf("unexpected output %+v", out)
			}
			assertReason(t, err, tt.want)
			assertStatus(t, err, http.StatusBadRequest)
			if f.directory.calls != 0 {
				t.Fatal("directory must not be called for invalid input")
			}
		})
	}
}

func TestOTPRequest_CreatesSecretAndDelivers(t *testing.T) {
	// Arrange
	f := newFixture(t, "")

	// Act
	out, err := f.uc.OTPRequest(context.Background(), OTPRequestInput{Email: "  U1@Example.COM "})

	// Assert
	if err != nil {
		t.Fatalf("OTPRequest() error = %v", err)
	}
	if out.ExpiresInMinutes != 10 {
		t.Fatalf("ExpiresInMinutes = %d, want 10", out.ExpiresInMinutes)
	}

	sealed := f.store.secret("u1")
	if sealed == "" {
		t.Fatal("secret was not created")
	}
	secret, err := f.sealer.Open(sealed, f.scope("u1"))
	if err != nil {
		t.Fatalf("stored secret does not open: %v", err)
	}

	sent := f.notifier.last(t)
	if sent.Email != "u1@example.com" || sent.UserID != "u1" || sent.ExpiresInMinutes != 10 {
		t.Fatalf("unexpected delivery %+v", sent)
	}
	if sent.Code != f.code(t, secret) {
		t.Fatal("delivered code is not derived from the stored secret")
	}
	if !f.directory.hadDeadline {
		t.Fatal("directory call must carry a deadline")
	}
}

func TestOTPRequest_ReusesSecretWithinWindow(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	if _, err := f.uc.OTPRequest(ctx, OTPRequestInput{Email: "u1@example.com"}); err != nil {
		t.Fatalf("first OTPRequest() error = %v", err)
	}
	first := f.store.secret("u1")
	firstCode := f.notifier.last(t).Code

	f.clock.Advance(time.Minute)
	if _, err := f.uc.OTPRequest(ctx, OTPRequestInput{Email: "u1@example.com"}); err != nil {
		t.Fatalf("second OTPRequest() error = %v", err)
	}

	if f.store.secret("u1") != first {
		t.Fatal("resend must not replace the secret")
	}
	if f.notifier.last(t).Code != firstCode {
		t.Fatal("codes in the same window must be equal")
	}
	if f.store.writes != 1 {
		t.Fatalf("store writes = %d, want 1", f.store.writes)
	}
}

func TestOTPRequest_AdoptsConcurrentWinner(t *testing.T) {
	// Arrange
	f := newFixture(t, "")
	winnerSecret, err := otp.GenerateSecret(otp.DefaultConfig(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	winnerSealed, err := f.sealer.Seal(winnerSecret, f.scope("u1"))
	if err != nil {
		t.Fatal(err)
	}
	f.store.onCreate = func(userID string) {
		f.store.mu.Lock()
		f.store.profiles[userID] = winnerSealed
		f.store.mu.Unlock()
	}

	// Act
	_, err = f.uc.OTPRequest(context.Background(), OTPRequestInput{Email: "u1@example.com"})

	// Assert
	if err != nil {
		t.Fatalf("OTPRequest() error = %v", err)
	}
	if f.store.secret("u1") != winnerSealed {
		t.Fatal("winner's secret must not be overwritten")
	}
	if f.notifier.last(t).Code != f.code(t, winnerSecret) {
		t.Fatal("code must be derived from the winner's secret")
	}
}

func TestOTPRequest_Failures(t *testing.T) {
	tests := []struct {
		name       string
		email      string
		arrange    func(f *fixture)
		wantReason string
		wantStatus int
		wantWrites int
	}{
		{
			name:       "unknown user performs no writes",
			email:      "nobody@example.com",
			wantReason: ReasonUserNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "directory fault",
			email:      "u1@example.com",
			arrange:    func(f *fixture) { f.directory.err = errBoom },
			wantReason: ReasonUpstreamError,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "missing profile",
			email:      "u2@example.com",
			wantReason: ReasonProfileNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "store read fault",
			email:      "u1@example.com",
			arrange:    func(f *fixture) { f.store.getErr = errBoom },
			wantReason: ReasonUpstreamError,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "stored secret does not open",
			email:      "u1@example.com",
			arrange:    func(f *fixture) { f.store.profiles["u1"] = "AAEAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA" },
			wantReason: ReasonUpstreamError,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "delivery fault keeps the secret",
			email:      "u1@example.com",
			arrange:    func(f *fixture) { f.notifier.err = errBoom },
			wantReason: ReasonDeliveryFailed,
			wantStatus: http.StatusInternalServerError,
			wantWrites: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t, "")
			if tt.arrange != nil {
				tt.arrange(f)
			}

			// Act
			out, err := f.uc.OTPRequest(context.Background(), OTPRequestInput{Email: tt.email})

			// Assert
			if out != nil {
				t.Fatalf("unexpected output %+v", out)
			}
			assertReason(t, err, tt.wantReason)
			assertStatus(t, err, tt.wantStatus)
			if f.store.writes != tt.wantWrites {
				t.Fatalf("store writes = %d, want %d", f.store.writes, tt.wantWrites)
			}
			if len(f.notifier.sent) != 0 {
				t.Fatal("nothing must be delivered on failure")
			}
		})
	}
}

func TestOTPRequest_DeliveryRetryReusesSecret(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.notifier.err = errBoom

	_, err := f.uc.OTPRequest(ctx, OTPRequestInput{Email: "u1@example.com"})
	assertReason(t, err, ReasonDeliveryFailed)
	kept := f.store.secret("u1")

	f.notifier.err = nil
	if _, err := f.uc.OTPRequest(ctx, OTPRequestInput{Email: "u1@example.com"}); err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if f.store.secret("u1") != kept {
		t.Fatal("retry must reuse the secret created by the failed attempt")
	}
}
