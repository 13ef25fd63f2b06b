package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestService(tickets TicketStore) *Service {
	return NewService(tickets, "test-secret", 2*time.Minute)
}

func TestTicketRoundTrip(t *testing.T) {
	store := NewMemoryTicketStore()
	svc := newTestService(store)
	ctx := context.Background()

	ticket, err := svc.IssueTicket(ctx, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, ticket)

	username, err := svc.ValidateTicket(ctx, ticket)
	require.NoError(t, err)
	require.Equal(t, "alice", username)
}

func TestTicketIsSingleUse(t *testing.T) {
	store := NewMemoryTicketStore()
	svc := newTestService(store)
	ctx := context.Background()

	ticket, err := svc.IssueTicket(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.ValidateTicket(ctx, ticket)
	require.NoError(t, err)

	_, err = svc.ValidateTicket(ctx, ticket)
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestTicketExpires(t *testing.T) {
	store := NewMemoryTicketStore()
	now := time.Now()
	store.SetClock(func() time.Time { return now })
	svc := newTestService(store)
	ctx := context.Background()

	ticket, err := svc.IssueTicket(ctx, "alice")
	require.NoError(t, err)

	now = now.Add(3 * time.Minute)

	_, err = svc.ValidateTicket(ctx, ticket)
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestValidateTicketEmpty(t *testing.T) {
	svc := newTestService(NewMemoryTicketStore())
	_, err := svc.ValidateTicket(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func signToken(t *testing.T, secret, subject string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	svc := newTestService(NewMemoryTicketStore())
	ctx := context.Background()

	subject, err := svc.ValidateToken(ctx, signToken(t, "test-secret", "bob", time.Hour))
	require.NoError(t, err)
	require.Equal(t, "bob", subject)
}

func TestValidateTokenRejectsBadSignature(t *testing.T) {
	svc := newTestService(NewMemoryTicketStore())
	_, err := svc.ValidateToken(context.Background(), signToken(t, "wrong-secret", "bob", time.Hour))
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := newTestService(NewMemoryTicketStore())
	_, err := svc.ValidateToken(context.Background(), signToken(t, "test-secret", "bob", -time.Minute))
	require.ErrorIs(t, err, ErrInvalidCredential)
}
