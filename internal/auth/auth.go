package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidCredential is returned for any missing, malformed, expired or
// already-consumed credential.
var ErrInvalidCredential = errors.New("invalid credential")

// Authenticator validates the credentials a client may present during the
// websocket handshake or on REST requests.
type Authenticator interface {
	// ValidateTicket consumes a single-use ticket and returns the username
	// it was issued for.
	ValidateTicket(ctx context.Context, ticket string) (string, error)
	// ValidateToken verifies a bearer token and returns its subject.
	ValidateToken(ctx context.Context, token string) (string, error)
}

// Service issues handshake tickets and validates tickets and bearer tokens.
// Tickets live in a shared store so any server process can consume them;
// tokens are self-contained JWTs signed by the auth tier.
type Service struct {
	tickets   TicketStore
	secret    []byte
	ticketTTL time.Duration
}

// NewService constructs a Service.
func NewService(tickets TicketStore, secret string, ticketTTL time.Duration) *Service {
	return &Service{tickets: tickets, secret: []byte(secret), ticketTTL: ticketTTL}
}

// IssueTicket creates a short-lived single-use ticket for the user.
func (s *Service) IssueTicket(ctx context.Context, username string) (string, error) {
	ticket := uuid.NewString()
	if err := s.tickets.Save(ctx, ticket, username, s.ticketTTL); err != nil {
		return "", fmt.Errorf("issue ticket: %w", err)
	}
	return ticket, nil
}

// ValidateTicket consumes the ticket. A ticket is valid exactly once.
func (s *Service) ValidateTicket(ctx context.Context, ticket string) (string, error) {
	if ticket == "" {
		return "", ErrInvalidCredential
	}
	username, err := s.tickets.Consume(ctx, ticket)
	if err != nil {
		return "", err
	}
	if username == "" {
		return "", ErrInvalidCredential
	}
	return username, nil
}

// ValidateToken verifies the JWT signature and expiry and returns the
// subject claim.
func (s *Service) ValidateToken(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidCredential
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidCredential
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrInvalidCredential
	}
	return subject, nil
}

var _ Authenticator = (*Service)(nil)
