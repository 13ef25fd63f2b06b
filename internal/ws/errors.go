package ws

import (
	"errors"

	"chat-service/internal/models"
)

// Error codes carried by error events.
const (
	CodeAuthentication   = "AuthenticationError"
	CodeAlreadyConnected = "AlreadyConnectedError"
	CodeNotFound         = "NotFoundError"
	CodeAuthorization    = "AuthorizationError"
	CodeNoRoomAssociated = "NoRoomAssociatedError"
	CodeValidation       = "ValidationError"
	CodeInternal         = "InternalError"
)

// DomainError is a client-visible failure of a single operation. Anything
// that is not a DomainError is treated as an internal error and its details
// are never sent to the client.
type DomainError struct {
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	return e.Code + ": " + e.Message
}

func errAlreadyConnected() *DomainError {
	return &DomainError{Code: CodeAlreadyConnected, Message: "User is already connected with another session"}
}

func errNotFound(message string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: message}
}

func errAuthorization(message string) *DomainError {
	return &DomainError{Code: CodeAuthorization, Message: message}
}

func errNoRoomAssociated() *DomainError {
	return &DomainError{Code: CodeNoRoomAssociated, Message: "No room is associated with this connection"}
}

func errValidation(message string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: message}
}

// errPresenceLost reports that the connection's presence lock expired or was
// taken over, so the connection is being closed. Distinct from the handshake
// AlreadyConnectedError: at this point there may be no other session at all.
func errPresenceLost() *DomainError {
	return &DomainError{Code: CodeInternal, Message: "Connection presence expired"}
}

// errorEvent translates an operation error into the wire error event.
func errorEvent(err error) models.Event {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return models.Event{Event: models.EventError, Data: models.ErrorData{
			Code:    domainErr.Code,
			Message: domainErr.Message,
			Details: domainErr.Details,
		}}
	}
	return models.Event{Event: models.EventError, Data: models.ErrorData{
		Code:    CodeInternal,
		Message: "Internal server error",
	}}
}
