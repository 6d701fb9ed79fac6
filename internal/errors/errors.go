package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is a classified party failure.
type Error struct {
	Kind     Kind              // Machine-readable failure code
	Message  string            // Internal message (for logs)
	Metadata map[string]string // Values used to render the user message
	Cause    error             // Wrapped backend error, never shown to players
}

// Sentinels for errors.Is checks. They match any *Error with the same kind.
var (
	ErrAlreadyInParty       = New(KindAlreadyInParty, "actor already in a party")
	ErrNotInParty           = New(KindNotInParty, "actor not in a party")
	ErrNotOwner             = New(KindNotOwner, "actor is not the party owner")
	ErrAlreadyMember        = New(KindAlreadyMember, "target already a member")
	ErrNotAMember           = New(KindNotAMember, "target not a member")
	ErrCannotKickSelf       = New(KindCannotKickSelf, "owner tried to kick themselves")
	ErrPartyFull            = New(KindPartyFull, "party at size limit")
	ErrTargetInAnotherParty = New(KindTargetInAnotherParty, "target belongs to another party")
	ErrNameTooLong          = New(KindNameTooLong, "party name too long")
	ErrTargetNotFound       = New(KindTargetNotFound, "target not resolved")
	ErrInvalidRequest       = New(KindInvalidRequest, "invalid request")
	ErrPermissionDenied     = New(KindPermissionDenied, "missing capability")
	ErrStorageUnavailable   = New(KindStorageUnavailable, "storage unavailable")
)

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// UserMessage renders the player-facing message for this failure.
func (e *Error) UserMessage() string {
	if e.Kind == KindPartyFull {
		count, limit := e.Metadata["count"], e.Metadata["limit"]
		if count != "" && limit != "" {
			return fmt.Sprintf("Your party is full (%s/%s).", count, limit)
		}
	}
	if e.Kind == KindNameTooLong {
		if maxLen := e.Metadata["max"]; maxLen != "" {
			return fmt.Sprintf("Party name must be at most %s characters.", maxLen)
		}
	}
	return e.Kind.UserMessage()
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithMetadata creates an error carrying values for the user message.
func WithMetadata(kind Kind, message string, metadata map[string]string) *Error {
	return &Error{Kind: kind, Message: message, Metadata: metadata}
}

// Wrap creates an error of the given kind around an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Unavailable wraps a backend failure for operation op.
func Unavailable(op string, cause error) *Error {
	return Wrap(KindStorageUnavailable, op, cause)
}

// As returns the classified error in err's chain. Anything unclassified
// originated below the storage boundary and is reported as unavailable.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return Unavailable("unclassified", err)
}

// KindOf returns the kind of err, or "" for nil.
func KindOf(err error) Kind {
	if e := As(err); e != nil {
		return e.Kind
	}
	return ""
}
