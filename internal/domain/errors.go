package domain

import (
	"errors"
	"fmt"
)

// ErrKind is used to map domain errors to HTTP status codes consistently.
type ErrKind string

const (
	KindValidation       ErrKind = "validation"        // 400
	KindAuth             ErrKind = "auth"              // 401
	KindIdentityConflict ErrKind = "identity_conflict" // 403, fails closed
	KindNotFound         ErrKind = "not_found"         // 404
	KindConflict         ErrKind = "conflict"          // 409, retryable via re-resolution
	KindIntegrity        ErrKind = "integrity"         // 500, operator intervention required
	KindTransient        ErrKind = "transient"         // 503, retryable
	KindInternal         ErrKind = "internal"          // 500
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code (do not change casually)
// - Message: safe summary for clients (avoid leaking sensitive details)
// - Meta: optional details (email, hint, field, ...)
// - Cause: wrapped internal error for logging/diagnostics
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Retryable reports whether the caller may retry resolution after this error.
func Retryable(err error) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == KindConflict || de.Kind == KindTransient
	}
	return false
}

// ----------------------
// Validation errors (400)
// ----------------------

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, "invalid_json", "invalid JSON body", cause)
}

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindValidation, "missing_field", "missing required field"), map[string]string{
		"field": field,
	})
}

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindValidation, "invalid_field", "invalid field"), map[string]string{
		"field":  field,
		"reason": reason,
	})
}

// ErrEmailUnverified rejects identities whose provider has not verified the
// email claim; an unverified email must never drive drift healing.
func ErrEmailUnverified() *Error {
	return New(KindValidation, "email_unverified", "verified email claim required")
}

func ErrInvalidRole(role string) *Error {
	return WithMeta(
		New(KindValidation, "invalid_role", "invalid role"),
		map[string]string{"role": role},
	)
}

// ----------------------
// Auth errors (401)
// ----------------------

func ErrTokenMissing() *Error {
	return New(KindAuth, "token_missing", "no token provided")
}

func ErrTokenInvalid() *Error {
	return New(KindAuth, "token_invalid", "invalid token")
}

func ErrTokenExpired() *Error {
	return New(KindAuth, "token_expired", "token is expired")
}

// ----------------------
// Identity conflict (403)
// ----------------------

// ErrIdentityConflict is raised when an email is already bound to a
// different, already-synchronized subject id. Resolution fails closed:
// merging two claimed identities would let one actor read another's data.
// The stable code ID_MISMATCH is part of the HTTP contract.
func ErrIdentityConflict(email string) *Error {
	return WithMeta(New(KindIdentityConflict, "ID_MISMATCH", "account identity mismatch"), map[string]string{
		"email": email,
		"hint":  "this account is bound to a different identity; ask an administrator to re-synchronize it",
	})
}

// ErrReKeyTargetClaimed means the re-key target id is already the primary key
// of a different profile. Fatal and non-retryable: committing would merge two
// claimed identities.
func ErrReKeyTargetClaimed(newID string, cause error) *Error {
	return WithMeta(Wrap(KindIdentityConflict, "ID_MISMATCH", "target identity already claimed", cause), map[string]string{
		"subject_id": newID,
		"hint":       "the subject id is bound to another profile; ask an administrator to re-synchronize the accounts",
	})
}

func ErrInsufficientRole(required string) *Error {
	return WithMeta(New(KindIdentityConflict, "insufficient_role", "insufficient role"), map[string]string{
		"required": required,
	})
}

// ----------------------
// Not Found (404)
// ----------------------

func ErrProfileNotFound() *Error {
	return New(KindNotFound, "profile_not_found", "profile not found")
}

func ErrInvitationNotFound() *Error {
	return New(KindNotFound, "invitation_not_found", "invitation not found")
}

// ----------------------
// Conflict (409)
// ----------------------

// ErrCreationRace reports a unique-constraint violation while bootstrapping a
// profile; the caller retries resolution from the top (idempotent recovery).
func ErrCreationRace(cause error) *Error {
	return Wrap(KindConflict, "creation_race", "profile creation raced a concurrent creation", cause)
}

// ----------------------
// Integrity (500)
// ----------------------

// ErrReKeyIntegrity means the re-keyed row could not be read back inside the
// transaction: the cascade configuration is incomplete. Never retried.
func ErrReKeyIntegrity(oldID, newID string) *Error {
	return WithMeta(New(KindIntegrity, "rekey_integrity", "re-key post-condition verification failed"), map[string]string{
		"old_id": oldID,
		"new_id": newID,
	})
}

// ----------------------
// Transient / internal (5xx)
// ----------------------

func ErrStoreUnavailable(cause error) *Error {
	return Wrap(KindTransient, "store_unavailable", "database unavailable", cause)
}

func ErrReKeyTimeout(cause error) *Error {
	return Wrap(KindTransient, "rekey_timeout", "re-key transaction timed out", cause)
}

// ErrRequestCanceled marks work abandoned because the caller went away.
// Unlike a timeout it is not retryable: the context is dead.
func ErrRequestCanceled(cause error) *Error {
	return Wrap(KindInternal, "request_canceled", "request canceled by caller", cause)
}

// ErrScopeUnbound fails an operation closed when no actor binding could be
// established; no query may run unscoped.
func ErrScopeUnbound(cause error) *Error {
	return Wrap(KindInternal, "scope_unbound", "session scope could not be established", cause)
}

// ErrScopeMismatch rejects a nested scope that tries to rebind to a
// different actor.
func ErrScopeMismatch(outer, inner string) *Error {
	return WithMeta(New(KindInternal, "scope_mismatch", "nested session scope for a different actor"), map[string]string{
		"outer": outer,
		"inner": inner,
	})
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", cause)
}
