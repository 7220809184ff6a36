package errsink

import (
	"errors"
	"fmt"
	"strings"
)

// AuthKind separates credential failures that may clear up on their own
// from ones that never will. Neither is retried.
type AuthKind string

const (
	// AuthDenied means the identity service rejected the credentials.
	AuthDenied AuthKind = "denied"
	// AuthConfig means the profile could not be loaded at all.
	AuthConfig AuthKind = "config"
	// AuthTransient means the call failed for a reason unrelated to the credentials.
	AuthTransient AuthKind = "transient"
)

// AuthError reports that a profile's credentials cannot be used.
type AuthError struct {
	Profile string
	Kind    AuthKind
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("cannot get the account id from sts for profile %s (%s): %v", e.Profile, e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ScopeError is fatal: no region list could be obtained.
type ScopeError struct {
	Reason string
	Err    error
}

func (e *ScopeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve region scope: %s: %v", e.Reason, e.Err)
	}
	return "resolve region scope: " + e.Reason
}

func (e *ScopeError) Unwrap() error { return e.Err }

// NotFoundError reports a declared target that cannot be located.
type NotFoundError struct {
	Account    string
	Region     string
	ResourceID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource %s not found or inaccessible in account %s region %s", e.ResourceID, e.Account, e.Region)
}

// ResourceReadError reports a listing or field extraction failure.
// ResourceID is empty when a whole listing failed.
type ResourceReadError struct {
	Op         string
	Account    string
	Region     string
	ResourceID string
	Err        error
}

func (e *ResourceReadError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.ResourceID != "" {
		b.WriteString(" " + e.ResourceID)
	}
	fmt.Fprintf(&b, " in account %s region %s", e.Account, e.Region)
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ResourceReadError) Unwrap() error { return e.Err }

// PartialError carries per-item failures of a listing whose remaining
// items are still usable.
type PartialError struct {
	Failures []error
}

func (e *PartialError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("%d item(s) failed: %s", len(e.Failures), strings.Join(msgs, "; "))
}

// Partial returns nil when there are no failures, so callers can return
// it unconditionally.
func Partial(failures []error) error {
	if len(failures) == 0 {
		return nil
	}
	return &PartialError{Failures: failures}
}

// FromError converts a typed error into a Record. Unknown errors become
// resource read records carrying only the message.
func FromError(err error) Record {
	var (
		authErr  *AuthError
		notFound *NotFoundError
		readErr  *ResourceReadError
	)
	switch {
	case errors.As(err, &authErr):
		return Record{Kind: KindAuth, Profile: authErr.Profile, Message: authErr.Error()}
	case errors.As(err, &notFound):
		return Record{
			Kind:       KindNotFound,
			Account:    notFound.Account,
			Region:     notFound.Region,
			ResourceID: notFound.ResourceID,
			Message:    notFound.Error(),
		}
	case errors.As(err, &readErr):
		return Record{
			Kind:       KindResourceRead,
			Account:    readErr.Account,
			Region:     readErr.Region,
			ResourceID: readErr.ResourceID,
			Message:    readErr.Error(),
		}
	default:
		return Record{Kind: KindResourceRead, Message: err.Error()}
	}
}
