package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so that transports can map it to a stable status
// and clients can map it to an operator-facing message.
type Kind string

const (
	InvalidCredential   Kind = "invalid_credential"
	NoServiceCredential Kind = "no_service_credential"
	SessionExpired      Kind = "session_expired"
	CredentialMissing   Kind = "credential_missing"
	ProviderError       Kind = "provider_error"
	ProviderUnreachable Kind = "provider_unreachable"
	Validation          Kind = "validation"
	Internal            Kind = "internal"
)

// Error is a classified failure. Message is safe to show to an operator; Err
// carries diagnostic detail and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same Kind, so errors.Is(err, failure.New(k, ""))
// works as a kind check.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}

// Has reports whether err is classified as kind.
func Has(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the operator-facing message carried by err, falling back
// to the default message for its kind.
func MessageOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return OperatorMessage(KindOf(err))
}

// OperatorMessage is the short default message shown for a kind.
func OperatorMessage(kind Kind) string {
	switch kind {
	case InvalidCredential:
		return "Invalid PIN"
	case NoServiceCredential:
		return "No analysis credential is provisioned for this PIN"
	case SessionExpired:
		return "Session expired. Please re-authenticate."
	case CredentialMissing:
		return "Analysis credential is no longer available"
	case ProviderError:
		return "The scoring provider rejected the request"
	case ProviderUnreachable:
		return "The scoring provider could not be reached"
	case Validation:
		return "Invalid request"
	default:
		return "Analysis failed"
	}
}
