package enrichment

import (
	"errors"

	"github.com/gaborage/go-enrich/httpclient"
)

// ErrNotEnabled is returned when the service has no provider client, which
// happens when no API key is configured.
var ErrNotEnabled = errors.New("enrichment is not enabled or API key is missing")

const (
	msgRateLimited       = "RocketReach rate limit exceeded. Please try again later."
	msgNetworkPrefix     = "Network error connecting to RocketReach: "
	msgAPIPrefix         = "RocketReach API error: "
	msgFailedPrefix      = "Enrichment failed: "
	msgNotFoundDefault   = "Person not found in RocketReach database"
	msgPreviouslyMissing = "Contact previously marked as not found in RocketReach database"
	msgRecentlyEnriched  = "Contact already enriched recently"
)

// Error is a failed enrichment. Message is stored on the contact; the
// underlying cause stays reachable through errors.Is and errors.As.
type Error struct {
	ContactID int64
	Message   string
	Err       error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapFailure(contactID int64, err error) *Error {
	var msg string
	switch {
	case httpclient.IsErrorType(err, httpclient.RateLimitError):
		msg = msgRateLimited
	case httpclient.IsErrorType(err, httpclient.NetworkFailure),
		httpclient.IsErrorType(err, httpclient.TransportError):
		msg = msgNetworkPrefix + err.Error()
	case httpclient.IsErrorType(err, httpclient.ClientRequestError),
		httpclient.IsErrorType(err, httpclient.ConfigurationError),
		httpclient.IsErrorType(err, httpclient.InterceptorError):
		msg = msgAPIPrefix + err.Error()
	default:
		msg = msgFailedPrefix + err.Error()
	}
	return &Error{ContactID: contactID, Message: msg, Err: err}
}
