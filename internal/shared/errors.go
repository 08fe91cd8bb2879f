package shared

import "fmt"

var (
	// Configuration and precondition errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrNoSession          = fmt.Errorf("no saved browser session, run login first")
	ErrNothingPending     = fmt.Errorf("no videos to upload")

	// Remote errors (transient, retried per item)
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrTransferStuck      = fmt.Errorf("transfer made no progress")
	ErrTransferTimeout    = fmt.Errorf("transfer exceeded time limit")
	ErrElementTimeout     = fmt.Errorf("page element did not appear")
	ErrNavigation         = fmt.Errorf("navigation failed")
	ErrReferenceMissing   = fmt.Errorf("published video link not found")
	ErrEmbedMissing       = fmt.Errorf("embed code not found")

	// Control errors
	ErrPaused         = fmt.Errorf("paused by operator")
	ErrRetryExhausted = fmt.Errorf("retries exhausted")
	ErrBusy           = fmt.Errorf("an upload is already running")
	ErrFailed         = fmt.Errorf("operation failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
	ErrNotFound        = fmt.Errorf("not found")
)
