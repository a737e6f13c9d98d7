package tokenmeter

import "fmt"

// ErrorKind classifies the category of a MeterError.
type ErrorKind string

const (
	// ErrorKindConfig indicates a configuration error.
	ErrorKindConfig ErrorKind = "config"
	// ErrorKindBilling indicates a billing submission error.
	ErrorKindBilling ErrorKind = "billing"
)

// MeterError is a typed error returned by the tokenmeter package.
type MeterError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *MeterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tokenmeter %s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("tokenmeter %s error: %s", e.Kind, e.Message)
}

func (e *MeterError) Unwrap() error {
	return e.Err
}

func newConfigError(msg string, err error) *MeterError {
	return &MeterError{Kind: ErrorKindConfig, Message: msg, Err: err}
}

func newBillingError(msg string, err error) *MeterError {
	return &MeterError{Kind: ErrorKindBilling, Message: msg, Err: err}
}
