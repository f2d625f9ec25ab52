package market

import "fmt"

// FetchError reports a failed provider call: network, timeout, HTTP status
// or an undecodable payload.
type FetchError struct {
	Provider string
	Op       string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func fetchErr(provider, op string, err error) error {
	return &FetchError{Provider: provider, Op: op, Err: err}
}
