package domain

import "fmt"

// CredentialError means no usable credentials exist for an account this
// cycle (refresh failed or none stored). Account-scoped, not retryable
// within the same cycle.
type CredentialError struct {
	AccountID string
	Err       error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credentials unusable for account %s: %v", e.AccountID, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// FetchError means the listing phase failed and the account's pipeline
// was aborted. Individual detail-fetch failures are tolerated and never
// surface as a FetchError.
type FetchError struct {
	AccountID string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for account %s: %v", e.AccountID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError means the language-model output violated the digest
// schema. No digest is persisted when this is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("digest validation failed on %s: %s", e.Field, e.Reason)
}

// PersistenceError means a store read/write failed; no partial state
// should be assumed committed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
