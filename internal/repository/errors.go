package repository

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vanshika/sparqlconn/internal/graph"
)

// Usage errors. They are returned before any request reaches the store.
var (
	ErrConnectionClosed         = errors.New("connection is closed")
	ErrRepositoryNotInitialized = errors.New("repository is not initialized")
	ErrTransactionActive        = errors.New("transaction already active")
	ErrNoActiveTransaction      = errors.New("no active transaction")
	ErrUnsupportedLanguage      = errors.New("unsupported query language")
	ErrInvalidPage              = errors.New("page length and page number must be positive")
)

var usageErrors = []error{
	ErrConnectionClosed,
	ErrRepositoryNotInitialized,
	ErrTransactionActive,
	ErrNoActiveTransaction,
	ErrUnsupportedLanguage,
	ErrInvalidPage,
}

// IsUsageError reports whether err comes from calling the API in a state
// that does not allow the operation.
func IsUsageError(err error) bool {
	for _, target := range usageErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// MalformedQueryError is returned when the store rejects the text of a
// query or update.
type MalformedQueryError struct {
	Query string
	Err   error
}

func (e *MalformedQueryError) Error() string {
	return fmt.Sprintf("malformed query: %v", e.Err)
}

func (e *MalformedQueryError) Unwrap() error { return e.Err }

// QueryEvaluationError wraps any other failure while evaluating a query.
type QueryEvaluationError struct {
	Op  string
	Err error
}

func (e *QueryEvaluationError) Error() string {
	return fmt.Sprintf("evaluate %s: %v", e.Op, e.Err)
}

func (e *QueryEvaluationError) Unwrap() error { return e.Err }

// RepositoryError wraps failures of connection-level operations such as
// add, remove, size or transaction control.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// evaluationError classifies a failure of query evaluation. Usage errors
// pass through unchanged.
func evaluationError(op, text string, err error) error {
	if err == nil || IsUsageError(err) {
		return err
	}
	var malformed *MalformedQueryError
	var evalErr *QueryEvaluationError
	if errors.As(err, &malformed) || errors.As(err, &evalErr) {
		return err
	}
	var statusErr *graph.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest {
		return &MalformedQueryError{Query: text, Err: err}
	}
	return &QueryEvaluationError{Op: op, Err: err}
}

// repositoryError converts a failure at the connection boundary. Query
// evaluation errors raised underneath become repository errors.
func repositoryError(op string, err error) error {
	if err == nil || IsUsageError(err) {
		return err
	}
	var repoErr *RepositoryError
	if errors.As(err, &repoErr) {
		return err
	}
	return &RepositoryError{Op: op, Err: err}
}
