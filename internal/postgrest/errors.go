package postgrest

import "fmt"

// SQLSTATE codes the store layer keys on. PostgREST forwards these from the
// database in the error body's "code" field.
const (
	CodeUniqueViolation = "23505"
	CodeUndefinedColumn = "42703"
	CodeUndefinedTable  = "42P01"
)

// APIError is the structured error body returned by the backend.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error %s (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
}
