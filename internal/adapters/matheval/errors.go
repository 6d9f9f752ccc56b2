package matheval

import (
	"errors"
	"fmt"
)

var ErrNoResult = errors.New("matheval: no numeric result")

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("matheval status %d: %s", e.Status, e.Body)
}

// EvaluationError is returned when the service answers with an error field.
type EvaluationError struct {
	Detail string
}

func (e *EvaluationError) Error() string {
	return "matheval rejected expression: " + e.Detail
}
