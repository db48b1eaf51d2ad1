package domain

import "errors"

var (
	// ErrInvalidGrade is returned when a grade has no entry in the rule table.
	ErrInvalidGrade = errors.New("invalid grade")
	// ErrGenerationExhausted indicates a bulk generation could not produce the requested count.
	ErrGenerationExhausted = errors.New("problem generation exhausted")
	// ErrSessionNotFound is returned when a practice session id is unknown.
	ErrSessionNotFound = errors.New("practice session not found")
	// ErrProblemNotFound indicates a problem index outside the session bounds.
	ErrProblemNotFound = errors.New("problem not found")
	// ErrInvalidOperation indicates an unrecognized operator reached the calculation step.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrMalformedInput indicates a non-numeric answer or an unusable import payload.
	ErrMalformedInput = errors.New("malformed input")
	// ErrDivisionByZero is returned when a division problem has a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrInvalidRules indicates an inconsistent rule table.
	ErrInvalidRules = errors.New("invalid grade rules")
)
