package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Operation is one of the four supported operators, stored as its display glyph.
type Operation string

const (
	OpAdd      Operation = "+"
	OpSubtract Operation = "-"
	OpMultiply Operation = "*"
	OpDivide   Operation = "÷"
)

const (
	// AnswerDecimalPlaces is the rounding applied to division answers.
	AnswerDecimalPlaces = 2
	// AnswerTolerance is the absolute tolerance used when grading a submission.
	AnswerTolerance = 0.0001
)

// Valid reports whether op is one of the supported operations.
func (op Operation) Valid() bool {
	switch op {
	case OpAdd, OpSubtract, OpMultiply, OpDivide:
		return true
	}
	return false
}

// ParseOperation normalizes operator glyphs (× and x to *, / to ÷, − to -).
func ParseOperation(raw string) (Operation, error) {
	switch strings.TrimSpace(raw) {
	case "+":
		return OpAdd, nil
	case "-", "−":
		return OpSubtract, nil
	case "*", "×", "x", "X":
		return OpMultiply, nil
	case "÷", "/":
		return OpDivide, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOperation, raw)
}

// Calculate applies op to the operands. Division results are rounded to
// AnswerDecimalPlaces; the other operations are exact for integer operands.
func Calculate(a, b int, op Operation) (float64, error) {
	x, y := float64(a), float64(b)
	switch op {
	case OpAdd:
		return x + y, nil
	case OpSubtract:
		return x - y, nil
	case OpMultiply:
		return x * y, nil
	case OpDivide:
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return RoundAnswer(x / y), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOperation, string(op))
}

// RoundAnswer rounds half away from zero to AnswerDecimalPlaces.
func RoundAnswer(v float64) float64 {
	scale := math.Pow(10, AnswerDecimalPlaces)
	return math.Round(v*scale) / scale
}

// AnswerMatches grades a submission against the expected answer.
func AnswerMatches(expected, submitted float64) bool {
	return math.Abs(expected-submitted) < AnswerTolerance
}

// ProblemText renders the canonical "{a} {op} {b} = ?" form.
func ProblemText(a, b int, op Operation) string {
	return fmt.Sprintf("%d %s %d = ?", a, op, b)
}

// NewProblem builds a problem whose answer and text are derived from the operands.
func NewProblem(id int64, a, b int, op Operation, grade int, difficulty string) (Problem, error) {
	if a < 0 || b < 0 {
		return Problem{}, fmt.Errorf("%w: negative operand", ErrMalformedInput)
	}
	answer, err := Calculate(a, b, op)
	if err != nil {
		return Problem{}, err
	}
	if difficulty == "" {
		difficulty = DefaultDifficulty
	}
	return Problem{
		ID:         id,
		Operand1:   a,
		Operand2:   b,
		Operation:  op,
		Answer:     answer,
		Grade:      grade,
		Difficulty: difficulty,
		Text:       ProblemText(a, b, op),
	}, nil
}

// ParseAnswer converts a raw submission into a number.
func ParseAnswer(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: answer %q is not a number", ErrMalformedInput, raw)
	}
	return v, nil
}
