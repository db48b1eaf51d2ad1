package domain

import (
	"fmt"
	"sort"
)

// OperationConstraint bounds the operands drawn for one operation. The set of
// implementations is closed: AdditionRule, SubtractionRule, MultiplicationRule
// and DivisionRule.
type OperationConstraint interface {
	Operation() Operation
	check() error
}

// AdditionRule keeps both addends at or above MinOperand and the sum within ResultBound.
type AdditionRule struct {
	MinOperand  int
	MaxOperand  int
	ResultBound int
}

// SubtractionRule bounds the minuend to [MinOperand, MaxOperand].
type SubtractionRule struct {
	MinOperand       int
	MaxOperand       int
	NoNegativeResult bool
}

// MultiplicationRule bounds both factors to [MinFactor, MaxFactor].
type MultiplicationRule struct {
	MinFactor int
	MaxFactor int
}

// DivisionRule bounds the divisor. RequireWholeQuotient and MaxDecimalPlaces
// are mutually exclusive.
type DivisionRule struct {
	MaxDivisor           int
	RequireWholeQuotient bool
	MaxDecimalPlaces     int
}

func (AdditionRule) Operation() Operation       { return OpAdd }
func (SubtractionRule) Operation() Operation    { return OpSubtract }
func (MultiplicationRule) Operation() Operation { return OpMultiply }
func (DivisionRule) Operation() Operation       { return OpDivide }

func (r AdditionRule) check() error {
	if r.MinOperand < 0 || r.MinOperand > r.MaxOperand {
		return fmt.Errorf("addition operands [%d, %d]", r.MinOperand, r.MaxOperand)
	}
	if r.ResultBound < 2*r.MinOperand {
		return fmt.Errorf("addition result bound %d below smallest sum %d", r.ResultBound, 2*r.MinOperand)
	}
	return nil
}

func (r SubtractionRule) check() error {
	if r.MinOperand < 0 || r.MinOperand > r.MaxOperand {
		return fmt.Errorf("subtraction operands [%d, %d]", r.MinOperand, r.MaxOperand)
	}
	return nil
}

func (r MultiplicationRule) check() error {
	if r.MinFactor < 0 || r.MinFactor > r.MaxFactor {
		return fmt.Errorf("multiplication factors [%d, %d]", r.MinFactor, r.MaxFactor)
	}
	return nil
}

func (r DivisionRule) check() error {
	if r.MaxDivisor < 2 {
		return fmt.Errorf("division max divisor %d below 2", r.MaxDivisor)
	}
	if r.RequireWholeQuotient && r.MaxDecimalPlaces > 0 {
		return fmt.Errorf("division cannot require whole quotients and allow %d decimals", r.MaxDecimalPlaces)
	}
	if r.MaxDecimalPlaces < 0 {
		return fmt.Errorf("division decimal places %d", r.MaxDecimalPlaces)
	}
	return nil
}

// GradeRule is the configuration for one grade tier.
type GradeRule struct {
	Grade       int
	MaxNumber   int
	Description string
	Operations  []Operation
	Constraints map[Operation]OperationConstraint
}

// Constraint returns the constraint configured for op.
func (g GradeRule) Constraint(op Operation) (OperationConstraint, bool) {
	c, ok := g.Constraints[op]
	return c, ok
}

func (g GradeRule) check() error {
	if g.MaxNumber <= 0 {
		return fmt.Errorf("grade %d: max number %d", g.Grade, g.MaxNumber)
	}
	if len(g.Operations) == 0 {
		return fmt.Errorf("grade %d: no operations", g.Grade)
	}
	for _, op := range g.Operations {
		c, ok := g.Constraints[op]
		if !ok {
			return fmt.Errorf("grade %d: no constraint for %q", g.Grade, op)
		}
		if c.Operation() != op {
			return fmt.Errorf("grade %d: constraint for %q registered under %q", g.Grade, c.Operation(), op)
		}
		if err := c.check(); err != nil {
			return fmt.Errorf("grade %d: %v", g.Grade, err)
		}
		if _, ok := c.(DivisionRule); ok && g.MaxNumber < 4 {
			return fmt.Errorf("grade %d: max number %d too small for division", g.Grade, g.MaxNumber)
		}
	}
	return nil
}

// RuleTable maps grades to their rules. It is read-only after construction.
type RuleTable struct {
	grades map[int]GradeRule
}

// NewRuleTable validates rules and builds a table. At least one grade is required.
func NewRuleTable(rules []GradeRule) (*RuleTable, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: no grades configured", ErrInvalidRules)
	}
	grades := make(map[int]GradeRule, len(rules))
	for _, rule := range rules {
		if rule.Grade <= 0 {
			return nil, fmt.Errorf("%w: grade %d", ErrInvalidRules, rule.Grade)
		}
		if _, dup := grades[rule.Grade]; dup {
			return nil, fmt.Errorf("%w: grade %d configured twice", ErrInvalidRules, rule.Grade)
		}
		if err := rule.check(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
		}
		grades[rule.Grade] = rule
	}
	return &RuleTable{grades: grades}, nil
}

// Lookup returns the rule for grade or ErrInvalidGrade.
func (t *RuleTable) Lookup(grade int) (GradeRule, error) {
	rule, ok := t.grades[grade]
	if !ok {
		return GradeRule{}, fmt.Errorf("%w: %d", ErrInvalidGrade, grade)
	}
	return rule, nil
}

// Grades lists configured grades in ascending order.
func (t *RuleTable) Grades() []int {
	out := make([]int, 0, len(t.grades))
	for g := range t.grades {
		out = append(out, g)
	}
	sort.Ints(out)
	return out
}

// DefaultRules is the six-tier primary school table.
func DefaultRules() []GradeRule {
	return []GradeRule{
		{
			Grade: 1, MaxNumber: 20, Description: "addition and subtraction within 20",
			Operations: []Operation{OpAdd, OpSubtract},
			Constraints: map[Operation]OperationConstraint{
				OpAdd:      AdditionRule{MinOperand: 1, MaxOperand: 19, ResultBound: 20},
				OpSubtract: SubtractionRule{MinOperand: 1, MaxOperand: 20, NoNegativeResult: true},
			},
		},
		{
			Grade: 2, MaxNumber: 100, Description: "addition and subtraction within 100",
			Operations: []Operation{OpAdd, OpSubtract},
			Constraints: map[Operation]OperationConstraint{
				OpAdd:      AdditionRule{MinOperand: 20, MaxOperand: 80, ResultBound: 100},
				OpSubtract: SubtractionRule{MinOperand: 20, MaxOperand: 100, NoNegativeResult: true},
			},
		},
		{
			Grade: 3, MaxNumber: 1000, Description: "addition and subtraction within 1000, times tables",
			Operations: []Operation{OpAdd, OpSubtract, OpMultiply},
			Constraints: map[Operation]OperationConstraint{
				OpAdd:      AdditionRule{MinOperand: 100, MaxOperand: 900, ResultBound: 1000},
				OpSubtract: SubtractionRule{MinOperand: 100, MaxOperand: 1000, NoNegativeResult: true},
				OpMultiply: MultiplicationRule{MinFactor: 2, MaxFactor: 9},
			},
		},
		{
			Grade: 4, MaxNumber: 10000, Description: "four operations within 10000",
			Operations: []Operation{OpAdd, OpSubtract, OpMultiply, OpDivide},
			Constraints: map[Operation]OperationConstraint{
				OpAdd:      AdditionRule{MinOperand: 1000, MaxOperand: 9000, ResultBound: 10000},
				OpSubtract: SubtractionRule{MinOperand: 1000, MaxOperand: 10000, NoNegativeResult: true},
				OpMultiply: MultiplicationRule{MinFactor: 10, MaxFactor: 99},
				OpDivide:   DivisionRule{MaxDivisor: 9, RequireWholeQuotient: true},
			},
		},
		{
			Grade: 5, MaxNumber: 100000, Description: "four operations within 100000",
			Operations: []Operation{OpAdd, OpSubtract, OpMultiply, OpDivide},
			Constraints: map[Operation]OperationConstraint{
				OpAdd:      AdditionRule{MinOperand: 10000, MaxOperand: 90000, ResultBound: 100000},
				OpSubtract: SubtractionRule{MinOperand: 10000, MaxOperand: 100000, NoNegativeResult: true},
				OpMultiply: MultiplicationRule{MinFactor: 100, MaxFactor: 999},
				OpDivide:   DivisionRule{MaxDivisor: 99, MaxDecimalPlaces: 1},
			},
		},
		{
			Grade: 6, MaxNumber: 1000000, Description: "four operations within 1000000",
			Operations: []Operation{OpAdd, OpSubtract, OpMultiply, OpDivide},
			Constraints: map[Operation]OperationConstraint{
				OpAdd:      AdditionRule{MinOperand: 100000, MaxOperand: 900000, ResultBound: 1000000},
				OpSubtract: SubtractionRule{MinOperand: 100000, MaxOperand: 1000000, NoNegativeResult: true},
				OpMultiply: MultiplicationRule{MinFactor: 1000, MaxFactor: 9999},
				OpDivide:   DivisionRule{MaxDivisor: 999, MaxDecimalPlaces: 2},
			},
		},
	}
}

// MustDefaultRuleTable builds the default table; the defaults are known to be consistent.
func MustDefaultRuleTable() *RuleTable {
	t, err := NewRuleTable(DefaultRules())
	if err != nil {
		panic(err)
	}
	return t
}
