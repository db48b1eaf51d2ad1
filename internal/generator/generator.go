package generator

import (
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"arithmetic-practice-service/internal/domain"
)

const (
	// MaxAttempts bounds the draws made before falling back.
	MaxAttempts = 20
	// DefaultWindowSize is how many recent problem texts are suppressed.
	DefaultWindowSize = 100

	// Draw caps. Grades 5 and 6 set operand minimums above additiveCap and
	// factorCap, so their addition, subtraction and multiplication draws
	// collapse to a single problem each and lean on the fallback.
	additiveCap   = 10000
	factorCap     = 100
	divisorCap    = 20
	quotientCap   = 10
	resultCeiling = 1000000
)

// Generator produces grade-appropriate problems and suppresses recent repeats.
// It is safe for concurrent use.
type Generator struct {
	rules  *domain.RuleTable
	nextID atomic.Int64

	mu     sync.Mutex
	rnd    *rand.Rand
	recent *window
}

// Option customizes a Generator.
type Option func(*generatorOptions)

type generatorOptions struct {
	seed       int64
	windowSize int
	firstID    int64
}

// WithSeed makes draws deterministic.
func WithSeed(seed int64) Option {
	return func(o *generatorOptions) { o.seed = seed }
}

// WithWindowSize overrides DefaultWindowSize.
func WithWindowSize(n int) Option {
	return func(o *generatorOptions) { o.windowSize = n }
}

// WithFirstID sets the id assigned to the first generated problem.
func WithFirstID(id int64) Option {
	return func(o *generatorOptions) { o.firstID = id }
}

func New(rules *domain.RuleTable, opts ...Option) *Generator {
	now := time.Now()
	o := generatorOptions{
		seed:       now.UnixNano(),
		windowSize: DefaultWindowSize,
		firstID:    now.UnixMilli(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	g := &Generator{
		rules:  rules,
		rnd:    rand.New(rand.NewSource(o.seed)),
		recent: newWindow(o.windowSize),
	}
	g.nextID.Store(o.firstID - 1)
	return g
}

// Generate returns a problem for grade. The only error is domain.ErrInvalidGrade;
// when every draw is rejected a deterministic fallback problem is returned.
func (g *Generator) Generate(grade int, difficulty string) (domain.Problem, error) {
	rule, err := g.rules.Lookup(grade)
	if err != nil {
		return domain.Problem{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for attempt := 0; attempt < MaxAttempts; attempt++ {
		op := rule.Operations[g.rnd.Intn(len(rule.Operations))]
		constraint, _ := rule.Constraint(op)

		a, b := g.draw(rule, constraint)
		if !acceptable(a, b, constraint) {
			continue
		}
		text := domain.ProblemText(a, b, op)
		if g.recent.contains(text) {
			continue
		}
		problem, err := domain.NewProblem(g.newID(), a, b, op, grade, difficulty)
		if err != nil {
			continue
		}
		g.recent.push(text)
		return problem, nil
	}

	op := rule.Operations[0]
	constraint, _ := rule.Constraint(op)
	a, b := fallbackOperands(grade, constraint)
	log.Printf("generator: grade %d fell back to %d %s %d after %d attempts", grade, a, op, b, MaxAttempts)
	return domain.NewProblem(g.newID(), a, b, op, grade, difficulty)
}

// ResetRecent clears the duplicate-suppression window.
func (g *Generator) ResetRecent() {
	g.mu.Lock()
	g.recent.reset()
	g.mu.Unlock()
}

// RecentLen reports how many texts the window currently holds.
func (g *Generator) RecentLen() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.recent.len()
}

// Rules exposes the rule table the generator draws from.
func (g *Generator) Rules() *domain.RuleTable {
	return g.rules
}

func (g *Generator) newID() int64 {
	return g.nextID.Add(1)
}

func (g *Generator) draw(rule domain.GradeRule, constraint domain.OperationConstraint) (int, int) {
	switch c := constraint.(type) {
	case domain.AdditionRule:
		a := g.intBetween(c.MinOperand, min(c.MaxOperand, additiveCap))
		b := g.intBetween(c.MinOperand, min(c.ResultBound-a, additiveCap))
		return a, b
	case domain.SubtractionRule:
		a := g.intBetween(c.MinOperand, min(c.MaxOperand, additiveCap))
		b := g.intBetween(c.MinOperand, min(a, additiveCap))
		return a, b
	case domain.MultiplicationRule:
		return g.intBetween(c.MinFactor, min(c.MaxFactor, factorCap)),
			g.intBetween(c.MinFactor, min(c.MaxFactor, factorCap))
	case domain.DivisionRule:
		divisor := g.intBetween(2, min(c.MaxDivisor, divisorCap))
		quotient := g.intBetween(2, min(quotientCap, rule.MaxNumber/divisor))
		return divisor * quotient, divisor
	}
	return 0, 0
}

// intBetween draws uniformly from [lo, hi]; an empty range collapses to lo.
func (g *Generator) intBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rnd.Intn(hi-lo+1)
}

func acceptable(a, b int, constraint domain.OperationConstraint) bool {
	if a < 0 || b < 0 {
		return false
	}
	switch c := constraint.(type) {
	case domain.AdditionRule:
		sum := a + b
		return sum <= c.ResultBound && sum <= resultCeiling
	case domain.SubtractionRule:
		return !c.NoNegativeResult || a >= b
	case domain.MultiplicationRule:
		return a*b <= resultCeiling
	case domain.DivisionRule:
		if b == 0 {
			return false
		}
		remainder := a % b
		if c.RequireWholeQuotient && remainder != 0 {
			return false
		}
		if a/b > resultCeiling {
			return false
		}
		return remainder == 0 || c.MaxDecimalPlaces > 0
	}
	return false
}

// fallbackOperands is a fixed construction that always satisfies constraint.
func fallbackOperands(grade int, constraint domain.OperationConstraint) (int, int) {
	switch c := constraint.(type) {
	case domain.AdditionRule:
		a := clamp(grade*10, c.MinOperand, min(c.MaxOperand, c.ResultBound-c.MinOperand))
		return a, clamp(grade*5, c.MinOperand, c.ResultBound-a)
	case domain.SubtractionRule:
		a := clamp(grade*20, c.MinOperand, c.MaxOperand)
		return a, clamp(grade*10, c.MinOperand, a)
	case domain.MultiplicationRule:
		return clamp(grade*2, c.MinFactor, c.MaxFactor), clamp(grade, c.MinFactor, c.MaxFactor)
	case domain.DivisionRule:
		divisor := clamp(grade, 2, c.MaxDivisor)
		return divisor * 10, divisor
	}
	return grade, grade
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
