package generator

import (
	"errors"
	"math"
	"sync"
	"testing"

	"arithmetic-practice-service/internal/domain"
)

func TestGenerateConformsToGradeRules(t *testing.T) {
	table := domain.MustDefaultRuleTable()
	g := New(table, WithSeed(42))

	for _, grade := range table.Grades() {
		rule, _ := table.Lookup(grade)
		for i := 0; i < 1000; i++ {
			p, err := g.Generate(grade, domain.DefaultDifficulty)
			if err != nil {
				t.Fatalf("grade %d: generate: %v", grade, err)
			}
			want, err := domain.Calculate(p.Operand1, p.Operand2, p.Operation)
			if err != nil {
				t.Fatalf("grade %d: calculate %q: %v", grade, p.Text, err)
			}
			if math.Abs(p.Answer-want) > 1e-9 {
				t.Fatalf("grade %d: %q answer %v, want %v", grade, p.Text, p.Answer, want)
			}
			if p.Text != domain.ProblemText(p.Operand1, p.Operand2, p.Operation) {
				t.Fatalf("grade %d: text %q diverges from operands", grade, p.Text)
			}
			if p.Grade != grade {
				t.Fatalf("expected grade %d, got %d", grade, p.Grade)
			}
			if msg := violation(rule, p); msg != "" {
				t.Fatalf("grade %d: %q violates rule: %s", grade, p.Text, msg)
			}
		}
	}
}

func TestDivisionQuotientsAreWhole(t *testing.T) {
	table := domain.MustDefaultRuleTable()
	g := New(table, WithSeed(7))

	seen := 0
	for i := 0; i < 2000; i++ {
		if i%50 == 0 {
			g.ResetRecent()
		}
		p, err := g.Generate(4, domain.DefaultDifficulty)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if p.Operation != domain.OpDivide {
			continue
		}
		seen++
		if p.Operand1%p.Operand2 != 0 {
			t.Fatalf("%q does not divide evenly", p.Text)
		}
	}
	if seen == 0 {
		t.Fatalf("expected at least one division problem")
	}
}

func TestRecentWindowIsBoundedAndResets(t *testing.T) {
	g := New(domain.MustDefaultRuleTable(), WithSeed(1))

	for i := 0; i < 500; i++ {
		if _, err := g.Generate(3, domain.DefaultDifficulty); err != nil {
			t.Fatalf("generate: %v", err)
		}
		if n := g.RecentLen(); n > DefaultWindowSize {
			t.Fatalf("window grew to %d", n)
		}
	}
	if n := g.RecentLen(); n != DefaultWindowSize {
		t.Fatalf("expected saturated window, got %d", n)
	}

	g.ResetRecent()
	if n := g.RecentLen(); n != 0 {
		t.Fatalf("expected empty window after reset, got %d", n)
	}
}

func TestResetMakesRepeatEligible(t *testing.T) {
	table, err := domain.NewRuleTable([]domain.GradeRule{{
		Grade: 1, MaxNumber: 2, Operations: []domain.Operation{domain.OpAdd},
		Constraints: map[domain.Operation]domain.OperationConstraint{
			domain.OpAdd: domain.AdditionRule{MinOperand: 1, MaxOperand: 1, ResultBound: 2},
		},
	}})
	if err != nil {
		t.Fatalf("rule table: %v", err)
	}
	g := New(table, WithSeed(3))

	first, err := g.Generate(1, "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if g.RecentLen() != 1 {
		t.Fatalf("expected accepted problem to enter the window")
	}

	// Only one problem exists, so the second call must fall back without touching the window.
	fallback, err := g.Generate(1, "")
	if err != nil {
		t.Fatalf("generate fallback: %v", err)
	}
	if fallback.Text != first.Text || g.RecentLen() != 1 {
		t.Fatalf("expected fallback %q with window size 1, got %q and %d", first.Text, fallback.Text, g.RecentLen())
	}

	g.ResetRecent()
	again, err := g.Generate(1, "")
	if err != nil {
		t.Fatalf("generate after reset: %v", err)
	}
	if again.Text != first.Text || g.RecentLen() != 1 {
		t.Fatalf("expected %q to be accepted again after reset", first.Text)
	}
	if again.ID <= first.ID {
		t.Fatalf("expected increasing ids, got %d after %d", again.ID, first.ID)
	}
}

func TestGenerateNeverFailsWhenSaturated(t *testing.T) {
	table := domain.MustDefaultRuleTable()
	g := New(table, WithSeed(99))

	for _, grade := range table.Grades() {
		for i := 0; i < 3*DefaultWindowSize; i++ {
			if _, err := g.Generate(grade, ""); err != nil {
				t.Fatalf("grade %d: unexpected error %v", grade, err)
			}
		}
	}
}

func TestGenerateRejectsUnknownGrade(t *testing.T) {
	g := New(domain.MustDefaultRuleTable())
	for _, grade := range []int{0, 7} {
		if _, err := g.Generate(grade, ""); !errors.Is(err, domain.ErrInvalidGrade) {
			t.Fatalf("grade %d: expected invalid grade, got %v", grade, err)
		}
	}
}

func TestSeededGeneratorsAreDeterministic(t *testing.T) {
	table := domain.MustDefaultRuleTable()
	a := New(table, WithSeed(2024), WithFirstID(1))
	b := New(table, WithSeed(2024), WithFirstID(1))

	for i := 0; i < 50; i++ {
		pa, _ := a.Generate(4, "")
		pb, _ := b.Generate(4, "")
		if pa != pb {
			t.Fatalf("draw %d diverged: %+v vs %+v", i, pa, pb)
		}
	}
}

func TestFallbackOperandsSatisfyDefaultRules(t *testing.T) {
	table := domain.MustDefaultRuleTable()
	for _, grade := range table.Grades() {
		rule, _ := table.Lookup(grade)
		for _, op := range rule.Operations {
			c, _ := rule.Constraint(op)
			a, b := fallbackOperands(grade, c)
			if !acceptable(a, b, c) {
				t.Fatalf("grade %d %s: fallback %d,%d rejected", grade, op, a, b)
			}
			p, err := domain.NewProblem(1, a, b, op, grade, "")
			if err != nil {
				t.Fatalf("grade %d %s: %v", grade, op, err)
			}
			if msg := violation(rule, p); msg != "" {
				t.Fatalf("grade %d: fallback %q violates rule: %s", grade, p.Text, msg)
			}
		}
	}
}

// violation describes how p breaks rule, or returns "" when it conforms.
func violation(rule domain.GradeRule, p domain.Problem) string {
	c, ok := rule.Constraint(p.Operation)
	if !ok {
		return "operation not allowed"
	}
	a, b := p.Operand1, p.Operand2
	switch c := c.(type) {
	case domain.AdditionRule:
		if a < c.MinOperand || b < c.MinOperand || a > c.MaxOperand {
			return "addend out of range"
		}
		if a+b > c.ResultBound {
			return "sum above bound"
		}
	case domain.SubtractionRule:
		if a < c.MinOperand || a > c.MaxOperand || b < c.MinOperand {
			return "operand out of range"
		}
		if c.NoNegativeResult && a < b {
			return "negative difference"
		}
	case domain.MultiplicationRule:
		if a < c.MinFactor || a > c.MaxFactor || b < c.MinFactor || b > c.MaxFactor {
			return "factor out of range"
		}
	case domain.DivisionRule:
		if b < 2 || b > c.MaxDivisor {
			return "divisor out of range"
		}
		if c.RequireWholeQuotient && a%b != 0 {
			return "quotient not whole"
		}
		if a%b != 0 && c.MaxDecimalPlaces == 0 {
			return "fractional quotient"
		}
	}
	return ""
}

func TestConcurrentGenerateKeepsWindowConsistent(t *testing.T) {
	g := New(domain.MustDefaultRuleTable(), WithSeed(9), WithWindowSize(16))

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[int64]bool)
	)
	for w := 0; w < 12; w++ {
		wg.Add(1)
		go func(grade int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				p, err := g.Generate(grade, domain.DefaultDifficulty)
				if err != nil {
					t.Errorf("generate grade %d: %v", grade, err)
					return
				}
				mu.Lock()
				if ids[p.ID] {
					t.Errorf("duplicate problem id %d", p.ID)
				}
				ids[p.ID] = true
				mu.Unlock()
				if i%50 == 0 {
					g.ResetRecent()
				}
				if n := g.RecentLen(); n > 16 {
					t.Errorf("window grew to %d", n)
				}
			}
		}(w%6 + 1)
	}
	wg.Wait()

	if n := g.RecentLen(); n > 16 {
		t.Fatalf("window grew to %d", n)
	}
	if len(g.recent.index) != g.recent.len() {
		t.Fatalf("window index has %d texts for %d slots", len(g.recent.index), g.recent.len())
	}
}

func TestHighGradeDrawsCollapseAtCaps(t *testing.T) {
	table := domain.MustDefaultRuleTable()
	g := New(table, WithSeed(4))

	rule, err := table.Lookup(5)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	want := map[domain.Operation][2]int{
		domain.OpAdd:      {10000, 10000},
		domain.OpSubtract: {10000, 10000},
		domain.OpMultiply: {100, 100},
	}
	for op, operands := range want {
		constraint, _ := rule.Constraint(op)
		for i := 0; i < 5; i++ {
			a, b := g.draw(rule, constraint)
			if a != operands[0] || b != operands[1] {
				t.Fatalf("%s draw: got %d, %d, want %v", op, a, b, operands)
			}
		}
	}
}
