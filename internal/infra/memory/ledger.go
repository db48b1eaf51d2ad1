package memory

import (
	"context"
	"sync"
	"time"

	"arithmetic-practice-service/internal/domain"
	"github.com/google/uuid"
)

// WrongProblemLedger keeps missed problems in insertion order, one entry per problem text.
type WrongProblemLedger struct {
	newID func() string

	mu      sync.Mutex
	entries []*domain.WrongProblemEntry
	byText  map[string]*domain.WrongProblemEntry
}

func NewWrongProblemLedger() *WrongProblemLedger {
	return &WrongProblemLedger{
		newID:  uuid.NewString,
		byText: make(map[string]*domain.WrongProblemEntry),
	}
}

// Record inserts a new entry or bumps the count of the entry with the same text.
// The first wrong answer is kept on repeat misses.
func (l *WrongProblemLedger) Record(_ context.Context, problem domain.Problem, wrongAnswer float64, at time.Time) (domain.WrongProblemEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.byText[problem.Text]; ok {
		entry.WrongCount++
		entry.LastWrongDate = at
		return *entry, nil
	}

	entry := &domain.WrongProblemEntry{
		ID:            l.newID(),
		Problem:       problem,
		WrongAnswer:   wrongAnswer,
		WrongCount:    1,
		LastWrongDate: at,
	}
	l.entries = append(l.entries, entry)
	l.byText[problem.Text] = entry
	return *entry, nil
}

func (l *WrongProblemLedger) List(_ context.Context, filter domain.WrongProblemFilter) ([]domain.WrongProblemEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.WrongProblemEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		if filter.Match(*entry) {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (l *WrongProblemLedger) Remove(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, entry := range l.entries {
		if entry.ID != id {
			continue
		}
		delete(l.byText, entry.Problem.Text)
		l.entries = append(l.entries[:i], l.entries[i+1:]...)
		return nil
	}
	return nil
}
