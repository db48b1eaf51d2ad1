package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"arithmetic-practice-service/internal/domain"
)

// MaxFailedGenerations bounds how many generator failures a single burst absorbs.
const MaxFailedGenerations = 3

// SessionRepository abstracts where practice sessions live (in-memory, Redis-marked, etc).
// Create must reserve a unique id before the session becomes visible to Get.
type SessionRepository interface {
	Create(grade int, problems []domain.Problem, startedAt time.Time) *Session
	Get(id int64) (*Session, bool)
}

// WrongProblemLedger stores missed problems deduplicated by problem text.
type WrongProblemLedger interface {
	Record(ctx context.Context, problem domain.Problem, wrongAnswer float64, at time.Time) (domain.WrongProblemEntry, error)
	List(ctx context.Context, filter domain.WrongProblemFilter) ([]domain.WrongProblemEntry, error)
	Remove(ctx context.Context, id string) error
}

// HistoryLog is the append-only archive of finished sessions.
type HistoryLog interface {
	Append(ctx context.Context, record domain.HistoryRecord) error
	List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryRecord, error)
}

// ProblemGenerator produces single problems and owns the recent-problems window.
type ProblemGenerator interface {
	Generate(grade int, difficulty string) (domain.Problem, error)
	ResetRecent()
}

// PracticeService contains the practice session use cases.
type PracticeService struct {
	generator ProblemGenerator
	sessions  SessionRepository
	ledger    WrongProblemLedger
	history   HistoryLog
	now       func() time.Time

	// burstMu keeps a window reset and the generation burst that follows it together.
	burstMu sync.Mutex
}

func NewPracticeService(generator ProblemGenerator, sessions SessionRepository, ledger WrongProblemLedger, history HistoryLog) *PracticeService {
	return NewPracticeServiceWithClock(generator, sessions, ledger, history, time.Now)
}

// NewPracticeServiceWithClock allows deterministic timestamps in tests.
func NewPracticeServiceWithClock(generator ProblemGenerator, sessions SessionRepository, ledger WrongProblemLedger, history HistoryLog, now func() time.Time) *PracticeService {
	return &PracticeService{
		generator: generator,
		sessions:  sessions,
		ledger:    ledger,
		history:   history,
		now:       now,
	}
}

// StartSession generates count problems for grade with a fresh recent window
// and registers a new session holding them.
func (s *PracticeService) StartSession(_ context.Context, grade, count int) (domain.PracticeSession, error) {
	if count < 1 {
		return domain.PracticeSession{}, fmt.Errorf("%w: count must be at least 1, got %d", domain.ErrMalformedInput, count)
	}

	s.burstMu.Lock()
	s.generator.ResetRecent()
	problems, err := s.generateBurst(grade, count)
	s.burstMu.Unlock()
	if err != nil {
		return domain.PracticeSession{}, err
	}

	session := s.sessions.Create(grade, problems, s.now())
	return session.Snapshot(), nil
}

// GenerateProblems returns count problems without creating a session or
// resetting the recent window.
func (s *PracticeService) GenerateProblems(_ context.Context, grade, count int) ([]domain.Problem, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be at least 1, got %d", domain.ErrMalformedInput, count)
	}
	s.burstMu.Lock()
	defer s.burstMu.Unlock()
	return s.generateBurst(grade, count)
}

// ImportSession registers a session built from externally supplied problems.
// The session grade is taken from the first problem.
func (s *PracticeService) ImportSession(_ context.Context, problems []domain.Problem) (domain.PracticeSession, error) {
	if len(problems) == 0 {
		return domain.PracticeSession{}, fmt.Errorf("%w: no problems to import", domain.ErrMalformedInput)
	}
	session := s.sessions.Create(problems[0].Grade, problems, s.now())
	return session.Snapshot(), nil
}

// GetSession returns the current state of a session.
func (s *PracticeService) GetSession(_ context.Context, sessionID int64) (domain.PracticeSession, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.PracticeSession{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// SubmitAnswer grades one answer and records misses in the wrong-answer ledger.
func (s *PracticeService) SubmitAnswer(ctx context.Context, sessionID int64, problemIndex int, value float64) (bool, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return false, domain.ErrSessionNotFound
	}

	correct, problem, err := session.submit(problemIndex, value)
	if err != nil {
		return false, err
	}
	if !correct {
		if _, err := s.ledger.Record(ctx, problem, value, s.now()); err != nil {
			return false, fmt.Errorf("record wrong problem: %w", err)
		}
	}
	return correct, nil
}

// FinishSession completes a session, archives a history record and returns its summary.
// Finishing twice is allowed and archives a second record.
func (s *PracticeService) FinishSession(ctx context.Context, sessionID int64) (domain.SessionSummary, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSummary{}, domain.ErrSessionNotFound
	}

	summary, record := session.finish(s.now())
	if err := s.history.Append(ctx, record); err != nil {
		return domain.SessionSummary{}, fmt.Errorf("append history: %w", err)
	}
	return summary, nil
}

// QueryHistory lists archived sessions in append order.
func (s *PracticeService) QueryHistory(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryRecord, error) {
	return s.history.List(ctx, filter)
}

// QueryWrongProblems lists ledger entries in insertion order.
func (s *PracticeService) QueryWrongProblems(ctx context.Context, filter domain.WrongProblemFilter) ([]domain.WrongProblemEntry, error) {
	return s.ledger.List(ctx, filter)
}

// RemoveWrongProblem deletes a ledger entry; unknown ids are ignored.
func (s *PracticeService) RemoveWrongProblem(ctx context.Context, id string) error {
	return s.ledger.Remove(ctx, id)
}

func (s *PracticeService) generateBurst(grade, count int) ([]domain.Problem, error) {
	problems := make([]domain.Problem, 0, count)
	failures := 0
	for len(problems) < count {
		problem, err := s.generator.Generate(grade, domain.DefaultDifficulty)
		if errors.Is(err, domain.ErrInvalidGrade) {
			return nil, err
		}
		if err != nil {
			failures++
			log.Printf("generate problem %d for grade %d: %v", len(problems)+1, grade, err)
			if failures >= MaxFailedGenerations {
				return nil, fmt.Errorf("%w: %d of %d problems for grade %d", domain.ErrGenerationExhausted, len(problems), count, grade)
			}
			continue
		}
		problems = append(problems, problem)
	}
	return problems, nil
}
