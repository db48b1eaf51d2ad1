package app

import (
	"math"
	"strconv"
	"sync"
	"time"

	"arithmetic-practice-service/internal/domain"
)

// Session is an in-memory practice attempt. The answers slice has the same
// length as problems for the whole lifetime of the session.
type Session struct {
	id       int64
	grade    int
	problems []domain.Problem

	mu        sync.RWMutex
	answers   []*domain.Answer
	startTime time.Time
	endTime   time.Time
	completed bool
	summary   domain.SessionSummary
}

// NewSession is exported for the store implementations that allocate ids.
func NewSession(id int64, grade int, problems []domain.Problem, startedAt time.Time) *Session {
	owned := make([]domain.Problem, len(problems))
	copy(owned, problems)
	return &Session{
		id:        id,
		grade:     grade,
		problems:  owned,
		answers:   make([]*domain.Answer, len(owned)),
		startTime: startedAt,
	}
}

func (s *Session) ID() int64 {
	return s.id
}

// submit grades value against problem index and stores it, replacing any
// earlier submission for the same index.
func (s *Session) submit(index int, value float64) (bool, domain.Problem, error) {
	if index < 0 || index >= len(s.problems) {
		return false, domain.Problem{}, domain.ErrProblemNotFound
	}
	problem := s.problems[index]
	correct := domain.AnswerMatches(problem.Answer, value)

	s.mu.Lock()
	s.answers[index] = &domain.Answer{Value: value, IsCorrect: correct}
	s.mu.Unlock()

	return correct, problem, nil
}

// finish marks the session completed and builds the summary and history record.
// Calling it again recomputes both with a later end time.
func (s *Session) finish(now time.Time) (domain.SessionSummary, domain.HistoryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Postgres keeps microseconds; every history backend must see the same instant.
	now = now.Truncate(time.Microsecond)
	s.endTime = now
	s.completed = true

	answered, correct := 0, 0
	annotated := make([]domain.HistoryProblem, len(s.problems))
	for i, problem := range s.problems {
		annotated[i] = domain.HistoryProblem{Problem: problem}
		answer := s.answers[i]
		if answer == nil {
			continue
		}
		answered++
		if answer.IsCorrect {
			correct++
		}
		value, isCorrect := answer.Value, answer.IsCorrect
		annotated[i].UserAnswer = &value
		annotated[i].IsCorrect = &isCorrect
	}

	score, accuracy := scoreOf(correct, answered)
	s.summary = domain.SessionSummary{
		Score:        score,
		Accuracy:     accuracy,
		TotalTime:    s.endTime.Sub(s.startTime).Seconds(),
		CorrectCount: correct,
		TotalCount:   answered,
	}

	record := domain.HistoryRecord{
		ID:            s.id,
		Date:          now,
		Grade:         s.grade,
		ProblemCount:  len(s.problems),
		CorrectCount:  correct,
		TotalAnswered: answered,
		Score:         score,
		Accuracy:      accuracy,
		TotalTime:     s.summary.TotalTime,
		Problems:      annotated,
	}
	return s.summary, record
}

// Snapshot copies the session state for callers outside the package.
func (s *Session) Snapshot() domain.PracticeSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	problems := make([]domain.Problem, len(s.problems))
	copy(problems, s.problems)
	answers := make([]*domain.Answer, len(s.answers))
	for i, a := range s.answers {
		if a != nil {
			c := *a
			answers[i] = &c
		}
	}

	snap := domain.PracticeSession{
		ID:          s.id,
		Grade:       s.grade,
		Problems:    problems,
		Answers:     answers,
		StartTime:   s.startTime,
		IsCompleted: s.completed,
	}
	if s.completed {
		end := s.endTime
		snap.EndTime = &end
		snap.Score = s.summary.Score
		snap.Accuracy = s.summary.Accuracy
		snap.TotalTime = s.summary.TotalTime
	}
	return snap
}

// scoreOf returns the rounded percentage score and the one-decimal accuracy.
// Unanswered problems are excluded; nothing answered scores 0.
func scoreOf(correct, answered int) (int, string) {
	if answered == 0 {
		return 0, "0"
	}
	ratio := float64(correct) / float64(answered) * 100
	return int(math.Round(ratio)), strconv.FormatFloat(ratio, 'f', 1, 64)
}
