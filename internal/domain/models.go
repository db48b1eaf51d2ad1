package domain

import "time"

// DefaultDifficulty is the only difficulty tag the generator currently emits.
const DefaultDifficulty = "medium"

// Problem is a single arithmetic exercise. Answer and Text are derived from the
// operands and operation; build problems with NewProblem to keep them in sync.
type Problem struct {
	ID         int64     `json:"id"`
	Operand1   int       `json:"num1"`
	Operand2   int       `json:"num2"`
	Operation  Operation `json:"operation"`
	Answer     float64   `json:"answer"`
	Grade      int       `json:"grade"`
	Difficulty string    `json:"difficulty"`
	Text       string    `json:"text"`
}

// Answer is a graded submission for one problem of a session.
type Answer struct {
	Value     float64 `json:"value"`
	IsCorrect bool    `json:"isCorrect"`
}

// PracticeSession is a point-in-time copy of a session. Answers is index-aligned
// with Problems; a nil entry means the problem has not been submitted yet.
type PracticeSession struct {
	ID          int64      `json:"id"`
	Grade       int        `json:"grade"`
	Problems    []Problem  `json:"problems"`
	Answers     []*Answer  `json:"answers"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
	Score       int        `json:"score"`
	Accuracy    string     `json:"accuracy,omitempty"`
	TotalTime   float64    `json:"totalTime,omitempty"`
}

// SessionSummary is returned when a session is finished.
type SessionSummary struct {
	Score        int     `json:"score"`
	Accuracy     string  `json:"accuracy"`
	TotalTime    float64 `json:"totalTime"` // seconds
	CorrectCount int     `json:"correctCount"`
	TotalCount   int     `json:"totalCount"` // answered problems only
}

// WrongProblemEntry is a ledger row for a problem the learner missed.
// Entries are keyed by Problem.Text; Problem is a full copy.
type WrongProblemEntry struct {
	ID            string    `json:"id"`
	Problem       Problem   `json:"problem"`
	WrongAnswer   float64   `json:"wrongAnswer"`
	WrongCount    int       `json:"wrongCount"`
	LastWrongDate time.Time `json:"lastWrongDate"`
	Mastered      bool      `json:"mastered"`
}

// HistoryProblem is a problem annotated with what the learner submitted.
type HistoryProblem struct {
	Problem
	UserAnswer *float64 `json:"userAnswer,omitempty"`
	IsCorrect  *bool    `json:"isCorrect,omitempty"`
}

// HistoryRecord is the immutable archive entry written when a session finishes.
type HistoryRecord struct {
	ID            int64            `json:"id"`
	Date          time.Time        `json:"date"`
	Grade         int              `json:"grade"`
	ProblemCount  int              `json:"problemCount"`
	CorrectCount  int              `json:"correctCount"`
	TotalAnswered int              `json:"totalAnswered"`
	Score         int              `json:"score"`
	Accuracy      string           `json:"accuracy"`
	TotalTime     float64          `json:"totalTime"`
	Problems      []HistoryProblem `json:"problems"`
}

// Clone deep-copies the record so archived entries cannot be mutated through a copy.
func (r HistoryRecord) Clone() HistoryRecord {
	out := r
	out.Problems = make([]HistoryProblem, len(r.Problems))
	for i, p := range r.Problems {
		out.Problems[i] = p
		if p.UserAnswer != nil {
			v := *p.UserAnswer
			out.Problems[i].UserAnswer = &v
		}
		if p.IsCorrect != nil {
			v := *p.IsCorrect
			out.Problems[i].IsCorrect = &v
		}
	}
	return out
}

// HistoryFilter selects history records. Zero values match everything;
// From and To are inclusive.
type HistoryFilter struct {
	Grade int
	From  *time.Time
	To    *time.Time
}

// Match reports whether rec passes the filter.
func (f HistoryFilter) Match(rec HistoryRecord) bool {
	if f.Grade != 0 && rec.Grade != f.Grade {
		return false
	}
	if f.From != nil && rec.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && rec.Date.After(*f.To) {
		return false
	}
	return true
}

// WrongProblemFilter selects ledger entries by grade and/or operation.
type WrongProblemFilter struct {
	Grade     int
	Operation Operation
}

// Match reports whether entry passes the filter.
func (f WrongProblemFilter) Match(entry WrongProblemEntry) bool {
	if f.Grade != 0 && entry.Problem.Grade != f.Grade {
		return false
	}
	if f.Operation != "" && entry.Problem.Operation != f.Operation {
		return false
	}
	return true
}
