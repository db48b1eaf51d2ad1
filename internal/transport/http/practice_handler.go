package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"arithmetic-practice-service/internal/app"
	"arithmetic-practice-service/internal/domain"
	"arithmetic-practice-service/internal/fileio"
	"github.com/gorilla/mux"
)

const maxUploadBytes = 10 << 20

// Limits bounds how many problems a single request may ask for.
type Limits struct {
	DefaultCount int
	MaxCount     int
}

func (l Limits) normalized() Limits {
	if l.DefaultCount <= 0 {
		l.DefaultCount = 10
	}
	if l.MaxCount < l.DefaultCount {
		l.MaxCount = max(l.DefaultCount, 100)
	}
	return l
}

// PracticeHandler serves the REST practice, problem and file endpoints.
type PracticeHandler struct {
	service  *app.PracticeService
	importer *fileio.Importer
	rules    *domain.RuleTable
	limits   Limits
	now      func() time.Time
}

func NewPracticeHandler(service *app.PracticeService, importer *fileio.Importer, rules *domain.RuleTable, limits Limits) *PracticeHandler {
	return &PracticeHandler{
		service:  service,
		importer: importer,
		rules:    rules,
		limits:   limits.normalized(),
		now:      time.Now,
	}
}

// flexNumber accepts a JSON number or a numeric string.
type flexNumber string

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = flexNumber(s)
		return nil
	}
	*n = flexNumber(data)
	return nil
}

func (n flexNumber) int64() (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", domain.ErrMalformedInput, string(n))
	}
	return v, nil
}

type countRequest struct {
	Grade int `json:"grade"`
	Count int `json:"count"`
}

type submitRequest struct {
	PracticeID   flexNumber `json:"practiceId"`
	ProblemIndex int        `json:"problemIndex"`
	Answer       flexNumber `json:"answer"`
}

type finishRequest struct {
	PracticeID flexNumber `json:"practiceId"`
}

type removeWrongRequest struct {
	ProblemID string `json:"problemId"`
}

type exportRequest struct {
	Format   fileio.Format    `json:"format"`
	Problems []domain.Problem `json:"problems"`
}

type gradeInfo struct {
	Grade       int                `json:"grade"`
	MaxNumber   int                `json:"maxNumber"`
	Description string             `json:"description"`
	Operations  []domain.Operation `json:"operations"`
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrMalformedInput, err)
	}
	return nil
}

func (h *PracticeHandler) count(requested int) (int, error) {
	switch {
	case requested == 0:
		return h.limits.DefaultCount, nil
	case requested < 0 || requested > h.limits.MaxCount:
		return 0, fmt.Errorf("%w: count must be between 1 and %d", domain.ErrMalformedInput, h.limits.MaxCount)
	default:
		return requested, nil
	}
}

// Start handles POST /api/practice/start
func (h *PracticeHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req countRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	count, err := h.count(req.Count)
	if err != nil {
		writeError(w, err)
		return
	}
	session, err := h.service.StartSession(r.Context(), req.Grade, count)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, session, "Practice started successfully")
}

// Submit handles POST /api/practice/submit
func (h *PracticeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, err := req.PracticeID.int64()
	if err != nil {
		writeError(w, err)
		return
	}
	value, err := domain.ParseAnswer(string(req.Answer))
	if err != nil {
		writeError(w, err)
		return
	}
	correct, err := h.service.SubmitAnswer(r.Context(), id, req.ProblemIndex, value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"isCorrect": correct}, "Answer submitted successfully")
}

// Finish handles POST /api/practice/finish
func (h *PracticeHandler) Finish(w http.ResponseWriter, r *http.Request) {
	var req finishRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, err := req.PracticeID.int64()
	if err != nil {
		writeError(w, err)
		return
	}
	summary, err := h.service.FinishSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, summary, "Practice completed successfully")
}

// Get handles GET /api/practice/{id}
func (h *PracticeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := flexNumber(mux.Vars(r)["id"]).int64()
	if err != nil {
		writeError(w, err)
		return
	}
	session, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, session, "Success")
}

// History handles GET /api/practice/history?grade=&startDate=&endDate=
func (h *PracticeHandler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		filter domain.HistoryFilter
		err    error
	)
	if filter.Grade, err = optionalInt(q.Get("grade")); err != nil {
		writeError(w, err)
		return
	}
	if filter.From, err = parseDate(q.Get("startDate"), false); err != nil {
		writeError(w, err)
		return
	}
	if filter.To, err = parseDate(q.Get("endDate"), true); err != nil {
		writeError(w, err)
		return
	}
	records, err := h.service.QueryHistory(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, records, "Success")
}

// WrongProblems handles GET /api/practice/wrong-problems?grade=&operation=
func (h *PracticeHandler) WrongProblems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		filter domain.WrongProblemFilter
		err    error
	)
	if filter.Grade, err = optionalInt(q.Get("grade")); err != nil {
		writeError(w, err)
		return
	}
	if raw := q.Get("operation"); raw != "" {
		// An unescaped "+" arrives as a space.
		if strings.TrimSpace(raw) == "" {
			raw = "+"
		}
		if filter.Operation, err = domain.ParseOperation(raw); err != nil {
			writeError(w, err)
			return
		}
	}
	entries, err := h.service.QueryWrongProblems(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, entries, "Success")
}

// RemoveWrongProblem handles POST /api/practice/remove-wrong-problem
func (h *PracticeHandler) RemoveWrongProblem(w http.ResponseWriter, r *http.Request) {
	var req removeWrongRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.RemoveWrongProblem(r.Context(), req.ProblemID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, nil, "Problem removed from wrong problems list")
}

// Generate handles POST /api/problem/generate
func (h *PracticeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req countRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	count, err := h.count(req.Count)
	if err != nil {
		writeError(w, err)
		return
	}
	problems, err := h.service.GenerateProblems(r.Context(), req.Grade, count)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, problems, "Success")
}

// Grades handles GET /api/problem/grades
func (h *PracticeHandler) Grades(w http.ResponseWriter, r *http.Request) {
	grades := make([]gradeInfo, 0)
	for _, g := range h.rules.Grades() {
		rule, err := h.rules.Lookup(g)
		if err != nil {
			writeError(w, err)
			return
		}
		grades = append(grades, gradeInfo{
			Grade:       rule.Grade,
			MaxNumber:   rule.MaxNumber,
			Description: rule.Description,
			Operations:  rule.Operations,
		})
	}
	writeJSON(w, grades, "Success")
}

// Import handles POST /api/file/import (multipart field "file")
func (h *PracticeHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: no file uploaded", domain.ErrMalformedInput))
		return
	}
	defer file.Close()

	problems, err := h.importer.Import(header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	session, err := h.service.ImportSession(r.Context(), problems)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, session, "Problems imported successfully")
}

// Export handles POST /api/file/export and streams the document as an attachment.
func (h *PracticeHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	// Text and answer are recomputed from the operands.
	problems := make([]domain.Problem, 0, len(req.Problems))
	for _, p := range req.Problems {
		op, err := domain.ParseOperation(string(p.Operation))
		if err != nil {
			writeError(w, err)
			return
		}
		rebuilt, err := domain.NewProblem(p.ID, p.Operand1, p.Operand2, op, p.Grade, p.Difficulty)
		if err != nil {
			writeError(w, err)
			return
		}
		problems = append(problems, rebuilt)
	}
	var buf bytes.Buffer
	if err := fileio.Export(&buf, req.Format, problems); err != nil {
		writeError(w, err)
		return
	}
	filename := fmt.Sprintf("problems_%d.%s", h.now().UnixMilli(), req.Format)
	w.Header().Set("Content-Type", req.Format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func optionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", domain.ErrMalformedInput, raw)
	}
	return v, nil
}

// parseDate accepts RFC 3339 timestamps or plain dates. A plain end date
// covers the whole day.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q", domain.ErrMalformedInput, raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
