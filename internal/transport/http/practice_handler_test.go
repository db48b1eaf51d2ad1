package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"arithmetic-practice-service/internal/domain"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func call(t *testing.T, method, url string, body any) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(t, req)
}

func do(t *testing.T, req *http.Request) (int, apiResponse) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, out
}

func TestPracticeLifecycleOverREST(t *testing.T) {
	server, _ := newTestServer(t)

	status, resp := call(t, http.MethodPost, server.URL+"/api/practice/start", map[string]int{"grade": 3, "count": 4})
	if status != http.StatusOK || resp.Code != http.StatusOK {
		t.Fatalf("start: %d %s", status, resp.Message)
	}
	var session domain.PracticeSession
	if err := json.Unmarshal(resp.Data, &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if len(session.Problems) != 4 || len(session.Answers) != 4 {
		t.Fatalf("unexpected session %+v", session)
	}

	// practiceId as a string and answer as a string are both accepted.
	status, resp = call(t, http.MethodPost, server.URL+"/api/practice/submit", map[string]any{
		"practiceId":   fmt.Sprint(session.ID),
		"problemIndex": 0,
		"answer":       fmt.Sprint(session.Problems[0].Answer),
	})
	if status != http.StatusOK || !strings.Contains(string(resp.Data), `"isCorrect":true`) {
		t.Fatalf("submit correct: %d %s %s", status, resp.Message, resp.Data)
	}
	status, _ = call(t, http.MethodPost, server.URL+"/api/practice/submit", map[string]any{
		"practiceId":   session.ID,
		"problemIndex": 1,
		"answer":       session.Problems[1].Answer + 1,
	})
	if status != http.StatusOK {
		t.Fatalf("submit wrong: %d", status)
	}

	status, resp = call(t, http.MethodPost, server.URL+"/api/practice/finish", map[string]any{"practiceId": session.ID})
	if status != http.StatusOK {
		t.Fatalf("finish: %d %s", status, resp.Message)
	}
	var summary domain.SessionSummary
	_ = json.Unmarshal(resp.Data, &summary)
	if summary.Score != 50 || summary.Accuracy != "50.0" || summary.TotalCount != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	status, resp = call(t, http.MethodGet, server.URL+"/api/practice/history?grade=3", nil)
	var history []domain.HistoryRecord
	_ = json.Unmarshal(resp.Data, &history)
	if status != http.StatusOK || len(history) != 1 || history[0].ID != session.ID {
		t.Fatalf("unexpected history %d %+v", status, history)
	}

	status, resp = call(t, http.MethodGet, server.URL+"/api/practice/wrong-problems?grade=3", nil)
	var wrong []domain.WrongProblemEntry
	_ = json.Unmarshal(resp.Data, &wrong)
	if status != http.StatusOK || len(wrong) != 1 {
		t.Fatalf("unexpected wrong problems %d %+v", status, wrong)
	}

	status, _ = call(t, http.MethodPost, server.URL+"/api/practice/remove-wrong-problem", map[string]string{"problemId": wrong[0].ID})
	if status != http.StatusOK {
		t.Fatalf("remove: %d", status)
	}
	_, resp = call(t, http.MethodGet, server.URL+"/api/practice/wrong-problems", nil)
	if string(resp.Data) != "[]" {
		t.Fatalf("expected empty ledger, got %s", resp.Data)
	}

	status, resp = call(t, http.MethodGet, fmt.Sprintf("%s/api/practice/%d", server.URL, session.ID), nil)
	_ = json.Unmarshal(resp.Data, &session)
	if status != http.StatusOK || !session.IsCompleted {
		t.Fatalf("expected completed session, got %d %+v", status, session)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"invalid grade", http.MethodPost, "/api/practice/start", map[string]int{"grade": 7}, http.StatusBadRequest},
		{"count too large", http.MethodPost, "/api/problem/generate", map[string]int{"grade": 1, "count": 51}, http.StatusBadRequest},
		{"unknown session", http.MethodPost, "/api/practice/finish", map[string]int{"practiceId": 42}, http.StatusNotFound},
		{"non-numeric answer", http.MethodPost, "/api/practice/submit", map[string]any{"practiceId": 1, "problemIndex": 0, "answer": "abc"}, http.StatusBadRequest},
		{"bad date", http.MethodGet, "/api/practice/history?startDate=yesterday", nil, http.StatusBadRequest},
		{"bad operation", http.MethodGet, "/api/practice/wrong-problems?operation=%25", nil, http.StatusBadRequest},
		{"unknown practice", http.MethodGet, "/api/practice/12345", nil, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := call(t, tc.method, server.URL+tc.path, tc.body)
			if status != tc.status || resp.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, status, resp.Message)
			}
		})
	}
}

func TestGenerateAndGrades(t *testing.T) {
	server, _ := newTestServer(t)

	status, resp := call(t, http.MethodPost, server.URL+"/api/problem/generate", map[string]int{"grade": 4})
	var problems []domain.Problem
	_ = json.Unmarshal(resp.Data, &problems)
	if status != http.StatusOK || len(problems) != 10 {
		t.Fatalf("expected default count of 10, got %d (%d)", len(problems), status)
	}

	status, resp = call(t, http.MethodGet, server.URL+"/api/problem/grades", nil)
	var grades []gradeInfo
	_ = json.Unmarshal(resp.Data, &grades)
	if status != http.StatusOK || len(grades) != 6 || grades[3].Grade != 4 || len(grades[3].Operations) != 4 {
		t.Fatalf("unexpected grades %+v", grades)
	}
}

func TestImportAndExport(t *testing.T) {
	server, _ := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "worksheet.csv")
	_, _ = io.WriteString(part, "NUM1,NUM2,OPERATION,ANSWER,GRADE,DIFFICULTY\n22,3,/,,6,medium\n8,5,+,,1,\n")
	_ = mw.Close()

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/file/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	status, resp := do(t, req)
	if status != http.StatusOK {
		t.Fatalf("import: %d %s", status, resp.Message)
	}
	var session domain.PracticeSession
	_ = json.Unmarshal(resp.Data, &session)
	if len(session.Problems) != 2 || session.Grade != 6 || session.Problems[0].Answer != 7.33 {
		t.Fatalf("unexpected imported session %+v", session)
	}

	payload, _ := json.Marshal(map[string]any{"format": "csv", "problems": session.Problems})
	httpResp, err := http.Post(server.URL+"/api/file/export", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer httpResp.Body.Close()
	exported, _ := io.ReadAll(httpResp.Body)
	if httpResp.StatusCode != http.StatusOK || !strings.HasPrefix(httpResp.Header.Get("Content-Disposition"), "attachment;") {
		t.Fatalf("unexpected export response %d %v", httpResp.StatusCode, httpResp.Header)
	}
	if !strings.Contains(string(exported), "22,3,÷,7.33,6,medium") {
		t.Fatalf("unexpected csv %q", exported)
	}

	status, _ = call(t, http.MethodPost, server.URL+"/api/file/export", map[string]any{"format": "pdf"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported format, got %d", status)
	}
}

func TestCORSPreflight(t *testing.T) {
	server, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/api/practice/start", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected preflight response %d %v", resp.StatusCode, resp.Header)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("wrap: %w", domain.ErrInvalidGrade), http.StatusBadRequest},
		{domain.ErrDivisionByZero, http.StatusBadRequest},
		{domain.ErrProblemNotFound, http.StatusNotFound},
		{domain.ErrGenerationExhausted, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := statusFor(tc.err); got != tc.status {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.status)
		}
	}
}
