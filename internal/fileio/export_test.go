package fileio

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"arithmetic-practice-service/internal/domain"
)

func sampleProblems(t *testing.T) []domain.Problem {
	t.Helper()
	specs := []struct {
		a, b  int
		op    domain.Operation
		grade int
	}{
		{8, 5, domain.OpAdd, 1},
		{72, 8, domain.OpDivide, 4},
		{22, 3, domain.OpDivide, 6},
	}
	out := make([]domain.Problem, len(specs))
	for i, s := range specs {
		p, err := domain.NewProblem(int64(i+1), s.a, s.b, s.op, s.grade, domain.DefaultDifficulty)
		if err != nil {
			t.Fatalf("new problem: %v", err)
		}
		out[i] = p
	}
	return out
}

func TestExportCSVRoundTrip(t *testing.T) {
	problems := sampleProblems(t)

	var buf bytes.Buffer
	if err := Export(&buf, FormatCSV, problems); err != nil {
		t.Fatalf("export csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "NUM1,NUM2,OPERATION,ANSWER,GRADE,DIFFICULTY" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[3] != "22,3,÷,7.33,6,medium" {
		t.Fatalf("unexpected row %q", lines[3])
	}

	imported, err := NewImporter(domain.MustDefaultRuleTable()).ImportCSV(&buf)
	if err != nil {
		t.Fatalf("reimport: %v", err)
	}
	for i := range problems {
		if imported[i].Text != problems[i].Text || imported[i].Answer != problems[i].Answer || imported[i].Grade != problems[i].Grade {
			t.Fatalf("row %d changed: %+v vs %+v", i, imported[i], problems[i])
		}
	}
}

func TestExportDocxRoundTrip(t *testing.T) {
	problems := sampleProblems(t)

	var buf bytes.Buffer
	if err := Export(&buf, FormatDocx, problems); err != nil {
		t.Fatalf("export docx: %v", err)
	}

	text, err := docxText(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read docx: %v", err)
	}
	if !strings.Contains(text, exportTitle) {
		t.Fatalf("expected title in %q", text)
	}

	imported, err := NewImporter(domain.MustDefaultRuleTable()).Import("worksheet.docx", bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reimport docx: %v", err)
	}
	if len(imported) != len(problems) {
		t.Fatalf("expected %d problems, got %d", len(problems), len(imported))
	}
	if imported[1].Text != "72 ÷ 8 = ?" || imported[1].Answer != 9 {
		t.Fatalf("unexpected problem %+v", imported[1])
	}
	// Grades are inferred, not carried in the document.
	if imported[1].Grade != 2 {
		t.Fatalf("expected inferred grade 2, got %d", imported[1].Grade)
	}
}

func TestImportDocxRejectsGarbage(t *testing.T) {
	_, err := NewImporter(domain.MustDefaultRuleTable()).ImportDocx(strings.NewReader("not a zip"), 9)
	if !errors.Is(err, domain.ErrMalformedInput) {
		t.Fatalf("expected malformed input, got %v", err)
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	if err := Export(&bytes.Buffer{}, Format("pdf"), nil); !errors.Is(err, domain.ErrMalformedInput) {
		t.Fatalf("expected malformed input, got %v", err)
	}
}
