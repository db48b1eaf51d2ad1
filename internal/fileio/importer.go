// Package fileio reads and writes problem sets as CSV, plain text and .docx documents.
package fileio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"arithmetic-practice-service/internal/domain"
)

var problemPattern = regexp.MustCompile(`(\d+)\s*([+\-−*×x÷/])\s*(\d+)\s*=\s*(\?|_+)`)

// Importer turns uploaded documents into problems with fresh ids.
// Grades are checked against, and inferred from, the rule table.
type Importer struct {
	rules  *domain.RuleTable
	lastID atomic.Int64
}

func NewImporter(rules *domain.RuleTable) *Importer {
	return NewImporterStartingAt(rules, time.Now().UnixMilli())
}

// NewImporterStartingAt makes problem ids predictable in tests.
func NewImporterStartingAt(rules *domain.RuleTable, firstID int64) *Importer {
	im := &Importer{rules: rules}
	im.lastID.Store(firstID - 1)
	return im
}

// Import dispatches on the file extension (.csv, .docx, .txt).
func (im *Importer) Import(filename string, r io.Reader) ([]domain.Problem, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return im.ImportCSV(r)
	case ".txt":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read text: %w", err)
		}
		return im.ImportText(string(data))
	case ".docx":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read docx: %w", err)
		}
		return im.ImportDocx(bytes.NewReader(data), int64(len(data)))
	default:
		return nil, fmt.Errorf("%w: unsupported file format %q", domain.ErrMalformedInput, ext)
	}
}

// ImportCSV reads rows with a NUM1,NUM2,OPERATION,GRADE header (DIFFICULTY optional,
// ANSWER ignored and recomputed). Invalid rows are skipped.
func (im *Importer) ImportCSV(r io.Reader) ([]domain.Problem, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty csv", domain.ErrMalformedInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read csv header: %v", domain.ErrMalformedInput, err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range []string{"num1", "num2", "operation", "grade"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: csv header missing %s", domain.ErrMalformedInput, strings.ToUpper(required))
		}
	}

	var problems []domain.Problem
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Printf("skip csv line %d: %v", line, err)
			continue
		}
		problem, err := im.problemFromRecord(record, columns)
		if err != nil {
			log.Printf("skip csv line %d: %v", line, err)
			continue
		}
		problems = append(problems, problem)
	}
	if len(problems) == 0 {
		return nil, fmt.Errorf("%w: no valid problems found in csv", domain.ErrMalformedInput)
	}
	return problems, nil
}

func (im *Importer) problemFromRecord(record []string, columns map[string]int) (domain.Problem, error) {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	a, err := strconv.Atoi(field("num1"))
	if err != nil {
		return domain.Problem{}, fmt.Errorf("%w: NUM1 %q", domain.ErrMalformedInput, field("num1"))
	}
	b, err := strconv.Atoi(field("num2"))
	if err != nil {
		return domain.Problem{}, fmt.Errorf("%w: NUM2 %q", domain.ErrMalformedInput, field("num2"))
	}
	grade, err := strconv.Atoi(field("grade"))
	if err != nil {
		return domain.Problem{}, fmt.Errorf("%w: GRADE %q", domain.ErrInvalidGrade, field("grade"))
	}
	if _, err := im.rules.Lookup(grade); err != nil {
		return domain.Problem{}, err
	}
	op, err := domain.ParseOperation(field("operation"))
	if err != nil {
		return domain.Problem{}, err
	}
	difficulty := field("difficulty")
	if difficulty == "" {
		difficulty = domain.DefaultDifficulty
	}
	return domain.NewProblem(im.lastID.Add(1), a, b, op, grade, difficulty)
}

// ImportText extracts every "a op b = ?" (or "= ___") occurrence from free text.
// The grade is inferred from the larger operand.
func (im *Importer) ImportText(text string) ([]domain.Problem, error) {
	var problems []domain.Problem
	for _, m := range problemPattern.FindAllStringSubmatch(text, -1) {
		problem, err := im.problemFromMatch(m)
		if err != nil {
			log.Printf("skip problem %q: %v", m[0], err)
			continue
		}
		problems = append(problems, problem)
	}
	if len(problems) == 0 {
		return nil, fmt.Errorf("%w: no valid problems found in document", domain.ErrMalformedInput)
	}
	return problems, nil
}

func (im *Importer) problemFromMatch(m []string) (domain.Problem, error) {
	a, err := strconv.Atoi(m[1])
	if err != nil {
		return domain.Problem{}, fmt.Errorf("%w: operand %q", domain.ErrMalformedInput, m[1])
	}
	b, err := strconv.Atoi(m[3])
	if err != nil {
		return domain.Problem{}, fmt.Errorf("%w: operand %q", domain.ErrMalformedInput, m[3])
	}
	op, err := domain.ParseOperation(m[2])
	if err != nil {
		return domain.Problem{}, err
	}
	return domain.NewProblem(im.lastID.Add(1), a, b, op, im.InferGrade(a, b), domain.DefaultDifficulty)
}

// InferGrade returns the lowest grade whose number range covers the larger
// operand, or the highest grade when none does.
func (im *Importer) InferGrade(a, b int) int {
	largest := max(a, b)
	grades := im.rules.Grades()
	for _, g := range grades {
		rule, err := im.rules.Lookup(g)
		if err == nil && largest <= rule.MaxNumber {
			return g
		}
	}
	return grades[len(grades)-1]
}
