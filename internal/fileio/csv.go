package fileio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"arithmetic-practice-service/internal/domain"
)

var csvHeader = []string{"NUM1", "NUM2", "OPERATION", "ANSWER", "GRADE", "DIFFICULTY"}

// ExportCSV writes problems in the same column layout ImportCSV accepts.
func ExportCSV(w io.Writer, problems []domain.Problem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range problems {
		row := []string{
			strconv.Itoa(p.Operand1),
			strconv.Itoa(p.Operand2),
			string(p.Operation),
			strconv.FormatFloat(p.Answer, 'f', -1, 64),
			strconv.Itoa(p.Grade),
			p.Difficulty,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Format names an export document type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatDocx Format = "docx"
)

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatDocx:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Export writes problems in the requested format.
func Export(w io.Writer, format Format, problems []domain.Problem) error {
	switch format {
	case FormatCSV:
		return ExportCSV(w, problems)
	case FormatDocx:
		return ExportDocx(w, problems)
	default:
		return fmt.Errorf("%w: unsupported export format %q", domain.ErrMalformedInput, format)
	}
}
