package fileio

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"arithmetic-practice-service/internal/domain"
)

const documentPart = "word/document.xml"

// ImportDocx extracts the paragraph text of a Word document and parses it like plain text.
func (im *Importer) ImportDocx(r io.ReaderAt, size int64) ([]domain.Problem, error) {
	text, err := docxText(r, size)
	if err != nil {
		return nil, err
	}
	return im.ImportText(text)
}

func docxText(r io.ReaderAt, size int64) (string, error) {
	archive, err := zip.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("%w: open docx: %v", domain.ErrMalformedInput, err)
	}
	for _, f := range archive.File {
		if f.Name != documentPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", documentPart, err)
		}
		defer rc.Close()
		return paragraphText(rc)
	}
	return "", fmt.Errorf("%w: docx has no %s", domain.ErrMalformedInput, documentPart)
}

// paragraphText concatenates w:t runs, one line per w:p paragraph.
func paragraphText(r io.Reader) (string, error) {
	var (
		b      strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("%w: parse %s: %v", domain.ErrMalformedInput, documentPart, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte(' ')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p", "tc":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
}

// ExportDocx writes a minimal Word document: a centered title and a two-column
// table with each problem next to a blank answer line.
func ExportDocx(w io.Writer, problems []domain.Problem) error {
	zw := zip.NewWriter(w)
	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{documentPart, documentXML(problems)},
	}
	for _, part := range parts {
		fw, err := zw.Create(part.name)
		if err != nil {
			return fmt.Errorf("create %s: %w", part.name, err)
		}
		if _, err := io.WriteString(fw, part.body); err != nil {
			return fmt.Errorf("write %s: %w", part.name, err)
		}
	}
	return zw.Close()
}

const (
	exportTitle = "Mental Arithmetic Practice"
	answerBlank = "_______"

	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

	relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`
)

func documentXML(problems []domain.Problem) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	b.WriteString(`<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:rPr><w:b/><w:sz w:val="32"/></w:rPr>`)
	writeText(&b, exportTitle)
	b.WriteString(`</w:r></w:p>`)

	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="5000" w:type="pct"/></w:tblPr>`)
	b.WriteString(`<w:tblGrid><w:gridCol w:w="3000"/><w:gridCol w:w="3000"/></w:tblGrid>`)
	writeRow(&b, "Problem", "Answer", true)
	for _, p := range problems {
		writeRow(&b, p.Text, answerBlank, false)
	}
	b.WriteString(`</w:tbl><w:sectPr/></w:body></w:document>`)
	return b.String()
}

func writeRow(b *strings.Builder, left, right string, bold bool) {
	b.WriteString(`<w:tr>`)
	for _, cell := range []string{left, right} {
		b.WriteString(`<w:tc><w:tcPr><w:tcW w:w="2500" w:type="pct"/></w:tcPr><w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r>`)
		if bold {
			b.WriteString(`<w:rPr><w:b/></w:rPr>`)
		}
		writeText(b, cell)
		b.WriteString(`</w:r></w:p></w:tc>`)
	}
	b.WriteString(`</w:tr>`)
}

func writeText(b *strings.Builder, s string) {
	b.WriteString(`<w:t xml:space="preserve">`)
	_ = xml.EscapeText(b, []byte(s))
	b.WriteString(`</w:t>`)
}
