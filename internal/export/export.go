// Package export renders a calculation as a downloadable document.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/khoslavarun/QuoteBuilder/internal/quote"
)

type Format string

const (
	CSV      Format = "csv"
	XLSX     Format = "xlsx"
	Markdown Format = "md"
	HTML     Format = "html"
	Table    Format = "table"
)

var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts the format names used on the API and the CLI.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return CSV, nil
	case "xlsx", "excel":
		return XLSX, nil
	case "md", "markdown":
		return Markdown, nil
	case "html":
		return HTML, nil
	case "table", "text":
		return Table, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case Markdown:
		return "text/markdown; charset=utf-8"
	case HTML:
		return "text/html; charset=utf-8"
	case Table:
		return "text/plain; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

func (f Format) Extension() string {
	if f == Table {
		return "txt"
	}
	return string(f)
}

// Report is one calculation to render. Title defaults to "Quote".
type Report struct {
	Title  string
	Inputs *quote.Inputs
	Output quote.Output
}

func (r Report) title() string {
	if strings.TrimSpace(r.Title) == "" {
		return "Quote"
	}
	return r.Title
}

// Filename is a download name derived from the title.
func (r Report) Filename(f Format) string {
	var b strings.Builder
	for _, c := range strings.ToLower(r.title()) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteByte('-')
		}
	}
	name := strings.TrimSuffix(b.String(), "-")
	if name == "" {
		name = "quote"
	}
	return name + "." + f.Extension()
}

// Write renders r to w in format f.
func Write(w io.Writer, f Format, r Report) error {
	switch f {
	case CSV:
		return writeCSV(w, r)
	case XLSX:
		return writeXLSX(w, r)
	case Markdown:
		_, err := io.WriteString(w, renderMarkdown(r))
		return err
	case HTML:
		return writeHTML(w, r)
	case Table:
		return writeTable(w, r)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}
