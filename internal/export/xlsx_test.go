package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/resume-intake/internal/candidate"
)

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	candidates := []candidate.Candidate{
		{
			ID: "1",
			Fields: candidate.Fields{
				Name:       "Jane Doe",
				Email:      "jane@example.com",
				Score:      91,
				Skills:     []string{"Go", "Postgres"},
				ParsedText: strings.Repeat("s", 800),
				Experience: 7,
			},
			ResumeURL:  "https://blobs.example.com/1",
			UploadedAt: at,
			Status:     candidate.StatusOK,
			FileName:   "jane.pdf",
		},
		{
			ID:        "2",
			Fields:    candidate.Fields{Name: string(candidate.ReasonInsufficientText)},
			ResumeURL: candidate.ResumeURLNone,
			Status:    string(candidate.ReasonInsufficientText),
		},
	}

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, candidates); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Score" || rows[0][len(columns)-1] != "Summary" {
		t.Fatalf("unexpected header %v", rows[0])
	}

	first := rows[1]
	if first[0] != "91" || first[1] != "Jane Doe" || first[8] != "Go, Postgres" {
		t.Fatalf("unexpected first row %v", first)
	}
	if first[12] != "2025-05-06T07:08:09Z" {
		t.Fatalf("unexpected timestamp %q", first[12])
	}
	if n := len([]rune(first[14])); n != maxSummaryLen {
		t.Fatalf("expected summary truncated to %d runes, got %d", maxSummaryLen, n)
	}

	if rows[2][9] != string(candidate.ReasonInsufficientText) || rows[2][11] != candidate.ResumeURLNone {
		t.Fatalf("unexpected sentinel row %v", rows[2])
	}
}

func TestWriteXLSXEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != SheetName {
		t.Fatalf("unexpected sheets %v", sheets)
	}
}
