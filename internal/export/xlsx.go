package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/resume-intake/internal/candidate"
)

// SheetName is the worksheet holding the candidate rows.
const SheetName = "Candidates"

const maxSummaryLen = 500

type column struct {
	header string
	width  float64
	value  func(c candidate.Candidate) any
}

var columns = []column{
	{"Score", 8, func(c candidate.Candidate) any { return c.Score }},
	{"Name", 24, func(c candidate.Candidate) any { return c.Name }},
	{"Email", 30, func(c candidate.Candidate) any { return c.Email }},
	{"Phone", 18, func(c candidate.Candidate) any { return c.Phone }},
	{"Location", 20, func(c candidate.Candidate) any { return c.Location }},
	{"Job Title", 26, func(c candidate.Candidate) any { return c.JobTitle }},
	{"Experience (years)", 12, func(c candidate.Candidate) any { return c.Experience }},
	{"Education", 26, func(c candidate.Candidate) any { return c.Education }},
	{"Skills", 40, func(c candidate.Candidate) any { return strings.Join(c.Skills, ", ") }},
	{"Status", 18, func(c candidate.Candidate) any { return c.Status }},
	{"Approved", 10, func(c candidate.Candidate) any { return c.Approved }},
	{"Resume URL", 50, func(c candidate.Candidate) any { return c.ResumeURL }},
	{"Uploaded At", 22, func(c candidate.Candidate) any { return c.UploadedAt.UTC().Format(time.RFC3339) }},
	{"File", 28, func(c candidate.Candidate) any { return c.FileName }},
	{"Summary", 60, func(c candidate.Candidate) any { return truncate(c.ParsedText, maxSummaryLen) }},
}

// WriteXLSX writes the candidates as a single sheet workbook, in the order
// given.
func WriteXLSX(w io.Writer, candidates []candidate.Candidate) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, col.header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}

		name, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(SheetName, name, name, col.width)
	}

	for r, c := range candidates {
		for i, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			if err := f.SetCellValue(SheetName, cell, col.value(c)); err != nil {
				return fmt.Errorf("write row %d: %w", r+2, err)
			}
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
