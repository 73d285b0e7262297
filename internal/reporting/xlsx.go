package reporting

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rachel/recon/internal/detection"
)

const (
	resultsSheet = "Results"
	fieldsSheet  = "Fields"
)

// SaveXLSX writes one row per result on the Results sheet and one row per
// input field on the Fields sheet.
func SaveXLSX(report ScanReport, filename string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(fieldsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeRow(f, resultsSheet, 1, []interface{}{
		"URL", "Status", "Content-Type", "Duration (ms)", "Fields", "Probable Secrets", "Error",
	}); err != nil {
		return err
	}
	if err := writeRow(f, fieldsSheet, 1, []interface{}{
		"URL", "Tag", "Type", "Name", "ID", "Probable Secret", "Entropy", "CSRF Token", "Hidden", "Form Action", "Notes",
	}); err != nil {
		return err
	}
	for _, sheet := range []string{resultsSheet, fieldsSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, header); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}

	fieldRow := 2
	for i, r := range report.Results {
		if err := writeRow(f, resultsSheet, i+2, []interface{}{
			r.URL, r.StatusCode, r.ContentType, r.DurationMS, len(r.InputFields), r.SecretCount(), r.Error,
		}); err != nil {
			return err
		}

		for _, field := range r.InputFields {
			if err := writeRow(f, fieldsSheet, fieldRow, fieldRowValues(r.URL, field)); err != nil {
				return err
			}
			fieldRow++
		}
	}

	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("save xlsx report: %w", err)
	}
	return nil
}

func fieldRowValues(url string, field detection.InputField) []interface{} {
	entropy := ""
	if field.SecretEntropy != nil {
		entropy = fmt.Sprintf("%.2f", *field.SecretEntropy)
	}
	hidden := field.IsHidden != nil && *field.IsHidden
	return []interface{}{
		url,
		field.TagName,
		detection.Deref(field.InputType),
		detection.Deref(field.Name),
		detection.Deref(field.ID),
		field.ProbableSecret,
		entropy,
		field.LikelyCSRFToken,
		hidden,
		detection.Deref(field.FormAction),
		strings.Join(field.Notes, "; "),
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
