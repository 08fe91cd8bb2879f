// package formatter renders ledger rows as tables, CSV, JSON, Markdown, plain text and spreadsheets
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/omarmustafa130/LoomAutomation/internal/models"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
	"github.com/xuri/excelize/v2"
)

// SheetName is the single sheet of the spreadsheet export.
const SheetName = "Videos"

// Header is the column layout shared by the CSV and spreadsheet exports.
var Header = []string{"Video Title", "URL", "Embed Code"}

// Formats accepted by [Render].
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// Render formats records according to format.
func Render(format string, records []models.VideoRecord) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatTable, "":
		return []byte(ExportToTable(records) + "\n"), nil
	case FormatJSON:
		return ExportToJSON(records)
	case FormatCSV:
		return ExportToCSV(records)
	case FormatMarkdown, "md":
		return ExportToMarkdown(records)
	case FormatText, "txt":
		return ExportToText(records)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

func row(rec models.VideoRecord) []string {
	return []string{rec.Title, rec.DisplayURL(), rec.DisplayEmbed()}
}

// ExportToCSV converts ledger rows to CSV with the columns of [Header]
func ExportToCSV(records []models.VideoRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(Header); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, rec := range records {
		if err := writer.Write(row(rec)); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts ledger rows to an indented JSON array
func ExportToJSON(records []models.VideoRecord) ([]byte, error) {
	if records == nil {
		records = []models.VideoRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToMarkdown converts ledger rows to a Markdown table. Embed snippets are left out.
func ExportToMarkdown(records []models.VideoRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Uploaded videos\n\n")
	buf.WriteString(fmt.Sprintf("**Videos**: %d\n\n", len(records)))
	buf.WriteString("| # | Title | URL | Status |\n")
	buf.WriteString("|---|-------|-----|--------|\n")
	for _, rec := range records {
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n",
			rec.Sequence, escapeCell(rec.Title), escapeCell(rec.DisplayURL()), rec.Status))
	}

	return buf.Bytes(), nil
}

// ExportToText converts ledger rows to a numbered plain text list
func ExportToText(records []models.VideoRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Videos: %d\n\n", len(records)))
	for _, rec := range records {
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n", rec.Sequence, rec.Title, rec.DisplayURL(), rec.Status))
	}

	return buf.Bytes(), nil
}

// ExportToTable renders ledger rows as a bordered terminal table.
func ExportToTable(records []models.VideoRecord) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		embed := "yes"
		if !rec.HasEmbed() {
			embed = rec.DisplayEmbed()
			if embed == "" {
				embed = "-"
			}
		}
		rows = append(rows, []string{strconv.FormatInt(rec.Sequence, 10), truncate(rec.Title, 40), rec.DisplayURL(), string(rec.Status), embed})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "TITLE", "URL", "STATUS", "EMBED").
		Rows(rows...).
		String()
}

// ExportToXLSX builds a workbook with a single [SheetName] sheet.
func ExportToXLSX(records []models.VideoRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(SheetName, "A1", "C1", style)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []any{rec.Title, rec.DisplayURL(), rec.DisplayEmbed()}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 40)
	_ = f.SetColWidth(SheetName, "B", "B", 50)
	_ = f.SetColWidth(SheetName, "C", "C", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteXLSX writes the spreadsheet export to path, replacing it atomically.
func WriteXLSX(records []models.VideoRecord, path string) error {
	if path == "" {
		return fmt.Errorf("%w: output path is required", shared.ErrMissingArgument)
	}

	data, err := ExportToXLSX(records)
	if err != nil {
		return err
	}

	if err := shared.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}

// ReadXLSX reads title, URL and embed rows from a spreadsheet export.
//
// The [SheetName] sheet is preferred, falling back to the first sheet. The header row and
// rows without a title are skipped. Sentinel cells are returned as empty strings.
func ReadXLSX(path string) ([]models.VideoRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheet := SheetName
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	var records []models.VideoRecord
	for i, cells := range rows {
		if i == 0 {
			continue
		}
		cell := func(n int) string {
			if n < len(cells) {
				return strings.TrimSpace(cells[n])
			}
			return ""
		}

		rec := models.VideoRecord{Title: cell(0), ReferenceURL: cell(1), EmbedSnippet: cell(2)}
		if rec.Title == "" {
			continue
		}
		if rec.ReferenceURL == models.UploadFailedSentinel {
			rec.ReferenceURL = ""
		}
		if rec.EmbedSnippet == models.UploadFailedSentinel || rec.EmbedSnippet == models.EmbedFailedSentinel {
			rec.EmbedSnippet = ""
		}
		records = append(records, rec)
	}

	return records, nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
