package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/omarmustafa130/LoomAutomation/internal/models"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
	th "github.com/omarmustafa130/LoomAutomation/internal/testing"
	"github.com/xuri/excelize/v2"
)

func testRecords() []models.VideoRecord {
	return []models.VideoRecord{
		{Sequence: 1, Title: "clip1.mp4", ReferenceURL: "https://www.loom.com/share/abc", EmbedSnippet: "<iframe src=\"x\"></iframe>", Status: models.StatusRecorded},
		{Sequence: 2, Title: "clip2.mp4", ReferenceURL: "https://www.loom.com/share/def", EmbedSnippet: models.EmbedFailedSentinel, Status: models.StatusFailedRetryable, EmbedAttempts: 3},
		{Sequence: 3, Title: "broken|name.mp4", Status: models.StatusFailedTerminal},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testRecords())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Video Title,URL,Embed Code\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, `"<iframe src=""x""></iframe>"`) {
			t.Errorf("CSV missing quoted embed, got: %s", output)
		}
		if !strings.Contains(output, "clip2.mp4,https://www.loom.com/share/def,"+models.EmbedFailedSentinel) {
			t.Errorf("CSV missing embed sentinel, got: %s", output)
		}
		if !strings.Contains(output, "broken|name.mp4,"+models.UploadFailedSentinel+","+models.UploadFailedSentinel) {
			t.Errorf("CSV missing upload sentinel, got: %s", output)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(testRecords())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded []map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 3 || decoded[0]["url"] != "https://www.loom.com/share/abc" || decoded[1]["status"] != "failed_retryable" {
			t.Errorf("unexpected JSON %s", data)
		}

		empty, _ := ExportToJSON(nil)
		if strings.TrimSpace(string(empty)) != "[]" {
			t.Errorf("expected empty array, got %s", empty)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(testRecords())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "**Videos**: 3") {
			t.Errorf("Markdown missing count, got: %s", output)
		}
		if !strings.Contains(output, `| 3 | broken\|name.mp4 |`) {
			t.Errorf("Markdown cell not escaped, got: %s", output)
		}
		if strings.Contains(output, "<iframe") {
			t.Error("Markdown must not include embed snippets")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testRecords())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		if !strings.Contains(string(data), "1. clip1.mp4 - https://www.loom.com/share/abc [recorded]") {
			t.Errorf("unexpected text %s", data)
		}
	})

	t.Run("ExportToTable", func(t *testing.T) {
		output := ExportToTable(testRecords())
		for _, want := range []string{"TITLE", "clip1.mp4", "failed_terminal", "yes"} {
			if !strings.Contains(output, want) {
				t.Errorf("table missing %q:\n%s", want, output)
			}
		}
	})
}

func TestRender(t *testing.T) {
	tests := []struct {
		format  string
		prefix  string
		wantErr error
	}{
		{format: "json", prefix: "["},
		{format: "CSV", prefix: "Video Title"},
		{format: "md", prefix: "# Uploaded videos"},
		{format: "text", prefix: "Videos: 3"},
		{format: "", prefix: ""},
		{format: "yaml", wantErr: shared.ErrInvalidFlag},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			data, err := Render(tt.format, testRecords())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.HasPrefix(string(data), tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, data)
			}
		})
	}
}

func TestSpreadsheet(t *testing.T) {
	t.Run("WriteXLSX", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "uploaded_videos.xlsx")
		if err := WriteXLSX(testRecords(), path); err != nil {
			t.Fatalf("WriteXLSX failed: %v", err)
		}
		th.AssertFileExists(t, path)

		f, err := excelize.OpenFile(path)
		if err != nil {
			t.Fatalf("failed to open workbook: %v", err)
		}
		defer f.Close()

		if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != SheetName {
			t.Errorf("unexpected sheets %v", sheets)
		}

		rows, err := f.GetRows(SheetName)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 4 {
			t.Fatalf("expected 4 rows, got %d", len(rows))
		}
		if strings.Join(rows[0], ",") != "Video Title,URL,Embed Code" {
			t.Errorf("unexpected header %v", rows[0])
		}
		if rows[3][1] != models.UploadFailedSentinel {
			t.Errorf("expected upload sentinel, got %v", rows[3])
		}
	})

	t.Run("ReadXLSX round trips display rows", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "uploaded_videos.xlsx")
		if err := WriteXLSX(testRecords(), path); err != nil {
			t.Fatal(err)
		}

		records, err := ReadXLSX(path)
		if err != nil {
			t.Fatalf("ReadXLSX failed: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}
		if records[0].EmbedSnippet != `<iframe src="x"></iframe>` {
			t.Errorf("unexpected snippet %q", records[0].EmbedSnippet)
		}
		if records[1].EmbedSnippet != "" || records[2].ReferenceURL != "" {
			t.Errorf("sentinels should read back empty: %+v", records[1:])
		}
	})

	t.Run("WriteXLSX requires a path", func(t *testing.T) {
		if err := WriteXLSX(nil, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("ReadXLSX missing file", func(t *testing.T) {
		if _, err := ReadXLSX(filepath.Join(t.TempDir(), "nope.xlsx")); err == nil {
			t.Error("expected error")
		}
	})
}
