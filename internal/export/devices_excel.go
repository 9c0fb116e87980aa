// Package export renders Jetstream data as xlsx workbooks.
package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"jetstream-go/jetstream/models"

	"github.com/xuri/excelize/v2"
)

const (
	DevicesSheet = "Devices"
	timeLayout   = "2006-01-02 15:04:05"
)

// DevicesHeader columns of the Devices sheet, in order
var DevicesHeader = []string{
	"Device Name",
	"Serial Number",
	"Device Definition",
	"Region",
	"Policy Name",
	"Policy Id",
	"Status",
	"Last Heartbeat (UTC)",
	"Aliases",
}

var devicesColumnWidths = []float64{25, 20, 25, 12, 25, 38, 12, 22, 30}

// DevicesWorkbook returns an xlsx file with one row per device, sorted by
// device name, under a styled and frozen header row.
func DevicesWorkbook(devices []models.Device) ([]byte, error) {
	sorted := make([]models.Device, len(devices))
	copy(sorted, devices)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	rows := make([][]interface{}, 0, len(sorted))
	for _, d := range sorted {
		rows = append(rows, []interface{}{
			d.Name,
			d.SerialNumber,
			d.DeviceDefinition,
			d.Region,
			d.PolicyName,
			d.PolicyId,
			d.Status,
			formatTime(d.LastHeartbeat),
			aliasNames(d.Aliases),
		})
	}
	return writeSheet(DevicesSheet, DevicesHeader, devicesColumnWidths, rows)
}

func writeSheet(sheetName string, headers []string, widths []float64, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open, so Close is called explicitly on every path

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i := range headers {
		if i >= len(widths) {
			break
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, widths[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func aliasNames(aliases []models.Alias) string {
	if len(aliases) == 0 {
		return ""
	}
	names := make([]string, 0, len(aliases))
	for _, a := range aliases {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}
