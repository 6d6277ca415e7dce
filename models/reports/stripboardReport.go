package reports

import (
	"fmt"
	"io"

	"bitbucket.org/mmdatafocus/stripboard_backend/models"
	"bitbucket.org/mmdatafocus/stripboard_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ExportStripboardExcel writes the board view as an xlsx workbook: one Bank
// sheet plus one sheet per production day. Day sheets carry a totals row with
// summed page-eighths and estimated minutes.
func ExportStripboardExcel(view *workflow.StripboardView, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Bank"); err != nil {
		return err
	}
	if err := writeStripSheet(f, "Bank", view.Bank, false); err != nil {
		return err
	}

	for _, day := range view.Days {
		sheetName := daySheetName(day)
		if _, err := f.NewSheet(sheetName); err != nil {
			return err
		}
		if err := writeStripSheet(f, sheetName, day.Strips, true); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func daySheetName(day workflow.DayColumn) string {
	// excelize rejects sheet names over 31 chars
	name := fmt.Sprintf("Day %d %s", day.DayNumber, day.Date)
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

func writeStripSheet(f *excelize.File, sheetName string, strips []*models.Strip, withTotals bool) error {
	headings := []string{"Scene", "Slugline", "Title", "Unit", "Status", "Pages (1/8)", "Est. Minutes", "Notes"}
	col := 'A'
	for _, h := range headings {
		f.SetCellValue(sheetName, string(col)+"1", h)
		col++
	}

	totalEighths := decimal.Zero
	totalMinutes := 0
	for i, s := range strips {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+row, s.SceneNumber)
		f.SetCellValue(sheetName, "B"+row, s.Slugline)
		f.SetCellValue(sheetName, "C"+row, s.CustomTitle)
		f.SetCellValue(sheetName, "D"+row, s.Unit)
		f.SetCellValue(sheetName, "E"+row, string(s.Status))
		f.SetCellValue(sheetName, "F"+row, s.PageEighths.String())
		f.SetCellValue(sheetName, "G"+row, s.EstimatedDuration)
		f.SetCellValue(sheetName, "H"+row, s.Notes)

		totalEighths = totalEighths.Add(s.PageEighths)
		totalMinutes += s.EstimatedDuration
	}

	if withTotals {
		row := fmt.Sprint(len(strips) + 2)
		f.SetCellValue(sheetName, "A"+row, "Total")
		f.SetCellValue(sheetName, "F"+row, totalEighths.String())
		f.SetCellValue(sheetName, "G"+row, totalMinutes)
	}
	return nil
}
