package services

import (
	"fmt"
	"time"

	"meal-claim-system/models"

	"github.com/xuri/excelize/v2"
)

const (
	exportSheet      = "Food Claims"
	claimedMark      = "✓"
	unclaimedMark    = "-"
	exportTimeLayout = "02/01/2006, 3:04:05 pm"
)

var exportColumns = []struct {
	title string
	width float64
}{
	{"S.No", 6},
	{"Participant ID", 15},
	{"Team ID", 12},
	{"Team Name", 20},
	{"Member Name", 20},
	{"Member Number", 8},
	{"Breakfast", 10},
	{"Breakfast Time", 20},
	{"Lunch", 10},
	{"Lunch Time", 20},
	{"Dinner", 10},
	{"Dinner Time", 20},
}

func exportRow(seq int, p models.Participant, loc *time.Location) []interface{} {
	row := []interface{}{seq, p.ParticipantID, p.TeamID, p.TeamName, p.MemberName, p.MemberNumber}
	for _, meal := range models.MealTypes {
		slot := p.Meals.Slot(meal)
		switch {
		case slot.Claimed && slot.ClaimedAt != nil:
			row = append(row, claimedMark, slot.ClaimedAt.In(loc).Format(exportTimeLayout))
		case slot.Claimed:
			row = append(row, claimedMark, unclaimedMark)
		default:
			row = append(row, unclaimedMark, unclaimedMark)
		}
	}
	return row
}

func buildWorkbook(participants []models.Participant, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(exportColumns))
	for i, col := range exportColumns {
		header[i] = col.title
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(exportSheet, name, name, col.width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, p := range participants {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := exportRow(i+1, p, loc)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}
