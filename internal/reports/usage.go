// Package reports builds the admin usage workbook sent by the stats command.
package reports

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/careerbuddy/careerbuddy-bot/internal/domain/users"
)

type Usage struct {
	GeneratedAt   time.Time
	FreeUsers     int64
	ProUsers      int64
	DocsByType    map[users.DocType]int64
	Payments      int64
	RevenueKobo   int64
	MessagesToday int64
}

const sheet = "Usage"

// Workbook renders the usage snapshot as an .xlsx file.
func Workbook(u Usage) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	rows := [][]interface{}{
		{"CareerBuddy usage report", u.GeneratedAt.Format("2006-01-02 15:04")},
		{},
		{"Free users", u.FreeUsers},
		{"Pro users", u.ProUsers},
		{"Messages (24h)", u.MessagesToday},
		{},
		{"Documents delivered", ""},
	}
	for _, t := range users.AllDocTypes() {
		rows = append(rows, []interface{}{string(t), u.DocsByType[t]})
	}
	rows = append(rows,
		[]interface{}{},
		[]interface{}{"Successful payments", u.Payments},
		[]interface{}{"Revenue (NGN)", float64(u.RevenueKobo) / 100},
	)

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 26); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filename for the generated workbook.
func Filename(at time.Time) string {
	return fmt.Sprintf("careerbuddy-usage-%s.xlsx", at.Format("20060102"))
}
