package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Sheet is a flat table ready to export. Cells may be strings, ints,
// decimals or dates.
type Sheet struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// TimesheetLine is one timesheet in a detail export.
type TimesheetLine struct {
	Employee   string
	Client     string
	WeekEnding time.Time
	Total      decimal.Decimal
	Regular    decimal.Decimal
	Overtime   decimal.Decimal
	Status     string
}

// ExpenseLine is one expense in a detail export.
type ExpenseLine struct {
	Employee string
	Client   string
	Date     time.Time
	Category string
	Vendor   string
	Amount   decimal.Decimal
	Status   string
}

func SummarySheet(name string, groups []ClientGroup) Sheet {
	s := Sheet{
		Name:    name,
		Columns: []string{"Client", "Employee", "Pending", "Approved", "Pending Total", "Approved Total", "Total"},
	}
	for _, g := range groups {
		for _, e := range g.Employees {
			s.Rows = append(s.Rows, []any{g.Name, e.Name, e.PendingCount, e.ApprovedCount, e.PendingTotal, e.ApprovedTotal, e.Total})
		}
		s.Rows = append(s.Rows, []any{g.Name, "All employees", g.TotalPending, g.TotalApproved, g.PendingAmount, g.ApprovedAmount, g.Total})
	}
	return s
}

func TimesheetSheet(lines []TimesheetLine) Sheet {
	s := Sheet{
		Name:    "Timesheets",
		Columns: []string{"Employee", "Client", "Week Ending", "Total Hours", "Regular Hours", "Overtime Hours", "Status"},
	}
	for _, l := range lines {
		s.Rows = append(s.Rows, []any{l.Employee, l.Client, l.WeekEnding, l.Total, l.Regular, l.Overtime, l.Status})
	}
	return s
}

func ExpenseSheet(lines []ExpenseLine) Sheet {
	s := Sheet{
		Name:    "Expenses",
		Columns: []string{"Employee", "Client", "Date", "Category", "Vendor", "Amount", "Status"},
	}
	for _, l := range lines {
		s.Rows = append(s.Rows, []any{l.Employee, l.Client, l.Date, l.Category, l.Vendor, l.Amount, l.Status})
	}
	return s
}

// Write encodes s in format f.
func Write(w io.Writer, f Format, s Sheet) error {
	if f == FormatXLSX {
		return WriteXLSX(w, s)
	}
	return WriteCSV(w, s)
}

func WriteCSV(w io.Writer, s Sheet) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(s.Columns); err != nil {
		return err
	}
	record := make([]string, len(s.Columns))
	for _, row := range s.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = csvValue(row[i])
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteXLSX(w io.Writer, s Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	name := s.Name
	if name == "" {
		name = "Sheet1"
	}
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return err
	}

	header := make([]any, len(s.Columns))
	for i, c := range s.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(max(len(s.Columns), 1))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", lastCol+"1", bold); err != nil {
		return err
	}

	for i, row := range s.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = xlsxValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &cells); err != nil {
			return err
		}
	}

	if len(s.Rows) > 0 {
		if err := f.AutoFilter(name, fmt.Sprintf("A1:%s%d", lastCol, len(s.Rows)+1), nil); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func csvValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case decimal.Decimal:
		return x.StringFixed(2)
	case time.Time:
		return x.Format("2006-01-02")
	default:
		return fmt.Sprint(x)
	}
}

func xlsxValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case time.Time:
		return x.Format("2006-01-02")
	default:
		return x
	}
}
