// Package report reads and writes the xlsx spreadsheets used by the admin console.
package report

import (
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/attendance"
	"github.com/trezcool/kia/core/payment"
	"github.com/trezcool/kia/core/student"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	paymentsSheet   = "Payments"
	attendanceSheet = "Attendance"
)

var (
	paymentHeaders    = []interface{}{"ID", "Student", "Amount", "Due Date", "Paid", "Paid Date", "Notes"}
	attendanceHeaders = []interface{}{"Date", "Student", "Class", "Status", "Marked By"}

	statusLabels = map[string]string{
		attendance.StatusPresent:   "Present",
		attendance.StatusAbsent:    "Absent",
		attendance.StatusNotMarked: "Not marked",
	}

	// StudentImportHeaders is the expected first row of a student import sheet.
	StudentImportHeaders = []string{"Full Name", "Parent Email", "Class", "Date of Birth (YYYY-MM-DD)"}
)

// ReadStudents parses the first sheet of an xlsx file; the header row is skipped along with blank rows.
func ReadStudents(r io.Reader) ([]student.ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, core.NewFieldValidationError("file", "invalid xlsx file")
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, errors.Wrap(err, "reading rows")
	}

	res := make([]student.ImportRow, 0, len(rows))
	for i, cols := range rows {
		if i == 0 {
			continue
		}
		cell := func(idx int) string {
			if idx < len(cols) {
				return core.CleanString(cols[idx])
			}
			return ""
		}
		row := student.ImportRow{
			Row:         i + 1,
			FullName:    cell(0),
			ParentEmail: cell(1),
			ClassName:   cell(2),
			DateOfBirth: cell(3),
		}
		if row.FullName == "" && row.ParentEmail == "" && row.ClassName == "" && row.DateOfBirth == "" {
			continue
		}
		res = append(res, row)
	}
	return res, nil
}

// WriteStudentTemplate writes an empty import sheet with its header row.
func WriteStudentTemplate(w io.Writer) error {
	headers := make([]interface{}, len(StudentImportHeaders))
	for i, h := range StudentImportHeaders {
		headers[i] = h
	}
	return writeSheet(w, "Students", headers, nil)
}

func WritePayments(w io.Writer, payments []payment.Payment) error {
	rows := make([][]interface{}, 0, len(payments))
	for _, p := range payments {
		rows = append(rows, []interface{}{
			p.ID, p.StudentName, p.Amount, p.DueDate.String(), yesNo(p.IsPaid), p.PaidDate.String(), p.Notes,
		})
	}
	return writeSheet(w, paymentsSheet, paymentHeaders, rows)
}

func WriteAttendance(w io.Writer, records []attendance.Attendance) error {
	rows := make([][]interface{}, 0, len(records))
	for _, a := range records {
		rows = append(rows, []interface{}{
			a.Date.String(), a.StudentName, a.ClassName, statusLabels[a.Status], a.MarkedByName,
		})
	}
	return writeSheet(w, attendanceSheet, attendanceHeaders, rows)
}

func writeSheet(w io.Writer, name string, headers []interface{}, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return errors.Wrap(err, "naming sheet")
	}

	if err := setRow(f, name, 1, headers); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, name, i+2, row); err != nil {
			return err
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing xlsx")
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return errors.Wrap(err, "row "+strconv.Itoa(rowNum))
	}
	vals := values
	if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
		return errors.Wrap(err, "writing row "+strconv.Itoa(rowNum))
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
