package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/attendance"
	"github.com/trezcool/kia/core/payment"
)

func TestReadStudents(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Full Name", "Parent Email", "Class", "Date of Birth"},
		{" Amira Ali ", "parent@kia.com", "KG1", "2020-05-01"},
		{"Omar Ali", "parent@kia.com"},
		{"", "", "", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadStudents(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Row)
	assert.Equal(t, "Amira Ali", got[0].FullName)
	assert.Equal(t, "KG1", got[0].ClassName)
	assert.Equal(t, "2020-05-01", got[0].DateOfBirth)
	assert.Equal(t, 3, got[1].Row)
	assert.Equal(t, "", got[1].ClassName)

	_, err = ReadStudents(bytes.NewBufferString("not a spreadsheet"))
	assert.True(t, core.IsValidationError(err))
}

func TestWritePayments(t *testing.T) {
	due, _ := core.ParseDate("2026-03-01")
	var buf bytes.Buffer
	require.NoError(t, WritePayments(&buf, []payment.Payment{
		{ID: 1, StudentName: "Amira Ali", Amount: 1500, DueDate: due, Notes: "Term 2"},
	}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, paymentsSheet, f.GetSheetName(0))
	rows, err := f.GetRows(paymentsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Student", rows[0][1])
	assert.Equal(t, []string{"1", "Amira Ali", "1500", "2026-03-01", "No", "", "Term 2"}, rows[1])
}

func TestWriteAttendance(t *testing.T) {
	day, _ := core.ParseDate("2026-02-10")
	var buf bytes.Buffer
	require.NoError(t, WriteAttendance(&buf, []attendance.Attendance{
		{Date: day, StudentName: "Amira Ali", ClassName: "KG1", Status: attendance.StatusPresent, MarkedByName: "Admin"},
	}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(attendanceSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2026-02-10", "Amira Ali", "KG1", "Present", "Admin"}, rows[1])
}
