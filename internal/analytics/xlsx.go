package analytics

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	sheetOverview = "Overview"
	sheetSubjects = "Subjects"
	sheetStudents = "Students"
)

// WriteXLSX renders the dashboard as a workbook with one sheet per section.
func WriteXLSX(w io.Writer, d Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetOverview); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetSubjects, sheetStudents} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	top := ""
	if d.TopPerformer != nil {
		top = fmt.Sprintf("%s (%d)", d.TopPerformer.Name, d.TopPerformer.Score)
	}
	overview := [][]any{
		{"Metric", "Value"},
		{"Total students", d.TotalStudents},
		{"Average score", d.AverageScore},
		{"Overall completion %", d.OverallCompletion},
		{"Total quizzes taken", d.TotalQuizzesTaken},
		{"Top performer", top},
	}
	if err := writeRows(f, sheetOverview, overview, header); err != nil {
		return err
	}

	subjects := [][]any{{"Subject", "Completions", "Average accuracy %", "Most weak questions"}}
	for _, s := range d.Subjects {
		weak := make([]string, len(s.MostWeak))
		for i, q := range s.MostWeak {
			weak[i] = fmt.Sprintf("%s (%d)", q.Prompt, q.Count)
		}
		subjects = append(subjects, []any{s.Key, s.Completions, s.AverageAccuracy, strings.Join(weak, "; ")})
	}
	if err := writeRows(f, sheetSubjects, subjects, header); err != nil {
		return err
	}

	students := [][]any{{"Student", "Avatar", "Score", "Level", "Subjects completed", "Areas for improvement"}}
	for _, s := range d.Students {
		areas := make([]string, len(s.Areas))
		for i, a := range s.Areas {
			areas[i] = a.Subject + ": " + a.Label()
		}
		students = append(students, []any{s.Name, s.Avatar, s.Score, s.Level, s.CompletedCount, strings.Join(areas, "; ")})
	}
	if err := writeRows(f, sheetStudents, students, header); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}
	return f.SetColWidth(sheet, "A", "A", 28)
}
