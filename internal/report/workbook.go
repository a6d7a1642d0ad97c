package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

const (
	recordsSheet = "Discrepancies"
	summarySheet = "Summary"
)

var recordHeadings = []string{
	"Entity Type", "Entity ID", "EBS ID", "Entity Name", "Discrepancy", "Status",
	"Field", "P6 Field", "EBS Field", "P6 Value", "EBS Value", "Resolution", "Custom Value", "Error",
}

// NewReconciliationWorkbook builds a workbook with one row per field
// discrepancy and a summary sheet of counts by discrepancy type
func NewReconciliationWorkbook(records []*models.DiscrepancyRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		f.Close()
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := writeRow(f, recordsSheet, 1, toCells(recordHeadings)); err != nil {
		f.Close()
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(recordHeadings), 1)
	_ = f.SetCellStyle(recordsSheet, "A1", last, bold)

	row := 2
	for _, rec := range records {
		if len(rec.FieldDiscrepancies) == 0 {
			if err := writeRow(f, recordsSheet, row, recordCells(rec, nil)); err != nil {
				f.Close()
				return nil, err
			}
			row++
			continue
		}
		for _, fd := range rec.FieldDiscrepancies {
			if err := writeRow(f, recordsSheet, row, recordCells(rec, fd)); err != nil {
				f.Close()
				return nil, err
			}
			row++
		}
	}
	_ = f.AutoFilter(recordsSheet, "A1:"+last, nil)

	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, err
	}
	summary := models.Summarize(records)
	rows := [][]interface{}{
		{"Discrepancy", "Count"},
		{string(models.DiscrepancyMissingInP6), summary.MissingInP6},
		{string(models.DiscrepancyMissingInEBS), summary.MissingInEBS},
		{string(models.DiscrepancyValueMismatch), summary.ValueMismatch},
		{"Total", len(records)},
	}
	for i, cells := range rows {
		if err := writeRow(f, summarySheet, i+1, cells); err != nil {
			f.Close()
			return nil, err
		}
	}
	_ = f.SetCellStyle(summarySheet, "A1", "B1", bold)

	return f, nil
}

// WriteReconciliationWorkbook saves the reconciliation workbook to path
func WriteReconciliationWorkbook(records []*models.DiscrepancyRecord, path string) error {
	f, err := NewReconciliationWorkbook(records)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// StreamReconciliationWorkbook writes the reconciliation workbook to w
func StreamReconciliationWorkbook(w io.Writer, records []*models.DiscrepancyRecord) error {
	f, err := NewReconciliationWorkbook(records)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()
	return f.Write(w)
}

func recordCells(rec *models.DiscrepancyRecord, fd *models.FieldDiscrepancy) []interface{} {
	cells := []interface{}{
		rec.EntityType, rec.EntityID, rec.EntityIDB, rec.EntityName,
		string(rec.DiscrepancyType), string(rec.Status),
	}
	if fd == nil {
		cells = append(cells, "", "", "", "", "", "", "")
	} else {
		custom := ""
		if fd.CustomValue != nil {
			custom = display(*fd.CustomValue)
		}
		cells = append(cells, fd.FieldName, fd.FieldA, fd.FieldB,
			display(fd.ValueA), display(fd.ValueB), string(fd.Resolution), custom)
	}
	return append(cells, rec.Error)
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
