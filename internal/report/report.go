package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/logging"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

const (
	TypeSummary        = "Summary"
	TypeDetailed       = "Detailed"
	TypeReconciliation = "Reconciliation"

	summaryHistoryLimit = 10
	summaryLogLimit     = 20
	detailedLogLimit    = 50

	timeLayout = "2006-01-02 15:04:05"
	fileStamp  = "20060102_150405"
	rule       = "----------------------------------------------"
)

// HistorySource provides sync history; an empty type means all types
type HistorySource interface {
	History(ctx context.Context, integrationType string) ([]models.SyncRecord, error)
}

// LogSource provides recent log entries
type LogSource interface {
	Recent(minLevel string) []logging.Entry
}

// Writer persists a text report
type Writer interface {
	WriteReport(text, path string) error
}

// FileWriter writes reports to the local filesystem, creating parent directories
type FileWriter struct{}

func (FileWriter) WriteReport(text, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// Info describes a report file on disk
type Info struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
	Type    string    `json:"type"`
}

// Generator builds text reports from sync history and the log buffer
type Generator struct {
	dir     string
	history HistorySource
	logs    LogSource
	writer  Writer
	logger  *logrus.Logger
	now     func() time.Time
}

// NewGenerator creates a generator writing into dir. logs may be nil.
func NewGenerator(dir string, history HistorySource, logs LogSource, writer Writer, logger *logrus.Logger) *Generator {
	if writer == nil {
		writer = FileWriter{}
	}
	return &Generator{
		dir:     dir,
		history: history,
		logs:    logs,
		writer:  writer,
		logger:  logger,
		now:     time.Now,
	}
}

// Dir returns the reports directory
func (g *Generator) Dir() string {
	return g.dir
}

// Summary renders the cross-type summary report
func (g *Generator) Summary(ctx context.Context) (string, error) {
	history, err := g.history.History(ctx, "")
	if err != nil {
		return "", err
	}
	sortDesc(history)

	var b strings.Builder
	g.header(&b, "P6-EBS INTEGRATION SUMMARY REPORT")

	b.WriteString("LAST SYNCHRONIZATION TIMES:\n")
	last := lastSyncTimes(history)
	if len(last) == 0 {
		b.WriteString("No synchronization records found.\n")
	} else {
		types := make([]string, 0, len(last))
		for t := range last {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(&b, "%s: %s\n", t, last[t].Format(timeLayout))
		}
	}
	b.WriteString("\n")

	b.WriteString("SYNCHRONIZATION HISTORY:\n")
	if len(history) == 0 {
		b.WriteString("No synchronization history found.\n")
	}
	for i, r := range history {
		if i >= summaryHistoryLimit {
			break
		}
		fmt.Fprintf(&b, "Session: %s\n", r.SessionID)
		fmt.Fprintf(&b, "  Type: %s\n", r.SyncType)
		fmt.Fprintf(&b, "  Status: %s\n", r.Status)
		fmt.Fprintf(&b, "  Started: %s\n", r.StartTime.Format(timeLayout))
		fmt.Fprintf(&b, "  Duration: %d seconds\n", int(r.Duration.Seconds()))
		fmt.Fprintf(&b, "  Entities processed: %d\n", r.EntitiesProcessed)
		fmt.Fprintf(&b, "  Entities updated: %d\n", r.EntitiesUpdated)
		if r.ErrorMessage != "" {
			fmt.Fprintf(&b, "  Error: %s\n", r.ErrorMessage)
		}
		b.WriteString("\n")
	}

	b.WriteString("RECENT LOG ENTRIES:\n")
	g.writeLogs(&b, logrus.WarnLevel.String(), "", summaryLogLimit, "No relevant log entries found.\n")
	return b.String(), nil
}

// Detailed renders the history and statistics of one integration type
func (g *Generator) Detailed(ctx context.Context, integrationType string) (string, error) {
	history, err := g.history.History(ctx, integrationType)
	if err != nil {
		return "", err
	}
	sortDesc(history)

	var b strings.Builder
	g.header(&b, strings.ToUpper(integrationType)+" INTEGRATION DETAILED REPORT")

	b.WriteString("SYNCHRONIZATION HISTORY:\n")
	if len(history) == 0 {
		fmt.Fprintf(&b, "No synchronization history found for %s.\n", integrationType)
	}

	var succeeded, processed, updated int
	var total time.Duration
	for _, r := range history {
		fmt.Fprintf(&b, "Session: %s\n", r.SessionID)
		fmt.Fprintf(&b, "  Started: %s\n", r.StartTime.Format(timeLayout))
		fmt.Fprintf(&b, "  Ended: %s\n", r.EndTime.Format(timeLayout))
		fmt.Fprintf(&b, "  Direction: %s\n", r.Direction)
		fmt.Fprintf(&b, "  Status: %s\n", r.Status)
		fmt.Fprintf(&b, "  Duration: %d seconds\n", int(r.Duration.Seconds()))
		fmt.Fprintf(&b, "  Entities processed: %d\n", r.EntitiesProcessed)
		fmt.Fprintf(&b, "  Entities updated: %d\n", r.EntitiesUpdated)
		fmt.Fprintf(&b, "  Entities failed: %d\n", r.EntitiesFailed)
		if r.ErrorMessage != "" {
			fmt.Fprintf(&b, "  Error: %s\n", r.ErrorMessage)
		}
		b.WriteString("\n")

		if r.Status == models.SessionCompleted {
			succeeded++
		}
		processed += r.EntitiesProcessed
		updated += r.EntitiesUpdated
		total += r.Duration
	}

	runs := len(history)
	b.WriteString("STATISTICS:\n")
	fmt.Fprintf(&b, "Total runs: %d\n", runs)
	fmt.Fprintf(&b, "Successful runs: %d\n", succeeded)
	fmt.Fprintf(&b, "Failed runs: %d\n", runs-succeeded)
	fmt.Fprintf(&b, "Success rate: %d%%\n", percent(succeeded, runs))
	fmt.Fprintf(&b, "Total entities processed: %d\n", processed)
	fmt.Fprintf(&b, "Total entities updated: %d\n", updated)
	if runs > 0 {
		fmt.Fprintf(&b, "Average duration: %d seconds\n", int((total / time.Duration(runs)).Seconds()))
	}
	b.WriteString("\n")

	b.WriteString("RECENT LOG ENTRIES:\n")
	g.writeLogs(&b, "", integrationType, detailedLogLimit, "No log entries found.\n")
	return b.String(), nil
}

// Reconciliation renders a field-by-field comparison of discrepancy records
func (g *Generator) Reconciliation(integrationType string, records []*models.DiscrepancyRecord) string {
	var b strings.Builder
	g.header(&b, strings.ToUpper(integrationType)+" DATA RECONCILIATION REPORT")

	b.WriteString("DATA COMPARISON:\n\n")
	fmt.Fprintf(&b, "%-30s | %-30s | %-30s | %s\n", "Field", "P6 Value", "EBS Value", "Match")
	fmt.Fprintf(&b, "%s-|-%s-|-%s-|-%s\n", dashes(30), dashes(30), dashes(30), dashes(5))

	var matching, mismatched, p6Only, ebsOnly, fields int
	for _, rec := range records {
		fmt.Fprintf(&b, "\n%s %s (%s) %s\n", rec.EntityType, rec.EntityID, rec.EntityName, rec.DiscrepancyType)
		for _, fd := range rec.FieldDiscrepancies {
			fields++
			match := fd.ValueA.Equal(fd.ValueB)
			switch {
			case !fd.ValueA.IsNull() && !fd.ValueB.IsNull():
				if match {
					matching++
				} else {
					mismatched++
				}
			case !fd.ValueA.IsNull():
				p6Only++
			case !fd.ValueB.IsNull():
				ebsOnly++
			}
			fmt.Fprintf(&b, "%-30s | %-30s | %-30s | %s\n", fd.FieldName, display(fd.ValueA), display(fd.ValueB), yesNo(match))
		}
	}
	b.WriteString("\n")

	b.WriteString("SUMMARY:\n")
	fmt.Fprintf(&b, "Records: %d\n", len(records))
	fmt.Fprintf(&b, "Total fields: %d\n", fields)
	fmt.Fprintf(&b, "Matching fields: %d\n", matching)
	fmt.Fprintf(&b, "Mismatched fields: %d\n", mismatched)
	fmt.Fprintf(&b, "P6 only fields: %d\n", p6Only)
	fmt.Fprintf(&b, "EBS only fields: %d\n", ebsOnly)
	fmt.Fprintf(&b, "Match percentage: %d%%\n", percent(matching, fields))
	return b.String()
}

// GenerateSummary writes the summary report into the reports directory
func (g *Generator) GenerateSummary(ctx context.Context) (Info, error) {
	text, err := g.Summary(ctx)
	if err != nil {
		return Info{}, err
	}
	return g.write(text, "integration_summary_"+g.now().Format(fileStamp)+".txt", TypeSummary)
}

// GenerateDetailed writes the detailed report of one type
func (g *Generator) GenerateDetailed(ctx context.Context, integrationType string) (Info, error) {
	text, err := g.Detailed(ctx, integrationType)
	if err != nil {
		return Info{}, err
	}
	return g.write(text, integrationType+"_report_"+g.now().Format(fileStamp)+".txt", TypeDetailed)
}

// GenerateReconciliation writes the reconciliation report of one type
func (g *Generator) GenerateReconciliation(integrationType string, records []*models.DiscrepancyRecord) (Info, error) {
	text := g.Reconciliation(integrationType, records)
	return g.write(text, integrationType+"_reconciliation_"+g.now().Format(fileStamp)+".txt", TypeReconciliation)
}

func (g *Generator) write(text, name, reportType string) (Info, error) {
	path := filepath.Join(g.dir, name)
	if err := g.writer.WriteReport(text, path); err != nil {
		g.logger.WithError(err).WithField("path", path).Error("Failed to write report")
		return Info{}, apperrors.NewInternalError("failed to write report", err)
	}
	g.logger.WithFields(logrus.Fields{
		"path": path,
		"type": reportType,
	}).Info("Generated report")
	return Info{Name: name, Path: path, Size: int64(len(text)), Created: g.now(), Type: reportType}, nil
}

// List returns the reports in the generator's directory
func (g *Generator) List() ([]Info, error) {
	return ListReports(g.dir)
}

// ListReports returns text and workbook reports in dir, newest first. A
// missing directory yields no reports.
func ListReports(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reports directory: %w", err)
	}

	reports := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".txt" && ext != ".xlsx" {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		reports = append(reports, Info{
			Name:    name,
			Path:    filepath.Join(dir, name),
			Size:    fi.Size(),
			Created: fi.ModTime(),
			Type:    typeFromName(name),
		})
	}
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].Created.After(reports[j].Created) })
	return reports, nil
}

func typeFromName(name string) string {
	switch {
	case strings.Contains(name, "summary"):
		return TypeSummary
	case strings.Contains(name, "reconciliation"):
		return TypeReconciliation
	default:
		return TypeDetailed
	}
}

func (g *Generator) header(b *strings.Builder, title string) {
	b.WriteString(title + "\n")
	b.WriteString("Generated: " + g.now().Format(timeLayout) + "\n")
	b.WriteString(rule + "\n\n")
}

// writeLogs appends up to limit log lines newest first, keeping only lines
// mentioning contains when it is set
func (g *Generator) writeLogs(b *strings.Builder, minLevel, contains string, limit int, empty string) {
	if g.logs == nil {
		b.WriteString(empty)
		return
	}
	entries := g.logs.Recent(minLevel)
	written := 0
	for i := len(entries) - 1; i >= 0 && written < limit; i-- {
		e := entries[i]
		if contains != "" && !mentions(e, contains) {
			continue
		}
		fmt.Fprintf(b, "%s [%s] %s\n", e.Timestamp.Format(timeLayout), strings.ToUpper(e.Level), e.Message)
		written++
	}
	if written == 0 {
		b.WriteString(empty)
	}
}

func mentions(e logging.Entry, s string) bool {
	if strings.Contains(e.Message, s) {
		return true
	}
	for _, v := range e.Fields {
		if fmt.Sprint(v) == s {
			return true
		}
	}
	return false
}

func lastSyncTimes(history []models.SyncRecord) map[string]time.Time {
	last := make(map[string]time.Time)
	for _, r := range history {
		if r.Status != models.SessionCompleted {
			continue
		}
		if r.EndTime.After(last[r.SyncType]) {
			last[r.SyncType] = r.EndTime
		}
	}
	return last
}

func sortDesc(records []models.SyncRecord) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].StartTime.After(records[j].StartTime) })
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return n * 100 / total
}

func display(v models.Value) string {
	if v.IsNull() {
		return "N/A"
	}
	return v.Canonical()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func dashes(n int) string {
	return strings.Repeat("-", n)
}
