package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"

	"watchlist/internal/importer"
)

func renderSummary(summary importer.Summary) string {
	rows := [][]string{
		{"Job", strconv.FormatInt(summary.JobID, 10)},
		{"Status", string(summary.Status)},
		{"Items", strconv.Itoa(summary.TotalItems)},
		{"Processed", strconv.Itoa(summary.Processed)},
		{"Successful", strconv.Itoa(summary.Successful)},
		{"Failed", strconv.Itoa(summary.Failed)},
		{"Skipped", strconv.Itoa(summary.Skipped)},
	}
	if summary.ErrorMessage != "" {
		rows = append(rows, []string{"Error", summary.ErrorMessage})
	}
	return renderTable("Import summary", []string{"Field", "Value"}, rows, nil)
}

func renderJob(job *importer.Job) string {
	rows := [][]string{
		{"Job", strconv.FormatInt(job.ID, 10)},
		{"User", job.UserID},
		{"Source", job.Source},
		{"Status", string(job.Status)},
		{"Progress", formatProgress(job.Processed, job.TotalItems)},
		{"Successful", strconv.Itoa(job.Successful)},
		{"Failed", strconv.Itoa(job.Failed)},
		{"Skipped", strconv.Itoa(job.Skipped)},
		{"Created", formatTime(&job.CreatedAt)},
		{"Started", formatTime(job.StartedAt)},
		{"Completed", formatTime(job.CompletedAt)},
	}
	if job.ErrorMessage != "" {
		rows = append(rows, []string{"Error", job.ErrorMessage})
	}
	return renderTable("", []string{"Field", "Value"}, rows, nil)
}

func renderJobs(jobs []importer.Job) string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			job.Source,
			string(job.Status),
			formatProgress(job.Processed, job.TotalItems),
			strconv.Itoa(job.Successful),
			strconv.Itoa(job.Failed),
			strconv.Itoa(job.Skipped),
			formatTime(&job.CreatedAt),
		})
	}
	return renderTable("",
		[]string{"ID", "Source", "Status", "Progress", "OK", "Failed", "Skipped", "Created"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}

func renderItems(items []importer.JobItem) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.Itoa(item.Position + 1),
			formatTitleYear(item.Title, item.Year),
			string(item.Status),
			string(item.ResultAction),
			formatMatch(item),
			string(item.Confidence),
			item.ErrorMessage,
		})
	}
	return renderTable("",
		[]string{"#", "Title", "Status", "Action", "Match", "Confidence", "Error"},
		rows,
		[]columnAlignment{alignRight},
	)
}

func formatProgress(processed, total int) string {
	if total <= 0 {
		return strconv.Itoa(processed)
	}
	return fmt.Sprintf("%d/%d (%d%%)", processed, total, processed*100/total)
}

func formatTitleYear(title string, year int) string {
	if year <= 0 {
		return title
	}
	return fmt.Sprintf("%s (%d)", title, year)
}

func formatMatch(item importer.JobItem) string {
	if item.CatalogID == 0 {
		return ""
	}
	return fmt.Sprintf("%s [%s %d]", formatTitleYear(item.MatchedTitle, item.MatchedYear), item.MediaKind, item.CatalogID)
}

func formatTime(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
