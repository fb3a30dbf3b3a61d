package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"rowsetstats/pkg/errors"
	"rowsetstats/pkg/models"
)

// RenderSummary formats a run report as a table followed by a totals line
func RenderSummary(report *models.RunReport, useColor bool) string {
	var buf strings.Builder

	if len(report.Results) > 0 {
		table := tablewriter.NewWriter(&buf)
		table.SetHeader([]string{"#", "View", "Status", "Columns", "Details"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)
		table.SetAlignment(tablewriter.ALIGN_LEFT)

		for i, res := range report.Results {
			table.Append([]string{
				fmt.Sprintf("%d", i+1),
				res.View,
				statusCell(res.Status, useColor),
				fmt.Sprintf("%d", len(res.Columns)),
				details(res),
			})
		}

		table.Render()
	}

	fmt.Fprintf(&buf, "\n%d views seen, %d written, %d skipped, %d failed in %s\n",
		report.ViewsSeen,
		report.Count(models.StatusWritten),
		report.Count(models.StatusSkipped),
		report.Count(models.StatusFailed),
		formatDuration(report.Duration),
	)

	return buf.String()
}

func statusCell(status models.ViewStatus, useColor bool) string {
	if !useColor {
		return strings.ToUpper(string(status))
	}
	switch status {
	case models.StatusWritten:
		return color.GreenString("WRITTEN")
	case models.StatusSkipped:
		return color.YellowString("SKIPPED")
	case models.StatusFailed:
		return color.RedString("FAILED")
	default:
		return string(status)
	}
}

func details(res models.ViewResult) string {
	switch res.Status {
	case models.StatusWritten:
		if res.CreatePath == "" {
			return "dry run"
		}
		return res.CreatePath
	case models.StatusSkipped:
		return "no columns"
	case models.StatusFailed:
		if res.Err == nil {
			return ""
		}
		if appErr, ok := errors.AsAppError(res.Err); ok {
			return fmt.Sprintf("%s: %s", appErr.Kind(), appErr.Message)
		}
		return firstLine(res.Err.Error())
	default:
		return ""
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, minutes)
}
