package models

import (
	"strconv"
	"time"

	"github.com/noah-isme/sma-merit/pkg/export"
)

// Column names shared by every CSV and PDF export of the ledger.
var (
	SummaryHeaders = []string{"student_id", "name", "merit", "demerit", "offset", "total", "last_activity"}
	DetailHeaders  = []string{"student_id", "name", "type", "reason", "points", "date"}
)

// LastActivityLayout formats Summary.LastActivity in exports.
const LastActivityLayout = "2006-01-02 15:04"

// SummaryDataset lays out summaries as export rows. Totals carry an explicit sign.
func SummaryDataset(summaries []Summary) export.Dataset {
	rows := make([]map[string]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, map[string]string{
			"student_id":    s.StudentID,
			"name":          s.Name,
			"merit":         strconv.Itoa(s.Merit),
			"demerit":       strconv.Itoa(s.Demerit),
			"offset":        strconv.Itoa(s.Offset),
			"total":         SignedTotal(s.Total),
			"last_activity": formatActivity(s.LastActivity),
		})
	}
	return export.Dataset{Headers: SummaryHeaders, Rows: rows}
}

// DetailDataset lays out records as export rows with the reason always quoted.
func DetailDataset(records []Record) export.Dataset {
	rows := make([]map[string]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, map[string]string{
			"student_id": r.StudentID,
			"name":       r.Name,
			"type":       string(r.PointType),
			"reason":     r.Reason,
			"points":     strconv.Itoa(r.Points),
			"date":       r.Date,
		})
	}
	return export.Dataset{Headers: DetailHeaders, Rows: rows, Quoted: []string{"reason"}}
}

// SignedTotal renders n with a leading "+" unless it is negative.
func SignedTotal(n int) string {
	if n < 0 {
		return strconv.Itoa(n)
	}
	return "+" + strconv.Itoa(n)
}

func formatActivity(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(LastActivityLayout)
}
