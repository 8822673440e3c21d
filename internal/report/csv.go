// Package report renders usage reports for export.
package report

import (
	"fmt"
	"strings"
	"time"

	"screentime/internal/domain"
)

// Header is the fixed CSV header row.
var Header = []string{"app", "label", "used_seconds", "limit_seconds", "date_exported"}

// CSV renders one row per tracked app. Every value is quoted and
// embedded quotes are doubled, regardless of content; encoding/csv is
// not used because it only quotes when required. The exported-at
// timestamp is RFC3339 UTC, identical on every row.
func CSV(l *domain.Ledger, exportedAt time.Time) []byte {
	ts := exportedAt.UTC().Format(time.RFC3339)

	var b strings.Builder
	writeRow(&b, Header)
	for _, a := range l.Apps {
		writeRow(&b, []string{
			a.ID,
			a.Label,
			fmt.Sprintf("%d", a.UsedSeconds),
			fmt.Sprintf("%d", a.LimitSeconds),
			ts,
		})
	}
	return []byte(b.String())
}

func writeRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}

// FileName suggests a report file name for the given export date,
// e.g. screentime_report_Alex_2026-08-30.csv.
func FileName(childName string, exportedAt time.Time) string {
	name := strings.TrimSpace(childName)
	if name == "" {
		name = "child"
	}
	name = strings.ReplaceAll(name, " ", "_")
	return fmt.Sprintf("screentime_report_%s_%s.csv", name, exportedAt.UTC().Format("2006-01-02"))
}
