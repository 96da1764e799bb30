// Package export renders scheduling results for files and HTTP downloads.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/techsched/core/scheduler"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// ParseFormat validates a format name. Empty defaults to JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// Write encodes res to w in the given format.
func Write(w io.Writer, f Format, res scheduler.Result) error {
	if f == FormatCSV {
		return WriteCSV(w, res)
	}
	return WriteJSON(w, res)
}

// WriteJSON writes the scheduling result to w in JSON format.
func WriteJSON(w io.Writer, res scheduler.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// CSVHeader lists the columns written by WriteCSV.
var CSVHeader = []string{
	"technician_id", "stop", "school_name", "region", "priority_score",
	"fault_id", "fault_type", "severity", "urgent", "recurring", "created_at",
}

// WriteCSV writes one row per assigned fault in route order. Only the header
// is written when there was nothing to schedule.
func WriteCSV(w io.Writer, res scheduler.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, a := range res.Assignments {
		for i, s := range a.Schools {
			for _, f := range s.Faults {
				rec := []string{
					strconv.Itoa(a.TechnicianID),
					strconv.Itoa(i + 1),
					s.SchoolName,
					s.Region,
					strconv.FormatFloat(s.PriorityScore, 'f', -1, 64),
					f.ID,
					string(f.Type),
					strconv.Itoa(f.Severity),
					strconv.FormatBool(f.IsUrgent),
					strconv.FormatBool(f.IsRecurring),
					f.CreatedAt.Format(time.RFC3339),
				}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
