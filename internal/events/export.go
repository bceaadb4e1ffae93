package events

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"
)

// MarshalCSV renders events as CSV with a header row, for the export
// endpoint consumed by external audit tooling.
func MarshalCSV(evts []Event) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "kind", "role", "account", "actor", "level", "occurred_at"}); err != nil {
		return nil, err
	}
	for _, evt := range evts {
		record := []string{
			evt.ID,
			string(evt.Kind),
			evt.Role,
			evt.Account,
			evt.Actor,
			strconv.FormatUint(uint64(evt.Level), 10),
			evt.At.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
