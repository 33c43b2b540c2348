package http

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// formatTime renders zero times as an empty string.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// writeEvent writes one server-sent event. Multi-line data is split into
// one data field per line as the event stream format requires.
func writeEvent(w io.Writer, event, data string) error {
	bw := bufio.NewWriter(w)
	if event != "" {
		fmt.Fprintf(bw, "event: %s\n", event)
	}
	for _, line := range strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n") {
		fmt.Fprintf(bw, "data: %s\n", line)
	}
	bw.WriteString("\n")
	return bw.Flush()
}
