// Package obs holds the portal's observability surface: the shared JSON-line
// logger and the Prometheus metrics exposed on /metrics.
package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the process-wide logger. It writes bare lines to stdout;
// callers supply the structure, usually through LogRequest.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest marshals the entry as a single JSON object per line. Request
// logging, the audit mirror and verify-cache warnings all funnel through it
// so log consumers see one shape.
func LogRequest(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log entry not marshalable"}`)
		return
	}
	Logger().Println(string(data))
}
