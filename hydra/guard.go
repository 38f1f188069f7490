/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package hydra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/atomic"

	"github.com/acronis/go-hydra/log"
)

// Guard persists whatever is still buffered when the process ends abnormally.
//
// After a graceful finish the guard does nothing: everything was already flushed
// through the normal path. Otherwise EmergencyPersist drains the buffer and writes
// it out through a cascading fallback chain: structured JSON to the configured
// emergency location, then a best-effort textual dump, then both again against
// the system temp directory. Every invocation targets a fresh file
// (unix-nano timestamp plus an invocation counter), so repeated interrupt signals
// never corrupt or overwrite a previous dump.
type Guard struct {
	buffer      *Buffer
	pathPrefix  string
	logger      log.FieldLogger
	finished    *atomic.Bool
	invocations atomic.Uint64
}

// NewGuard creates a shutdown guard over the buffer.
// The finished flag is shared with the dispatcher: once it is set,
// emergency persistence becomes a no-op.
func NewGuard(buffer *Buffer, emergencyPathPrefix string, logger log.FieldLogger, finished *atomic.Bool) *Guard {
	return &Guard{buffer: buffer, pathPrefix: emergencyPathPrefix, logger: logger, finished: finished}
}

// EmergencyPersist saves the current in-memory batch if the run did not finish gracefully.
// It is safe to call multiple times: the buffer is drained on the first call,
// so subsequent calls with no new data are no-ops.
// It reads only the buffer and therefore works from any interrupted state,
// regardless of whether the dispatcher or the pool are still consistent.
func (g *Guard) EmergencyPersist() {
	if g.finished.Load() {
		return
	}
	results := g.buffer.TakeUnflushed()
	if len(results) == 0 {
		return
	}

	invocation := g.invocations.Inc()
	base := fmt.Sprintf("%s.%d.%d", g.pathPrefix, time.Now().UnixNano(), invocation)

	for _, attempt := range []struct {
		path  string
		write func(string, Batch) error
	}{
		{base + ".json", writeEmergencyJSON},
		{base + ".txt", writeEmergencyText},
		{filepath.Join(os.TempDir(), filepath.Base(base)+".json"), writeEmergencyJSON},
		{filepath.Join(os.TempDir(), filepath.Base(base)+".txt"), writeEmergencyText},
	} {
		if err := attempt.write(attempt.path, results); err != nil {
			g.logger.Warn("emergency persistence attempt failed",
				log.String("path", attempt.path), log.Error(err))
			continue
		}
		g.logger.Info("unflushed results persisted on emergency exit",
			log.String("path", attempt.path), log.Int("results", len(results)))
		return
	}

	g.logger.Error("emergency persistence failed on every fallback, buffered results are lost",
		log.Int("results", len(results)))
}

func writeEmergencyJSON(path string, results Batch) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func writeEmergencyText(path string, results Batch) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	for _, r := range results {
		_, err = fmt.Fprintf(f, "%s %s status=%d attempts=%d failure=%s error=%q\n%s\n---\n",
			r.Method, r.Path, r.StatusCode, r.Attempts, r.Failure, r.Error, r.Body)
		if err != nil {
			_ = f.Close()
			return err
		}
	}
	return f.Close()
}
