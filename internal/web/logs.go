package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

const defaultLogLines = 2000

// LogBuffer is a ring of the most recent log lines, served at /api/logs.
// It implements zapcore.WriteSyncer so the logger can tee into it.
type LogBuffer struct {
	mu      sync.Mutex
	ring    []string
	next    int
	full    bool
	partial []byte
	dropped uint64
}

func NewLogBuffer(maxLines int) *LogBuffer {
	if maxLines <= 0 {
		maxLines = defaultLogLines
	}
	return &LogBuffer{ring: make([]string, maxLines)}
}

// Write stores each complete line. A trailing fragment is held until the
// next newline arrives.
func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.partial = append(b.partial, p...)
	for {
		i := bytes.IndexByte(b.partial, '\n')
		if i < 0 {
			break
		}
		b.push(string(bytes.TrimRight(b.partial[:i], "\r")))
		b.partial = b.partial[i+1:]
	}
	if len(b.partial) == 0 {
		b.partial = nil
	}
	return len(p), nil
}

func (b *LogBuffer) Sync() error { return nil }

func (b *LogBuffer) push(line string) {
	if line == "" {
		return
	}
	if b.full {
		b.dropped++
	}
	b.ring[b.next] = line
	b.next++
	if b.next == len(b.ring) {
		b.next = 0
		b.full = true
	}
}

// Snapshot returns up to tail lines, oldest first, that contain match
// (case-insensitive; empty matches everything), and the count of lines
// evicted from the ring so far.
func (b *LogBuffer) Snapshot(tail int, match string) (lines []string, dropped uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.next
	start := 0
	if b.full {
		n = len(b.ring)
		start = b.next
	}
	match = strings.ToLower(match)
	for i := 0; i < n; i++ {
		line := b.ring[(start+i)%len(b.ring)]
		if match == "" || strings.Contains(strings.ToLower(line), match) {
			lines = append(lines, line)
		}
	}
	if tail > 0 && len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}
	return lines, b.dropped
}

type LogsResponse struct {
	Dropped uint64   `json:"dropped"`
	Lines   []string `json:"lines"`
}

// Handler serves the buffer. Query: tail (1..5000, default 200), match
// (substring filter, e.g. "warn" or "routing"), format=text.
func (b *LogBuffer) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		q := r.URL.Query()

		tail := 200
		if s := q.Get("tail"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v < 1 || v > 5000 {
				http.Error(w, "tail must be an integer in [1,5000]", http.StatusBadRequest)
				return
			}
			tail = v
		}

		lines, dropped := b.Snapshot(tail, q.Get("match"))
		if lines == nil {
			lines = []string{}
		}
		if q.Get("format") != "text" {
			writeJSON(w, LogsResponse{Dropped: dropped, Lines: lines})
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if dropped > 0 {
			_, _ = fmt.Fprintf(w, "# %d earlier lines dropped\n", dropped)
		}
		_, _ = fmt.Fprint(w, strings.Join(lines, "\n"))
		if len(lines) > 0 {
			_, _ = fmt.Fprintln(w)
		}
	})
}
