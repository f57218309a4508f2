package web

import (
	"net/http"
	"runtime/debug"
	"time"
)

// Link describes how the daemon is attached to the sensor and the bus.
type Link struct {
	Device   string `json:"device"`
	Baud     int    `json:"baud"`
	Checksum string `json:"checksum"`
	Broker   string `json:"broker,omitempty"`
}

type AboutResponse struct {
	Service   string  `json:"service"`
	Version   string  `json:"version,omitempty"`
	Commit    string  `json:"commit,omitempty"`
	StartedAt string  `json:"started_at"`
	UptimeSec float64 `json:"uptime_sec"`
	Link      Link    `json:"link"`
}

// buildVersion reads the module version and VCS revision once.
func buildVersion() (version, commit string) {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return "", ""
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			commit = s.Value
		}
	}
	return bi.Main.Version, commit
}

func aboutHandler(link Link, started time.Time, now func() time.Time) http.Handler {
	version, commit := buildVersion()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, AboutResponse{
			Service:   "vn310d",
			Version:   version,
			Commit:    commit,
			StartedAt: started.UTC().Format(time.RFC3339),
			UptimeSec: now().Sub(started).Seconds(),
			Link:      link,
		})
	})
}
