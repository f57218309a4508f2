// Package web serves the status API and Prometheus metrics.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"vn310d/internal/vectornav"
)

// Controller is the part of the applet the API drives. Implementations
// must be safe for concurrent use.
type Controller interface {
	Status() vectornav.Status
	SetFeed(on bool)
	OverridePose(yaw, pitch, roll float64) vectornav.Pose
	OverrideLocation(lat, lon float64) vectornav.Pose
}

// Options are the optional parts of the API. Zero values disable the
// matching endpoint, except /api/about which is always served.
type Options struct {
	Metrics http.Handler
	Logs    *LogBuffer
	Link    Link
	Started time.Time
	Now     func() time.Time
}

func Handler(ctl Controller, opts Options) http.Handler {
	mux := http.NewServeMux()
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Started.IsZero() {
		opts.Started = opts.Now()
	}

	mux.HandleFunc("/api/pose", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, ctl.Status())
	})

	mux.HandleFunc("/api/feed", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		on, err := strconv.ParseBool(r.URL.Query().Get("on"))
		if err != nil {
			http.Error(w, "on must be true or false", http.StatusBadRequest)
			return
		}
		ctl.SetFeed(on)
		writeJSON(w, map[string]bool{"send_pose": on})
	})

	mux.HandleFunc("/api/override/pose", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		v, ok := floatParams(w, r, "yaw", "pitch", "roll")
		if !ok {
			return
		}
		writeJSON(w, ctl.OverridePose(v[0], v[1], v[2]))
	})

	mux.HandleFunc("/api/override/location", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		v, ok := floatParams(w, r, "lat", "lon")
		if !ok {
			return
		}
		if v[0] < -90 || v[0] > 90 || v[1] < -180 || v[1] > 180 {
			http.Error(w, "lat must be in [-90,90] and lon in [-180,180]", http.StatusBadRequest)
			return
		}
		writeJSON(w, ctl.OverrideLocation(v[0], v[1]))
	})

	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}
	if opts.Logs != nil {
		mux.Handle("/api/logs", opts.Logs.Handler())
	}
	mux.Handle("/api/about", aboutHandler(opts.Link, opts.Started, opts.Now))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if !allow(w, r, http.MethodGet) {
			return
		}
		st := ctl.Status()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>vn310d</title></head><body>")
		_, _ = fmt.Fprintf(w, "<h1>vn310d</h1>")
		_, _ = fmt.Fprintf(w, "<pre>yaw=%.3f pitch=%.3f roll=%.3f\nlat=%.6f lon=%.6f\nins_mode=%s messages=%d published=%d feed=%t</pre>",
			st.Pose.Yaw, st.Pose.Pitch, st.Pose.Roll, st.Pose.Latitude, st.Pose.Longitude,
			st.InsMode, st.Messages, st.Published, st.SendPose)
		_, _ = fmt.Fprintf(w, "<p>See <a href=\"/api/pose\">/api/pose</a> and <a href=\"/metrics\">/metrics</a>.</p></body></html>")
	})

	return mux
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

func floatParams(w http.ResponseWriter, r *http.Request, names ...string) ([]float64, bool) {
	out := make([]float64, len(names))
	q := r.URL.Query()
	for i, n := range names {
		v, err := strconv.ParseFloat(q.Get(n), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			http.Error(w, n+" must be a finite number", http.StatusBadRequest)
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

func Serve(ctx context.Context, listenAddr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
