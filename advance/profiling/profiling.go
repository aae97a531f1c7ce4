// Package profiling serves live runtime charts while the emulator runs.
package profiling

import (
	"log/slog"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// DefaultAddr is where the charts are served unless configured otherwise.
const DefaultAddr = "localhost:12600"

// Launch starts the chart server on addr in the background. The returned
// function stops it.
func Launch(addr string) (stop func()) {
	if addr == "" {
		addr = DefaultAddr
	}

	viewer.SetConfiguration(viewer.WithAddr(addr))

	mgr := statsview.New()
	go mgr.Start()
	slog.Info("Runtime charts available", "url", "http://"+addr+"/debug/statsview")

	return func() {
		mgr.Stop()
	}
}
