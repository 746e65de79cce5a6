// Package statsview serves runtime statistics of the emulator process
// (heap, goroutines, GC pauses) while a long run is in progress.
//
// Charts are at http://localhost:12600/debug/statsview and the standard
// pprof endpoints at http://localhost:12600/debug/pprof/.
package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const (
	Address = "localhost:12600"
	path    = "/debug/statsview"
)

// URL is where the charts are served once Launch was called.
func URL() string {
	return "http://" + Address + path
}

// Launch starts the stats server in its own goroutine and reports the
// URL on w. The server lives until the process exits.
func Launch(w io.Writer) error {
	viewer.SetConfiguration(viewer.WithAddr(Address))
	mgr := statsview.New()
	go mgr.Start()

	_, err := fmt.Fprintf(w, "stats server available at %s\n", URL())
	return err
}
