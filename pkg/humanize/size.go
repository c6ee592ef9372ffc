// Package humanize formats byte counts for display.
package humanize

import units "github.com/docker/go-units"

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FileSize renders size in base-1024 units with one decimal, e.g. "1.5 MB".
func FileSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return units.CustomSize("%.1f %s", float64(size), 1024.0, sizeUnits)
}
