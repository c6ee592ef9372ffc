package humanize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileSize(t *testing.T) {
	cases := map[int64]string{
		0:                      "0.0 B",
		512:                    "512.0 B",
		1536:                   "1.5 KB",
		5 * 1024 * 1024:        "5.0 MB",
		3 * 1024 * 1024 * 1024: "3.0 GB",
		-10:                    "0.0 B",
	}
	for in, want := range cases {
		assert.Equal(t, want, FileSize(in), "size %d", in)
	}
}
