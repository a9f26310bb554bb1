package buildinfo

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetUsesStampedValues(t *testing.T) {
	defer func(v, c string) { Version, Commit = v, c }(Version, Commit)
	Version, Commit = "v0.3.1", "0123456789abcdef"

	info := Get()
	assert.Equal(t, "v0.3.1", info.Version)
	assert.Equal(t, "0123456789abcdef", info.Commit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, "qroute v0.3.1 (0123456789ab, "+runtime.Version()+")", info.String())
}

func TestStringWithoutCommit(t *testing.T) {
	assert.Contains(t, Info{Version: "dev"}.String(), "(unknown, ")
}
