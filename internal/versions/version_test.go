package versions

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfoWithValues(t *testing.T) {
	t.Parallel()

	info := getVersionInfoWithValues("1.2.3", "abcdef123456", "2026-08-30T10:00:00Z")

	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "abcdef123456", info.Commit)
	assert.Equal(t, "2026-08-30 10:00:00 UTC", info.BuildDate)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestGetVersionInfoDevBuild(t *testing.T) {
	t.Parallel()

	info := getVersionInfoWithValues("dev", unknownStr, unknownStr)
	assert.Contains(t, info.Version, "build-")
}
