package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo_String(t *testing.T) {
	info := Info{CommitHash: "0123456789abcdef", BuildTime: "2024-06-15T08:30:00Z", Version: "v1.2.0"}
	assert.Equal(t, "dqa v1.2.0 (commit 0123456, built 2024-06-15T08:30:00Z)", info.String())
	assert.Equal(t, "dev", Info{CommitHash: "dev"}.Short())
}

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, CommitHash, info.CommitHash)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}
