package contracts

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, BundleFormatVersion, info.BundleFormat)
	assert.Equal(t, runtime.GOOS, info.OS)
}

func TestGetFullVersionString(t *testing.T) {
	s := GetFullVersionString("phi")
	assert.Contains(t, s, "phi v"+Version)
	assert.Contains(t, s, BundleFormatVersion)
}
