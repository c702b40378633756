package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	result := String()

	assert.Contains(t, result, "memory-bank version")
	assert.Contains(t, result, Version)
	assert.Contains(t, result, "built")
}

func TestProtocolVersionIsSupported(t *testing.T) {
	assert.Contains(t, SupportedProtocolVersions, ProtocolVersion)
	assert.Equal(t, ProtocolVersion, SupportedProtocolVersions[0], "newest revision first")
}
