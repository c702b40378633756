// Package version provides version information for the binary.
package version

import "fmt"

// Version is set at build time using -ldflags.
var Version = "0.0.1"

// BuildTime is set at build time using -ldflags.
var BuildTime = "unknown"

// ProtocolVersion is the newest MCP revision this server speaks.
const ProtocolVersion = "2025-06-18"

var SupportedProtocolVersions = []string{
	"2025-06-18",
	"2025-03-26",
	"2024-11-05",
}

func String() string {
	return fmt.Sprintf("memory-bank version %s (built %s)", Version, BuildTime)
}
