// Toolgate is a translation proxy that gives tool-calling chat clients a
// standard function-calling interface over an upstream endpoint with no
// native tool support.
//
// It accepts OpenAI-style chat completion requests, compiles the tool
// catalog into a system prompt, relays the request upstream, and lifts
// call markup out of the completion text into structured tool calls.
//
// Usage:
//
//	# Start server with default configuration
//	toolgate run
//
//	# Start with custom configuration file
//	toolgate run --config /path/to/config.yaml
//
//	# Validate configuration without starting
//	toolgate run --dry-run
//
//	# Show version information
//	toolgate version
package main

func main() {
	Execute()
}
