// Package bamrun is the cloud-function wrapper around the bam-weather
// executable.
package bamrun

// Version is the bamrun release reported by the CLI and the MCP server.
const Version = "0.3.1"
