// Package mcp provides the bamrun MCP server, registering the invocation
// tools and publishing model instructions.
package mcp

import (
	_ "embed"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bamchoh/bamrun"
	"github.com/bamchoh/bamrun/internal/invoke"
	"github.com/bamchoh/bamrun/internal/record"
)

//go:embed instructions.md
var Instructions string

// recentLister is implemented by record.LRUStore.
type recentLister interface {
	Recent(n int) []*record.Record
}

// handler holds shared dependencies for all tool handlers.
type handler struct {
	invoker *invoke.Handler
	store   record.Store
}

// NewServer creates an MCP server with all bamrun tools registered.
// Records are read from store, which should be the store the invoker
// writes to.
func NewServer(invoker *invoke.Handler, store record.Store) *mcp.Server {
	h := &handler{
		invoker: invoker,
		store:   store,
	}

	s := mcp.NewServer(&mcp.Implementation{Name: "bamrun", Version: bamrun.Version}, &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	})

	mcp.AddTool(s, &mcp.Tool{
		Name: "bam_invoke",
		Description: `Run the bam-weather executable once, exactly as the function platform does.

Returns the status, run ID, exit code and captured stdout/stderr.
The run is recorded for later drill-down via bam_inspect.`,
	}, h.invokeHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "bam_inspect",
		Description: "Print the stored record of a bam_invoke run, including both output streams.",
	}, h.inspectHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "bam_recent",
		Description: "List the most recent runs held in memory, newest first.",
	}, h.recentHandler)

	return s
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
