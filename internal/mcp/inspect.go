package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bamchoh/bamrun/internal/record"
)

type inspectParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from a bam_invoke or bam_recent result"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	rec, err := h.store.Load(ctx, params.RunID)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return errorResult(fmt.Sprintf("No run %s is recorded.", params.RunID))
		}
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}
	return textResult(record.Format(rec))
}

type recentParams struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to list; defaults to all held in memory"`
}

func (h *handler) recentHandler(ctx context.Context, req *mcp.CallToolRequest, params recentParams) (*mcp.CallToolResult, any, error) {
	lister, ok := h.store.(recentLister)
	if !ok {
		return errorResult("This server keeps no in-memory run history.")
	}

	recs := lister.Recent(params.Limit)
	if len(recs) == 0 {
		return textResult("No runs recorded yet.")
	}
	return textResult(formatRecent(recs))
}

func formatRecent(recs []*record.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recent runs (%d):\n", len(recs))
	for _, r := range recs {
		fmt.Fprintf(&b, "  %s  %-7s  exit %-3d  %s\n", r.ID, r.Status(), r.ExitCode, r.StartedAt.Format(time.RFC3339))
	}
	return b.String()
}
