package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bamchoh/bamrun/internal/record"
)

type invokeParams struct {
	Event string `json:"event,omitempty" jsonschema:"optional JSON document passed as the invocation event; defaults to {}"`
}

func (h *handler) invokeHandler(ctx context.Context, req *mcp.CallToolRequest, params invokeParams) (*mcp.CallToolResult, any, error) {
	event := json.RawMessage(`{}`)
	if params.Event != "" {
		if !json.Valid([]byte(params.Event)) {
			return errorResult("event must be a valid JSON document")
		}
		event = json.RawMessage(params.Event)
	}

	out := h.invoker.Invoke(ctx, event)
	return textResult(formatInvoke(out.Record, out.Err))
}

func formatInvoke(rec *record.Record, err error) string {
	var b strings.Builder

	if err != nil {
		fmt.Fprintln(&b, "Status: FAIL")
	} else {
		fmt.Fprintln(&b, "Status: PASS")
	}
	fmt.Fprint(&b, record.Format(rec))
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Inspect with bam_inspect(run_id=%q).\n", rec.ID)

	return b.String()
}
