package invoke

import (
	"context"
	"encoding/json"
)

// Lambda returns a handler for lambda.Start. A failed invocation returns
// the process error with FailureMarker as its result value.
func (h *Handler) Lambda() func(context.Context, json.RawMessage) (any, error) {
	return func(ctx context.Context, event json.RawMessage) (any, error) {
		out := h.Invoke(ctx, event)
		if out.Err != nil {
			return out.Marker, out.Err
		}
		return nil, nil
	}
}
