// CLAUDE:SUMMARY Registers the xptrail_timeline MCP tool on top of the tracker.
package tracker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/xptrail/kit"
)

// RegisterMCP registers the xptrail tools on an MCP server.
func (t *Tracker) RegisterMCP(srv *mcp.Server) {
	t.registerTimelineTool(srv)
}

type timelineRequest struct {
	Username        string `json:"username"`
	IncludeSnapshot bool   `json:"include_snapshot,omitempty"`
}

// TimelineResponse is the JSON body returned by the xptrail_timeline tool.
type TimelineResponse struct {
	*Result
	// Partial is set when only the header could be read.
	Partial     string `json:"partial,omitempty"`
	SnapshotPNG string `json:"snapshot_png_base64,omitempty"`
}

func (t *Tracker) registerTimelineTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "xptrail_timeline",
		Description: "Open a public profile in a headless browser and return its XP timeline (events ascending by UTC) with a summary and diagnostics.",
		InputSchema: kit.InputSchema(map[string]any{
			"username":         map[string]any{"type": "string", "description": "Profile username"},
			"include_snapshot": map[string]any{"type": "boolean", "description": "Include the history chart as base64 PNG (default: false)"},
		}, []string{"username"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*timelineRequest)
		res, err := t.Extract(ctx, r.Username)
		if IsFatal(err) {
			return nil, err
		}
		resp := &TimelineResponse{Result: res}
		if err != nil {
			resp.Partial = err.Error()
		}
		if r.IncludeSnapshot && res.Snapshot != nil {
			resp.SnapshotPNG = base64.StdEncoding.EncodeToString(res.Snapshot.Bytes)
		}
		return resp, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r timelineRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		if r.Username == "" {
			return nil, errors.New("username is required")
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	mw := kit.Chain(kit.WithRequestIDs(), kit.Logging(t.logger, tool.Name))
	kit.RegisterMCPTool(srv, tool, mw(endpoint), decode)
}
