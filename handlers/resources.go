// ABOUTME: MCP resource handlers for exposing prospect data
// ABOUTME: Provides read-only access to the live prospect list and single records via URI
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/prospekt/listview"
)

const resourceScheme = "prospekt://"

type ResourceHandlers struct {
	session *listview.Session
}

func NewResourceHandlers(session *listview.Session) *ResourceHandlers {
	return &ResourceHandlers{session: session}
}

// ReadResource handles prospekt://prospects, prospekt://prospects/<id>, and prospekt://statuses.
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", resourceScheme)
	}
	if err := h.session.Wait(ctx); err != nil {
		return nil, fmt.Errorf("prospect list unavailable: %w", err)
	}

	parts := strings.Split(strings.TrimPrefix(uri, resourceScheme), "/")
	switch parts[0] {
	case "prospects":
		if len(parts) == 1 || parts[1] == "" {
			rows := h.session.Query(listview.SortSpec{}, "", listview.Filter{})
			out := make([]ProspectOutput, len(rows))
			for i, p := range rows {
				out[i] = prospectToOutput(p)
			}
			return jsonResource(uri, out)
		}
		p, ok := h.session.List().Lookup(parts[1])
		if !ok {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return jsonResource(uri, prospectToOutput(p))

	case "statuses":
		return jsonResource(uri, h.session.Catalog().Labels())

	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
