// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides the pipeline_graph and dashboard tools for agents
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-graphviz"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/prospekt/listview"
	"github.com/harperreed/prospekt/viz"
)

type VizHandlers struct {
	session   *listview.Session
	generator func() *viz.GraphGenerator
}

func NewVizHandlers(session *listview.Session, newGenerator func(labels []string) *viz.GraphGenerator) *VizHandlers {
	return &VizHandlers{
		session: session,
		generator: func() *viz.GraphGenerator {
			return newGenerator(session.Catalog().Labels())
		},
	}
}

type PipelineGraphInput struct{}

type PipelineGraphOutput struct {
	DOTSource string `json:"dot_source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) PipelineGraph(ctx context.Context, request *mcp.CallToolRequest, input PipelineGraphInput) (*mcp.CallToolResult, PipelineGraphOutput, error) {
	if err := h.session.Wait(ctx); err != nil {
		return nil, PipelineGraphOutput{}, fmt.Errorf("prospect list unavailable: %w", err)
	}

	out, err := h.generator().GeneratePipelineGraph(ctx, h.session.List().Records(), graphviz.XDOT)
	if err != nil {
		return nil, PipelineGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}
	dot := string(out)

	// Count nodes and edges for stats
	return nil, PipelineGraphOutput{
		DOTSource: dot,
		NodeCount: strings.Count(dot, "[label="),
		EdgeCount: strings.Count(dot, "->"),
	}, nil
}

type DashboardInput struct{}

type DashboardOutput struct {
	Text     string            `json:"text"`
	ByStatus []viz.StatusStats `json:"by_status"`
	Live     int               `json:"live"`
	Archived int               `json:"archived"`
}

func (h *VizHandlers) Dashboard(ctx context.Context, request *mcp.CallToolRequest, input DashboardInput) (*mcp.CallToolResult, DashboardOutput, error) {
	if err := h.session.Wait(ctx); err != nil {
		return nil, DashboardOutput{}, fmt.Errorf("prospect list unavailable: %w", err)
	}
	stats := viz.GenerateDashboardStats(h.session.List().Records(), h.session.Catalog().Labels(), time.Now())
	return nil, DashboardOutput{
		Text:     viz.RenderDashboard(stats),
		ByStatus: stats.ByStatus,
		Live:     stats.Live(),
		Archived: stats.Archived,
	}, nil
}
