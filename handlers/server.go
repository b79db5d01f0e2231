// ABOUTME: MCP server assembly
// ABOUTME: Registers prospect tools, resources, and prompts against one list session
package handlers

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/prospekt/listview"
	"github.com/harperreed/prospekt/viz"
)

// NewServer builds an MCP server exposing session.
func NewServer(session *listview.Session, version string, newGenerator func(labels []string) *viz.GraphGenerator) *mcp.Server {
	prospects := NewProspectHandlers(session)
	vizHandlers := NewVizHandlers(session, newGenerator)
	resources := NewResourceHandlers(session)
	prompts := NewPromptHandlers(session)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "prospekt",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_prospects",
		Description: "List live (non-archived) prospects with optional search, filters, and sorting",
	}, prospects.ListProspects)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_prospect",
		Description: "Get one prospect by ID",
	}, prospects.GetProspect)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_prospect",
		Description: "Add a new prospect; all fields are optional free text",
	}, prospects.AddProspect)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_prospect_status",
		Description: "Change the status label of a prospect",
	}, prospects.SetProspectStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "archive_prospect",
		Description: "Archive a prospect so it no longer shows in the list",
	}, prospects.ArchiveProspect)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_prospect",
		Description: "Permanently delete a prospect",
	}, prospects.DeleteProspect)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_statuses",
		Description: "List the known status labels",
	}, prospects.ListStatuses)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_status",
		Description: "Add a status label for this server session",
	}, prospects.AddStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pipeline_graph",
		Description: "Render the prospect pipeline as GraphViz DOT source",
	}, vizHandlers.PipelineGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dashboard",
		Description: "Summarise prospects by status",
	}, vizHandlers.Dashboard)

	server.AddResource(&mcp.Resource{
		URI:         resourceScheme + "prospects",
		Name:        "prospects",
		Description: "All live prospects",
		MIMEType:    "application/json",
	}, resources.ReadResource)

	server.AddResource(&mcp.Resource{
		URI:         resourceScheme + "statuses",
		Name:        "statuses",
		Description: "Known status labels",
		MIMEType:    "application/json",
	}, resources.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: resourceScheme + "prospects/{id}",
		Name:        "prospect",
		Description: "A single prospect",
		MIMEType:    "application/json",
	}, resources.ReadResource)

	server.AddPrompt(&mcp.Prompt{
		Name:        "pipeline-review",
		Description: "Review the pipeline and suggest next steps",
		Arguments: []*mcp.PromptArgument{
			{Name: "status", Description: "Only include prospects whose status contains this text"},
		},
	}, prompts.GetPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        "prospect-follow-up",
		Description: "Draft a follow-up message for one prospect",
		Arguments: []*mcp.PromptArgument{
			{Name: "prospect_id", Description: "Prospect ID", Required: true},
		},
	}, prompts.GetPrompt)

	return server
}
