// ABOUTME: MCP prompt handlers for reusable prospecting workflows
// ABOUTME: Builds review and follow-up prompts from the live prospect list
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/prospekt/listview"
	"github.com/harperreed/prospekt/models"
)

type PromptHandlers struct {
	session *listview.Session
}

func NewPromptHandlers(session *listview.Session) *PromptHandlers {
	return &PromptHandlers{session: session}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	if err := h.session.Wait(ctx); err != nil {
		return nil, fmt.Errorf("prospect list unavailable: %w", err)
	}
	switch request.Params.Name {
	case "pipeline-review":
		return h.pipelineReview(request.Params.Arguments)
	case "prospect-follow-up":
		return h.followUp(request.Params.Arguments)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) pipelineReview(args map[string]string) (*mcp.GetPromptResult, error) {
	filter := listview.Filter{Status: args["status"]}
	rows := h.session.Query(listview.SortSpec{Key: models.FieldStatus}, "", filter)

	var b strings.Builder
	b.WriteString("Review this prospect pipeline. Point out which prospects need a next step and suggest one for each.\n\n")
	for _, p := range rows {
		fmt.Fprintf(&b, "- %s (%s): status %q, first contact %s", p.Company, p.ContactPerson, p.Status, orDash(p.DisplayDate()))
		if p.Comment != "" {
			fmt.Fprintf(&b, ", note: %s", p.Comment)
		}
		b.WriteString("\n")
	}
	if len(rows) == 0 {
		b.WriteString("(no prospects)\n")
	}

	return &mcp.GetPromptResult{
		Description: "Pipeline review",
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: b.String()}},
		},
	}, nil
}

func (h *PromptHandlers) followUp(args map[string]string) (*mcp.GetPromptResult, error) {
	id, ok := args["prospect_id"]
	if !ok || id == "" {
		return nil, fmt.Errorf("prospect_id is required")
	}
	p, found := h.session.List().Lookup(id)
	if !found {
		return nil, fmt.Errorf("prospect %s: %w", id, listview.ErrNotFound)
	}

	text := fmt.Sprintf(`Draft a short follow-up message for this prospect.

Company: %s
Contact person: %s
Email: %s
Phone: %s
First contact: %s
Status: %s
Comment: %s`,
		p.Company, p.ContactPerson, orDash(p.Email), orDash(p.Phone), orDash(p.DisplayDate()), p.Status, orDash(p.Comment))

	return &mcp.GetPromptResult{
		Description: "Follow-up for " + p.Company,
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: text}},
		},
	}, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
