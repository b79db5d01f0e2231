// ABOUTME: Prospect MCP tool handlers
// ABOUTME: Implements list, add, status, archive, and delete tools on top of a list session
package handlers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/prospekt/listview"
	"github.com/harperreed/prospekt/models"
)

type ProspectHandlers struct {
	session *listview.Session

	// Workflows hold one target at a time; tool calls may arrive concurrently.
	mu sync.Mutex
}

func NewProspectHandlers(session *listview.Session) *ProspectHandlers {
	return &ProspectHandlers{session: session}
}

type ProspectOutput struct {
	ID               string `json:"id"`
	Company          string `json:"company"`
	ContactPerson    string `json:"contact_person"`
	Phone            string `json:"phone,omitempty"`
	Email            string `json:"email,omitempty"`
	FirstContactDate string `json:"first_contact_date,omitempty"`
	Comment          string `json:"comment,omitempty"`
	Status           string `json:"status"`
	Archived         bool   `json:"archived,omitempty"`
}

type ListProspectsInput struct {
	Search        string `json:"search,omitempty" jsonschema:"Case-insensitive text matched against company, contact person, and status"`
	Company       string `json:"company,omitempty" jsonschema:"Filter by company (substring)"`
	ContactPerson string `json:"contact_person,omitempty" jsonschema:"Filter by contact person (substring)"`
	Status        string `json:"status,omitempty" jsonschema:"Filter by status (substring)"`
	SortBy        string `json:"sort_by,omitempty" jsonschema:"Field to sort by, e.g. company, status, firstContactDate"`
	Descending    bool   `json:"descending,omitempty" jsonschema:"Sort descending instead of ascending"`
	Limit         int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 50)"`
}

type ListProspectsOutput struct {
	Prospects []ProspectOutput `json:"prospects"`
	Total     int              `json:"total"`
}

func (h *ProspectHandlers) ListProspects(ctx context.Context, request *mcp.CallToolRequest, input ListProspectsInput) (*mcp.CallToolResult, ListProspectsOutput, error) {
	if err := h.session.Wait(ctx); err != nil {
		return nil, ListProspectsOutput{}, fmt.Errorf("prospect list unavailable: %w", err)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}

	sort := listview.SortSpec{Key: input.SortBy}
	if input.Descending {
		sort.Direction = listview.Descending
	}
	filter := listview.Filter{
		Company:       input.Company,
		ContactPerson: input.ContactPerson,
		Status:        input.Status,
	}

	rows := h.session.Query(sort, input.Search, filter)
	out := ListProspectsOutput{Total: len(rows), Prospects: make([]ProspectOutput, 0, min(limit, len(rows)))}
	for i, p := range rows {
		if i == limit {
			break
		}
		out.Prospects = append(out.Prospects, prospectToOutput(p))
	}
	return nil, out, nil
}

type GetProspectInput struct {
	ID string `json:"id" jsonschema:"Prospect ID (required)"`
}

func (h *ProspectHandlers) GetProspect(ctx context.Context, request *mcp.CallToolRequest, input GetProspectInput) (*mcp.CallToolResult, ProspectOutput, error) {
	if input.ID == "" {
		return nil, ProspectOutput{}, fmt.Errorf("id is required")
	}
	if err := h.session.Wait(ctx); err != nil {
		return nil, ProspectOutput{}, fmt.Errorf("prospect list unavailable: %w", err)
	}
	p, ok := h.session.List().Lookup(input.ID)
	if !ok {
		return nil, ProspectOutput{}, fmt.Errorf("prospect %s: %w", input.ID, listview.ErrNotFound)
	}
	return nil, prospectToOutput(p), nil
}

type AddProspectInput struct {
	Company          string `json:"company,omitempty" jsonschema:"Company name"`
	ContactPerson    string `json:"contact_person,omitempty" jsonschema:"Name of the contact person"`
	Phone            string `json:"phone,omitempty" jsonschema:"Phone number"`
	Email            string `json:"email,omitempty" jsonschema:"Email address"`
	FirstContactDate string `json:"first_contact_date,omitempty" jsonschema:"Date of first contact (YYYY-MM-DD)"`
	Comment          string `json:"comment,omitempty" jsonschema:"Free-form comment"`
	Status           string `json:"status,omitempty" jsonschema:"Status label, see list_statuses"`
}

type AddProspectOutput struct {
	ID string `json:"id"`
}

// AddProspect creates a prospect. Every field is optional.
func (h *ProspectHandlers) AddProspect(ctx context.Context, request *mcp.CallToolRequest, input AddProspectInput) (*mcp.CallToolResult, AddProspectOutput, error) {
	id, err := h.session.Create(ctx, models.Fields{
		models.FieldCompany:          input.Company,
		models.FieldContactPerson:    input.ContactPerson,
		models.FieldPhone:            input.Phone,
		models.FieldEmail:            input.Email,
		models.FieldFirstContactDate: input.FirstContactDate,
		models.FieldComment:          input.Comment,
		models.FieldStatus:           input.Status,
	})
	if err != nil {
		return nil, AddProspectOutput{}, err
	}
	return nil, AddProspectOutput{ID: id}, nil
}

type SetStatusInput struct {
	ID     string `json:"id" jsonschema:"Prospect ID (required)"`
	Status string `json:"status" jsonschema:"New status label (required)"`
}

type MutationOutput struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (h *ProspectHandlers) SetProspectStatus(ctx context.Context, request *mcp.CallToolRequest, input SetStatusInput) (*mcp.CallToolResult, MutationOutput, error) {
	if input.ID == "" {
		return nil, MutationOutput{}, fmt.Errorf("id is required")
	}
	label := strings.TrimSpace(input.Status)
	if label == "" {
		return nil, MutationOutput{}, fmt.Errorf("status is required")
	}
	if err := h.session.Wait(ctx); err != nil {
		return nil, MutationOutput{}, fmt.Errorf("prospect list unavailable: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.session.OpenStatusSelector(input.ID, listview.Anchor{}); err != nil {
		return nil, MutationOutput{}, err
	}
	defer h.session.CloseStatusSelector()
	if err := h.session.SelectStatus(ctx, label); err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, MutationOutput{ID: input.ID, Message: fmt.Sprintf("status set to %q", label)}, nil
}

type TargetInput struct {
	ID string `json:"id" jsonschema:"Prospect ID (required)"`
}

func (h *ProspectHandlers) ArchiveProspect(ctx context.Context, request *mcp.CallToolRequest, input TargetInput) (*mcp.CallToolResult, MutationOutput, error) {
	err := h.confirmed(ctx, input.ID, h.session.RequestArchive, h.session.ConfirmArchive, h.session.CancelArchive)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, MutationOutput{ID: input.ID, Message: "archived"}, nil
}

func (h *ProspectHandlers) DeleteProspect(ctx context.Context, request *mcp.CallToolRequest, input TargetInput) (*mcp.CallToolResult, MutationOutput, error) {
	err := h.confirmed(ctx, input.ID, h.session.RequestDelete, h.session.ConfirmDelete, h.session.CancelDelete)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, MutationOutput{ID: input.ID, Message: "deleted"}, nil
}

// confirmed runs a request/confirm workflow in one step. The tool call itself
// is the user's confirmation.
func (h *ProspectHandlers) confirmed(ctx context.Context, id string, request func(string) error, confirm func(context.Context) error, cancel func()) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if err := h.session.Wait(ctx); err != nil {
		return fmt.Errorf("prospect list unavailable: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := request(id); err != nil {
		return err
	}
	defer cancel()
	return confirm(ctx)
}

type ListStatusesInput struct{}

type ListStatusesOutput struct {
	Statuses []string `json:"statuses"`
}

func (h *ProspectHandlers) ListStatuses(_ context.Context, request *mcp.CallToolRequest, input ListStatusesInput) (*mcp.CallToolResult, ListStatusesOutput, error) {
	return nil, ListStatusesOutput{Statuses: h.session.Catalog().Labels()}, nil
}

type AddStatusInput struct {
	Label string `json:"label" jsonschema:"New status label (required)"`
}

type AddStatusOutput struct {
	Added    bool     `json:"added"`
	Statuses []string `json:"statuses"`
}

// AddStatus extends the session catalog. Labels live only as long as the server process.
func (h *ProspectHandlers) AddStatus(_ context.Context, request *mcp.CallToolRequest, input AddStatusInput) (*mcp.CallToolResult, AddStatusOutput, error) {
	if strings.TrimSpace(input.Label) == "" {
		return nil, AddStatusOutput{}, fmt.Errorf("label is required")
	}
	added := h.session.AddStatusLabel(input.Label)
	return nil, AddStatusOutput{Added: added, Statuses: h.session.Catalog().Labels()}, nil
}

func prospectToOutput(p models.Prospect) ProspectOutput {
	return ProspectOutput{
		ID:               p.ID,
		Company:          p.Company,
		ContactPerson:    p.ContactPerson,
		Phone:            p.Phone,
		Email:            p.Email,
		FirstContactDate: p.DisplayDate(),
		Comment:          p.Comment,
		Status:           p.Status,
		Archived:         p.Archived,
	}
}
