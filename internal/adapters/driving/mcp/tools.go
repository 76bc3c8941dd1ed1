package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driving"
)

// defaultFindLimit caps find_contacts results when no limit is given.
const defaultFindLimit = 20

// FindContactsInput is the input schema for the find_contacts tool.
type FindContactsInput struct {
	Query string `json:"query" jsonschema:"text to look for in names, organisations, emails and phone numbers"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of contacts to return (default 20)"`
}

// FindContactsOutput is the output schema for the find_contacts tool.
type FindContactsOutput struct {
	Contacts []ContactOutput `json:"contacts"`
	Count    int             `json:"count"`
}

// ContactOutput is a contact as seen by MCP clients.
type ContactOutput struct {
	ID           string                `json:"id"`
	Kind         string                `json:"kind"`
	Name         string                `json:"name"`
	Organization string                `json:"organization,omitempty"`
	JobTitle     string                `json:"job_title,omitempty"`
	Emails       []domain.LabeledValue `json:"emails,omitempty"`
	Phones       []domain.LabeledValue `json:"phones,omitempty"`
	URI          string                `json:"uri"`
}

// ImportSourcesInput is the input schema for the import_sources tool.
type ImportSourcesInput struct{}

// ImportSourcesOutput is the output schema for the import_sources tool.
type ImportSourcesOutput struct {
	Sources   []SourceOutcomeOutput `json:"sources"`
	Additions int                   `json:"additions"`
	Updates   int                   `json:"updates"`
	Failures  int                   `json:"failures"`
}

// SourceOutcomeOutput is the result of importing one source.
type SourceOutcomeOutput struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_contacts",
		Description: "Find saved contacts by name, organisation, email or phone number",
	}, s.handleFindContacts)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "import_sources",
		Description: "Import every enabled vCard source into the contact store",
	}, s.handleImportSources)
}

// handleFindContacts handles the find_contacts tool invocation.
func (s *Server) handleFindContacts(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindContactsInput,
) (*mcp.CallToolResult, FindContactsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultFindLimit
	}

	records, err := s.ports.Contact.Find(ctx, input.Query)
	if err != nil {
		return nil, FindContactsOutput{}, err
	}
	if len(records) > limit {
		records = records[:limit]
	}

	output := FindContactsOutput{
		Contacts: make([]ContactOutput, len(records)),
		Count:    len(records),
	}
	for i := range records {
		output.Contacts[i] = contactOutput(records[i])
	}
	return nil, output, nil
}

// handleImportSources handles the import_sources tool invocation.
func (s *Server) handleImportSources(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ImportSourcesInput,
) (*mcp.CallToolResult, ImportSourcesOutput, error) {
	if s.ports.Importer == nil {
		return nil, ImportSourcesOutput{}, errors.New("import not available")
	}

	report, err := s.ports.Importer.ImportAll(ctx, driving.ImportCallbacks{})
	if err != nil {
		return nil, ImportSourcesOutput{}, err
	}

	totals := report.Totals()
	output := ImportSourcesOutput{
		Sources:   make([]SourceOutcomeOutput, len(report.Outcomes)),
		Additions: totals.Additions,
		Updates:   totals.Updates,
		Failures:  len(report.Failed()),
	}
	for i, o := range report.Outcomes {
		out := SourceOutcomeOutput{ID: o.Source.ID, Name: o.Source.Name, Success: o.Err == nil}
		if o.Err != nil {
			out.Message = o.Err.Error()
		} else {
			out.Message = o.Changes.Summary()
		}
		output.Sources[i] = out
	}
	return nil, output, nil
}

func contactOutput(r domain.Record) ContactOutput {
	return ContactOutput{
		ID:           r.ID,
		Kind:         string(r.Kind),
		Name:         r.DisplayName(),
		Organization: r.Value(domain.FieldOrganization),
		JobTitle:     r.Value(domain.FieldJobTitle),
		Emails:       r.Values(domain.FieldEmails),
		Phones:       r.Values(domain.FieldPhones),
		URI:          contactURI(r.ID),
	}
}
