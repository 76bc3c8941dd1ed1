package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/cardsync/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for cardsync resources.
	uriScheme = "cardsync://"

	vcardMIMEType = "text/vcard"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sources",
		Name:        "sources",
		Description: "Configured vCard sources and their last import status",
		MIMEType:    "application/json",
	}, s.handleSourcesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "contacts/{contactId}",
		Name:        "contact-vcard",
		Description: "A saved contact as a vCard",
		MIMEType:    vcardMIMEType,
	}, s.handleContactResource)
}

// sourceInfo is the JSON shape of one source in the sources resource.
type sourceInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	URL        string     `json:"url"`
	Enabled    bool       `json:"enabled"`
	Status     string     `json:"status"`
	ImportedAt *time.Time `json:"imported_at,omitempty"`
}

// handleSourcesResource returns all configured sources without credentials.
func (s *Server) handleSourcesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Source == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "[]",
			}},
		}, nil
	}

	sources, err := s.ports.Source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	infos := make([]sourceInfo, len(sources))
	for i := range sources {
		src := &sources[i]
		infos[i] = sourceInfo{
			ID:      src.ID,
			Name:    src.Name,
			Type:    src.Type,
			URL:     src.Connection.URL,
			Enabled: src.Enabled,
			Status:  src.StatusMessage(),
		}
		if src.LastImport != nil {
			at := src.LastImport.ImportedAt
			infos[i].ImportedAt = &at
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling sources: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleContactResource returns one contact encoded as vCard.
func (s *Server) handleContactResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	contactID := extractContactID(req.Params.URI)
	if contactID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	var buf bytes.Buffer
	if _, err := s.ports.Contact.Export(ctx, &buf, contactID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("exporting contact: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: vcardMIMEType,
			Text:     buf.String(),
		}},
	}, nil
}

func contactURI(id string) string {
	return uriScheme + "contacts/" + id
}

// extractContactID extracts the contact ID from a URI like cardsync://contacts/{contactId}.
func extractContactID(uri string) string {
	const prefix = uriScheme + "contacts/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
