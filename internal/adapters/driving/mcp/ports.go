package mcp

import (
	"github.com/custodia-labs/cardsync/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server uses.
type Ports struct {
	// Contact gives read access to saved contacts.
	Contact driving.ContactService

	// Source lists configured sources. Optional.
	Source driving.SourceService

	// Importer runs imports. Optional; without it the import tool reports an error.
	Importer driving.Importer
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Contact == nil {
		return ErrMissingContactService
	}
	return nil
}
