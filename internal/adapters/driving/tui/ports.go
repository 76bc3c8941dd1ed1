// Package tui provides the terminal progress view shown while importing.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/cardsync/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI uses.
type Ports struct {
	// Importer runs the import batch.
	Importer driving.Importer

	// Source lists the sources shown before their first event arrives.
	Source driving.SourceService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Importer == nil {
		return ErrMissingImporter
	}
	if p.Source == nil {
		return ErrMissingSourceService
	}
	return nil
}
