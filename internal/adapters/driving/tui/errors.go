package tui

import "errors"

// ErrMissingImporter is returned when the importer is not provided.
var ErrMissingImporter = errors.New("tui: importer is required")

// ErrMissingSourceService is returned when the source service is not provided.
var ErrMissingSourceService = errors.New("tui: source service is required")
