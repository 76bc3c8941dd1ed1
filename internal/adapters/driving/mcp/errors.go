// Package mcp provides an MCP (Model Context Protocol) server adapter for cardsync.
// It lets AI assistants look up saved contacts and trigger imports.
package mcp

import "errors"

// ErrMissingContactService is returned when the contact service is not provided.
var ErrMissingContactService = errors.New("mcp: contact service is required")
