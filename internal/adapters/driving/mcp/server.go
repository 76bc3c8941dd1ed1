package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/cardsync/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// shutdownGrace bounds how long RunHTTP waits for open requests on shutdown.
const shutdownGrace = 5 * time.Second

// Server exposes the synced address book to MCP clients: contact lookup,
// single contacts as vCard resources, and on-demand imports.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a server over the given ports. Only the contact
// service is required; the source list and import tool degrade without theirs.
func NewServer(ports *Ports) (*Server, error) {
	if ports == nil {
		return nil, ErrMissingContactService
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "cardsync", Version: Version},
			&mcp.ServerOptions{Instructions: instructions(ports)},
		),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// instructions tells clients what this address book offers.
func instructions(ports *Ports) string {
	var b strings.Builder
	b.WriteString("cardsync keeps a local address book filled from remote vCard files. ")
	b.WriteString("Use find_contacts to look people and organisations up by name, organisation, email or phone; ")
	b.WriteString("read " + uriScheme + "contacts/{contactId} for one contact as a vCard.")
	if ports.Source != nil {
		b.WriteString(" " + uriScheme + "sources lists the configured vCard sources and how their last import went.")
	}
	if ports.Importer != nil {
		b.WriteString(" import_sources pulls every enabled source now; sources whose file has not changed are skipped.")
	}
	return b.String()
}

// Run serves over stdio until ctx ends or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until ctx ends.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr: addr,
		Handler: mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
			return s.server
		}, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp: shutting down http server: %v", err)
		}
	}()

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
