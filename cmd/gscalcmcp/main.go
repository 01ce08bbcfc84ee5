// Command gscalcmcp is the thin MCP host shim of spec.md §6: it owns no
// formula semantics of its own, only a session registry of open
// workbooks and a synchronous tool for each core operation
// (open_workbook, set_cell, get_cell, calculate, insert_rows,
// delete_rows, cell_independent_of, duplicate_workbook). Command names and flags are
// deliberately minimal per spec.md §1 — everything interesting lives
// in the core packages this binary wires together.
//
// Grounded on mcpxcel's cmd/server/main.go: flag-selected stdio
// transport, a zerolog logger threaded through context, and a
// server.Hooks set for session/tool telemetry.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/cellforge/gscalc/internal/mcphost"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var (
		useStdio     bool
		maxOpenBooks int64
		sessionTTL   time.Duration
	)
	flag.BoolVar(&useStdio, "stdio", false, "Run server over stdio transport")
	flag.Int64Var(&maxOpenBooks, "max-open-workbooks", 16, "Maximum concurrently resident workbook sessions")
	flag.DurationVar(&sessionTTL, "session-ttl", mcphost.DefaultSessionTTL, "Idle timeout before a workbook session is evicted")
	flag.Parse()

	logger := zlog.With().Str("service", "gscalcmcp").Logger()
	ctx := logger.WithContext(context.Background())

	mgr := mcphost.NewSessionManager(maxOpenBooks, sessionTTL, mcphost.DefaultCleanupPeriod)
	mgr.Start()
	defer mgr.Close()

	var coalesce singleflight.Group

	srv := server.NewMCPServer(
		"gscalc calculation server",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithHooks(buildHooks(logger)),
	)

	mcphost.RegisterTools(srv, mgr, &coalesce, logger)

	logger.Info().
		Ctx(ctx).
		Int64("max_open_workbooks", maxOpenBooks).
		Dur("session_ttl", sessionTTL).
		Bool("stdio", useStdio).
		Msg("server bootstrap configured")

	if useStdio {
		if err := server.ServeStdio(srv); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprintln(os.Stderr, "no transport selected; use --stdio to run over stdio")
	os.Exit(2)
}

// buildHooks constructs mcp-go server hooks for basic telemetry.
func buildHooks(logger zerolog.Logger) *server.Hooks {
	hooks := &server.Hooks{}

	hooks.AddOnRegisterSession(func(ctx context.Context, session server.ClientSession) {
		logger.Info().Str("session_id", session.SessionID()).Msg("session registered")
	})
	hooks.AddOnUnregisterSession(func(ctx context.Context, session server.ClientSession) {
		logger.Info().Str("session_id", session.SessionID()).Msg("session unregistered")
	})
	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, res *mcp.CallToolResult) {
		logger.Info().Str("tool", req.Params.Name).Msg("tool call served")
	})

	return hooks
}
