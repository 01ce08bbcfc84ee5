package mcphost

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/depanalysis"
	"github.com/cellforge/gscalc/eval"
	"github.com/cellforge/gscalc/gscalcerr"
	"github.com/cellforge/gscalc/jsonio"
	"github.com/cellforge/gscalc/mutate"
	"github.com/cellforge/gscalc/parser"
	"github.com/cellforge/gscalc/reference"
	"github.com/cellforge/gscalc/workbook"
)

// CalcResultDoc mirrors calcresult.CalcResult as a JSON-friendly
// struct, the same flattened-tagged-variant shape jsonio.CellDoc uses
// for cells — only the field the Kind names is meaningful.
type CalcResultDoc struct {
	Kind      string  `json:"kind"`
	Number    float64 `json:"number,omitempty"`
	String    string  `json:"string,omitempty"`
	Boolean   bool    `json:"boolean,omitempty"`
	ErrorKind string  `json:"error_kind,omitempty"`
}

var calcKindNames = map[calcresult.Kind]string{
	calcresult.KindNumber:    "number",
	calcresult.KindString:    "string",
	calcresult.KindBoolean:   "boolean",
	calcresult.KindRange:     "range",
	calcresult.KindError:     "error",
	calcresult.KindEmptyCell: "empty",
	calcresult.KindEmptyArg:  "empty_arg",
}

func calcResultToDoc(c calcresult.CalcResult) CalcResultDoc {
	doc := CalcResultDoc{Kind: calcKindNames[c.Kind]}
	switch c.Kind {
	case calcresult.KindNumber:
		doc.Number = c.Number
	case calcresult.KindString:
		doc.String = c.Str
	case calcresult.KindBoolean:
		doc.Boolean = c.Boolean
	case calcresult.KindError:
		doc.ErrorKind = c.ErrKind.Tag()
	}
	return doc
}

func toolError(prefix string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
}

func sessionErrorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, ErrSessionNotFound) {
		return mcp.NewToolResultError("INVALID_SESSION: workbook session not found or expired")
	}
	var structural *gscalcerr.StructuralError
	if errors.As(err, &structural) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", structural.Code, structural.Message))
	}
	return toolError("FAILED", err)
}

func resolveCell(wb *workbook.Workbook, sheet, cellLabel string) (reference.Index, error) {
	defaultSheet, ok := wb.SheetIndex(sheet)
	if !ok {
		return reference.Index{}, gscalcerr.New(gscalcerr.CodeSheetNotFound, "no sheet named %q", sheet)
	}
	return reference.ParseTextual(cellLabel, defaultSheet, wb)
}

// RegisterTools wires every spec.md §6 MCP tool onto s, backed by mgr
// for workbook residency. coalesce deduplicates concurrent identical
// calculate calls against the same session+cell — a distinct x/sync
// primitive from mgr's semaphore-backed capacity gate, serving request
// coalescing rather than capacity limiting.
func RegisterTools(s *server.MCPServer, mgr *SessionManager, coalesce *singleflight.Group, logger zerolog.Logger) {
	registerOpenWorkbook(s, mgr, logger)
	registerSetCell(s, mgr, logger)
	registerGetCell(s, mgr, logger)
	registerCalculate(s, mgr, coalesce, logger)
	registerInsertRows(s, mgr, logger)
	registerDeleteRows(s, mgr, logger)
	registerCellIndependentOf(s, mgr, logger)
	registerDuplicateWorkbook(s, mgr, logger)
}

// --- open_workbook ---

type OpenWorkbookInput struct {
	Document string `json:"document" jsonschema_description:"Raw JSON text of a spec §6 Workbook document"`
}

type OpenWorkbookOutput struct {
	SessionID string `json:"session_id"`
	Sheets    int    `json:"sheets"`
}

func registerOpenWorkbook(s *server.MCPServer, mgr *SessionManager, logger zerolog.Logger) {
	tool := mcp.NewTool(
		"open_workbook",
		mcp.WithDescription("Decode a JSON workbook document and register it as a session"),
		mcp.WithString("document", mcp.Required(), mcp.Description("Raw JSON text of a spec §6 Workbook document")),
		mcp.WithOutputSchema[OpenWorkbookOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in OpenWorkbookInput) (*mcp.CallToolResult, error) {
		raw := strings.TrimSpace(in.Document)
		if raw == "" {
			return mcp.NewToolResultError("VALIDATION: document is required"), nil
		}
		wb, err := jsonio.Load([]byte(raw))
		if err != nil {
			return toolError("DECODE_FAILED", err), nil
		}
		id, err := mgr.Open(ctx, wb)
		if err != nil {
			return toolError("OPEN_FAILED", err), nil
		}
		logger.Info().Str("session_id", id).Int("sheets", len(wb.Sheets())).Msg("workbook opened")
		out := OpenWorkbookOutput{SessionID: id, Sheets: len(wb.Sheets())}
		return mcp.NewToolResultStructured(out, fmt.Sprintf("workbook opened with %d sheets", out.Sheets)), nil
	}))
}

// --- set_cell ---

type SetCellInput struct {
	SessionID string `json:"session_id" jsonschema_description:"Open workbook session ID"`
	Sheet     string `json:"sheet" jsonschema_description:"Sheet name"`
	Cell      string `json:"cell" jsonschema_description:"A1-style cell address"`
	Formula   string `json:"formula" jsonschema_description:"A1-style formula text, including the leading ="`
}

type SetCellOutput struct {
	Sheet string `json:"sheet"`
	Cell  string `json:"cell"`
}

func registerSetCell(s *server.MCPServer, mgr *SessionManager, logger zerolog.Logger) {
	tool := mcp.NewTool(
		"set_cell",
		mcp.WithDescription("Set a cell to a formula, invalidating its cached result"),
		mcp.WithString("session_id", mcp.Required()),
		mcp.WithString("sheet", mcp.Required()),
		mcp.WithString("cell", mcp.Required()),
		mcp.WithString("formula", mcp.Required()),
		mcp.WithOutputSchema[SetCellOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in SetCellInput) (*mcp.CallToolResult, error) {
		if in.SessionID == "" || in.Sheet == "" || in.Cell == "" || in.Formula == "" {
			return mcp.NewToolResultError("VALIDATION: session_id, sheet, cell, and formula are required"), nil
		}
		err := mgr.WithWrite(in.SessionID, func(wb *workbook.Workbook, ev *eval.Evaluator) error {
			ref, perr := resolveCell(wb, in.Sheet, in.Cell)
			if perr != nil {
				return perr
			}
			node := parser.NewA1(in.Formula, ref, wb, workbook.DefaultLocale).Parse()
			r1c1 := ast.StringifyR1C1(node, ref, wb)
			sheet := wb.Sheet(ref.Sheet)
			idx := sheet.InternSharedFormula(r1c1)
			if perr := wb.SetCellAt(ref, workbook.Cell{Kind: workbook.CellFormulaPending, FormulaIndex: idx}); perr != nil {
				return perr
			}
			ev.Invalidate(ref)
			return nil
		})
		if err != nil {
			return sessionErrorResult(err), nil
		}
		logger.Info().Str("session_id", in.SessionID).Str("cell", in.Cell).Msg("cell set")
		out := SetCellOutput{Sheet: in.Sheet, Cell: in.Cell}
		return mcp.NewToolResultStructured(out, "cell set"), nil
	}))
}

// --- get_cell ---

type GetCellInput struct {
	SessionID string `json:"session_id"`
	Sheet     string `json:"sheet"`
	Cell      string `json:"cell"`
}

type GetCellOutput struct {
	Sheet  string        `json:"sheet"`
	Cell   string        `json:"cell"`
	Result CalcResultDoc `json:"result"`
}

func registerGetCell(s *server.MCPServer, mgr *SessionManager, logger zerolog.Logger) {
	tool := mcp.NewTool(
		"get_cell",
		mcp.WithDescription("Read a cell's last-evaluated result without forcing recomputation"),
		mcp.WithString("session_id", mcp.Required()),
		mcp.WithString("sheet", mcp.Required()),
		mcp.WithString("cell", mcp.Required()),
		mcp.WithOutputSchema[GetCellOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in GetCellInput) (*mcp.CallToolResult, error) {
		if in.SessionID == "" || in.Sheet == "" || in.Cell == "" {
			return mcp.NewToolResultError("VALIDATION: session_id, sheet, and cell are required"), nil
		}
		var result calcresult.CalcResult
		err := mgr.WithRead(in.SessionID, func(wb *workbook.Workbook, ev *eval.Evaluator) error {
			ref, perr := resolveCell(wb, in.Sheet, in.Cell)
			if perr != nil {
				return perr
			}
			result = ev.EvaluateCell(ref)
			return nil
		})
		if err != nil {
			return sessionErrorResult(err), nil
		}
		out := GetCellOutput{Sheet: in.Sheet, Cell: in.Cell, Result: calcResultToDoc(result)}
		return mcp.NewToolResultStructured(out, fmt.Sprintf("result kind=%s", out.Result.Kind)), nil
	}))
}

// --- calculate ---

type CalculateInput struct {
	SessionID string `json:"session_id"`
	Sheet     string `json:"sheet" jsonschema_description:"Optional: when set with cell, evaluate just that cell instead of the whole workbook"`
	Cell      string `json:"cell,omitempty"`
}

type CalculateOutput struct {
	Diagnostics int           `json:"diagnostics"`
	Result      CalcResultDoc `json:"result,omitempty"`
}

func registerCalculate(s *server.MCPServer, mgr *SessionManager, coalesce *singleflight.Group, logger zerolog.Logger) {
	tool := mcp.NewTool(
		"calculate",
		mcp.WithDescription("Recompute the whole workbook (or one cell) and report diagnostics"),
		mcp.WithString("session_id", mcp.Required()),
		mcp.WithString("sheet"),
		mcp.WithString("cell"),
		mcp.WithOutputSchema[CalculateOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in CalculateInput) (*mcp.CallToolResult, error) {
		if in.SessionID == "" {
			return mcp.NewToolResultError("VALIDATION: session_id is required"), nil
		}
		key := in.SessionID + "|" + in.Sheet + "|" + in.Cell
		v, err, _ := coalesce.Do(key, func() (any, error) {
			var out CalculateOutput
			werr := mgr.WithWrite(in.SessionID, func(wb *workbook.Workbook, ev *eval.Evaluator) error {
				if in.Sheet != "" && in.Cell != "" {
					ref, perr := resolveCell(wb, in.Sheet, in.Cell)
					if perr != nil {
						return perr
					}
					out.Result = calcResultToDoc(ev.EvaluateCell(ref))
					return nil
				}
				diags := ev.EvaluateAllStrict()
				out.Diagnostics = len(diags)
				return nil
			})
			return out, werr
		})
		if err != nil {
			return sessionErrorResult(err), nil
		}
		out := v.(CalculateOutput)
		logger.Info().Str("session_id", in.SessionID).Int("diagnostics", out.Diagnostics).Msg("calculate complete")
		return mcp.NewToolResultStructured(out, "calculation complete"), nil
	}))
}

// --- insert_rows / delete_rows ---

type RowsInput struct {
	SessionID string `json:"session_id"`
	Sheet     string `json:"sheet"`
	Pivot     int    `json:"pivot" jsonschema_description:"1-based row index the operation pivots on"`
	Count     int    `json:"count" jsonschema_description:"Number of rows to insert/delete"`
}

type RowsOutput struct {
	Sheet string `json:"sheet"`
	Pivot int    `json:"pivot"`
	Count int    `json:"count"`
}

func registerInsertRows(s *server.MCPServer, mgr *SessionManager, logger zerolog.Logger) {
	tool := mcp.NewTool(
		"insert_rows",
		mcp.WithDescription("Insert blank rows, shifting data and re-anchoring formula references"),
		mcp.WithString("session_id", mcp.Required()),
		mcp.WithString("sheet", mcp.Required()),
		mcp.WithNumber("pivot", mcp.Required()),
		mcp.WithNumber("count", mcp.Required(), mcp.Min(1)),
		mcp.WithOutputSchema[RowsOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in RowsInput) (*mcp.CallToolResult, error) {
		err := mgr.WithWrite(in.SessionID, func(wb *workbook.Workbook, ev *eval.Evaluator) error {
			idx, ok := wb.SheetIndex(in.Sheet)
			if !ok {
				return gscalcerr.New(gscalcerr.CodeSheetNotFound, "no sheet named %q", in.Sheet)
			}
			if perr := mutate.InsertRows(wb, idx, int32(in.Pivot), int32(in.Count)); perr != nil {
				return perr
			}
			ev.InvalidateAll()
			return nil
		})
		if err != nil {
			return sessionErrorResult(err), nil
		}
		logger.Info().Str("session_id", in.SessionID).Int("pivot", in.Pivot).Int("count", in.Count).Msg("rows inserted")
		out := RowsOutput{Sheet: in.Sheet, Pivot: in.Pivot, Count: in.Count}
		return mcp.NewToolResultStructured(out, "rows inserted"), nil
	}))
}

func registerDeleteRows(s *server.MCPServer, mgr *SessionManager, logger zerolog.Logger) {
	tool := mcp.NewTool(
		"delete_rows",
		mcp.WithDescription("Delete rows, shifting data and invalidating dead references to #REF!"),
		mcp.WithString("session_id", mcp.Required()),
		mcp.WithString("sheet", mcp.Required()),
		mcp.WithNumber("pivot", mcp.Required()),
		mcp.WithNumber("count", mcp.Required(), mcp.Min(1)),
		mcp.WithOutputSchema[RowsOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in RowsInput) (*mcp.CallToolResult, error) {
		err := mgr.WithWrite(in.SessionID, func(wb *workbook.Workbook, ev *eval.Evaluator) error {
			idx, ok := wb.SheetIndex(in.Sheet)
			if !ok {
				return gscalcerr.New(gscalcerr.CodeSheetNotFound, "no sheet named %q", in.Sheet)
			}
			if perr := mutate.DeleteRows(wb, idx, int32(in.Pivot), int32(in.Count)); perr != nil {
				return perr
			}
			ev.InvalidateAll()
			return nil
		})
		if err != nil {
			return sessionErrorResult(err), nil
		}
		logger.Info().Str("session_id", in.SessionID).Int("pivot", in.Pivot).Int("count", in.Count).Msg("rows deleted")
		out := RowsOutput{Sheet: in.Sheet, Pivot: in.Pivot, Count: in.Count}
		return mcp.NewToolResultStructured(out, "rows deleted"), nil
	}))
}

// --- duplicate_workbook ---

type DuplicateWorkbookInput struct {
	SessionID string `json:"session_id" jsonschema_description:"Open workbook session ID to fork"`
}

type DuplicateWorkbookOutput struct {
	SessionID string `json:"session_id"`
	Sheets    int    `json:"sheets"`
}

// registerDuplicateWorkbook forks an open session's workbook into a
// new, independent session, so a caller can try a structural edit or
// a what-if change without disturbing the original.
func registerDuplicateWorkbook(s *server.MCPServer, mgr *SessionManager, logger zerolog.Logger) {
	tool := mcp.NewTool(
		"duplicate_workbook",
		mcp.WithDescription("Fork an open session's workbook into a new, independent session"),
		mcp.WithString("session_id", mcp.Required()),
		mcp.WithOutputSchema[DuplicateWorkbookOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in DuplicateWorkbookInput) (*mcp.CallToolResult, error) {
		if in.SessionID == "" {
			return mcp.NewToolResultError("VALIDATION: session_id is required"), nil
		}
		var clone *workbook.Workbook
		err := mgr.WithRead(in.SessionID, func(wb *workbook.Workbook, ev *eval.Evaluator) error {
			clone = wb.Clone()
			return nil
		})
		if err != nil {
			return sessionErrorResult(err), nil
		}
		id, err := mgr.Open(ctx, clone)
		if err != nil {
			return toolError("OPEN_FAILED", err), nil
		}
		logger.Info().Str("source_session_id", in.SessionID).Str("session_id", id).Msg("workbook duplicated")
		out := DuplicateWorkbookOutput{SessionID: id, Sheets: len(clone.Sheets())}
		return mcp.NewToolResultStructured(out, fmt.Sprintf("workbook duplicated with %d sheets", out.Sheets)), nil
	}))
}

// --- cell_independent_of ---

type CellIndependentOfInput struct {
	SessionID string   `json:"session_id"`
	Sheet     string   `json:"sheet"`
	Cell      string   `json:"cell"`
	Sheets    []string `json:"sheets,omitempty" jsonschema_description:"Sheet names to check independence from"`
	Cells     []string `json:"cells,omitempty" jsonschema_description:"A1-style cell addresses to check independence from, resolved against their own sheet prefix or the target cell's sheet"`
}

type CellIndependentOfOutput struct {
	Independent bool `json:"independent"`
}

func registerCellIndependentOf(s *server.MCPServer, mgr *SessionManager, logger zerolog.Logger) {
	tool := mcp.NewTool(
		"cell_independent_of",
		mcp.WithDescription("Conservatively check whether a cell's value cannot depend on the given sheets/cells"),
		mcp.WithString("session_id", mcp.Required()),
		mcp.WithString("sheet", mcp.Required()),
		mcp.WithString("cell", mcp.Required()),
		mcp.WithOutputSchema[CellIndependentOfOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in CellIndependentOfInput) (*mcp.CallToolResult, error) {
		var independent bool
		err := mgr.WithRead(in.SessionID, func(wb *workbook.Workbook, ev *eval.Evaluator) error {
			ref, perr := resolveCell(wb, in.Sheet, in.Cell)
			if perr != nil {
				return perr
			}
			sheetIdxs := make([]int, 0, len(in.Sheets))
			for _, name := range in.Sheets {
				idx, ok := wb.SheetIndex(name)
				if !ok {
					return gscalcerr.New(gscalcerr.CodeSheetNotFound, "no sheet named %q", name)
				}
				sheetIdxs = append(sheetIdxs, idx)
			}
			cellRefs := make([]reference.Index, 0, len(in.Cells))
			for _, label := range in.Cells {
				cref, cerr := resolveCell(wb, in.Sheet, label)
				if cerr != nil {
					return cerr
				}
				cellRefs = append(cellRefs, cref)
			}
			result, derr := depanalysis.CellIndependentOfSheetsAndCells(wb, ref, sheetIdxs, cellRefs)
			if derr != nil {
				return derr
			}
			independent = result
			return nil
		})
		if err != nil {
			return sessionErrorResult(err), nil
		}
		out := CellIndependentOfOutput{Independent: independent}
		return mcp.NewToolResultStructured(out, fmt.Sprintf("independent=%t", independent)), nil
	}))
}
