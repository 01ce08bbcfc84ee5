// Package mutate implements spec.md §4.6's structural mutation
// operators: row/column insert and delete, local cell shifting, cell
// swap and move, and formula re-anchoring. The teacher has no
// equivalent (its sheets are append-only); every operator here is
// grounded directly on original_source's actions.rs, translated from
// Rust's relative-delta reference encoding into this module's
// already-resolved-coordinate ReferenceNode/RangeNode representation,
// and from Rust's `Result<(), &'static str>` into gscalcerr's
// StructuralError.
package mutate

import (
	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/calcresult"
)

// displacer maps one resolved (sheet, row, col) coordinate to its
// post-mutation coordinate. keep=false means the reference fell inside
// a deleted band and must become #REF!. Every mutation operator below
// builds one of these and hands it to rewriteNode — the "shared
// visitor" spec.md §4.6 calls for, ported from actions.rs's
// displace_cells/DisplaceData enum (one function value per variant
// instead of a Rust enum dispatch).
type displacer func(sheet int, row, col int32) (newSheet int, newRow, newCol int32, keep bool)

// rewriteNode rewrites every Reference/Range node in n through d,
// turning a killed endpoint into a #REF! error node — actions.rs's own
// comment notes Excel would instead propagate #REF! only at the
// specific dead edge of a range; this module takes the simpler,
// documented choice of invalidating the whole range when either edge
// dies.
func rewriteNode(n ast.Node, d displacer, namer ast.SheetNamer) ast.Node {
	return ast.Transform(n, func(node ast.Node) ast.Node {
		switch v := node.(type) {
		case *ast.ReferenceNode:
			ns, nr, nc, keep := d(v.SheetIndex, v.Row, v.Column)
			if !keep {
				return &ast.ErrorNode{Kind: calcresult.ErrRef, Position: v.Position}
			}
			if ns == v.SheetIndex && nr == v.Row && nc == v.Column {
				return v
			}
			cp := *v
			cp.Row, cp.Column = nr, nc
			if ns != v.SheetIndex {
				cp.SheetIndex = ns
				if name, ok := namer.SheetName(ns); ok {
					cp.HasSheetName = true
					cp.SheetName = name
				}
			}
			return &cp
		case *ast.RangeNode:
			lSheet, lr, lc, keepL := d(v.SheetIndex, v.Left.Row, v.Left.Column)
			rSheet, rr, rc, keepR := d(v.SheetIndex, v.Right.Row, v.Right.Column)
			if !keepL || !keepR {
				return &ast.ErrorNode{Kind: calcresult.ErrRef, Position: v.Position}
			}
			if lSheet == v.SheetIndex && lr == v.Left.Row && lc == v.Left.Column &&
				rr == v.Right.Row && rc == v.Right.Column {
				return v
			}
			cp := *v
			cp.Left.Row, cp.Left.Column = lr, lc
			cp.Right.Row, cp.Right.Column = rr, rc
			if lSheet != v.SheetIndex {
				cp.SheetIndex = lSheet
				_ = rSheet
				if name, ok := namer.SheetName(lSheet); ok {
					cp.HasSheetName = true
					cp.SheetName = name
				}
			}
			return &cp
		default:
			return node
		}
	})
}

