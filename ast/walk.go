package ast

// Visitor is called once per node during Walk, pre-order. Returning
// false stops descent into that node's children (but Walk continues
// with the node's siblings).
type Visitor func(n Node) bool

// Walk traverses the AST rooted at n in pre-order, invoking visit on
// every node reached. Grounded on original_source's walk.rs, which
// threads a single generic visitor through every mutation operator
// instead of writing a bespoke traversal per operator — the teacher
// has no equivalent since its AST is never rewritten in place.
func Walk(n Node, visit Visitor) {
	if n == nil || !visit(n) {
		return
	}
	switch v := n.(type) {
	case *OpRangeNode:
		Walk(v.Left, visit)
		Walk(v.Right, visit)
	case *OpConcatNode:
		Walk(v.Left, visit)
		Walk(v.Right, visit)
	case *OpSumNode:
		Walk(v.Left, visit)
		Walk(v.Right, visit)
	case *OpProductNode:
		Walk(v.Left, visit)
		Walk(v.Right, visit)
	case *OpPowerNode:
		Walk(v.Left, visit)
		Walk(v.Right, visit)
	case *CompareNode:
		Walk(v.Left, visit)
		Walk(v.Right, visit)
	case *UnaryNode:
		Walk(v.Operand, visit)
	case *FunctionNode:
		for _, a := range v.Args {
			Walk(a, visit)
		}
	case *ArrayNode:
		for _, row := range v.Rows {
			for _, item := range row {
				Walk(item, visit)
			}
		}
	}
}

// Transform rebuilds the AST rooted at n, replacing every node with
// the result of applying fn post-order (children are transformed
// before their parent is visited). Used by the mutate package to
// rewrite references after a row/column insert, delete, or move —
// ground: original_source's swap_references/forward_references, which
// are themselves specializations of this same rebuild-in-place shape.
func Transform(n Node, fn func(Node) Node) Node {
	if n == nil {
		return nil
	}
	switch v := n.(type) {
	case *OpRangeNode:
		return fn(&OpRangeNode{Left: Transform(v.Left, fn), Right: Transform(v.Right, fn), Position: v.Position})
	case *OpConcatNode:
		return fn(&OpConcatNode{Left: Transform(v.Left, fn), Right: Transform(v.Right, fn), Position: v.Position})
	case *OpSumNode:
		return fn(&OpSumNode{Op: v.Op, Left: Transform(v.Left, fn), Right: Transform(v.Right, fn), Position: v.Position})
	case *OpProductNode:
		return fn(&OpProductNode{Op: v.Op, Left: Transform(v.Left, fn), Right: Transform(v.Right, fn), Position: v.Position})
	case *OpPowerNode:
		return fn(&OpPowerNode{Left: Transform(v.Left, fn), Right: Transform(v.Right, fn), Position: v.Position})
	case *CompareNode:
		return fn(&CompareNode{Op: v.Op, Left: Transform(v.Left, fn), Right: Transform(v.Right, fn), Position: v.Position})
	case *UnaryNode:
		return fn(&UnaryNode{Op: v.Op, Operand: Transform(v.Operand, fn), Position: v.Position})
	case *FunctionNode:
		args := make([]Node, len(v.Args))
		for i, a := range v.Args {
			args[i] = Transform(a, fn)
		}
		return fn(&FunctionNode{Name: v.Name, Args: args, Position: v.Position})
	case *ArrayNode:
		rows := make([][]Node, len(v.Rows))
		for i, row := range v.Rows {
			items := make([]Node, len(row))
			for j, item := range row {
				items[j] = Transform(item, fn)
			}
			rows[i] = items
		}
		return fn(&ArrayNode{Rows: rows, Position: v.Position})
	default:
		return fn(n)
	}
}

// CountReferences returns the number of Reference, Range,
// WrongReference, WrongRange, and OpRange nodes in the tree rooted at
// n.
func CountReferences(n Node) int {
	count := 0
	Walk(n, func(node Node) bool {
		switch node.(type) {
		case *ReferenceNode, *RangeNode, *WrongReferenceNode, *WrongRangeNode, *OpRangeNode:
			count++
		}
		return true
	})
	return count
}
