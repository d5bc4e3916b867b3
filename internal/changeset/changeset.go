// Package changeset computes and applies structural diffs between JSON-like
// trees (map[string]any, []any, scalars). It knows nothing about rooms or
// connections; callers hand it plain decoded values.
package changeset

import (
	"reflect"
	"sort"
)

type OpKind string

const (
	// OpAdd inserts an element into an array at the path's final index.
	OpAdd OpKind = "add"
	// OpEdit replaces the value at the path. With an empty path it
	// replaces the whole tree.
	OpEdit OpKind = "edit"
	// OpDelete removes the key or index at the path.
	OpDelete OpKind = "delete"
)

// Operation is a single primitive edit. Path elements are object keys
// (string) or array indexes (number).
type Operation struct {
	Kind  OpKind `json:"kind"`
	Path  []any  `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Diff returns an ordered list of operations that transforms src into dst.
// Map keys are visited in sorted order so the output is deterministic.
func Diff(src, dst any) []Operation {
	var ops []Operation
	diffValue(nil, src, dst, &ops)
	return ops
}

func diffValue(path []any, src, dst any, ops *[]Operation) {
	if sm, ok := src.(map[string]any); ok {
		if dm, ok := dst.(map[string]any); ok {
			diffMap(path, sm, dm, ops)
			return
		}
	}
	if sa, ok := src.([]any); ok {
		if da, ok := dst.([]any); ok {
			diffArray(path, sa, da, ops)
			return
		}
	}
	if !reflect.DeepEqual(src, dst) {
		*ops = append(*ops, Operation{Kind: OpEdit, Path: path, Value: dst})
	}
}

func diffMap(path []any, src, dst map[string]any, ops *[]Operation) {
	for _, k := range sortedKeys(src) {
		if _, ok := dst[k]; !ok {
			*ops = append(*ops, Operation{Kind: OpDelete, Path: childPath(path, k)})
		}
	}
	for _, k := range sortedKeys(dst) {
		dv := dst[k]
		sv, ok := src[k]
		if !ok {
			*ops = append(*ops, Operation{Kind: OpEdit, Path: childPath(path, k), Value: dv})
			continue
		}
		diffValue(childPath(path, k), sv, dv, ops)
	}
}

func diffArray(path []any, src, dst []any, ops *[]Operation) {
	n := len(src)
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		diffValue(childPath(path, i), src[i], dst[i], ops)
	}
	for i := n; i < len(dst); i++ {
		*ops = append(*ops, Operation{Kind: OpAdd, Path: childPath(path, i), Value: dst[i]})
	}
	// Trailing deletes run back to front so earlier indexes stay valid.
	for i := len(src) - 1; i >= len(dst); i-- {
		*ops = append(*ops, Operation{Kind: OpDelete, Path: childPath(path, i)})
	}
}

// Apply applies ops to root in order and returns the resulting tree. The
// input may be mutated in place; callers must keep the returned value since
// a zero-path Edit or a root array resize replaces the root.
//
// Edit and Add operations whose parent location no longer exists are skipped
// silently: an update computed against a tree the receiver has since changed
// must not crash the receiver.
func Apply(root any, ops []Operation) any {
	for _, op := range ops {
		root, _ = applyOp(root, op)
	}
	return root
}

func applyOp(root any, op Operation) (any, bool) {
	if len(op.Path) == 0 {
		if op.Kind == OpEdit {
			return op.Value, true
		}
		return root, false
	}
	return applyAt(root, op.Path, op)
}

// applyAt walks one accessor per call and reports whether the operation
// landed. The returned node replaces the walked one so array resizes
// propagate upward.
func applyAt(node any, path []any, op Operation) (any, bool) {
	last := len(path) == 1
	switch parent := node.(type) {
	case map[string]any:
		key, ok := path[0].(string)
		if !ok {
			return node, false
		}
		if !last {
			child, exists := parent[key]
			if !exists {
				return node, false
			}
			newChild, applied := applyAt(child, path[1:], op)
			if applied {
				parent[key] = newChild
			}
			return node, applied
		}
		switch op.Kind {
		case OpEdit:
			parent[key] = op.Value
			return node, true
		case OpDelete:
			delete(parent, key)
			return node, true
		}
		return node, false
	case []any:
		idx, ok := toIndex(path[0])
		if !ok {
			return node, false
		}
		if !last {
			if idx < 0 || idx >= len(parent) {
				return node, false
			}
			newChild, applied := applyAt(parent[idx], path[1:], op)
			if applied {
				parent[idx] = newChild
			}
			return node, applied
		}
		switch op.Kind {
		case OpEdit:
			if idx < 0 || idx >= len(parent) {
				return node, false
			}
			parent[idx] = op.Value
			return node, true
		case OpAdd:
			if idx < 0 || idx > len(parent) {
				idx = len(parent)
			}
			parent = append(parent, nil)
			copy(parent[idx+1:], parent[idx:])
			parent[idx] = op.Value
			return parent, true
		case OpDelete:
			if idx < 0 || idx >= len(parent) {
				return node, false
			}
			return append(parent[:idx], parent[idx+1:]...), true
		}
	}
	return node, false
}

// Clone deep-copies a JSON-like tree. Scalars are returned as-is.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	default:
		return v
	}
}

func childPath(path []any, elem any) []any {
	out := make([]any, len(path)+1)
	copy(out, path)
	out[len(path)] = elem
	return out
}

// toIndex accepts the numeric forms an index takes after a JSON round trip.
func toIndex(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
