package changeset

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tree(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestDiffApplyRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		src  string
		dst  string
	}{
		{"scalar change", `{"a":1}`, `{"a":2}`},
		{"new key", `{}`, `{"a":{"b":1}}`},
		{"deleted key", `{"a":1,"b":2}`, `{"b":2}`},
		{"nested edit", `{"tokens":{"t1":{"x":1,"y":2}}}`, `{"tokens":{"t1":{"x":5,"y":2}}}`},
		{"array append", `{"rolls":[1,2]}`, `{"rolls":[1,2,3,4]}`},
		{"array shrink", `{"rolls":[1,2,3,4]}`, `{"rolls":[1]}`},
		{"array element edit", `{"rolls":[{"d":20}]}`, `{"rolls":[{"d":6}]}`},
		{"type swap", `{"fog":{"on":true}}`, `{"fog":[1,2]}`},
		{"root scalar", `1`, `"two"`},
		{"deep mix", `{"a":{"b":[{"c":1}],"d":"x"},"e":[true]}`, `{"a":{"b":[{"c":2},{"c":3}]},"e":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := tree(t, tc.src)
			dst := tree(t, tc.dst)
			ops := Diff(src, dst)
			got := Apply(Clone(src), ops)
			assert.Equal(t, dst, got)
		})
	}
}

func TestDiffEqualTreesIsEmpty(t *testing.T) {
	src := tree(t, `{"a":{"b":[1,2,3]}}`)
	assert.Empty(t, Diff(src, Clone(src)))
}

func TestApplySkipsMissingParent(t *testing.T) {
	ops := []Operation{
		{Kind: OpEdit, Path: []any{"tokens", "t1", "x"}, Value: 9.0},
		{Kind: OpAdd, Path: []any{"tokens", "t1", "tags", 0.0}, Value: "new"},
	}

	// Parent absent: both ops are silent no-ops.
	target := tree(t, `{"drawings":{}}`)
	got := Apply(target, ops)
	assert.Equal(t, tree(t, `{"drawings":{}}`), got)

	// Parent present: the same changeset lands.
	target = tree(t, `{"drawings":{},"tokens":{"t1":{"x":1,"tags":[]}}}`)
	got = Apply(target, ops)
	assert.Equal(t, tree(t, `{"drawings":{},"tokens":{"t1":{"x":9,"tags":["new"]}}}`), got)
}

func TestApplyDeleteIsUnconditional(t *testing.T) {
	target := tree(t, `{"a":{"b":1}}`)

	// Deleting a key that is already gone changes nothing and does not error.
	got := Apply(target, []Operation{{Kind: OpDelete, Path: []any{"a", "c"}}})
	assert.Equal(t, tree(t, `{"a":{"b":1}}`), got)

	got = Apply(got, []Operation{{Kind: OpDelete, Path: []any{"a", "b"}}})
	assert.Equal(t, tree(t, `{"a":{}}`), got)
}

func TestApplyZeroPathEditReplacesRoot(t *testing.T) {
	target := tree(t, `{"a":1}`)
	got := Apply(target, []Operation{{Kind: OpEdit, Path: nil, Value: tree(t, `{"b":2}`)}})
	assert.Equal(t, tree(t, `{"b":2}`), got)
}

func TestApplyArrayOps(t *testing.T) {
	target := tree(t, `{"rolls":[1,2,3]}`)

	got := Apply(target, []Operation{{Kind: OpAdd, Path: []any{"rolls", 1.0}, Value: 9.0}})
	assert.Equal(t, tree(t, `{"rolls":[1,9,2,3]}`), got)

	got = Apply(got, []Operation{{Kind: OpDelete, Path: []any{"rolls", 0.0}}})
	assert.Equal(t, tree(t, `{"rolls":[9,2,3]}`), got)

	// Out-of-range edits are skipped, not applied.
	got = Apply(got, []Operation{{Kind: OpEdit, Path: []any{"rolls", 10.0}, Value: 0.0}})
	assert.Equal(t, tree(t, `{"rolls":[9,2,3]}`), got)
}

func TestApplyRootArrayResize(t *testing.T) {
	target := tree(t, `[1,2,3]`)
	got := Apply(target, []Operation{{Kind: OpDelete, Path: []any{2.0}}})
	assert.Equal(t, tree(t, `[1,2]`), got)
}

func TestOperationWireFormat(t *testing.T) {
	// Operations survive a trip through the JSON envelope they ride in.
	ops := Diff(tree(t, `{"rolls":[1]}`), tree(t, `{"rolls":[1,2],"note":"hi"}`))
	raw, err := json.Marshal(ops)
	require.NoError(t, err)

	var decoded []Operation
	require.NoError(t, json.Unmarshal(raw, &decoded))
	got := Apply(tree(t, `{"rolls":[1]}`), decoded)
	assert.Equal(t, tree(t, `{"rolls":[1,2],"note":"hi"}`), got)
}

func TestCloneIsDeep(t *testing.T) {
	src := tree(t, `{"a":{"b":[1]}}`)
	cp := Clone(src).(map[string]any)
	cp["a"].(map[string]any)["b"].([]any)[0] = 9.0
	assert.Equal(t, tree(t, `{"a":{"b":[1]}}`), src)
}
