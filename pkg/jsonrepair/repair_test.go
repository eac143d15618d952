package jsonrepair

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closureOnly exercises the single-pass repair without the fallback.
var closureOnly = Repairer{}

func TestRepair_ClosesTruncatedObject(t *testing.T) {
	t.Parallel()

	v, err := closureOnly.SafeParse(`{"a":1`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, v)
}

func TestRepair_InsertsMissingObjectBrace(t *testing.T) {
	t.Parallel()

	out := closureOnly.Repair(`["a":1]`)
	assert.Equal(t, `[{"a":1}]`, out)

	v, err := closureOnly.SafeParse(`["a":1]`)
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"a": float64(1)}}, v)
}

func TestRepair_MissingBraceOnlyOnce(t *testing.T) {
	t.Parallel()

	// The "]" after 1 does not close the inserted brace, so the closure pass
	// alone cannot fix this input; the fallback gets it.
	out := closureOnly.Repair(`[["x":1], ["y":2]]`)
	assert.Equal(t, 1, strings.Count(out, "{"))
	assert.Equal(t, `[[{"x":1, ["y":2]}]]`, out)
}

func TestRepair_NoInsertionForPlainArrays(t *testing.T) {
	t.Parallel()

	cases := []string{
		`["a","b"]`,
		`[{"a":1}]`,
		`[1,2,3]`,
		`[true, null]`,
		`[]`,
	}
	for _, in := range cases {
		assert.Equal(t, in, closureOnly.Repair(in), "input %s", in)
	}
}

func TestRepair_BareIdentifierTriggersInsertion(t *testing.T) {
	t.Parallel()

	out := closureOnly.Repair(`[type:1`)
	assert.Equal(t, `[{type:1}]`, out)
}

func TestRepair_RemovesTrailingComma(t *testing.T) {
	t.Parallel()

	v, err := closureOnly.SafeParse(`{"a":1,`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, v)

	assert.Equal(t, `[1,2]`, closureOnly.Repair("[1,2,  \n"))
}

func TestRepair_ClosesOpenString(t *testing.T) {
	t.Parallel()

	out := closureOnly.Repair(`{"label":"hel`)
	assert.Equal(t, `{"label":"hel"}`, out)
}

func TestRepair_EscapedQuotesStayInString(t *testing.T) {
	t.Parallel()

	out := closureOnly.Repair(`{"t":"say \"}\" now"`)
	assert.Equal(t, `{"t":"say \"}\" now"}`, out)
}

func TestRepair_NestedClosersInnermostFirst(t *testing.T) {
	t.Parallel()

	out := closureOnly.Repair(`{"a":[{"b":[1,2`)
	assert.Equal(t, `{"a":[{"b":[1,2]}]}`, out)
}

func TestRepair_StripsFencesAndProse(t *testing.T) {
	t.Parallel()

	in := "Here is your diagram:\n```json\n[{\"type\":\"rectangle\"}]\n```\nEnjoy!"
	v, err := closureOnly.SafeParse(in)
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"type": "rectangle"}}, v)

	assert.Equal(t, `{"a":1}`, closureOnly.Repair("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, closureOnly.Repair("```javascript\n{\"a\":1}```"))
}

func TestRepair_DropsTrailingCommentary(t *testing.T) {
	t.Parallel()

	out := closureOnly.Repair(`{"a":1} I hope this {helps}`)
	assert.Equal(t, `{"a":1}`, out)
}

func TestRepair_DropsStrayCloser(t *testing.T) {
	t.Parallel()

	out := closureOnly.Repair(`{"a":1]}`)
	assert.Equal(t, `{"a":1}`, out)
}

func TestRepair_MismatchedCloserIgnored(t *testing.T) {
	t.Parallel()

	out := closureOnly.Repair(`{"a":[1},2]}`)
	assert.Equal(t, `{"a":[1,2]}`, out)

	// a mismatched closer never ends the root value early
	out = closureOnly.Repair(`{"a":[1}, "b":2`)
	assert.Equal(t, `{"a":[1, "b":2]}`, out)
}

func TestRepair_NoJSONReturnsTextUnchanged(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "no json here", closureOnly.Repair("  no json here \n"))
}

func TestSafeParse_NoJSON(t *testing.T) {
	t.Parallel()

	_, err := closureOnly.SafeParse("sorry, I cannot draw that")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoJSON))
	assert.False(t, errors.Is(err, ErrUnrepairable))
}

func TestSafeParse_Unrepairable(t *testing.T) {
	t.Parallel()

	_, err := closureOnly.SafeParse(`{"a": }`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnrepairable))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, `{"a": }`, pe.Candidate)
}

func TestSafeParse_ValidInputUntouched(t *testing.T) {
	t.Parallel()

	v, err := closureOnly.SafeParse(`{"root":{"text":"x"}}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"root": map[string]any{"text": "x"}}, v)
}

func TestSafeParse_FallbackUsedWhenClosureFails(t *testing.T) {
	t.Parallel()

	calls := 0
	r := Repairer{Fallback: func(string) (string, error) {
		calls++
		return `{"fixed":true}`, nil
	}}

	v, err := r.SafeParse(`{'a': 1}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"fixed": true}, v)
	assert.Equal(t, 1, calls)
}

func TestSafeParse_FallbackFailureIsUnrepairable(t *testing.T) {
	t.Parallel()

	r := Repairer{Fallback: func(string) (string, error) {
		return "", errors.New("cannot")
	}}

	_, err := r.SafeParse(`{"a": }`)
	assert.ErrorIs(t, err, ErrUnrepairable)
}

func TestDefault_RepairsSingleQuotes(t *testing.T) {
	t.Parallel()

	v, err := SafeParse(`{'name': 'box'}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "box"}, v)
}
