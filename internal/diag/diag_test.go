package diag

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/hivellm/tmlc/internal/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func span(line int) ast.Span {
	return ast.Span{Start: ast.Pos{File: "f.tml", Line: line, Column: 1}, End: ast.Pos{File: "f.tml", Line: line, Column: 5}}
}

func TestRegistryCoversEveryConstant(t *testing.T) {
	for _, code := range []string{ENV001, TC001, BRW001, MONO001, CDG001, BUG001} {
		info, ok := Lookup(code)
		require.True(t, ok, "code %s must be registered", code)
		assert.Equal(t, code, info.Code)
	}
}

func TestIsPhase(t *testing.T) {
	assert.True(t, IsPhase(TC001, PhaseType))
	assert.False(t, IsPhase(TC001, PhaseBorrow))
}

func TestPriorityOrdersNameBeforeTypeBeforeBorrow(t *testing.T) {
	assert.Less(t, PriorityOf(ENV001), PriorityOf(TC001))
	assert.Less(t, PriorityOf(TC001), PriorityOf(BRW001))
	assert.Less(t, PriorityOf(BRW001), PriorityOf(MONO001))
	assert.Less(t, PriorityOf(MONO001), PriorityOf(CDG001))
}

func TestBugAlwaysHighestPriority(t *testing.T) {
	assert.Less(t, PriorityOf(BUG001), PriorityOf(ENV001))
}

func TestAccumulatorPrimaryPicksHighestTier(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(New(CDG001, span(3), ""))
	acc.Add(New(ENV003, span(1), "unbound x"))
	acc.Add(New(TC001, span(2), "mismatch"))

	primary, ok := acc.Primary()
	require.True(t, ok)
	assert.Equal(t, ENV003, primary.Code)
}

func TestAccumulatorSortedByPhaseIsStable(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(New(BRW001, span(1), "a"))
	acc.Add(New(TC001, span(2), "b"))
	acc.Add(New(TC002, span(3), "c"))

	sorted := acc.SortedByPhase()
	require.Len(t, sorted, 3)
	assert.Equal(t, TC001, sorted[0].Code)
	assert.Equal(t, TC002, sorted[1].Code)
	assert.Equal(t, BRW001, sorted[2].Code)
}

func TestEncodeJSONRoundTripsFields(t *testing.T) {
	d := New(BRW002, span(7), "conflicting borrow").WithNote("other borrow lives here", span(5))
	raw, err := EncodeJSON(d)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "BRW002", decoded["code"])
	assert.Equal(t, "borrow", decoded["phase"])
	notes := decoded["notes"].([]interface{})
	require.Len(t, notes, 1)
}

func TestReportAllWritesSummaryCount(t *testing.T) {
	var buf bytes.Buffer
	ReportAll(&buf, []Diagnostic{New(TC001, span(1), "bad"), New(TC002, span(2), "bad2")})
	assert.Contains(t, buf.String(), "2 diagnostic(s)")
}
