package attr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SimpleReference(t *testing.T) {
	elems, err := Parse("RCH")
	require.NoError(t, err)
	require.Len(t, elems, 1)
	assert.Equal(t, KindReference, elems[0].Kind)
	assert.Equal(t, byte('C'), elems[0].Tag)
}

func TestParse_Replication(t *testing.T) {
	elems, err := Parse("NH[RUH]")
	require.NoError(t, err)
	require.Len(t, elems, 1)
	rep := elems[0]
	assert.Equal(t, KindReplication, rep.Kind)
	assert.Equal(t, KindIntegral, rep.CountElem.Kind)
	assert.Equal(t, byte('H'), rep.CountElem.Tag)
	require.Len(t, rep.Body, 1)
	assert.Equal(t, KindReference, rep.Body[0].Kind)
}

func TestParse_EmptyReplicationBodyErrors(t *testing.T) {
	_, err := Parse("NH[]")
	require.Error(t, err)
}

func TestParse_Union(t *testing.T) {
	elems, err := Parse("TB(0)[RCH](1,2)[RUH]()[]")
	require.NoError(t, err)
	require.Len(t, elems, 1)
	u := elems[0]
	assert.Equal(t, KindUnion, u.Kind)
	require.Len(t, u.Cases, 2)
	assert.Equal(t, []int64{0}, u.Cases[0].Tags)
	assert.Equal(t, []int64{1, 2}, u.Cases[1].Tags)
	assert.Empty(t, u.Default)
}

func TestParse_CallableAndCall(t *testing.T) {
	elems, err := Parse("[RCH(-1)]")
	require.NoError(t, err)
	require.Len(t, elems, 1)
	callable := elems[0]
	assert.Equal(t, KindCallable, callable.Kind)
	require.Len(t, callable.Body, 2)
	assert.Equal(t, KindCall, callable.Body[1].Kind)
	assert.Equal(t, -1, callable.Body[1].CallRef)
	assert.True(t, callable.Body[1].Backwards)
}

func TestParse_FlagsOnIntegral(t *testing.T) {
	elems, err := Parse("SOB")
	require.NoError(t, err)
	require.Len(t, elems, 1)
	assert.Equal(t, "SO", elems[0].Flags)
	assert.Equal(t, byte('B'), elems[0].Tag)
}

func TestParse_KSubscript(t *testing.T) {
	elems, err := Parse("KIH")
	require.Error(t, err) // K follows the type letter, not precedes it; this is an invalid layout
	_ = elems
}

func TestParse_ValidKSubscript(t *testing.T) {
	elems, err := Parse("BKI")
	require.NoError(t, err)
	require.Len(t, elems, 1)
	assert.Equal(t, byte('I'), elems[0].KSub)
}

func TestParse_RejectsTrailingGarbage(t *testing.T) {
	_, err := Parse("RCH]")
	require.Error(t, err)
}

func TestParse_RejectsEmptyLayout(t *testing.T) {
	_, err := Parse("")
	require.Error(t, err)
}
