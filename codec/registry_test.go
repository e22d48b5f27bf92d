package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pack200go/unpack200/streamio"
)

func lookupBytes(t *testing.T, reg *Registry, raw []byte) Codec {
	t.Helper()
	r := streamio.New(bytes.NewReader(raw))
	c, err := reg.Lookup(r)
	require.NoError(t, err)

	return c
}

func TestRegistry_DefaultSpecifier(t *testing.T) {
	def := New(5, 64, SignUnsigned, false)
	reg := NewRegistry(def)
	c := lookupBytes(t, reg, []byte{0})
	assert.Same(t, def, c)
}

func TestRegistry_CanonicalSpecifier(t *testing.T) {
	reg := NewRegistry(nil)
	c := lookupBytes(t, reg, []byte{26})
	bhsd, ok := c.(*BHSD)
	require.True(t, ok)
	assert.Equal(t, "(5,64)", bhsd.String())
}

func TestRegistry_ArbitraryBHSDRoundTrip(t *testing.T) {
	reg := NewRegistry(nil)
	want := New(3, 200, SignBias2, true)
	raw, err := reg.SpecifierFor(want)
	require.NoError(t, err)
	got := lookupBytes(t, reg, raw)

	gotBHSD, ok := got.(*BHSD)
	require.True(t, ok)
	assert.Equal(t, want.String(), gotBHSD.String())
}

func TestRegistry_RunSpecifierRoundTrip(t *testing.T) {
	def := New(5, 64, SignUnsigned, false)
	reg := NewRegistry(def)
	a, _ := LookupCanonical(1)
	run := NewRun(16, a, def)

	raw, err := reg.SpecifierFor(run)
	require.NoError(t, err)
	got := lookupBytes(t, reg, raw)

	gotRun, ok := got.(*Run)
	require.True(t, ok)
	assert.Equal(t, run.k, gotRun.k)
	assert.Equal(t, run.a.String(), gotRun.a.String())
	assert.Equal(t, run.b.String(), gotRun.b.String())
}

func TestRegistry_PopulationSpecifierRoundTrip(t *testing.T) {
	def := New(1, 256, SignUnsigned, false)
	reg := NewRegistry(def)
	unfavoured, _ := LookupCanonical(1)
	pop := NewPopulation(def, def, unfavoured, 16)

	raw, err := reg.SpecifierFor(pop)
	require.NoError(t, err)
	got := lookupBytes(t, reg, raw)

	gotPop, ok := got.(*Population)
	require.True(t, ok)
	assert.Equal(t, pop.l, gotPop.l)
	assert.Equal(t, pop.unfavoured.String(), gotPop.unfavoured.String())
}

func TestRegistry_BadSpecifierErrors(t *testing.T) {
	reg := NewRegistry(nil)
	r := streamio.New(bytes.NewReader([]byte{200}))
	_, err := reg.Lookup(r)
	require.Error(t, err)
}
