package cpool

import (
	"bytes"
	"testing"

	"github.com/pack200go/unpack200/codec"
	"github.com/pack200go/unpack200/streamio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_Utf8PrefixReuse(t *testing.T) {
	buf := []byte{
		0, 2, // prefix band: "ab" reuses 0 bytes, "abc" reuses 2
		2, 1, // suffix length band
		'a', 'b', // suffix for "ab"
		'c', // suffix for "abc"
	}
	r := streamio.New(bytes.NewReader(buf))
	def := codec.New(1, 256, codec.SignUnsigned, false)

	p, err := Read(r, Counts{Utf8: 2}, def)
	require.NoError(t, err)
	assert.Equal(t, []string{"ab", "abc"}, p.Utf8)
}

func TestRead_MemberRefBand(t *testing.T) {
	buf := []byte{
		5, 6, // class indices
		9, 10, // descr indices
	}
	r := streamio.New(bytes.NewReader(buf))
	def := codec.New(1, 256, codec.SignUnsigned, false)

	refs, err := readMemberRefBand(r, 2, def)
	require.NoError(t, err)
	assert.Equal(t, []MemberRef{{ClassIndex: 5, DescrIndex: 9}, {ClassIndex: 6, DescrIndex: 10}}, refs)
}

func TestResolveSignatures_CountsLPlaceholders(t *testing.T) {
	p := &Pool{
		Utf8:      []string{"(Ljava/lang/String;I)V"},
		Signature: []Signature{{FormIndex: 1}},
	}
	// one `L` in the form string, so one class ref follows in the band.
	r := streamio.New(bytes.NewReader([]byte{7}))
	def := codec.New(1, 256, codec.SignUnsigned, false)

	err := p.ResolveSignatures(r, def)
	require.NoError(t, err)
	assert.Equal(t, []int32{7}, p.Signature[0].ClassRefs)
}

func TestKey_StableAcrossCalls(t *testing.T) {
	assert.Equal(t, Key("java/lang/Object"), Key("java/lang/Object"))
	assert.NotEqual(t, Key("java/lang/Object"), Key("java/lang/String"))
}
