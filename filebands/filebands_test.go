package filebands

import (
	"bytes"
	"testing"

	"github.com/pack200go/unpack200/codec"
	"github.com/pack200go/unpack200/cpool"
	"github.com/pack200go/unpack200/streamio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_NamesModtimesAndSizes(t *testing.T) {
	cp := &cpool.Pool{Utf8: []string{"META-INF/MANIFEST.MF", "data.txt"}}
	buf := []byte{
		1, 2, // file_name: 1-based into cp.Utf8
		10, 20, // file_modtime
		4, 9, // file_size_lo
	}
	r := streamio.New(bytes.NewReader(buf))
	def := codec.New(1, 256, codec.SignUnsigned, false)
	reg := codec.NewRegistry(def)

	files, err := Read(r, cp, reg, Options{HaveFileModtime: true, ArchiveCount: 2})
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "META-INF/MANIFEST.MF", files[0].Name)
	assert.Equal(t, int64(10), files[0].Modtime)
	assert.Equal(t, int64(4), files[0].Size)

	assert.Equal(t, "data.txt", files[1].Name)
	assert.Equal(t, int64(20), files[1].Modtime)
	assert.Equal(t, int64(9), files[1].Size)
}

func TestRead_BadNameIndexErrors(t *testing.T) {
	cp := &cpool.Pool{Utf8: []string{"only.txt"}}
	buf := []byte{5, 0}
	r := streamio.New(bytes.NewReader(buf))
	def := codec.New(1, 256, codec.SignUnsigned, false)
	reg := codec.NewRegistry(def)

	_, err := Read(r, cp, reg, Options{ArchiveCount: 1})
	require.Error(t, err)
}

func TestReadFileBits_SkipsClassEntries(t *testing.T) {
	files := []*File{
		{Name: "a.class", IsClass: true, Size: 100},
		{Name: "b.txt", Size: 3},
	}
	r := streamio.New(bytes.NewReader([]byte("xyz")))

	err := ReadFileBits(r, files)
	require.NoError(t, err)
	assert.Nil(t, files[0].Content)
	assert.Equal(t, []byte("xyz"), files[1].Content)
}

func TestRead_ZeroArchiveCountReturnsNil(t *testing.T) {
	r := streamio.New(bytes.NewReader(nil))
	def := codec.New(1, 256, codec.SignUnsigned, false)
	reg := codec.NewRegistry(def)

	files, err := Read(r, &cpool.Pool{}, reg, Options{})
	require.NoError(t, err)
	assert.Nil(t, files)
}
