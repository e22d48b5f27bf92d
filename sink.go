package unpack200

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	kflate "github.com/klauspost/compress/flate"
)

func init() {
	// Swap the standard library's flate for klauspost/compress's faster
	// implementation in every zip.Writer this package creates; archive/zip
	// only lets you override its compressor globally per method ID, which
	// is why this lives in an init rather than per-Writer setup.
	zip.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return kflate.NewWriter(w, kflate.DefaultCompression)
	})
}

// JarSink writes unpacked entries into a .jar/.zip archive.
type JarSink struct {
	zw *zip.Writer
}

// NewJarSink wraps w as a zip archive destination.
func NewJarSink(w io.Writer) *JarSink {
	return &JarSink{zw: zip.NewWriter(w)}
}

// Close flushes the zip central directory. Callers must call Close after
// the last PutEntry.
func (s *JarSink) Close() error { return s.zw.Close() }

// PutEntry implements filebands.Sink.
func (s *JarSink) PutEntry(name string, content []byte, modtime int64, deflateHint bool) error {
	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
	if !deflateHint {
		hdr.Method = zip.Store
	}
	if modtime > 0 {
		hdr.Modified = time.Unix(modtime, 0).UTC()
	}
	w, err := s.zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("jar entry %q: %w", name, err)
	}
	_, err = w.Write(content)

	return err
}

// DirSink writes unpacked entries as loose files under a root directory,
// mirroring each entry's archive path.
type DirSink struct {
	Root string
}

// NewDirSink roots a DirSink at dir, creating it if necessary.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("dirsink: %w", err)
	}

	return &DirSink{Root: dir}, nil
}

// PutEntry implements filebands.Sink.
func (s *DirSink) PutEntry(name string, content []byte, modtime int64, _ bool) error {
	path := filepath.Join(s.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("dirsink mkdir: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("dirsink write %q: %w", name, err)
	}
	if modtime > 0 {
		mtime := time.Unix(modtime, 0)
		_ = os.Chtimes(path, mtime, mtime)
	}

	return nil
}
