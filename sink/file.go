package sink

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/renproject/id"
)

// Dir is a Sink that writes every delivered payload into its own file, named
// by the hex SHA-256 hash of the payload. Payloads with the same content
// share a file.
type Dir struct {
	path string
}

// NewDir returns a Dir that writes into the given directory, creating it if
// necessary.
func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %v: %v", path, err)
	}
	return &Dir{path: path}, nil
}

// Deliver writes the payload into a file. The file is written under a
// temporary name and then renamed, so a reader never observes a partial file.
func (d *Dir) Deliver(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := d.Path(payload)

	f, err := os.CreateTemp(d.path, ".delivery-*")
	if err != nil {
		return fmt.Errorf("creating file: %v", err)
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("writing file: %v", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("closing file: %v", err)
	}
	if err := os.Rename(f.Name(), name); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("renaming file: %v", err)
	}
	return nil
}

// Path returns the file path a payload is delivered to.
func (d *Dir) Path(payload []byte) string {
	hash := id.NewHash(payload)
	return filepath.Join(d.path, hex.EncodeToString(hash[:])+".bin")
}

// Writer is a Sink that writes delivered payloads to an io.Writer, one after
// another. Every payload is followed by the separator.
type Writer struct {
	mu        *sync.Mutex
	w         io.Writer
	separator []byte
}

// NewWriter returns a Writer around the given io.Writer.
func NewWriter(w io.Writer, separator []byte) *Writer {
	return &Writer{
		mu:        new(sync.Mutex),
		w:         w,
		separator: separator,
	}
}

// Deliver writes the payload and the separator without interleaving them with
// other payloads.
func (w *Writer) Deliver(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.Write(payload); err != nil {
		return fmt.Errorf("writing payload: %v", err)
	}
	if len(w.separator) > 0 {
		if _, err := w.w.Write(w.separator); err != nil {
			return fmt.Errorf("writing separator: %v", err)
		}
	}
	return nil
}
