// Package car streams blocks as a CARv1 archive.
//
// The header is written lazily on the first Put (or on Close for an empty
// archive) so a Writer can be created by the HTTP handler while the
// goroutine feeding blocks owns every write to the underlying pipe.
package car

import (
	"context"
	"fmt"
	"io"
	"sync"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	carv2 "github.com/ipld/go-car/v2"
	"github.com/ipld/go-car/v2/storage"
)

// Writer encodes blocks in the order they are put.
type Writer struct {
	out   io.Writer
	pipe  *io.PipeWriter
	roots []cid.Cid

	mu     sync.Mutex
	store  storage.WritableCar
	closed bool
}

// NewPipe returns a Writer whose output is read from the returned reader.
// Writes block until the reader consumes them.
func NewPipe(root cid.Cid) (*Writer, io.ReadCloser) {
	pr, pw := io.Pipe()
	return &Writer{out: pw, pipe: pw, roots: []cid.Cid{root}}, pr
}

// NewWriter returns a Writer encoding directly to w.
func NewWriter(w io.Writer, roots ...cid.Cid) *Writer {
	return &Writer{out: w, roots: roots}
}

// Put appends blk to the archive. Duplicate blocks are written again.
func (w *Writer) Put(ctx context.Context, blk blocks.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("car put %s: writer closed", blk.Cid())
	}
	if err := w.initLocked(); err != nil {
		return err
	}

	if err := w.store.Put(ctx, blk.Cid().KeyString(), blk.RawData()); err != nil {
		return fmt.Errorf("car put %s: %w", blk.Cid(), err)
	}
	return nil
}

// Close finishes the archive. A non-nil cause is delivered to the pipe
// reader instead of io.EOF so truncated output is detectable.
func (w *Writer) Close(cause error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var err error
	if cause == nil {
		err = w.initLocked()
	}

	if w.pipe != nil {
		if cause == nil {
			cause = err
		}
		return w.pipe.CloseWithError(cause)
	}
	return err
}

func (w *Writer) initLocked() error {
	if w.store != nil {
		return nil
	}

	// Hide io.WriterAt so files and sockets are written sequentially.
	out := struct{ io.Writer }{w.out}
	store, err := storage.NewWritable(out, w.roots,
		carv2.WriteAsCarV1(true),
		carv2.AllowDuplicatePuts(true),
		carv2.StoreIdentityCIDs(true),
	)
	if err != nil {
		return fmt.Errorf("car write header: %w", err)
	}
	w.store = store
	return nil
}
