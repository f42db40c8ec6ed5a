package dagfs

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ipfs/boxo/files"
	"github.com/ipfs/boxo/ipld/merkledag"
	ufile "github.com/ipfs/boxo/ipld/unixfs/file"
	uio "github.com/ipfs/boxo/ipld/unixfs/io"
	"github.com/ipfs/go-cid"
	ipld "github.com/ipfs/go-ipld-format"

	"github.com/sagarc03/ipgate"
)

type entry struct {
	f    *Fetcher
	l    *loaded
	name string
	path string
}

var _ ipgate.Entry = (*entry)(nil)

func (e *entry) Kind() ipgate.EntryKind { return e.l.kind() }
func (e *entry) Cid() cid.Cid           { return e.l.blk.Cid() }
func (e *entry) Name() string           { return e.name }
func (e *entry) Path() string           { return e.path }

// Size is the content size of files and the cumulative DAG size of
// directories.
func (e *entry) Size() int64 {
	switch kind := e.Kind(); {
	case kind == ipgate.KindFile:
		return int64(e.l.fsn.FileSize())
	case kind.IsDirectory():
		if pn, ok := e.l.node.(*merkledag.ProtoNode); ok {
			if size, err := pn.Size(); err == nil {
				return int64(size)
			}
		}
		return 0
	default:
		return int64(len(e.l.blk.RawData()))
	}
}

func (e *entry) Content(ctx context.Context, offset, length int64) (io.ReadCloser, error) {
	kind := e.Kind()
	if !kind.IsFile() {
		return nil, fmt.Errorf("content of %s entry %s: %w", kind, e.Cid(), ipgate.ErrNotImplemented)
	}

	size := e.Size()
	if offset < 0 || offset > size {
		return nil, fmt.Errorf("content of %s at offset %d: %w", e.Cid(), offset, ipgate.ErrRangeNotSatisfiable)
	}
	end := size
	if length >= 0 && offset+length < size {
		end = offset + length
	}

	if kind != ipgate.KindFile {
		return io.NopCloser(bytes.NewReader(e.l.blk.RawData()[offset:end])), nil
	}

	nd, err := ufile.NewUnixfsFile(ctx, e.f.dag, e.l.node)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", e.Cid(), err)
	}
	file, ok := nd.(files.File)
	if !ok {
		_ = nd.Close()
		return nil, fmt.Errorf("open file %s: %w", e.Cid(), ipgate.ErrNotImplemented)
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("seek %s to %d: %w", e.Cid(), offset, err)
	}

	return &limitedFile{Reader: io.LimitReader(file, end-offset), file: file}, nil
}

type limitedFile struct {
	io.Reader
	file files.File
}

func (f *limitedFile) Close() error { return f.file.Close() }

// Children lists a directory in link order. HAMT directories are listed
// in shard order.
func (e *entry) Children(ctx context.Context, visit func(ipgate.Entry) error) error {
	if !e.Kind().IsDirectory() {
		return fmt.Errorf("children of %s entry %s: %w", e.Kind(), e.Cid(), ipgate.ErrNotImplemented)
	}

	dir, err := uio.NewDirectoryFromNode(e.f.dag, e.l.node)
	if err != nil {
		return fmt.Errorf("open directory %s: %w", e.Cid(), err)
	}

	return dir.ForEachLink(ctx, func(lk *ipld.Link) error {
		child, err := e.f.load(ctx, lk.Cid)
		if err != nil {
			return fmt.Errorf("list %s: %w", e.path+"/"+lk.Name, err)
		}
		return visit(&entry{f: e.f, l: child, name: lk.Name, path: e.path + "/" + lk.Name})
	})
}
