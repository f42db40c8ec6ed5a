package http

import (
	"context"
	"io"

	"github.com/ipfs/go-cid"

	"github.com/sagarc03/ipgate"
)

// Source is byte addressable content served by ServeSource.
type Source interface {
	Size(ctx context.Context) (int64, error)
	Stream(ctx context.Context, r ipgate.AbsoluteRange) (io.ReadCloser, error)
}

// entrySource serves the content of a file-like entry.
type entrySource struct {
	entry ipgate.Entry
}

func (s entrySource) Size(context.Context) (int64, error) {
	return s.entry.Size(), nil
}

func (s entrySource) Stream(ctx context.Context, r ipgate.AbsoluteRange) (io.ReadCloser, error) {
	return s.entry.Content(ctx, r.First, r.Length())
}

// blockSource serves the raw bytes of a single block.
type blockSource struct {
	fetcher ipgate.Fetcher
	cid     cid.Cid
}

func (s blockSource) Size(ctx context.Context) (int64, error) {
	stat, err := s.fetcher.StatBlock(ctx, s.cid)
	if err != nil {
		return 0, err
	}
	return stat.Size, nil
}

func (s blockSource) Stream(ctx context.Context, r ipgate.AbsoluteRange) (io.ReadCloser, error) {
	return s.fetcher.StreamBlock(ctx, s.cid, r)
}
