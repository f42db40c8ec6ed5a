// Package remote fetches blocks from an upstream trustless gateway.
// Every block is verified against its CID before it is returned.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"

	"github.com/sagarc03/ipgate"
)

// MaxBlockSize bounds how much of an upstream response is read.
const MaxBlockSize = 4 << 20

// ErrVerification is returned when upstream bytes do not hash to the
// requested CID.
var ErrVerification = errors.New("block does not match cid")

type Config struct {
	URL        string
	MaxRetries uint64
	Timeout    time.Duration
	Client     *http.Client
	Logger     *slog.Logger
}

// Store is a read-only Blockstore over HTTP.
type Store struct {
	base       string
	client     *http.Client
	maxRetries uint64
	logger     *slog.Logger
}

var _ ipgate.Blockstore = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("remote blockstore: url is required")
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		base:       strings.TrimSuffix(cfg.URL, "/"),
		client:     client,
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}, nil
}

func (s *Store) Get(ctx context.Context, c cid.Cid) (blocks.Block, error) {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.maxRetries), ctx)

	attempt := 0
	data, err := backoff.RetryWithData(func() ([]byte, error) {
		attempt++
		data, err := s.fetch(ctx, c)
		if err != nil && !isPermanent(err) {
			s.logger.Debug("upstream fetch failed", "cid", c.String(), "attempt", attempt, "error", err)
		}
		return data, err
	}, b)
	if err != nil {
		return nil, err
	}

	got, err := c.Prefix().Sum(data)
	if err != nil {
		return nil, fmt.Errorf("hash block %s: %w", c, err)
	}
	if !got.Equals(c) {
		return nil, fmt.Errorf("block %s: %w", c, ErrVerification)
	}

	return blocks.NewBlockWithCid(data, c)
}

func isPermanent(err error) bool {
	var permanent *backoff.PermanentError
	return errors.As(err, &permanent)
}

func (s *Store) fetch(ctx context.Context, c cid.Cid) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/ipfs/"+c.String()+"?format=raw", nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", ipgate.MediaTypeRaw)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("fetch %s: %w", c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, backoff.Permanent(fmt.Errorf("block %s: %w", c, ipgate.ErrNotFound))
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("fetch %s: upstream status %d", c, resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("fetch %s: upstream status %d", c, resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBlockSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c, err)
	}
	if len(data) > MaxBlockSize {
		return nil, backoff.Permanent(fmt.Errorf("block %s exceeds %d bytes", c, MaxBlockSize))
	}
	return data, nil
}

func (s *Store) GetSize(ctx context.Context, c cid.Cid) (int64, error) {
	blk, err := s.Get(ctx, c)
	if err != nil {
		return 0, err
	}
	return int64(len(blk.RawData())), nil
}

func (s *Store) Has(ctx context.Context, c cid.Cid) (bool, error) {
	_, err := s.Get(ctx, c)
	if errors.Is(err, ipgate.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Put(context.Context, blocks.Block) error {
	return ipgate.ErrReadOnly
}
