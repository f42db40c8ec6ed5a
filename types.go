package ipgate

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/ipfs/go-cid"
)

// EntryKind classifies a resolved node in the content graph.
type EntryKind string

const (
	KindFile          EntryKind = "file"
	KindRaw           EntryKind = "raw"
	KindIdentity      EntryKind = "identity"
	KindDirectory     EntryKind = "directory"
	KindHAMTDirectory EntryKind = "hamt-directory"
	// KindObject is a structured node that is neither a file nor a directory.
	KindObject EntryKind = "object"
)

// IsFile reports whether entries of this kind carry byte content.
func (k EntryKind) IsFile() bool {
	switch k {
	case KindFile, KindRaw, KindIdentity:
		return true
	default:
		return false
	}
}

// IsDirectory reports whether entries of this kind have named children.
func (k EntryKind) IsDirectory() bool {
	return k == KindDirectory || k == KindHAMTDirectory
}

// ContentScope selects how much of the graph below the resolved entry an
// archive includes.
type ContentScope string

const (
	ScopeAll    ContentScope = "all"
	ScopeEntity ContentScope = "entity"
	ScopeBlock  ContentScope = "block"
)

func (s ContentScope) IsValid() bool {
	switch s {
	case ScopeAll, ScopeEntity, ScopeBlock:
		return true
	default:
		return false
	}
}

// Order is the block ordering of an archive response.
type Order string

const (
	OrderUnknown Order = "unk"
	OrderDFS     Order = "dfs"
)

func (o Order) IsValid() bool {
	return o == OrderUnknown || o == OrderDFS
}

// ArchiveParams are the negotiated parameters of a CAR response.
type ArchiveParams struct {
	Version uint64
	Order   Order
	Dups    bool
}

// DefaultArchiveParams is used when the client does not negotiate.
func DefaultArchiveParams() ArchiveParams {
	return ArchiveParams{Version: 1, Order: OrderUnknown, Dups: true}
}

// Range is a requested byte range relative to an unknown size.
// A negative First with no Last is a suffix range of -First bytes.
// A nil Last means "to the end".
type Range struct {
	First int64
	Last  *int64
}

// IsSuffix reports whether the range addresses the last -First bytes.
func (r Range) IsSuffix() bool {
	return r.First < 0
}

func (r Range) String() string {
	switch {
	case r.IsSuffix():
		return fmt.Sprintf("%d", r.First)
	case r.Last == nil:
		return fmt.Sprintf("%d-", r.First)
	default:
		return fmt.Sprintf("%d-%d", r.First, *r.Last)
	}
}

// WholeRange is the open-ended range starting at byte zero.
var WholeRange = Range{First: 0}

// AbsoluteRange is an inclusive byte interval resolved against a known size.
type AbsoluteRange struct {
	First int64
	Last  int64
}

// Length returns the number of bytes covered by the range.
func (r AbsoluteRange) Length() int64 {
	return r.Last - r.First + 1
}

// Valid reports whether 0 <= First <= Last < size.
func (r AbsoluteRange) Valid(size int64) bool {
	return r.First >= 0 && r.First <= r.Last && r.Last < size
}

// ContentRange formats the value of a Content-Range header.
func (r AbsoluteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.First, r.Last, size)
}

// BlockStat describes a stored block without its data.
type BlockStat struct {
	Cid  cid.Cid
	Size int64
}

// TraverseOptions configures a graph traversal.
type TraverseOptions struct {
	Scope ContentScope
	Order Order
}

// Tables holds configurable table names for SQL block stores.
// This allows several gateways to share one database.
type Tables struct {
	Blocks string `mapstructure:"blocks"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Blocks == "" {
		return errors.New("validate tables: blocks table name cannot be empty")
	}

	if !IsValidTableName(t.Blocks) {
		return fmt.Errorf("validate tables: invalid blocks table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Blocks)
	}

	return nil
}
