package dagfs

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// linkTag is the CBOR tag number of a CID link in dag-cbor.
const linkTag = 42

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// dag-cbor sorts map keys length first.
	encOptions.Sort = cbor.SortLengthFirst
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("dagfs: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("dagfs: CBOR decoder initialization failed: " + err.Error())
	}
}

// Link encodes c as a dag-cbor link for use in values passed to
// Builder.AddCBOR.
func Link(c cid.Cid) cbor.Tag {
	return cbor.Tag{Number: linkTag, Content: append([]byte{0}, c.Bytes()...)}
}

// asLink reports whether v is a dag-cbor link and returns its target.
func asLink(v any) (cid.Cid, bool) {
	tag, ok := v.(cbor.Tag)
	if !ok || tag.Number != linkTag {
		return cid.Undef, false
	}
	raw, ok := tag.Content.([]byte)
	if !ok || len(raw) < 2 || raw[0] != 0 {
		return cid.Undef, false
	}
	c, err := cid.Cast(raw[1:])
	if err != nil {
		return cid.Undef, false
	}
	return c, true
}

// collectLinks returns every link in v, with map keys visited in sorted
// order so traversal is deterministic.
func collectLinks(v any) []cid.Cid {
	var links []cid.Cid
	var walk func(any)
	walk = func(v any) {
		if c, ok := asLink(v); ok {
			links = append(links, c)
			return
		}
		switch t := v.(type) {
		case []any:
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(t[k])
			}
		case cbor.Tag:
			walk(t.Content)
		}
	}
	walk(v)
	return links
}

func decodeValue(data []byte) (any, error) {
	var v any
	if err := decMode.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode dag-cbor: %w", err)
	}
	return v, nil
}

func encodeValue(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode dag-cbor: %w", err)
	}
	return data, nil
}

func newCid(codec uint64, data []byte) (cid.Cid, error) {
	h, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, fmt.Errorf("hash block: %w", err)
	}
	return cid.NewCidV1(codec, h), nil
}

// identityDigest returns the inline payload of identity CIDs.
func identityDigest(c cid.Cid) ([]byte, bool) {
	decoded, err := multihash.Decode(c.Hash())
	if err != nil || decoded.Code != multihash.IDENTITY {
		return nil, false
	}
	return decoded.Digest, true
}
