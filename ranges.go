package ipgate

import (
	"fmt"
	"strconv"
	"strings"
)

// DecodeRangeHeader parses the value of a Range header.
// Ranges in units other than bytes are ignored.
func DecodeRangeHeader(value string) ([]Range, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("decode range: missing header value: %w", ErrBadRequest)
	}

	unit, set, ok := strings.Cut(value, "=")
	unit = strings.TrimSpace(unit)
	if !ok || unit == "" || strings.ContainsAny(unit, " \t") {
		return nil, fmt.Errorf("decode range: malformed header %q: %w", value, ErrBadRequest)
	}

	if !strings.EqualFold(unit, "bytes") {
		return nil, nil
	}

	var ranges []Range
	for _, part := range strings.Split(set, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		r, err := decodeRange(part)
		if err != nil {
			return nil, fmt.Errorf("decode range %q: %w", part, err)
		}
		ranges = append(ranges, r)
	}

	if len(ranges) == 0 {
		return nil, fmt.Errorf("decode range: empty range set: %w", ErrBadRequest)
	}

	return ranges, nil
}

func decodeRange(part string) (Range, error) {
	firstStr, lastStr, ok := strings.Cut(part, "-")
	if !ok {
		return Range{}, ErrBadRequest
	}
	firstStr = strings.TrimSpace(firstStr)
	lastStr = strings.TrimSpace(lastStr)

	if firstStr == "" {
		n, err := parsePosition(lastStr)
		if err != nil {
			return Range{}, err
		}
		if n == 0 {
			return Range{}, ErrBadRequest
		}
		return Range{First: -n}, nil
	}

	first, err := parsePosition(firstStr)
	if err != nil {
		return Range{}, err
	}

	if lastStr == "" {
		return Range{First: first}, nil
	}

	last, err := parsePosition(lastStr)
	if err != nil {
		return Range{}, err
	}
	if last < first {
		return Range{}, ErrBadRequest
	}

	return Range{First: first, Last: &last}, nil
}

func parsePosition(s string) (int64, error) {
	if s == "" {
		return 0, ErrBadRequest
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, ErrBadRequest
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrBadRequest
	}
	return n, nil
}

// ResolveRange converts r into an absolute range against size.
// Closed ranges are returned unchanged; the caller rejects those that fall
// outside the content.
func ResolveRange(r Range, size int64) AbsoluteRange {
	if r.IsSuffix() {
		return AbsoluteRange{First: max(0, size+r.First), Last: size - 1}
	}
	if r.Last == nil {
		return AbsoluteRange{First: r.First, Last: size - 1}
	}
	return AbsoluteRange{First: r.First, Last: *r.Last}
}
