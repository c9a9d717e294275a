// Package kv implements the KV capability: a string-keyed byte store with
// optional expiry and per-key metadata.
package kv

import (
	"encoding/base64"
	"errors"
	"strconv"
	"time"
)

// MaxValueSize is the largest value a single key may hold (1 MB).
const MaxValueSize = 1 << 20

// DefaultListLimit bounds list results when the caller gives no limit.
const DefaultListLimit = 1000

// ErrValueTooLarge is returned by Put for values over MaxValueSize.
var ErrValueTooLarge = errors.New("value exceeds 1 MB limit")

// Entry is a stored value.
type Entry struct {
	Value     []byte
	Metadata  *string   // JSON text, nil when absent
	ExpiresAt time.Time // zero when the key never expires
}

// PutOptions controls how Put stores a value.
type PutOptions struct {
	Metadata  *string
	ExpiresAt time.Time
}

// ListOptions filters and pages a List call.
type ListOptions struct {
	Prefix string
	Limit  int
	Cursor string
}

// ListResult is one page of keys in ascending order.
type ListResult struct {
	Keys         []string
	ListComplete bool
	Cursor       string // empty when ListComplete
}

// Store is a KV backend. Implementations must be safe for concurrent use and
// must treat expired keys as absent.
type Store interface {
	Get(key string) (*Entry, error)
	Put(key string, value []byte, opts PutOptions) error
	Delete(key string) (bool, error)
	List(opts ListOptions) (*ListResult, error)
	Close() error
}

// decodeCursor decodes a base64-encoded cursor to an integer offset.
func decodeCursor(cursor string) int {
	if cursor == "" {
		return 0
	}
	data, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0
	}
	offset, err := strconv.Atoi(string(data))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// encodeCursor encodes an integer offset to a base64 cursor string.
func encodeCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

// page slices sorted keys according to opts.
func page(sorted []string, opts ListOptions) *ListResult {
	limit := opts.Limit
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	offset := decodeCursor(opts.Cursor)
	if offset > len(sorted) {
		offset = len(sorted)
	}
	end := offset + limit
	res := &ListResult{ListComplete: true}
	if end < len(sorted) {
		res.ListComplete = false
		res.Cursor = encodeCursor(end)
	} else {
		end = len(sorted)
	}
	res.Keys = append([]string{}, sorted[offset:end]...)
	return res
}
