// Package stream constructs model instances from large FHIR Bundles
// without decoding the whole document at once. Entries are read one at
// a time off the wire and handed to a construction callback.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/buger/jsonparser"
)

// ConstructFunc builds a model instance from one raw entry resource.
type ConstructFunc func(ctx context.Context, resource []byte) (any, error)

// EntryResult is the outcome for a single bundle entry.
type EntryResult struct {
	// Index is the entry's position in the bundle. -1 marks a
	// bundle-level failure.
	Index int

	// FullURL is the entry's fullUrl, when present.
	FullURL string

	// ResourceType is the declared type of the entry resource.
	ResourceType string

	// Value is the constructed instance, nil on error.
	Value any

	// Error holds a decode or construction failure.
	Error error
}

// BundleReader streams entries out of a Bundle document.
type BundleReader struct {
	construct  ConstructFunc
	bufferSize int
}

// NewBundleReader creates a reader using fn to build each entry.
func NewBundleReader(fn ConstructFunc) *BundleReader {
	return &BundleReader{
		construct:  fn,
		bufferSize: 16,
	}
}

// WithBufferSize sets the result channel buffer.
func (b *BundleReader) WithBufferSize(size int) *BundleReader {
	if size > 0 {
		b.bufferSize = size
	}
	return b
}

// Read streams a Bundle from r, emitting one result per entry in
// order. The channel closes when the bundle is exhausted, the context
// is canceled or a bundle-level error occurs.
func (b *BundleReader) Read(ctx context.Context, r io.Reader) <-chan *EntryResult {
	results := make(chan *EntryResult, b.bufferSize)

	go func() {
		defer close(results)

		dec := json.NewDecoder(r)

		token, err := dec.Token()
		if err != nil {
			emit(ctx, results, &EntryResult{Index: -1, Error: fmt.Errorf("read bundle: %w", err)})
			return
		}
		if delim, ok := token.(json.Delim); !ok || delim != '{' {
			emit(ctx, results, &EntryResult{Index: -1, Error: fmt.Errorf("expected object start, got %v", token)})
			return
		}

		for dec.More() {
			if ctx.Err() != nil {
				emit(ctx, results, &EntryResult{Index: -1, Error: ctx.Err()})
				return
			}
			token, err := dec.Token()
			if err != nil {
				emit(ctx, results, &EntryResult{Index: -1, Error: fmt.Errorf("read field: %w", err)})
				return
			}
			name, ok := token.(string)
			if !ok {
				continue
			}
			if name == "entry" {
				b.readEntries(ctx, dec, results)
				return
			}
			// Skip any other bundle field wholesale.
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				emit(ctx, results, &EntryResult{Index: -1, Error: fmt.Errorf("skip field %q: %w", name, err)})
				return
			}
		}
	}()

	return results
}

func (b *BundleReader) readEntries(ctx context.Context, dec *json.Decoder, results chan<- *EntryResult) {
	token, err := dec.Token()
	if err != nil {
		emit(ctx, results, &EntryResult{Index: -1, Error: fmt.Errorf("read entries: %w", err)})
		return
	}
	if delim, ok := token.(json.Delim); !ok || delim != '[' {
		emit(ctx, results, &EntryResult{Index: -1, Error: fmt.Errorf("expected entry array, got %v", token)})
		return
	}

	index := 0
	for dec.More() {
		if ctx.Err() != nil {
			emit(ctx, results, &EntryResult{Index: -1, Error: ctx.Err()})
			return
		}
		var entry json.RawMessage
		if err := dec.Decode(&entry); err != nil {
			emit(ctx, results, &EntryResult{Index: index, Error: fmt.Errorf("decode entry: %w", err)})
			return
		}
		result := b.processEntry(ctx, index, entry)
		if !emit(ctx, results, result) {
			return
		}
		index++
	}
}

func (b *BundleReader) processEntry(ctx context.Context, index int, entry []byte) *EntryResult {
	result := &EntryResult{Index: index}

	if fullURL, err := jsonparser.GetString(entry, "fullUrl"); err == nil {
		result.FullURL = fullURL
	}
	resource, _, _, err := jsonparser.Get(entry, "resource")
	if err != nil {
		result.Error = fmt.Errorf("entry has no resource")
		return result
	}
	if rt, err := jsonparser.GetString(resource, "resourceType"); err == nil {
		result.ResourceType = rt
	}

	value, err := b.construct(ctx, resource)
	if err != nil {
		result.Error = err
		return result
	}
	result.Value = value
	return result
}

func emit(ctx context.Context, results chan<- *EntryResult, r *EntryResult) bool {
	select {
	case <-ctx.Done():
		return false
	case results <- r:
		return true
	}
}
