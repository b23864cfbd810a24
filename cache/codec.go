package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"runtime"
)

// ChunkSize is the number of sequence elements serialized per fragment in array mode.
const ChunkSize = 10000

var (
	// ErrNotSequence is returned when array mode is asked to encode a non-sequence value.
	ErrNotSequence = errors.New("cache: array mode requires a slice or array value")
	// ErrCorruptEntry is returned when a stored entry cannot be decoded.
	ErrCorruptEntry = errors.New("cache: corrupt cache entry")
)

// fragmentBoundary separates self-contained array fragments in non-raw array storage.
var fragmentBoundary = []byte("]\n")

// Options selects how a cached call encodes its result. Options are part of the
// cache key, so an entry is always read back with the mode that wrote it.
type Options struct {
	AsArray  bool
	Raw      bool
	WithLock bool
}

// Flags renders the options as the fixed three character key segment.
func (o Options) Flags() string {
	flags := []byte("---")
	if o.AsArray {
		flags[0] = 'a'
	}
	if o.Raw {
		flags[1] = 'r'
	}
	if o.WithLock {
		flags[2] = 'l'
	}
	return string(flags)
}

// ParseFlags reverses Options.Flags.
func ParseFlags(flags string) (Options, error) {
	if len(flags) != 3 {
		return Options{}, fmt.Errorf("cache: invalid flags segment %q", flags)
	}
	var opts Options
	for i, want := range []byte("arl") {
		switch flags[i] {
		case want:
			switch i {
			case 0:
				opts.AsArray = true
			case 1:
				opts.Raw = true
			case 2:
				opts.WithLock = true
			}
		case '-':
		default:
			return Options{}, fmt.Errorf("cache: invalid flags segment %q", flags)
		}
	}
	return opts, nil
}

// Codec serializes cached values.
//
// Scalar mode stores one JSON document. Array mode splits a sequence into
// fragments of ChunkSize elements: non-raw storage keeps every fragment as its
// own JSON array joined by newlines, raw storage merges fragments into a single
// JSON array text. The scheduler is yielded to between fragments.
type Codec struct {
	ChunkSize int
}

// NewCodec creates a codec with the default fragment size.
func NewCodec() *Codec {
	return &Codec{ChunkSize: ChunkSize}
}

func (c *Codec) chunkSize() int {
	if c == nil || c.ChunkSize <= 0 {
		return ChunkSize
	}
	return c.ChunkSize
}

// Encode serializes v according to opts.
func (c *Codec) Encode(v any, opts Options) ([]byte, error) {
	if !opts.AsArray {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("cache: encode value: %w", err)
		}
		return data, nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, ErrNotSequence
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: got %T", ErrNotSequence, v)
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		// encoding/json renders byte sequences as base64 strings.
		return nil, fmt.Errorf("%w: got %T", ErrNotSequence, v)
	}
	if rv.Kind() == reflect.Array {
		slice := reflect.MakeSlice(reflect.SliceOf(rv.Type().Elem()), rv.Len(), rv.Len())
		reflect.Copy(slice, rv)
		rv = slice
	}

	if opts.Raw {
		return c.encodeRawArray(rv)
	}
	return c.encodeFragments(rv)
}

func (c *Codec) encodeFragments(rv reflect.Value) ([]byte, error) {
	length := rv.Len()
	if length == 0 {
		return []byte("[]"), nil
	}

	size := c.chunkSize()
	var buf bytes.Buffer
	for start := 0; start < length; start += size {
		end := min(start+size, length)
		fragment, err := json.Marshal(rv.Slice(start, end).Interface())
		if err != nil {
			return nil, fmt.Errorf("cache: encode fragment %d: %w", start/size, err)
		}
		if start > 0 {
			buf.WriteByte('\n')
			runtime.Gosched()
		}
		buf.Write(fragment)
	}
	return buf.Bytes(), nil
}

func (c *Codec) encodeRawArray(rv reflect.Value) ([]byte, error) {
	length := rv.Len()
	size := c.chunkSize()

	var buf bytes.Buffer
	buf.WriteByte('[')
	for start := 0; start < length; start += size {
		end := min(start+size, length)
		fragment, err := json.Marshal(rv.Slice(start, end).Interface())
		if err != nil {
			return nil, fmt.Errorf("cache: encode fragment %d: %w", start/size, err)
		}
		if start > 0 {
			buf.WriteByte(',')
			runtime.Gosched()
		}
		// Strip the fragment's own brackets.
		buf.Write(fragment[1 : len(fragment)-1])
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Decode parses stored data according to opts.
//
// Scalar mode returns the whole document as json.RawMessage. Array mode returns
// a flat []json.RawMessage with one entry per sequence element.
func (c *Codec) Decode(data []byte, opts Options) (any, error) {
	if !opts.AsArray {
		if !json.Valid(data) {
			return nil, ErrCorruptEntry
		}
		return json.RawMessage(bytes.Clone(data)), nil
	}
	if opts.Raw {
		return c.decodeRawArray(data)
	}
	return c.decodeFragments(data)
}

func (c *Codec) decodeFragments(data []byte) ([]json.RawMessage, error) {
	elements := []json.RawMessage{}
	rest := data
	for len(rest) > 0 {
		var fragment []byte
		if idx := bytes.Index(rest, fragmentBoundary); idx >= 0 {
			fragment = rest[:idx+1]
			rest = rest[idx+len(fragmentBoundary):]
		} else {
			fragment, rest = rest, nil
		}

		var part []json.RawMessage
		if err := json.Unmarshal(fragment, &part); err != nil {
			return nil, errors.Join(ErrCorruptEntry, err)
		}
		elements = append(elements, part...)

		if len(rest) > 0 {
			runtime.Gosched()
		}
	}

	if len(elements) == 0 && len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrCorruptEntry
	}
	return elements, nil
}

func (c *Codec) decodeRawArray(data []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Join(ErrCorruptEntry, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("%w: expected array", ErrCorruptEntry)
	}

	size := c.chunkSize()
	elements := []json.RawMessage{}
	for dec.More() {
		var element json.RawMessage
		if err := dec.Decode(&element); err != nil {
			return nil, errors.Join(ErrCorruptEntry, err)
		}
		elements = append(elements, element)
		if len(elements)%size == 0 {
			runtime.Gosched()
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, errors.Join(ErrCorruptEntry, err)
	}
	return elements, nil
}
