package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// ArgumentSeparator joins canonical argument forms before hashing.
const ArgumentSeparator = ":"

// defaultKeyHasher canonicalizes each argument and hashes the joined result with SHA-256.
//
// Structured values (maps, structs) contribute only their values, taken in
// key-sorted order. {a:1,b:2} and {x:1,y:2} therefore produce the same digest.
type defaultKeyHasher struct{}

// NewDefaultKeyHasher creates the SHA-256/base64 argument hasher.
func NewDefaultKeyHasher() KeyHasher {
	return &defaultKeyHasher{}
}

// Hash returns the base64 SHA-256 digest of the canonical argument list.
// Zero arguments hash the empty string.
func (h *defaultKeyHasher) Hash(args ...any) string {
	sum := sha256.Sum256([]byte(Canonicalize(args...)))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Canonicalize builds the string that Hash digests.
func Canonicalize(args ...any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = canonicalValue(arg)
	}
	return strings.Join(parts, ArgumentSeparator)
}

func canonicalValue(v any) string {
	if v == nil {
		return "null"
	}

	switch val := v.(type) {
	case time.Time:
		return fmt.Sprintf("%d", val.UnixMilli())
	case *time.Time:
		if val == nil {
			return "null"
		}
		return fmt.Sprintf("%d", val.UnixMilli())
	case encoding.TextMarshaler:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
			return "null"
		}
		if text, err := val.MarshalText(); err == nil {
			return string(text)
		}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		return fmt.Sprintf("func:%p", v)
	case reflect.Chan:
		return fmt.Sprintf("chan:%p", v)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "null"
		}
		return canonicalValue(rv.Elem().Interface())
	case reflect.Map, reflect.Struct:
		return sortedValues(v)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "null"
		}
		return sequenceValue(rv)
	}

	return fmt.Sprintf("%v", v)
}

// sortedValues encodes the values of a structured value in key-sorted order, discarding keys.
func sortedValues(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Func fields, NaN and non-string map keys defeat encoding/json.
		return reflectedValues(reflect.ValueOf(v))
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err != nil {
		// Types with custom marshalers may not encode to an object.
		return string(data)
	}

	keys := make([]string, 0, len(object))
	for k := range object {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b bytes.Buffer
	b.WriteByte('[')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(object[k])
	}
	b.WriteByte(']')
	return b.String()
}

// reflectedValues canonicalizes each field or map entry in key-sorted order.
// Struct keys follow the JSON field names; unexported and "-" fields are skipped.
func reflectedValues(rv reflect.Value) string {
	entries := map[string]string{}
	switch rv.Kind() {
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			entries[fmt.Sprintf("%v", iter.Key().Interface())] = canonicalValue(iter.Value().Interface())
		}
	case reflect.Struct:
		typ := rv.Type()
		for i := 0; i < typ.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			name := field.Name
			if tag, _, _ := strings.Cut(field.Tag.Get("json"), ","); tag == "-" {
				continue
			} else if tag != "" {
				name = tag
			}
			entries[name] = canonicalValue(rv.Field(i).Interface())
		}
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = entries[k]
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// sequenceValue encodes a slice or array as JSON. Sequences JSON cannot encode,
// such as criteria function lists, fall back to their canonical elements.
func sequenceValue(rv reflect.Value) string {
	if data, err := json.Marshal(rv.Interface()); err == nil {
		return string(data)
	}

	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = canonicalValue(rv.Index(i).Interface())
	}
	return "[" + strings.Join(parts, ",") + "]"
}
