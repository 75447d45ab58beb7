// Package workflow contains the approval workflow domain model: the
// request, the state snapshot threaded through the chat platform, and
// the pure transition rules applied to inbound interaction events.
package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Value is a single field value: either a scalar string or a list of
// strings. Non-string JSON scalars (numbers, booleans) are coerced to
// their literal text on decode so they round-trip losslessly as display
// values.
type Value struct {
	Str    string
	Items  []string
	IsList bool
}

// Scalar returns a scalar Value.
func Scalar(s string) Value {
	return Value{Str: s}
}

// List returns a list Value.
func List(items ...string) Value {
	return Value{Items: items, IsList: true}
}

// Display renders the value for a message body. Lists are comma-joined.
func (v Value) Display() string {
	if v.IsList {
		return strings.Join(v.Items, ", ")
	}
	return v.Str
}

// Equal reports whether two values are identical in kind and content.
func (v Value) Equal(o Value) bool {
	if v.IsList != o.IsList {
		return false
	}
	if !v.IsList {
		return v.Str == o.Str
	}
	if len(v.Items) != len(o.Items) {
		return false
	}
	for i := range v.Items {
		if v.Items[i] != o.Items[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes a scalar as a JSON string and a list as a JSON
// array of strings, preserving the shape the value arrived with.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsList {
		items := v.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(v.Str)
}

// UnmarshalJSON accepts strings, arrays, numbers, and booleans.
// Arrays become list values with each element coerced to text.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty value")
	}
	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]string, 0, len(raw))
		for _, r := range raw {
			s, err := coerceScalar(r)
			if err != nil {
				return err
			}
			items = append(items, s)
		}
		*v = Value{Items: items, IsList: true}
		return nil
	}
	s, err := coerceScalar(data)
	if err != nil {
		return err
	}
	*v = Value{Str: s}
	return nil
}

// coerceScalar converts a raw JSON scalar to its text form. Strings are
// unquoted; numbers, booleans, nested objects, and null keep their JSON
// literal text.
func coerceScalar(data json.RawMessage) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", fmt.Errorf("empty value")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return string(data), nil
}

// Field is one named entry in a request's field set.
type Field struct {
	Key   string
	Value Value
}

// Fields is an ordered set of request fields. Insertion order is display
// order; JSON encoding and decoding both preserve it.
type Fields []Field

// Get returns the value for key and whether it exists.
func (f Fields) Get(key string) (Value, bool) {
	for i := range f {
		if f[i].Key == key {
			return f[i].Value, true
		}
	}
	return Value{}, false
}

// Set replaces the value for key in place, or appends when absent.
func (f *Fields) Set(key string, v Value) {
	for i := range *f {
		if (*f)[i].Key == key {
			(*f)[i].Value = v
			return
		}
	}
	*f = append(*f, Field{Key: key, Value: v})
}

// Delete removes key. Returns true if the key existed.
func (f *Fields) Delete(key string) bool {
	for i := range *f {
		if (*f)[i].Key == key {
			*f = append((*f)[:i], (*f)[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for i, fd := range f {
		v := fd.Value
		if v.IsList {
			v.Items = append([]string(nil), v.Items...)
		}
		out[i] = Field{Key: fd.Key, Value: v}
	}
	return out
}

// Map returns a plain map view of the fields, with list values as
// []string and scalars as string. Used for policy evaluation.
func (f Fields) Map() map[string]any {
	m := make(map[string]any, len(f))
	for _, fd := range f {
		if fd.Value.IsList {
			m[fd.Key] = append([]string(nil), fd.Value.Items...)
		} else {
			m[fd.Key] = fd.Value.Str
		}
	}
	return m
}

// MarshalJSON encodes the fields as a JSON object in insertion order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fd := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(fd.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(fd.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object while preserving key order, which
// the stdlib map decoding would lose.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fields: expected object, got %v", tok)
	}

	out := Fields{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("fields: expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("fields: key %q: %w", key, err)
		}
		out = append(out, Field{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}
