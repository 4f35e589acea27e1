package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Fields is an ordered mapping of field names to raw string values.
// It preserves first-seen insertion order so unrecognized fields
// survive parse/serialize round trips. The zero value is empty and
// ready to use.
type Fields struct {
	names  []string
	values map[string]string
}

// Set assigns value to name, appending the name on first use and
// updating in place afterwards.
func (f *Fields) Set(name, value string) {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	if _, ok := f.values[name]; !ok {
		f.names = append(f.names, name)
	}
	f.values[name] = value
}

// Get returns the value for name and whether it is present.
func (f *Fields) Get(name string) (string, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Delete removes name if present.
func (f *Fields) Delete(name string) {
	if _, ok := f.values[name]; !ok {
		return
	}
	delete(f.values, name)
	for i, n := range f.names {
		if n == name {
			f.names = append(f.names[:i], f.names[i+1:]...)
			break
		}
	}
}

// Len returns the number of stored fields.
func (f *Fields) Len() int {
	return len(f.names)
}

// Names returns the field names in insertion order. The slice is a copy.
func (f *Fields) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Clone returns an independent copy.
func (f *Fields) Clone() Fields {
	var c Fields
	for _, name := range f.names {
		c.Set(name, f.values[name])
	}
	return c
}

// Equal reports whether both mappings hold the same name/value pairs.
// Insertion order is not part of equality.
func (f *Fields) Equal(other *Fields) bool {
	if len(f.values) != len(other.values) {
		return false
	}
	for name, v := range f.values {
		if ov, ok := other.values[name]; !ok || ov != v {
			return false
		}
	}
	return true
}

// MarshalJSON emits a JSON object with keys in insertion order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range f.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.values[name])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping key order as encountered.
func (f *Fields) UnmarshalJSON(data []byte) error {
	f.names = nil
	f.values = nil

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("extra fields: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("extra fields: non-string key %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("extra fields: value for %q: %w", key, err)
		}
		f.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
