package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Attr is one pass-through column preserved from an upload.
type Attr struct {
	Key   string
	Value string
}

// Extras holds source columns that did not map to a canonical sale field.
// Insertion order is preserved and marshals as a JSON object in that order.
type Extras []Attr

// Set replaces the value for key, or appends it.
func (e *Extras) Set(key, value string) {
	for i := range *e {
		if (*e)[i].Key == key {
			(*e)[i].Value = value
			return
		}
	}
	*e = append(*e, Attr{Key: key, Value: value})
}

// Get returns the value stored under key.
func (e Extras) Get(key string) (string, bool) {
	for _, a := range e {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

func (e Extras) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range e {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(a.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(a.Value)
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

// UnmarshalJSON accepts an object. Non-string values are kept in their
// JSON text form so nothing is dropped.
func (e *Extras) UnmarshalJSON(data []byte) error {
	*e = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("extras: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("extras: expected string key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = string(raw)
		}
		e.Set(key, s)
	}
	_, err = dec.Token()
	return err
}
