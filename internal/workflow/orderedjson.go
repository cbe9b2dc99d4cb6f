package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OValue is a raw decoded JSON value that preserves object key order and
// raw duplicate keys. encoding/json silently keeps only the last of
// duplicate keys when unmarshaling into a map[string]any, which hides the
// "duplicate keys within a body are rejected" rule (spec §4.4) and the
// "run inline setters in source order" rule (spec §4.6.3) — both need the
// document's literal key sequence, not Go's map iteration order.
type OValue struct {
	Kind OKind
	Bool bool
	Num  json.Number
	Str  string
	Arr  []*OValue
	Obj  *OObject
}

type OKind int

const (
	KNull OKind = iota
	KBool
	KNumber
	KString
	KArray
	KObject
)

// OObject is an ordered JSON object. m stores every value seen for a key,
// in source order, so Duplicates can report keys seen more than once.
type OObject struct {
	Keys []string
	m    map[string][]*OValue
}

// Get returns the first value stored for key.
func (o *OObject) Get(key string) (*OValue, bool) {
	vs, ok := o.m[key]
	if !ok || len(vs) == 0 {
		return nil, false
	}
	return vs[0], true
}

// Duplicates returns every key that occurred more than once in source order.
func (o *OObject) Duplicates() []string {
	var dups []string
	for _, k := range o.Keys {
		if len(o.m[k]) > 1 {
			dups = append(dups, k)
		}
	}
	return dups
}

// ParseOValue decodes data into an order-preserving value tree.
func ParseOValue(data []byte) (*OValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeOValue(dec)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func decodeOValue(dec *json.Decoder) (*OValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return oValueFromToken(dec, tok)
}

func oValueFromToken(dec *json.Decoder, tok json.Token) (*OValue, error) {
	switch t := tok.(type) {
	case nil:
		return &OValue{Kind: KNull}, nil
	case bool:
		return &OValue{Kind: KBool, Bool: t}, nil
	case json.Number:
		return &OValue{Kind: KNumber, Num: t}, nil
	case string:
		return &OValue{Kind: KString, Str: t}, nil
	case json.Delim:
		switch t {
		case '[':
			var arr []*OValue
			for dec.More() {
				v, err := decodeOValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return &OValue{Kind: KArray, Arr: arr}, nil
		case '{':
			obj := &OObject{m: make(map[string][]*OValue)}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected string object key, got %v", keyTok)
				}
				val, err := decodeOValue(dec)
				if err != nil {
					return nil, err
				}
				if _, exists := obj.m[key]; !exists {
					obj.Keys = append(obj.Keys, key)
				}
				obj.m[key] = append(obj.m[key], val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return &OValue{Kind: KObject, Obj: obj}, nil
		}
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}

// ToPlain converts the ordered value tree into the plain
// map[string]any/[]any/string/float64/bool/nil shape the resolver and state
// manager operate on. Key order is intentionally discarded here — only
// parsing (body/setter extraction) needs it.
func (v *OValue) ToPlain() any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KNull:
		return nil
	case KBool:
		return v.Bool
	case KNumber:
		f, _ := v.Num.Float64()
		return f
	case KString:
		return v.Str
	case KArray:
		out := make([]any, len(v.Arr))
		for i, e := range v.Arr {
			out[i] = e.ToPlain()
		}
		return out
	case KObject:
		out := make(map[string]any, len(v.Obj.Keys))
		for _, k := range v.Obj.Keys {
			val, _ := v.Obj.Get(k)
			out[k] = val.ToPlain()
		}
		return out
	}
	return nil
}
