package layout

import (
	"bytes"
	"fmt"
	"math"
)

// Record holds the values of one instance of a Schema.
//
// Integer values are held as int64 or uint64 depending on signedness,
// float fields as float32, strings as string when the field has an encoding
// and []byte otherwise, and nested fields as *Record. Arrays hold a slice of
// those.
type Record struct {
	schema *Schema
	values map[string]interface{}
}

// NewRecord returns a record of s with every field at its zero value.
func (s *Schema) NewRecord() *Record {
	r := &Record{
		schema: s,
		values: make(map[string]interface{}, len(s.fields)),
	}
	for _, f := range s.fields {
		if f.count > 0 {
			v := make([]interface{}, f.count)
			for i := range v {
				v[i] = f.zero()
			}
			r.values[f.name] = v
		} else {
			r.values[f.name] = f.zero()
		}
	}
	return r
}

func (f Field) zero() interface{} {
	switch {
	case f.kind == KindStruct:
		return f.schema.NewRecord()
	case f.kind == KindString && f.enc != nil:
		return ""
	case f.kind == KindString:
		return []byte{}
	case f.kind == KindFloat32:
		return float32(0)
	case f.kind.signed():
		return int64(0)
	default:
		return uint64(0)
	}
}

// Schema returns the schema of r.
func (r *Record) Schema() *Schema {
	return r.schema
}

func (r *Record) field(name string) (Field, error) {
	i, ok := r.schema.index[name]
	if !ok {
		return Field{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, r.schema.name, name)
	}
	return r.schema.fields[i], nil
}

// Get returns the raw value of a field.
func (r *Record) Get(name string) (interface{}, error) {
	if _, err := r.field(name); err != nil {
		return nil, err
	}
	return r.values[name], nil
}

// Set assigns a value to a field. Any Go integer or float type is accepted
// for numeric fields, string or []byte for strings, *Record for nested
// fields and a slice of those for arrays.
func (r *Record) Set(name string, v interface{}) error {
	f, err := r.field(name)
	if err != nil {
		return err
	}
	if f.count == 0 {
		n, err := f.normalize(v)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", r.schema.name, name, err)
		}
		r.values[name] = n
		return nil
	}

	elems, err := toSlice(v)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", r.schema.name, name, err)
	}
	if len(elems) != f.count {
		return fmt.Errorf("%s.%s: %w: want %d elements, got %d", r.schema.name, name, ErrBadValue, f.count, len(elems))
	}
	out := make([]interface{}, len(elems))
	for i, e := range elems {
		if out[i], err = f.normalize(e); err != nil {
			return fmt.Errorf("%s.%s[%d]: %w", r.schema.name, name, i, err)
		}
	}
	r.values[name] = out
	return nil
}

// MustSet is like Set but panics on error. It is intended for building
// records from constant values.
func (r *Record) MustSet(name string, v interface{}) *Record {
	if err := r.Set(name, v); err != nil {
		panic(err)
	}
	return r
}

// Uint returns an integer field as uint64.
func (r *Record) Uint(name string) uint64 {
	switch v := r.values[name].(type) {
	case uint64:
		return v
	case int64:
		return uint64(v)
	}
	return 0
}

// Int returns an integer field as int64.
func (r *Record) Int(name string) int64 {
	switch v := r.values[name].(type) {
	case uint64:
		return int64(v)
	case int64:
		return v
	}
	return 0
}

// Float returns a float32 field.
func (r *Record) Float(name string) float32 {
	v, _ := r.values[name].(float32)
	return v
}

// Bytes returns a string field as bytes.
func (r *Record) Bytes(name string) []byte {
	switch v := r.values[name].(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	}
	return nil
}

// Str returns a string field as a string.
func (r *Record) Str(name string) string {
	return string(r.Bytes(name))
}

// Uints returns an integer array field.
func (r *Record) Uints(name string) []uint64 {
	elems, _ := r.values[name].([]interface{})
	out := make([]uint64, len(elems))
	for i, e := range elems {
		switch v := e.(type) {
		case uint64:
			out[i] = v
		case int64:
			out[i] = uint64(v)
		}
	}
	return out
}

// Record returns a nested field.
func (r *Record) Record(name string) *Record {
	v, _ := r.values[name].(*Record)
	return v
}

// Records returns a nested array field.
func (r *Record) Records(name string) []*Record {
	elems, _ := r.values[name].([]interface{})
	out := make([]*Record, len(elems))
	for i, e := range elems {
		out[i], _ = e.(*Record)
	}
	return out
}

// length resolves the size in bytes of one element of f.
func (r *Record) length(f Field, elem interface{}) (int, error) {
	switch f.kind {
	case KindString:
		if f.lengthRef == "" {
			return f.length, nil
		}
		n := r.Int(f.lengthRef) + int64(f.lengthAdd)
		if n < 0 {
			return 0, fmt.Errorf("%s.%s: %w: negative length %d", r.schema.name, f.name, ErrBadValue, n)
		}
		return int(n), nil
	case KindStruct:
		return elem.(*Record).Size()
	}
	return f.kind.width(), nil
}

// Size returns the length in bytes of r given its current values.
func (r *Record) Size() (int, error) {
	var total int
	for _, f := range r.schema.fields {
		for _, e := range r.elements(f) {
			n, err := r.length(f, e)
			if err != nil {
				return 0, err
			}
			total += n
		}
	}
	return total, nil
}

func (r *Record) elements(f Field) []interface{} {
	if f.count > 0 {
		return r.values[f.name].([]interface{})
	}
	return []interface{}{r.values[f.name]}
}

// Unpack decodes r from b starting at off and returns the number of bytes
// consumed.
func (r *Record) Unpack(b []byte, off int) (int, error) {
	if off < 0 || off > len(b) {
		return 0, fmt.Errorf("%s: %w: offset %d outside %d bytes", r.schema.name, ErrTruncated, off, len(b))
	}
	pos := off
	for _, f := range r.schema.fields {
		elems := r.elements(f)
		for i := range elems {
			v, n, err := r.unpackOne(f, elems[i], b, pos)
			if err != nil {
				return 0, err
			}
			elems[i] = v
			pos += n
		}
		if f.count == 0 {
			r.values[f.name] = elems[0]
		}
	}
	return pos - off, nil
}

func (r *Record) unpackOne(f Field, cur interface{}, b []byte, pos int) (interface{}, int, error) {
	if f.kind == KindStruct {
		sub := f.schema.NewRecord()
		n, err := sub.Unpack(b, pos)
		if err != nil {
			return nil, 0, fmt.Errorf("%s.%s: %w", r.schema.name, f.name, err)
		}
		return sub, n, nil
	}

	n, err := r.length(f, cur)
	if err != nil {
		return nil, 0, err
	}
	if len(b)-pos < n {
		return nil, 0, fmt.Errorf("%s.%s: %w: need %d bytes at offset %d, have %d", r.schema.name, f.name, ErrTruncated, n, pos, len(b)-pos)
	}
	raw := b[pos : pos+n]

	if f.kind == KindString {
		s := append([]byte(nil), raw...)
		if f.stripNulls {
			s = bytes.TrimRight(s, "\x00")
		}
		if f.enc == nil {
			return s, n, nil
		}
		t, err := f.enc.NewDecoder().Bytes(s)
		if err != nil {
			return nil, 0, fmt.Errorf("%s.%s: %w", r.schema.name, f.name, err)
		}
		return string(t), n, nil
	}

	order := r.schema.order
	switch f.kind {
	case KindInt8:
		return int64(int8(raw[0])), n, nil
	case KindUint8:
		return uint64(raw[0]), n, nil
	case KindInt16:
		return int64(int16(order.Uint16(raw))), n, nil
	case KindUint16:
		return uint64(order.Uint16(raw)), n, nil
	case KindInt32:
		return int64(int32(order.Uint32(raw))), n, nil
	case KindUint32:
		return uint64(order.Uint32(raw)), n, nil
	case KindInt64:
		return int64(order.Uint64(raw)), n, nil
	case KindUint64:
		return order.Uint64(raw), n, nil
	case KindFloat32:
		return math.Float32frombits(order.Uint32(raw)), n, nil
	}
	return nil, 0, fmt.Errorf("%s.%s: %w: kind %s", r.schema.name, f.name, ErrBadValue, f.kind)
}

// Pack encodes r. Strings are truncated or padded with NUL bytes to their
// resolved length.
func (r *Record) Pack() ([]byte, error) {
	size, err := r.Size()
	if err != nil {
		return nil, err
	}
	b := make([]byte, 0, size)
	for _, f := range r.schema.fields {
		for _, e := range r.elements(f) {
			if b, err = r.packOne(b, f, e); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

func (r *Record) packOne(b []byte, f Field, v interface{}) ([]byte, error) {
	order := r.schema.order
	var tmp [8]byte

	switch f.kind {
	case KindStruct:
		sub, err := v.(*Record).Pack()
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", r.schema.name, f.name, err)
		}
		return append(b, sub...), nil
	case KindString:
		n, err := r.length(f, v)
		if err != nil {
			return nil, err
		}
		var s []byte
		switch t := v.(type) {
		case string:
			if f.enc != nil {
				if s, err = f.enc.NewEncoder().Bytes([]byte(t)); err != nil {
					return nil, fmt.Errorf("%s.%s: %w", r.schema.name, f.name, err)
				}
			} else {
				s = []byte(t)
			}
		case []byte:
			s = t
		}
		if len(s) > n {
			s = s[:n]
		}
		b = append(b, s...)
		return append(b, make([]byte, n-len(s))...), nil
	case KindInt8, KindUint8:
		return append(b, byte(r.bits(v))), nil
	case KindInt16, KindUint16:
		order.PutUint16(tmp[:2], uint16(r.bits(v)))
		return append(b, tmp[:2]...), nil
	case KindInt32, KindUint32:
		order.PutUint32(tmp[:4], uint32(r.bits(v)))
		return append(b, tmp[:4]...), nil
	case KindInt64, KindUint64:
		order.PutUint64(tmp[:8], r.bits(v))
		return append(b, tmp[:8]...), nil
	case KindFloat32:
		order.PutUint32(tmp[:4], math.Float32bits(v.(float32)))
		return append(b, tmp[:4]...), nil
	}
	return nil, fmt.Errorf("%s.%s: %w: kind %s", r.schema.name, f.name, ErrBadValue, f.kind)
}

func (r *Record) bits(v interface{}) uint64 {
	switch t := v.(type) {
	case int64:
		return uint64(t)
	case uint64:
		return t
	}
	return 0
}
