/*
Package layout implements a small declarative binary record reader and
writer.

A Schema is an ordered list of fields sharing one byte order. Fields are
scalars, arrays of scalars, fixed or variable length strings and nested
schemas. A Record holds the values for one instance of a Schema and can be
unpacked from, or packed into, a byte slice. Fields are resolved strictly in
declaration order so a variable length string may refer to any field declared
before it.
*/
package layout

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/text/encoding"
)

// Kind is the type of a field.
type Kind int

// Supported field kinds.
const (
	KindInt8 Kind = iota
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindString
	KindStruct
)

var kindNames = [...]string{
	KindInt8:    "int8",
	KindUint8:   "uint8",
	KindInt16:   "int16",
	KindUint16:  "uint16",
	KindInt32:   "int32",
	KindUint32:  "uint32",
	KindInt64:   "int64",
	KindUint64:  "uint64",
	KindFloat32: "float32",
	KindString:  "string",
	KindStruct:  "struct",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// width returns the size in bytes of a scalar kind, or 0.
func (k Kind) width() int {
	switch k {
	case KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindInt64, KindUint64:
		return 8
	}
	return 0
}

func (k Kind) signed() bool {
	return k == KindInt8 || k == KindInt16 || k == KindInt32 || k == KindInt64
}

var (
	// ErrTruncated is returned when there are fewer bytes than a field
	// requires
	ErrTruncated = errors.New("layout: truncated input")
	// ErrUnknownField is returned when a value is read or written by a
	// name the schema does not declare
	ErrUnknownField = errors.New("layout: unknown field")
	// ErrBadValue is returned when a value does not suit its field
	ErrBadValue = errors.New("layout: bad value")
)

// Field describes one entry in a Schema. Use the constructor functions
// rather than building one directly.
type Field struct {
	name  string
	kind  Kind
	count int // >0 for an array of count elements

	length     int    // fixed string length
	lengthRef  string // field holding a variable string length
	lengthAdd  int
	enc        encoding.Encoding
	stripNulls bool

	schema *Schema
}

// Name returns the field name.
func (f Field) Name() string {
	return f.name
}

// Kind returns the field kind.
func (f Field) Kind() Kind {
	return f.kind
}

// Count returns the number of array elements, or 0 for a single value.
func (f Field) Count() int {
	return f.count
}

// StringOption modifies a string field.
type StringOption func(*Field)

// WithEncoding decodes and encodes the string with enc. Without an encoding
// the field value is the raw []byte.
func WithEncoding(enc encoding.Encoding) StringOption {
	return func(f *Field) {
		f.enc = enc
	}
}

// StripNulls removes trailing NUL bytes when unpacking.
func StripNulls() StringOption {
	return func(f *Field) {
		f.stripNulls = true
	}
}

func scalar(name string, kind Kind) Field {
	return Field{name: name, kind: kind}
}

// Int8 declares a signed 8-bit field.
func Int8(name string) Field { return scalar(name, KindInt8) }

// Uint8 declares an unsigned 8-bit field.
func Uint8(name string) Field { return scalar(name, KindUint8) }

// Int16 declares a signed 16-bit field.
func Int16(name string) Field { return scalar(name, KindInt16) }

// Uint16 declares an unsigned 16-bit field.
func Uint16(name string) Field { return scalar(name, KindUint16) }

// Int32 declares a signed 32-bit field.
func Int32(name string) Field { return scalar(name, KindInt32) }

// Uint32 declares an unsigned 32-bit field.
func Uint32(name string) Field { return scalar(name, KindUint32) }

// Int64 declares a signed 64-bit field.
func Int64(name string) Field { return scalar(name, KindInt64) }

// Uint64 declares an unsigned 64-bit field.
func Uint64(name string) Field { return scalar(name, KindUint64) }

// Float32 declares an IEEE 754 single precision field.
func Float32(name string) Field { return scalar(name, KindFloat32) }

// Array repeats field n times. The value becomes a slice. It panics if n is
// not positive.
func Array(f Field, n int) Field {
	if n <= 0 {
		panic(fmt.Sprintf("layout: field %q: bad array length %d", f.name, n))
	}
	f.count = n
	return f
}

// String declares a fixed length string of n bytes.
func String(name string, n int, opts ...StringOption) Field {
	f := Field{name: name, kind: KindString, length: n}
	for _, o := range opts {
		o(&f)
	}
	return f
}

// VarString declares a string whose length is the current value of the
// integer field ref plus add. The referenced field must be declared earlier.
func VarString(name, ref string, add int, opts ...StringOption) Field {
	f := Field{name: name, kind: KindString, lengthRef: ref, lengthAdd: add}
	for _, o := range opts {
		o(&f)
	}
	return f
}

// Struct embeds s.
func Struct(name string, s *Schema) Field {
	return Field{name: name, kind: KindStruct, schema: s}
}

// StructArray embeds n consecutive instances of s.
func StructArray(name string, s *Schema, n int) Field {
	return Array(Struct(name, s), n)
}

// Schema is an ordered list of fields with a byte order.
type Schema struct {
	name   string
	order  binary.ByteOrder
	fields []Field
	index  map[string]int
}

// New returns a schema. It panics on a duplicate or forward referenced
// field name as schemas are declared once at package level.
func New(name string, order binary.ByteOrder, fields ...Field) *Schema {
	s := &Schema{
		name:   name,
		order:  order,
		fields: fields,
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if _, ok := s.index[f.name]; ok {
			panic(fmt.Sprintf("layout: %s: duplicate field %q", name, f.name))
		}
		if f.lengthRef != "" {
			j, ok := s.index[f.lengthRef]
			if !ok {
				panic(fmt.Sprintf("layout: %s: field %q refers to undeclared %q", name, f.name, f.lengthRef))
			}
			if r := fields[j]; r.kind.width() == 0 || r.kind == KindFloat32 || r.count > 0 {
				panic(fmt.Sprintf("layout: %s: field %q refers to non-integer %q", name, f.name, f.lengthRef))
			}
		}
		if f.kind == KindStruct && f.schema == nil {
			panic(fmt.Sprintf("layout: %s: field %q has no schema", name, f.name))
		}
		s.index[f.name] = i
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string {
	return s.name
}

// Order returns the byte order applied to every scalar.
func (s *Schema) Order() binary.ByteOrder {
	return s.order
}

// Fields returns the declared fields in order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Size returns the length in bytes of a zero valued record of s. Variable
// length strings count as their offset only.
func (s *Schema) Size() int {
	n, _ := s.NewRecord().Size()
	return n
}

// Unpack decodes an instance of s from b starting at off.
func Unpack(s *Schema, b []byte, off int) (*Record, error) {
	r := s.NewRecord()
	if _, err := r.Unpack(b, off); err != nil {
		return nil, err
	}
	return r, nil
}
