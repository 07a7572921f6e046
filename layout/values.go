package layout

import (
	"fmt"
	"math"
)

func (f Field) normalize(v interface{}) (interface{}, error) {
	switch f.kind {
	case KindStruct:
		sub, ok := v.(*Record)
		if !ok || sub == nil {
			return nil, fmt.Errorf("%w: want *Record, got %T", ErrBadValue, v)
		}
		if sub.schema != f.schema {
			return nil, fmt.Errorf("%w: record of %s, want %s", ErrBadValue, sub.schema.name, f.schema.name)
		}
		return sub, nil
	case KindString:
		switch t := v.(type) {
		case string:
			if f.enc == nil {
				return []byte(t), nil
			}
			return t, nil
		case []byte:
			if f.enc != nil {
				return string(t), nil
			}
			return append([]byte(nil), t...), nil
		}
		return nil, fmt.Errorf("%w: want string or []byte, got %T", ErrBadValue, v)
	case KindFloat32:
		switch t := v.(type) {
		case float32:
			return t, nil
		case float64:
			return float32(t), nil
		}
		if i, ok := toInt64(v); ok {
			return float32(i), nil
		}
		return nil, fmt.Errorf("%w: want float, got %T", ErrBadValue, v)
	}

	i, ok := toInt64(v)
	if !ok {
		if u, ok := v.(uint64); ok {
			if f.kind == KindUint64 {
				return u, nil
			}
			return nil, fmt.Errorf("%w: %d overflows %s", ErrBadValue, u, f.kind)
		}
		return nil, fmt.Errorf("%w: want integer, got %T", ErrBadValue, v)
	}
	lo, hi := f.kind.bounds()
	if i < lo || (hi >= 0 && i > hi) {
		return nil, fmt.Errorf("%w: %d overflows %s", ErrBadValue, i, f.kind)
	}
	if f.kind.signed() {
		return i, nil
	}
	return uint64(i), nil
}

// bounds returns the accepted range as int64. hi is -1 when every
// non-negative int64 fits.
func (k Kind) bounds() (int64, int64) {
	switch k {
	case KindInt8:
		return math.MinInt8, math.MaxInt8
	case KindUint8:
		return 0, math.MaxUint8
	case KindInt16:
		return math.MinInt16, math.MaxInt16
	case KindUint16:
		return 0, math.MaxUint16
	case KindInt32:
		return math.MinInt32, math.MaxInt32
	case KindUint32:
		return 0, math.MaxUint32
	case KindInt64:
		return math.MinInt64, math.MaxInt64
	}
	return 0, -1
}

func toInt64(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		if uint64(t) > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		if t > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	}
	return 0, false
}

func toSlice(v interface{}) ([]interface{}, error) {
	switch t := v.(type) {
	case []interface{}:
		return t, nil
	case []int:
		return each(len(t), func(i int) interface{} { return t[i] }), nil
	case []int64:
		return each(len(t), func(i int) interface{} { return t[i] }), nil
	case []uint8:
		return each(len(t), func(i int) interface{} { return t[i] }), nil
	case []uint16:
		return each(len(t), func(i int) interface{} { return t[i] }), nil
	case []uint32:
		return each(len(t), func(i int) interface{} { return t[i] }), nil
	case []uint64:
		return each(len(t), func(i int) interface{} { return t[i] }), nil
	case []float32:
		return each(len(t), func(i int) interface{} { return t[i] }), nil
	case []string:
		return each(len(t), func(i int) interface{} { return t[i] }), nil
	case []*Record:
		return each(len(t), func(i int) interface{} { return t[i] }), nil
	}
	return nil, fmt.Errorf("%w: want slice, got %T", ErrBadValue, v)
}

func each(n int, fn func(int) interface{}) []interface{} {
	out := make([]interface{}, n)
	for i := range out {
		out[i] = fn(i)
	}
	return out
}
