package shape

import (
	"bytes"
	"cmp"
	"encoding/base64"
	"encoding/binary"
	"hash"
	"io"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
	"golang.org/x/exp/constraints"
)

func builtinScalar(t reflect.Type) *Shape {
	switch t {
	case timeType:
		return timeShape()
	case durationType:
		return durationShape()
	case bytesType:
		return bytesShape()
	}

	switch t.Kind() {
	case reflect.Bool:
		return boolShape()
	case reflect.Int:
		return signedShape[int](strconv.IntSize)
	case reflect.Int8:
		return signedShape[int8](8)
	case reflect.Int16:
		return signedShape[int16](16)
	case reflect.Int32:
		return signedShape[int32](32)
	case reflect.Int64:
		return signedShape[int64](64)
	case reflect.Uint:
		return unsignedShape[uint](strconv.IntSize)
	case reflect.Uint8:
		return unsignedShape[uint8](8)
	case reflect.Uint16:
		return unsignedShape[uint16](16)
	case reflect.Uint32:
		return unsignedShape[uint32](32)
	case reflect.Uint64:
		return unsignedShape[uint64](64)
	case reflect.Uintptr:
		return unsignedShape[uintptr](strconv.IntSize)
	case reflect.Float32:
		return floatShape[float32](32)
	case reflect.Float64:
		return floatShape[float64](64)
	case reflect.String:
		return stringShape()
	}
	panic("shape: not a builtin scalar: " + t.String())
}

func scalarShape[T any](vt *ValueVTable, def *ScalarDef) *Shape {
	return BuilderForSized[T]().
		Ty(TyPrimitive).
		VTable(vt).
		Def(def).
		Build()
}

func writeString(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}

func hashUint64(h hash.Hash, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	h.Write(buf[:])
}

func hashBytes(h hash.Hash, b []byte) {
	hashUint64(h, uint64(len(b)))
	h.Write(b)
}

func signedShape[T constraints.Signed](bits int) *Shape {
	info := NumberInfo{Bits: bits, Signed: true}
	name := reflect.TypeFor[T]().String()
	display := func(v *T, w io.Writer) error { return writeString(w, strconv.FormatInt(int64(*v), 10)) }

	vt := VTableFor[T]().
		Display(display).
		Debug(display).
		Parse(func(s string) (T, error) {
			n, err := strconv.ParseInt(s, 10, bits)
			if err != nil {
				return 0, errors.ParseFailed(name, s, err)
			}
			return T(n), nil
		}).
		Default(func() T { return 0 }).
		Clone(func(v *T) T { return *v }).
		Eq(func(x, y *T) bool { return *x == *y }).
		Ord(func(x, y *T) int { return cmp.Compare(*x, *y) }).
		Hash(func(v *T, h hash.Hash) { hashUint64(h, uint64(*v)) }).
		TryFrom(numberTryFrom[T](info, name)).
		Marker(MarkerComparable | MarkerCopy).
		Build()
	return scalarShape[T](vt, &ScalarDef{Affinity: AffinityNumber, Number: info})
}

func unsignedShape[T constraints.Unsigned](bits int) *Shape {
	info := NumberInfo{Bits: bits}
	name := reflect.TypeFor[T]().String()
	display := func(v *T, w io.Writer) error { return writeString(w, strconv.FormatUint(uint64(*v), 10)) }

	vt := VTableFor[T]().
		Display(display).
		Debug(display).
		Parse(func(s string) (T, error) {
			n, err := strconv.ParseUint(s, 10, bits)
			if err != nil {
				return 0, errors.ParseFailed(name, s, err)
			}
			return T(n), nil
		}).
		Default(func() T { return 0 }).
		Clone(func(v *T) T { return *v }).
		Eq(func(x, y *T) bool { return *x == *y }).
		Ord(func(x, y *T) int { return cmp.Compare(*x, *y) }).
		Hash(func(v *T, h hash.Hash) { hashUint64(h, uint64(*v)) }).
		TryFrom(numberTryFrom[T](info, name)).
		Marker(MarkerComparable | MarkerCopy).
		Build()
	return scalarShape[T](vt, &ScalarDef{Affinity: AffinityNumber, Number: info})
}

// floatShape has no Ord and no Hash: NaN breaks both.
func floatShape[T constraints.Float](bits int) *Shape {
	info := NumberInfo{Bits: bits, Signed: true, Float: true}
	name := reflect.TypeFor[T]().String()
	display := func(v *T, w io.Writer) error {
		return writeString(w, strconv.FormatFloat(float64(*v), 'g', -1, bits))
	}

	vt := VTableFor[T]().
		Display(display).
		Debug(display).
		Parse(func(s string) (T, error) {
			f, err := strconv.ParseFloat(s, bits)
			if err != nil {
				return 0, errors.ParseFailed(name, s, err)
			}
			return T(f), nil
		}).
		Default(func() T { return 0 }).
		Clone(func(v *T) T { return *v }).
		Eq(func(x, y *T) bool { return *x == *y }).
		PartialOrd(func(x, y *T) (int, bool) {
			if math.IsNaN(float64(*x)) || math.IsNaN(float64(*y)) {
				return 0, false
			}
			return cmp.Compare(*x, *y), true
		}).
		TryFrom(numberTryFrom[T](info, name)).
		Marker(MarkerCopy).
		Build()
	return scalarShape[T](vt, &ScalarDef{Affinity: AffinityNumber, Number: info})
}

func boolShape() *Shape {
	display := func(v *bool, w io.Writer) error { return writeString(w, strconv.FormatBool(*v)) }
	vt := VTableFor[bool]().
		Display(display).
		Debug(display).
		Parse(func(s string) (bool, error) {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return false, errors.ParseFailed("bool", s, err)
			}
			return b, nil
		}).
		Default(func() bool { return false }).
		Clone(func(v *bool) bool { return *v }).
		Eq(func(x, y *bool) bool { return *x == *y }).
		Ord(func(x, y *bool) int {
			switch {
			case *x == *y:
				return 0
			case !*x:
				return -1
			default:
				return 1
			}
		}).
		Hash(func(v *bool, h hash.Hash) {
			if *v {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
		}).
		Marker(MarkerComparable | MarkerCopy).
		Build()
	return scalarShape[bool](vt, &ScalarDef{Affinity: AffinityBool})
}

func stringShape() *Shape {
	vt := VTableFor[string]().
		Display(func(v *string, w io.Writer) error { return writeString(w, *v) }).
		Debug(func(v *string, w io.Writer) error { return writeString(w, strconv.Quote(*v)) }).
		Parse(func(s string) (string, error) { return s, nil }).
		Default(func() string { return "" }).
		Clone(func(v *string) string { return *v }).
		Eq(func(x, y *string) bool { return *x == *y }).
		Ord(func(x, y *string) int { return cmp.Compare(*x, *y) }).
		Hash(func(v *string, h hash.Hash) { hashBytes(h, []byte(*v)) }).
		TryFrom(func(src ptr.Const, ss *Shape) (string, error) {
			if IsType[[]byte](ss) {
				return string(ptr.Read[[]byte](src)), nil
			}
			return "", errors.UnsupportedSource(ss.String(), "[]uint8")
		}).
		Marker(MarkerComparable).
		Build()
	return scalarShape[string](vt, &ScalarDef{Affinity: AffinityString})
}

func bytesShape() *Shape {
	display := func(v *[]byte, w io.Writer) error {
		return writeString(w, base64.StdEncoding.EncodeToString(*v))
	}
	vt := VTableFor[[]byte]().
		Display(display).
		Debug(display).
		Parse(func(s string) ([]byte, error) {
			b, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, errors.ParseFailed("[]uint8", s, err)
			}
			return b, nil
		}).
		Default(func() []byte { return nil }).
		Clone(func(v *[]byte) []byte { return bytes.Clone(*v) }).
		Eq(func(x, y *[]byte) bool { return bytes.Equal(*x, *y) }).
		Ord(func(x, y *[]byte) int { return bytes.Compare(*x, *y) }).
		Hash(func(v *[]byte, h hash.Hash) { hashBytes(h, *v) }).
		TryFrom(func(src ptr.Const, ss *Shape) ([]byte, error) {
			if IsType[string](ss) {
				return []byte(ptr.Read[string](src)), nil
			}
			return nil, errors.UnsupportedSource(ss.String(), "string")
		}).
		Build()
	return scalarShape[[]byte](vt, &ScalarDef{Affinity: AffinityBytes})
}

func timeShape() *Shape {
	display := func(v *time.Time, w io.Writer) error { return writeString(w, v.Format(time.RFC3339Nano)) }
	vt := VTableFor[time.Time]().
		Display(display).
		Debug(display).
		Parse(func(s string) (time.Time, error) {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return time.Time{}, errors.ParseFailed("time.Time", s, err)
			}
			return t, nil
		}).
		Default(func() time.Time { return time.Time{} }).
		Clone(func(v *time.Time) time.Time { return *v }).
		Eq(func(x, y *time.Time) bool { return x.Equal(*y) }).
		Ord(func(x, y *time.Time) int { return x.Compare(*y) }).
		Hash(func(v *time.Time, h hash.Hash) { hashUint64(h, uint64(v.UnixNano())) }).
		TryFrom(func(src ptr.Const, ss *Shape) (time.Time, error) {
			if IsType[string](ss) {
				s := ptr.Read[string](src)
				t, err := time.Parse(time.RFC3339Nano, s)
				if err != nil {
					return time.Time{}, errors.ParseFailed("time.Time", s, err)
				}
				return t, nil
			}
			return time.Time{}, errors.UnsupportedSource(ss.String(), "string")
		}).
		Build()
	return scalarShape[time.Time](vt, &ScalarDef{Affinity: AffinityTime})
}

func durationShape() *Shape {
	display := func(v *time.Duration, w io.Writer) error { return writeString(w, v.String()) }
	info := NumberInfo{Bits: 64, Signed: true}
	vt := VTableFor[time.Duration]().
		Display(display).
		Debug(display).
		Parse(func(s string) (time.Duration, error) {
			d, err := time.ParseDuration(s)
			if err != nil {
				return 0, errors.ParseFailed("time.Duration", s, err)
			}
			return d, nil
		}).
		Default(func() time.Duration { return 0 }).
		Clone(func(v *time.Duration) time.Duration { return *v }).
		Eq(func(x, y *time.Duration) bool { return *x == *y }).
		Ord(func(x, y *time.Duration) int { return cmp.Compare(*x, *y) }).
		Hash(func(v *time.Duration, h hash.Hash) { hashUint64(h, uint64(*v)) }).
		TryFrom(numberTryFrom[time.Duration](info, "time.Duration")).
		Marker(MarkerComparable | MarkerCopy).
		Build()
	return scalarShape[time.Duration](vt, &ScalarDef{Affinity: AffinityDuration, Number: info})
}

type numberKind uint8

const (
	numSigned numberKind = iota
	numUnsigned
	numFloat
)

type number struct {
	kind numberKind
	i    int64
	u    uint64
	f    float64
}

func readNumber(p ptr.Const, info NumberInfo) number {
	switch {
	case info.Float && info.Bits == 32:
		return number{kind: numFloat, f: float64(ptr.Read[float32](p))}
	case info.Float:
		return number{kind: numFloat, f: ptr.Read[float64](p)}
	case info.Signed:
		switch info.Bits {
		case 8:
			return number{kind: numSigned, i: int64(ptr.Read[int8](p))}
		case 16:
			return number{kind: numSigned, i: int64(ptr.Read[int16](p))}
		case 32:
			return number{kind: numSigned, i: int64(ptr.Read[int32](p))}
		default:
			return number{kind: numSigned, i: ptr.Read[int64](p)}
		}
	default:
		switch info.Bits {
		case 8:
			return number{kind: numUnsigned, u: uint64(ptr.Read[uint8](p))}
		case 16:
			return number{kind: numUnsigned, u: uint64(ptr.Read[uint16](p))}
		case 32:
			return number{kind: numUnsigned, u: uint64(ptr.Read[uint32](p))}
		default:
			return number{kind: numUnsigned, u: ptr.Read[uint64](p)}
		}
	}
}

func (n number) value() any {
	switch n.kind {
	case numSigned:
		return n.i
	case numUnsigned:
		return n.u
	default:
		return n.f
	}
}

func signedRange(bits int) (int64, int64) {
	switch bits {
	case 8:
		return math.MinInt8, math.MaxInt8
	case 16:
		return math.MinInt16, math.MaxInt16
	case 32:
		return math.MinInt32, math.MaxInt32
	default:
		return math.MinInt64, math.MaxInt64
	}
}

func unsignedMax(bits int) uint64 {
	switch bits {
	case 8:
		return math.MaxUint8
	case 16:
		return math.MaxUint16
	case 32:
		return math.MaxUint32
	default:
		return math.MaxUint64
	}
}

// numberTryFrom converts between numeric scalars, failing on loss of range or fraction.
func numberTryFrom[T constraints.Integer | constraints.Float](dst NumberInfo, name string) func(ptr.Const, *Shape) (T, error) {
	return func(src ptr.Const, ss *Shape) (T, error) {
		sd, ok := ss.Def.(*ScalarDef)
		if !ok || sd.Affinity != AffinityNumber {
			return 0, errors.UnsupportedSource(ss.String(), "number")
		}
		n := readNumber(src, sd.Number)
		overflow := errors.Overflow(errors.PhaseConvert, n.value(), name)

		switch {
		case dst.Float:
			var f float64
			switch n.kind {
			case numSigned:
				f = float64(n.i)
			case numUnsigned:
				f = float64(n.u)
			default:
				f = n.f
			}
			if dst.Bits == 32 && !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
				return 0, overflow
			}
			return T(f), nil

		case dst.Signed:
			lo, hi := signedRange(dst.Bits)
			switch n.kind {
			case numSigned:
				if n.i < lo || n.i > hi {
					return 0, overflow
				}
				return T(n.i), nil
			case numUnsigned:
				if n.u > uint64(hi) {
					return 0, overflow
				}
				return T(n.u), nil
			default:
				// -lo is hi+1 and exact in float64
				if n.f != math.Trunc(n.f) || n.f < float64(lo) || n.f >= -float64(lo) {
					return 0, overflow
				}
				return T(n.f), nil
			}

		default:
			hi := unsignedMax(dst.Bits)
			switch n.kind {
			case numSigned:
				if n.i < 0 || uint64(n.i) > hi {
					return 0, overflow
				}
				return T(n.i), nil
			case numUnsigned:
				if n.u > hi {
					return 0, overflow
				}
				return T(n.u), nil
			default:
				if n.f != math.Trunc(n.f) || n.f < 0 || n.f >= float64(hi)+1 {
					return 0, overflow
				}
				return T(n.f), nil
			}
		}
	}
}
