// Package codec implements the type-directed field codec (spec.md §4.2):
// encoding and decoding of typed values to/from NUL-split ASCII text
// fields, with per-field applicability gated by both the negotiated
// protocol version and a per-message "message version".
package codec

import (
	"strconv"

	"github.com/ondergetekende/ibclient/protover"
)

// Sentinel values that mean "unset" on the wire (spec.md §4.2, §6).
const (
	Int32Unset = 2147483647
	FloatUnset = 1.7976931348623157e+308
)

// Gate bounds a field read/write by protocol version and message version.
// The zero Gate always applies (no bound in either dimension), matching
// spec.md's "optional gates" wording.
type Gate struct {
	MinVersion        protover.Version
	MaxVersion         protover.Version
	MinMessageVersion protover.Version
	MaxMessageVersion protover.Version
}

func (g Gate) ok(proto, msgVersion protover.Version) bool {
	return protover.Gate(proto, g.MinVersion, g.MaxVersion) &&
		protover.Gate(msgVersion, g.MinMessageVersion, g.MaxMessageVersion)
}

// Reader decodes an ordered sequence of text fields produced by the wire
// framer. It tracks a read cursor, the Connection's negotiated protocol
// version, and this frame's message version (spec.md §3 IncomingFrame).
type Reader struct {
	fields     []string
	idx        int
	proto      protover.Version
	msgVersion protover.Version
}

// NewReader wraps fields for sequential, gated reads.
func NewReader(fields []string, proto, msgVersion protover.Version) *Reader {
	return &Reader{fields: fields, proto: proto, msgVersion: msgVersion}
}

// MessageVersion returns this frame's message version.
func (r *Reader) MessageVersion() protover.Version { return r.msgVersion }

// Remaining reports how many fields are left to read.
func (r *Reader) Remaining() int { return len(r.fields) - r.idx }

// Peek returns the next field without advancing the cursor. Used by the
// instrument registry to canonicalize by contract id before decoding the
// rest of an instrument (spec.md §4.2, §4.7).
func (r *Reader) Peek() (string, bool) {
	if r.idx >= len(r.fields) {
		return "", false
	}
	return r.fields[r.idx], true
}

func (r *Reader) next() (string, bool) {
	if r.idx >= len(r.fields) {
		return "", false
	}
	v := r.fields[r.idx]
	r.idx++
	return v, true
}

// Skip advances the cursor by one field without interpreting it.
func (r *Reader) Skip() {
	if r.idx < len(r.fields) {
		r.idx++
	}
}

// ReadString reads a raw UTF-8 string field. A gate failure consumes no
// input and returns def.
func (r *Reader) ReadString(g Gate, def string) string {
	if !g.ok(r.proto, r.msgVersion) {
		return def
	}
	v, ok := r.next()
	if !ok {
		return def
	}
	return v
}

// ReadInt reads a decimal integer field. Empty string or the INT32_MAX
// sentinel decode as "unset" (nil). A gate failure consumes no input and
// returns def.
func (r *Reader) ReadInt(g Gate, def *int32) *int32 {
	if !g.ok(r.proto, r.msgVersion) {
		return def
	}
	v, ok := r.next()
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n == Int32Unset {
		return nil
	}
	i := int32(n)
	return &i
}

// ReadIntOr reads an integer field and unwraps it to a concrete value,
// substituting def when the field is absent, gated out, or unset.
func (r *Reader) ReadIntOr(g Gate, def int32) int32 {
	v := r.ReadInt(g, &def)
	if v == nil {
		return def
	}
	return *v
}

// ReadFloat reads a decimal floating-point field. Empty string or the
// IEEE double-max sentinel decode as "unset" (nil).
func (r *Reader) ReadFloat(g Gate, def *float64) *float64 {
	if !g.ok(r.proto, r.msgVersion) {
		return def
	}
	v, ok := r.next()
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f == FloatUnset {
		return nil
	}
	return &f
}

// ReadFloatOr reads a float field and unwraps it, substituting def when
// absent, gated out, or unset.
func (r *Reader) ReadFloatOr(g Gate, def float64) float64 {
	v := r.ReadFloat(g, &def)
	if v == nil {
		return def
	}
	return *v
}

// ReadBool reads a "0"/"1" field, parsed as integer and compared to zero.
func (r *Reader) ReadBool(g Gate, def bool) bool {
	if !g.ok(r.proto, r.msgVersion) {
		return def
	}
	v, ok := r.next()
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n != 0
}

// EnumValues pairs the text and integer encodings recognized for an
// enumeration field (spec.md §4.2).
type EnumValues[T any] struct {
	ByText  map[string]T
	ByInt   map[int]T
	Default T
}

// ReadEnum resolves an enum field by direct text match, falling back to
// integer match, falling back to the raw string (spec.md §4.2, §9 Open
// Question (b)). raw is non-empty only when neither match succeeded.
func ReadEnum[T any](r *Reader, g Gate, values EnumValues[T]) (value T, raw string) {
	if !g.ok(r.proto, r.msgVersion) {
		return values.Default, ""
	}
	v, ok := r.next()
	if !ok {
		return values.Default, ""
	}
	if t, ok := values.ByText[v]; ok {
		return t, ""
	}
	if n, err := strconv.Atoi(v); err == nil {
		if t, ok := values.ByInt[n]; ok {
			return t, ""
		}
	}
	return values.Default, v
}

// ReadList reads a homogeneous list: an integer count N followed by N
// elements decoded by elem.
func ReadList[T any](r *Reader, g Gate, elem func(*Reader) T) []T {
	if !g.ok(r.proto, r.msgVersion) {
		return nil
	}
	n := r.ReadIntOr(Gate{}, 0)
	if n <= 0 {
		return nil
	}
	out := make([]T, 0, n)
	for i := int32(0); i < n; i++ {
		out = append(out, elem(r))
	}
	return out
}

// ReadMap reads a homogeneous map: an integer count N followed by N
// (key, value) pairs, preserving insertion order via the returned keys
// slice alongside the map.
func ReadMap[K comparable, V any](r *Reader, g Gate, key func(*Reader) K, val func(*Reader) V) (map[K]V, []K) {
	if !g.ok(r.proto, r.msgVersion) {
		return nil, nil
	}
	n := r.ReadIntOr(Gate{}, 0)
	if n <= 0 {
		return nil, nil
	}
	m := make(map[K]V, n)
	order := make([]K, 0, n)
	for i := int32(0); i < n; i++ {
		k := key(r)
		v := val(r)
		m[k] = v
		order = append(order, k)
	}
	return m, order
}

// Writer accumulates encoded text fields for an OutgoingFrame, alongside
// their original typed values for logging (spec.md §3 OutgoingFrame).
type Writer struct {
	fields []string
	values []any
	proto  protover.Version
}

// NewWriter creates a Writer bound to the Connection's negotiated
// protocol version (used to evaluate protocol-version gates on write).
func NewWriter(proto protover.Version) *Writer {
	return &Writer{proto: proto}
}

// Fields returns the encoded field sequence accumulated so far.
func (w *Writer) Fields() []string { return w.fields }

// Values returns the original typed values, parallel to Fields, for
// logging.
func (w *Writer) Values() []any { return w.values }

func (w *Writer) append(field string, value any) {
	w.fields = append(w.fields, field)
	w.values = append(w.values, value)
}

func (w *Writer) okForWrite(g Gate) bool {
	return protover.Gate(w.proto, g.MinVersion, g.MaxVersion)
}

// WriteString writes a raw string field. A gate failure appends nothing.
func (w *Writer) WriteString(g Gate, v string) {
	if !w.okForWrite(g) {
		return
	}
	w.append(v, v)
}

// WriteInt writes an integer field; nil encodes as the empty field.
func (w *Writer) WriteInt(g Gate, v *int32) {
	if !w.okForWrite(g) {
		return
	}
	if v == nil {
		w.append("", nil)
		return
	}
	w.append(strconv.FormatInt(int64(*v), 10), *v)
}

// WriteIntVal writes a required (never-unset) integer field.
func (w *Writer) WriteIntVal(g Gate, v int32) { w.WriteInt(g, &v) }

// WriteFloat writes a floating-point field; nil encodes as the empty
// field.
func (w *Writer) WriteFloat(g Gate, v *float64) {
	if !w.okForWrite(g) {
		return
	}
	if v == nil {
		w.append("", nil)
		return
	}
	w.append(strconv.FormatFloat(*v, 'g', -1, 64), *v)
}

// WriteBool writes a boolean as "0"/"1".
func (w *Writer) WriteBool(g Gate, v bool) {
	if !w.okForWrite(g) {
		return
	}
	if v {
		w.append("1", v)
	} else {
		w.append("0", v)
	}
}

// WriteList writes a homogeneous list: an integer count followed by
// elements encoded by elem.
func WriteList[T any](w *Writer, g Gate, vals []T, elem func(*Writer, T)) {
	if !w.okForWrite(g) {
		return
	}
	w.WriteIntVal(Gate{}, int32(len(vals)))
	for _, v := range vals {
		elem(w, v)
	}
}
