// Package types provides the FHIR primitive datatypes used by model
// structs built on github.com/gofhir/model.
//
// Every primitive carries its scalar value plus the optional id/extension
// annotation that FHIR JSON serializes under the underscore-prefixed key
// (e.g. "active" and "_active"). The scalar and the annotation are exposed
// to the serializer through the fhirmodel.Primitive interface, which the
// types here satisfy structurally.
package types

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// Format patterns from the FHIR R4 specification, anchored to match the
// entire string.
var (
	codeRegexp   = regexp.MustCompile(`^[^\s]+(\s[^\s]+)*$`)
	idRegexp     = regexp.MustCompile(`^[A-Za-z0-9\-.]{1,64}$`)
	base64Regexp = regexp.MustCompile(`^(\s*[0-9a-zA-Z+/=]{4}\s*)*$`)
	dateRegexp   = regexp.MustCompile(`^([0-9]([0-9]([0-9][1-9]|[1-9]0)|[1-9]00)|[1-9]000)(-(0[1-9]|1[0-2])(-(0[1-9]|[1-2][0-9]|3[0-1]))?)?$`)
	timeRegexp   = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]:([0-5][0-9]|60)(\.[0-9]+)?$`)

	dateTimeRegexp = regexp.MustCompile(`^([0-9]([0-9]([0-9][1-9]|[1-9]0)|[1-9]00)|[1-9]000)(-(0[1-9]|1[0-2])(-(0[1-9]|[1-2][0-9]|3[0-1])(T([01][0-9]|2[0-3]):[0-5][0-9]:([0-5][0-9]|60)(\.[0-9]+)?(Z|(\+|-)((0[0-9]|1[0-3]):[0-5][0-9]|14:00)))?)?)?$`)
	instantRegexp  = regexp.MustCompile(`^([0-9]([0-9]([0-9][1-9]|[1-9]0)|[1-9]00)|[1-9]000)-(0[1-9]|1[0-2])-(0[1-9]|[1-2][0-9]|3[0-1])T([01][0-9]|2[0-3]):[0-5][0-9]:([0-5][0-9]|60)(\.[0-9]+)?(Z|(\+|-)((0[0-9]|1[0-3]):[0-5][0-9]|14:00))$`)
)

// PrimitiveElement carries the out-of-band annotation of a primitive
// value: its element id and any extensions. It serializes under the
// underscore-prefixed alias of the owning field.
type PrimitiveElement struct {
	ID        *string     `fhir:"id,element"`
	Extension []Extension `fhir:"extension,element"`
}

// orNil returns the element as an untyped value, or nil when the
// annotation carries no content.
func (e *PrimitiveElement) orNil() any {
	if e == nil || (e.ID == nil && len(e.Extension) == 0) {
		return nil
	}
	return e
}

// coerceString accepts the string representations produced by JSON and
// YAML decoders.
func coerceString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}

// coerceInt accepts the integer representations produced by JSON and
// YAML decoders: float64, json.Number, int and int64.
func coerceInt(v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case float64:
		i := int64(t)
		if float64(i) != t {
			return 0, fmt.Errorf("expected integer, got %v", t)
		}
		return i, nil
	case json.Number:
		return t.Int64()
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

// Boolean is the FHIR boolean primitive.
type Boolean struct {
	Value   *bool
	Element *PrimitiveElement
}

// NewBoolean returns a Boolean holding v.
func NewBoolean(v bool) *Boolean { return &Boolean{Value: &v} }

func (b *Boolean) PrimitiveValue() (any, bool) {
	if b.Value == nil {
		return nil, false
	}
	return *b.Value, true
}

func (b *Boolean) SetPrimitiveValue(v any) error {
	if v == nil {
		b.Value = nil
		return nil
	}
	t, ok := v.(bool)
	if !ok {
		return fmt.Errorf("expected boolean, got %T", v)
	}
	b.Value = &t
	return nil
}

func (b *Boolean) PrimitiveElement() any { return b.Element.orNil() }

func (b *Boolean) EnsureElement() any {
	if b.Element == nil {
		b.Element = &PrimitiveElement{}
	}
	return b.Element
}

// String is the FHIR string primitive.
type String struct {
	Value   *string
	Element *PrimitiveElement
}

// NewString returns a String holding v.
func NewString(v string) *String { return &String{Value: &v} }

func (s *String) PrimitiveValue() (any, bool) {
	if s.Value == nil {
		return nil, false
	}
	return *s.Value, true
}

func (s *String) SetPrimitiveValue(v any) error {
	if v == nil {
		s.Value = nil
		return nil
	}
	t, err := coerceString(v)
	if err != nil {
		return err
	}
	s.Value = &t
	return nil
}

func (s *String) PrimitiveElement() any { return s.Element.orNil() }

func (s *String) EnsureElement() any {
	if s.Element == nil {
		s.Element = &PrimitiveElement{}
	}
	return s.Element
}

// Code is the FHIR code primitive: a string taken from a controlled
// vocabulary, with no leading/trailing or repeated whitespace.
type Code struct {
	Value   *string
	Element *PrimitiveElement
}

// NewCode returns a Code holding v.
func NewCode(v string) *Code { return &Code{Value: &v} }

func (c *Code) PrimitiveValue() (any, bool) {
	if c.Value == nil {
		return nil, false
	}
	return *c.Value, true
}

func (c *Code) SetPrimitiveValue(v any) error {
	if v == nil {
		c.Value = nil
		return nil
	}
	t, err := coerceString(v)
	if err != nil {
		return err
	}
	if !codeRegexp.MatchString(t) {
		return fmt.Errorf("%q is not a valid code", t)
	}
	c.Value = &t
	return nil
}

func (c *Code) PrimitiveElement() any { return c.Element.orNil() }

func (c *Code) EnsureElement() any {
	if c.Element == nil {
		c.Element = &PrimitiveElement{}
	}
	return c.Element
}

// ID is the FHIR id primitive.
type ID struct {
	Value   *string
	Element *PrimitiveElement
}

// NewID returns an ID holding v.
func NewID(v string) *ID { return &ID{Value: &v} }

func (i *ID) PrimitiveValue() (any, bool) {
	if i.Value == nil {
		return nil, false
	}
	return *i.Value, true
}

func (i *ID) SetPrimitiveValue(v any) error {
	if v == nil {
		i.Value = nil
		return nil
	}
	t, err := coerceString(v)
	if err != nil {
		return err
	}
	if !idRegexp.MatchString(t) {
		return fmt.Errorf("%q is not a valid id", t)
	}
	i.Value = &t
	return nil
}

func (i *ID) PrimitiveElement() any { return i.Element.orNil() }

func (i *ID) EnsureElement() any {
	if i.Element == nil {
		i.Element = &PrimitiveElement{}
	}
	return i.Element
}

// URI is the FHIR uri primitive. Canonical URLs and OIDs are carried as
// plain URIs by this package; profile-level validation is out of scope.
type URI struct {
	Value   *string
	Element *PrimitiveElement
}

// NewURI returns a URI holding v.
func NewURI(v string) *URI { return &URI{Value: &v} }

func (u *URI) PrimitiveValue() (any, bool) {
	if u.Value == nil {
		return nil, false
	}
	return *u.Value, true
}

func (u *URI) SetPrimitiveValue(v any) error {
	if v == nil {
		u.Value = nil
		return nil
	}
	t, err := coerceString(v)
	if err != nil {
		return err
	}
	u.Value = &t
	return nil
}

func (u *URI) PrimitiveElement() any { return u.Element.orNil() }

func (u *URI) EnsureElement() any {
	if u.Element == nil {
		u.Element = &PrimitiveElement{}
	}
	return u.Element
}

// Base64Binary is the FHIR base64Binary primitive. The value is kept in
// its encoded form.
type Base64Binary struct {
	Value   *string
	Element *PrimitiveElement
}

// NewBase64Binary returns a Base64Binary holding the already-encoded v.
func NewBase64Binary(v string) *Base64Binary { return &Base64Binary{Value: &v} }

func (b *Base64Binary) PrimitiveValue() (any, bool) {
	if b.Value == nil {
		return nil, false
	}
	return *b.Value, true
}

func (b *Base64Binary) SetPrimitiveValue(v any) error {
	if v == nil {
		b.Value = nil
		return nil
	}
	t, err := coerceString(v)
	if err != nil {
		return err
	}
	if !base64Regexp.MatchString(t) {
		return fmt.Errorf("value is not valid base64")
	}
	b.Value = &t
	return nil
}

func (b *Base64Binary) PrimitiveElement() any { return b.Element.orNil() }

func (b *Base64Binary) EnsureElement() any {
	if b.Element == nil {
		b.Element = &PrimitiveElement{}
	}
	return b.Element
}

// Integer is the FHIR integer primitive (32 bit, signed).
type Integer struct {
	Value   *int32
	Element *PrimitiveElement
}

// NewInteger returns an Integer holding v.
func NewInteger(v int32) *Integer { return &Integer{Value: &v} }

func (i *Integer) PrimitiveValue() (any, bool) {
	if i.Value == nil {
		return nil, false
	}
	return *i.Value, true
}

func (i *Integer) SetPrimitiveValue(v any) error {
	if v == nil {
		i.Value = nil
		return nil
	}
	n, err := coerceInt(v)
	if err != nil {
		return err
	}
	if n < -2147483648 || n > 2147483647 {
		return fmt.Errorf("%d overflows integer", n)
	}
	t := int32(n)
	i.Value = &t
	return nil
}

func (i *Integer) PrimitiveElement() any { return i.Element.orNil() }

func (i *Integer) EnsureElement() any {
	if i.Element == nil {
		i.Element = &PrimitiveElement{}
	}
	return i.Element
}

// PositiveInt is the FHIR positiveInt primitive (1..2^31-1).
type PositiveInt struct {
	Value   *int32
	Element *PrimitiveElement
}

// NewPositiveInt returns a PositiveInt holding v.
func NewPositiveInt(v int32) *PositiveInt { return &PositiveInt{Value: &v} }

func (i *PositiveInt) PrimitiveValue() (any, bool) {
	if i.Value == nil {
		return nil, false
	}
	return *i.Value, true
}

func (i *PositiveInt) SetPrimitiveValue(v any) error {
	if v == nil {
		i.Value = nil
		return nil
	}
	n, err := coerceInt(v)
	if err != nil {
		return err
	}
	if n < 1 || n > 2147483647 {
		return fmt.Errorf("%d is not a valid positiveInt", n)
	}
	t := int32(n)
	i.Value = &t
	return nil
}

func (i *PositiveInt) PrimitiveElement() any { return i.Element.orNil() }

func (i *PositiveInt) EnsureElement() any {
	if i.Element == nil {
		i.Element = &PrimitiveElement{}
	}
	return i.Element
}

// UnsignedInt is the FHIR unsignedInt primitive (0..2^31-1).
type UnsignedInt struct {
	Value   *int32
	Element *PrimitiveElement
}

// NewUnsignedInt returns an UnsignedInt holding v.
func NewUnsignedInt(v int32) *UnsignedInt { return &UnsignedInt{Value: &v} }

func (i *UnsignedInt) PrimitiveValue() (any, bool) {
	if i.Value == nil {
		return nil, false
	}
	return *i.Value, true
}

func (i *UnsignedInt) SetPrimitiveValue(v any) error {
	if v == nil {
		i.Value = nil
		return nil
	}
	n, err := coerceInt(v)
	if err != nil {
		return err
	}
	if n < 0 || n > 2147483647 {
		return fmt.Errorf("%d is not a valid unsignedInt", n)
	}
	t := int32(n)
	i.Value = &t
	return nil
}

func (i *UnsignedInt) PrimitiveElement() any { return i.Element.orNil() }

func (i *UnsignedInt) EnsureElement() any {
	if i.Element == nil {
		i.Element = &PrimitiveElement{}
	}
	return i.Element
}

// Decimal is the FHIR decimal primitive. The value is held as an
// arbitrary-precision decimal so that trailing zeros and exponents
// survive a decode/encode round trip.
type Decimal struct {
	Value   *apd.Decimal
	Element *PrimitiveElement
}

// NewDecimal parses s into a Decimal. It panics on malformed input and
// is intended for literals; use SetPrimitiveValue for untrusted data.
func NewDecimal(s string) *Decimal {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("types.NewDecimal(%q): %v", s, err))
	}
	return &Decimal{Value: d}
}

// PrimitiveValue returns the decimal as a json.Number so that encoders
// emit it as a bare number with full precision.
func (d *Decimal) PrimitiveValue() (any, bool) {
	if d.Value == nil {
		return nil, false
	}
	return json.Number(d.Value.Text('G')), true
}

func (d *Decimal) SetPrimitiveValue(v any) error {
	if v == nil {
		d.Value = nil
		return nil
	}
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'G', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	default:
		return fmt.Errorf("expected decimal, got %T", v)
	}
	parsed, _, err := apd.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%q is not a valid decimal", s)
	}
	d.Value = parsed
	return nil
}

func (d *Decimal) PrimitiveElement() any { return d.Element.orNil() }

func (d *Decimal) EnsureElement() any {
	if d.Element == nil {
		d.Element = &PrimitiveElement{}
	}
	return d.Element
}

// Date is the FHIR date primitive: a year, year-month or full date.
type Date struct {
	Value   *string
	Element *PrimitiveElement
}

// NewDate returns a Date holding v.
func NewDate(v string) *Date { return &Date{Value: &v} }

func (d *Date) PrimitiveValue() (any, bool) {
	if d.Value == nil {
		return nil, false
	}
	return *d.Value, true
}

func (d *Date) SetPrimitiveValue(v any) error {
	if v == nil {
		d.Value = nil
		return nil
	}
	t, err := coerceString(v)
	if err != nil {
		return err
	}
	if !dateRegexp.MatchString(t) {
		return fmt.Errorf("%q is not a valid date", t)
	}
	d.Value = &t
	return nil
}

func (d *Date) PrimitiveElement() any { return d.Element.orNil() }

func (d *Date) EnsureElement() any {
	if d.Element == nil {
		d.Element = &PrimitiveElement{}
	}
	return d.Element
}

// DateTime is the FHIR dateTime primitive. Precision ranges from a bare
// year to a full timestamp; when a time is present a zone is required.
type DateTime struct {
	Value   *string
	Element *PrimitiveElement
}

// NewDateTime returns a DateTime holding v.
func NewDateTime(v string) *DateTime { return &DateTime{Value: &v} }

func (d *DateTime) PrimitiveValue() (any, bool) {
	if d.Value == nil {
		return nil, false
	}
	return *d.Value, true
}

func (d *DateTime) SetPrimitiveValue(v any) error {
	if v == nil {
		d.Value = nil
		return nil
	}
	t, err := coerceString(v)
	if err != nil {
		return err
	}
	if !dateTimeRegexp.MatchString(t) {
		return fmt.Errorf("%q is not a valid dateTime", t)
	}
	d.Value = &t
	return nil
}

func (d *DateTime) PrimitiveElement() any { return d.Element.orNil() }

func (d *DateTime) EnsureElement() any {
	if d.Element == nil {
		d.Element = &PrimitiveElement{}
	}
	return d.Element
}

// Instant is the FHIR instant primitive: a full timestamp with zone.
type Instant struct {
	Value   *string
	Element *PrimitiveElement
}

// NewInstant returns an Instant holding v.
func NewInstant(v string) *Instant { return &Instant{Value: &v} }

func (i *Instant) PrimitiveValue() (any, bool) {
	if i.Value == nil {
		return nil, false
	}
	return *i.Value, true
}

func (i *Instant) SetPrimitiveValue(v any) error {
	if v == nil {
		i.Value = nil
		return nil
	}
	t, err := coerceString(v)
	if err != nil {
		return err
	}
	if !instantRegexp.MatchString(t) {
		return fmt.Errorf("%q is not a valid instant", t)
	}
	i.Value = &t
	return nil
}

func (i *Instant) PrimitiveElement() any { return i.Element.orNil() }

func (i *Instant) EnsureElement() any {
	if i.Element == nil {
		i.Element = &PrimitiveElement{}
	}
	return i.Element
}

// Time is the FHIR time primitive: a time of day without a date or zone.
type Time struct {
	Value   *string
	Element *PrimitiveElement
}

// NewTime returns a Time holding v.
func NewTime(v string) *Time { return &Time{Value: &v} }

func (t *Time) PrimitiveValue() (any, bool) {
	if t.Value == nil {
		return nil, false
	}
	return *t.Value, true
}

func (t *Time) SetPrimitiveValue(v any) error {
	if v == nil {
		t.Value = nil
		return nil
	}
	s, err := coerceString(v)
	if err != nil {
		return err
	}
	if !timeRegexp.MatchString(s) {
		return fmt.Errorf("%q is not a valid time", s)
	}
	t.Value = &s
	return nil
}

func (t *Time) PrimitiveElement() any { return t.Element.orNil() }

func (t *Time) EnsureElement() any {
	if t.Element == nil {
		t.Element = &PrimitiveElement{}
	}
	return t.Element
}
