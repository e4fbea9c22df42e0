package types

import (
	"math"
	"strconv"
	"time"

	"github.com/baltrad/bdb-go/runtime/dberr"
)

// VariantKind discriminates the value held by a Variant
type VariantKind int

const (
	KindNone VariantKind = iota
	KindString
	KindInt64
	KindDouble
	KindBool
	KindDate
	KindTime
	KindDateTime
	KindTimeDelta
)

var variantKindNames = [...]string{"NONE", "STRING", "INT64", "DOUBLE", "BOOL", "DATE", "TIME", "DATETIME", "TIMEDELTA"}

// String returns the kind name
func (k VariantKind) String() string {
	if int(k) < len(variantKindNames) {
		return variantKindNames[k]
	}
	return "UNKNOWN"
}

// Variant is a typed value read from a result row
type Variant struct {
	kind VariantKind
	s    string
	i    int64
	f    float64
	b    bool
	d    Date
	t    Time
	dt   time.Time
	td   time.Duration
}

// Null returns the NONE variant
func Null() Variant { return Variant{} }

// NewString creates a STRING variant
func NewString(s string) Variant { return Variant{kind: KindString, s: s} }

// NewInt64 creates an INT64 variant
func NewInt64(i int64) Variant { return Variant{kind: KindInt64, i: i} }

// NewDouble creates a DOUBLE variant
func NewDouble(f float64) Variant { return Variant{kind: KindDouble, f: f} }

// NewBool creates a BOOL variant
func NewBool(b bool) Variant { return Variant{kind: KindBool, b: b} }

// NewDateVariant creates a DATE variant
func NewDateVariant(d Date) Variant { return Variant{kind: KindDate, d: d} }

// NewTimeVariant creates a TIME variant
func NewTimeVariant(t Time) Variant { return Variant{kind: KindTime, t: t} }

// NewDateTime creates a DATETIME variant, normalized to UTC
func NewDateTime(t time.Time) Variant { return Variant{kind: KindDateTime, dt: t.UTC()} }

// NewTimeDelta creates a TIMEDELTA variant
func NewTimeDelta(d time.Duration) Variant { return Variant{kind: KindTimeDelta, td: d} }

// Kind returns the discriminant
func (v Variant) Kind() VariantKind { return v.kind }

// IsNull reports whether the variant is NONE
func (v Variant) IsNull() bool { return v.kind == KindNone }

func (v Variant) mismatch(want VariantKind) error {
	return dberr.Value("variant is %s, not %s", v.kind, want)
}

// AsString returns the value of a STRING variant
func (v Variant) AsString() (string, error) {
	if v.kind != KindString {
		return "", v.mismatch(KindString)
	}
	return v.s, nil
}

// AsInt64 returns the value of an INT64 variant
func (v Variant) AsInt64() (int64, error) {
	if v.kind != KindInt64 {
		return 0, v.mismatch(KindInt64)
	}
	return v.i, nil
}

// AsDouble returns the value of a DOUBLE variant
func (v Variant) AsDouble() (float64, error) {
	if v.kind != KindDouble {
		return 0, v.mismatch(KindDouble)
	}
	return v.f, nil
}

// AsBool returns the value of a BOOL variant
func (v Variant) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, v.mismatch(KindBool)
	}
	return v.b, nil
}

// AsDate returns the value of a DATE variant
func (v Variant) AsDate() (Date, error) {
	if v.kind != KindDate {
		return Date{}, v.mismatch(KindDate)
	}
	return v.d, nil
}

// AsTime returns the value of a TIME variant
func (v Variant) AsTime() (Time, error) {
	if v.kind != KindTime {
		return Time{}, v.mismatch(KindTime)
	}
	return v.t, nil
}

// AsDateTime returns the value of a DATETIME variant
func (v Variant) AsDateTime() (time.Time, error) {
	if v.kind != KindDateTime {
		return time.Time{}, v.mismatch(KindDateTime)
	}
	return v.dt, nil
}

// AsTimeDelta returns the value of a TIMEDELTA variant
func (v Variant) AsTimeDelta() (time.Duration, error) {
	if v.kind != KindTimeDelta {
		return 0, v.mismatch(KindTimeDelta)
	}
	return v.td, nil
}

// String renders the value for display. NONE renders as NULL.
func (v Variant) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDate:
		return v.d.String()
	case KindTime:
		return v.t.String()
	case KindDateTime:
		return v.dt.Format(DateTimeLayout)
	case KindTimeDelta:
		return v.td.String()
	default:
		return "NULL"
	}
}

// ToString converts any variant to text. NONE converts to the empty string.
func (v Variant) ToString() string {
	if v.kind == KindNone {
		return ""
	}
	return v.String()
}

// ToInt64 coerces to an integer. NONE converts to 0, doubles are truncated.
func (v Variant) ToInt64() (int64, error) {
	switch v.kind {
	case KindNone:
		return 0, nil
	case KindInt64:
		return v.i, nil
	case KindDouble:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return 0, dberr.Value("cannot convert %v to INT64", v.f)
		}
		return int64(v.f), nil
	case KindBool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case KindString:
		i, err := strconv.ParseInt(v.s, 10, 64)
		if err != nil {
			return 0, dberr.Value("cannot convert %q to INT64", v.s)
		}
		return i, nil
	default:
		return 0, dberr.Value("cannot convert %s to INT64", v.kind)
	}
}

// ToDouble coerces to a float. NONE converts to 0.
func (v Variant) ToDouble() (float64, error) {
	switch v.kind {
	case KindNone:
		return 0, nil
	case KindInt64:
		return float64(v.i), nil
	case KindDouble:
		return v.f, nil
	case KindBool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case KindString:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0, dberr.Value("cannot convert %q to DOUBLE", v.s)
		}
		return f, nil
	default:
		return 0, dberr.Value("cannot convert %s to DOUBLE", v.kind)
	}
}

// ToBool coerces to a boolean. NONE converts to false, numbers are true when non-zero.
func (v Variant) ToBool() (bool, error) {
	switch v.kind {
	case KindNone:
		return false, nil
	case KindInt64:
		return v.i != 0, nil
	case KindDouble:
		return v.f != 0, nil
	case KindBool:
		return v.b, nil
	case KindString:
		b, err := strconv.ParseBool(v.s)
		if err != nil {
			return false, dberr.Value("cannot convert %q to BOOL", v.s)
		}
		return b, nil
	default:
		return false, dberr.Value("cannot convert %s to BOOL", v.kind)
	}
}

// ToDate coerces to a date. NONE is an error.
func (v Variant) ToDate() (Date, error) {
	switch v.kind {
	case KindDate:
		return v.d, nil
	case KindDateTime:
		return DateOf(v.dt), nil
	case KindString:
		return ParseDate(v.s)
	default:
		return Date{}, dberr.Value("cannot convert %s to DATE", v.kind)
	}
}

// ToTime coerces to a time of day. NONE is an error.
func (v Variant) ToTime() (Time, error) {
	switch v.kind {
	case KindTime:
		return v.t, nil
	case KindDateTime:
		return TimeOf(v.dt), nil
	case KindString:
		return ParseTime(v.s)
	default:
		return Time{}, dberr.Value("cannot convert %s to TIME", v.kind)
	}
}

// ToDateTime coerces to a timestamp. NONE is an error, dates convert to midnight.
func (v Variant) ToDateTime() (time.Time, error) {
	switch v.kind {
	case KindDateTime:
		return v.dt, nil
	case KindDate:
		return v.d.Time(), nil
	case KindString:
		return ParseDateTime(v.s)
	default:
		return time.Time{}, dberr.Value("cannot convert %s to DATETIME", v.kind)
	}
}

// ToTimeDelta coerces to a duration. NONE is an error.
func (v Variant) ToTimeDelta() (time.Duration, error) {
	switch v.kind {
	case KindTimeDelta:
		return v.td, nil
	case KindTime:
		return v.t.Duration(), nil
	default:
		return 0, dberr.Value("cannot convert %s to TIMEDELTA", v.kind)
	}
}

// Equal reports structural equality
func (v Variant) Equal(o Variant) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNone:
		return true
	case KindString:
		return v.s == o.s
	case KindInt64:
		return v.i == o.i
	case KindDouble:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindDate:
		return v.d == o.d
	case KindTime:
		return v.t == o.t
	case KindDateTime:
		return v.dt.Equal(o.dt)
	case KindTimeDelta:
		return v.td == o.td
	}
	return false
}
