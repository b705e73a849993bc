package timeslot

import (
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
)

// NullToken is what a cell shows for an explicit null reading.
const NullToken = "NaN"

// MaxValue is the largest reading accepted by validation.
const MaxValue = 999999

var (
	ErrNotNumeric = errors.New("value is not numeric")
	ErrNegative   = errors.New("value is negative")
	ErrOutOfRange = errors.New("value exceeds 999999")
)

// Value is either a number or an explicit null.
type Value struct {
	number float64
	null   bool
}

// Number wraps a finite reading.
func Number(n float64) Value { return Value{number: n} }

// ExplicitNull marks a slot as deliberately empty.
func ExplicitNull() Value { return Value{null: true} }

// IsNull reports whether v is an explicit null.
func (v Value) IsNull() bool { return v.null }

// Float returns the number, or false for an explicit null.
func (v Value) Float() (float64, bool) {
	if v.null {
		return 0, false
	}
	return v.number, true
}

// Ptr returns the value as a nullable float for storage.
func (v Value) Ptr() *float64 {
	if v.null {
		return nil
	}
	n := v.number
	return &n
}

func (v Value) String() string {
	if v.null {
		return NullToken
	}
	return FormatNumber(v.number)
}

// FormatNumber renders n the way the browser's String(n) does: plain
// decimals, switching to exponent form below 1e-6 and from 1e21 up.
func FormatNumber(n float64) string {
	abs := math.Abs(n)
	if abs == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	s := strconv.FormatFloat(n, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + sign + digits
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.null {
		return []byte("null"), nil
	}
	return json.Marshal(v.number)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = ExplicitNull()
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = Number(n)
	return nil
}

// SaveRecord is one cell ready to be persisted.
type SaveRecord struct {
	TagNo   string `json:"tag_no"`
	Value   Value  `json:"value"`
	DateRec string `json:"date_rec"`
	PerfID  int64  `json:"perf_id"`
}

func isNullToken(s string) bool {
	return strings.EqualFold(s, NullToken)
}

// ParseValue reads a cell. Blank and non-numeric cells report false; the null
// token yields ExplicitNull.
func ParseValue(raw string) (Value, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Value{}, false
	}
	if isNullToken(s) {
		return ExplicitNull(), true
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return Value{}, false
	}
	return Number(n), true
}

// Validate flags cells the form should highlight. Empty cells and the null
// token are always valid.
func Validate(raw string) error {
	s := strings.TrimSpace(raw)
	if s == "" || isNullToken(s) {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return ErrNotNumeric
	}
	if n < 0 {
		return ErrNegative
	}
	if n > MaxValue {
		return ErrOutOfRange
	}
	return nil
}

// InvalidCells returns the sorted keys of cells failing Validate, per group.
// Groups without problems are omitted.
func InvalidCells(values ValueMaps) map[int][]string {
	out := make(map[int][]string)
	for jm, cells := range values {
		var bad []string
		for key, raw := range cells {
			if Validate(raw) != nil {
				bad = append(bad, key)
			}
		}
		if len(bad) > 0 {
			sort.Strings(bad)
			out[jm] = bad
		}
	}
	return out
}
