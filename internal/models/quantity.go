package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Quantity is a set's weight or rep count. A quantity can be blank, which is
// distinct from zero: a blank field renders empty while the user is editing.
// Blank quantities travel as the JSON string "".
type Quantity struct {
	value float64
	blank bool
}

// Qty returns a quantity holding v.
func Qty(v float64) Quantity {
	return Quantity{value: v}
}

// Blank returns the blank quantity.
func Blank() Quantity {
	return Quantity{blank: true}
}

// Value returns the numeric value. Blank quantities count as zero.
func (q Quantity) Value() float64 {
	if q.blank {
		return 0
	}
	return q.value
}

// IsBlank reports whether q holds the blank marker.
func (q Quantity) IsBlank() bool {
	return q.blank
}

// String formats q for display; blank formats as "".
func (q Quantity) String() string {
	if q.blank {
		return ""
	}
	return strconv.FormatFloat(q.value, 'f', -1, 64)
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	if q.blank {
		return []byte(`""`), nil
	}
	return json.Marshal(q.value)
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	switch {
	case raw == "null":
		*q = Quantity{}
		return nil
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return q.parse(s)
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	*q = Qty(v)
	return nil
}

// parse accepts the blank marker or a decimal string.
func (q *Quantity) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*q = Blank()
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("quantity: cannot parse %q", s)
	}
	*q = Qty(v)
	return nil
}

// ParseQuantity parses user input. The empty string yields the blank marker.
func ParseQuantity(s string) (Quantity, error) {
	var q Quantity
	if err := q.parse(s); err != nil {
		return Quantity{}, err
	}
	return q, nil
}
