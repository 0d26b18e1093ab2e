package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt accepts a JSON number, a numeric string, or null and coerces it
// to a non-negative integer. Anything unparseable or negative becomes 0.
// This keeps the permissive parsing at the transport edge so everything
// behind the handlers works with plain ints.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}

	s := string(data)
	if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) && len(s) >= 2 {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		// Forms sometimes submit floats like "3.0" for whole hours.
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			*f = 0
			return nil
		}
		n = int(fl)
	}
	if n < 0 {
		n = 0
	}
	*f = FlexInt(n)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(f))
}

// Int returns the coerced value.
func (f FlexInt) Int() int { return int(f) }

// IntPtr returns a pointer to the coerced value, or nil when the pointer
// receiver itself is nil. Used for optional fields like max_students.
func (f *FlexInt) IntPtr() *int {
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}
