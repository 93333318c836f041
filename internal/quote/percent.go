package quote

import (
	"bytes"
	"encoding/json"
)

// Percent is a fraction of the total shipment cost (0.25 = 25%). The zero value
// is undefined: it marks a ratio taken against a zero cost basis, which is
// different from a zero profit. Undefined values encode as JSON null.
type Percent struct {
	value   float64
	defined bool
}

// DefinedPercent wraps a known ratio.
func DefinedPercent(v float64) Percent {
	return Percent{value: v, defined: true}
}

// UndefinedPercent returns the sentinel used when the cost basis is zero.
func UndefinedPercent() Percent {
	return Percent{}
}

// ratio divides num by den, yielding the undefined sentinel for a zero den.
func ratio(num, den float64) Percent {
	if den == 0 {
		return UndefinedPercent()
	}
	return DefinedPercent(num / den)
}

// IsDefined reports whether the ratio has a value.
func (p Percent) IsDefined() bool { return p.defined }

// Float64 returns the ratio or ErrUndefinedPercentage.
func (p Percent) Float64() (float64, error) {
	if !p.defined {
		return 0, ErrUndefinedPercentage
	}
	return p.value, nil
}

func (p Percent) MarshalJSON() ([]byte, error) {
	if !p.defined {
		return []byte("null"), nil
	}
	return json.Marshal(p.value)
}

func (p *Percent) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = UndefinedPercent()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = DefinedPercent(v)
	return nil
}
