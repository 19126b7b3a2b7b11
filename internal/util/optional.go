package util

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Optional represents a value that may be absent, without resorting to
// pointers. It maps to SQL NULL and JSON null.
type Optional[T any] struct {
	Val   T
	IsSet bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Val: v, IsSet: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) UnwrapOr(defaultVal T) T {
	if !o.IsSet {
		return defaultVal
	}
	return o.Val
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.IsSet {
		return []byte("null"), nil
	}
	return json.Marshal(o.Val)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		o.IsSet = false
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.IsSet = true
	o.Val = v
	return nil
}

// Scan implements the sql.Scanner interface.
func (o *Optional[T]) Scan(value any) error {
	if value == nil {
		var zero T
		o.Val = zero
		o.IsSet = false
		return nil
	}

	if v, ok := value.(T); ok {
		o.Val = v
		o.IsSet = true
		return nil
	}

	return fmt.Errorf("cannot scan %T into Optional[%T]", value, o.Val)
}

// Value implements the driver.Valuer interface.
func (o Optional[T]) Value() (driver.Value, error) {
	if !o.IsSet {
		return nil, nil
	}
	return o.Val, nil
}
