package models

import (
	"encoding/json"
	"fmt"
)

// enum is satisfied by the closed string types of this package.
type enum interface {
	~string
	Valid() bool
}

// decodeEnum unmarshals a JSON string into dst and rejects values outside the set.
func decodeEnum[T enum](data []byte, dst *T, kind string) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	v := T(s)
	if !v.Valid() {
		return fmt.Errorf("invalid %s %q", kind, s)
	}
	*dst = v
	return nil
}
