package game

import (
	"encoding/json"
	"errors"
	"strconv"
)

// ErrInvalidCategoryID is returned when a category id is neither an integer
// nor a numeric string.
var ErrInvalidCategoryID = errors.New("categoryId must be an integer")

// CategoryID decodes from a JSON number or a numeric string. Browser and
// admin clients send both forms. JSON null leaves the value unchanged.
type CategoryID int64

// UnmarshalJSON implements json.Unmarshaler.
func (id *CategoryID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*id = CategoryID(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidCategoryID
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return ErrInvalidCategoryID
	}
	*id = CategoryID(n)
	return nil
}
