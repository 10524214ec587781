package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Tool is a catalog entry. Quantity is the current stock on the backend.
type Tool struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Quantity    int    `json:"quantity"`
}

// Group is one category of GET /api/catalog. The backend has shipped several
// shapes over time, so every key/label candidate is optional.
type Group struct {
	ID           Scalar `json:"id"`
	CategoryID   Scalar `json:"category_id"`
	CategoryIDJS Scalar `json:"categoryId"`
	Name         Scalar `json:"name"`
	Category     Scalar `json:"category"`
	CategoryName Scalar `json:"category_name"`
	Title        Scalar `json:"title"`
	Tools        []Tool `json:"tools"`
}

// Scalar holds a JSON scalar as text. Absent and null are both "not set".
type Scalar struct {
	val string
	set bool
}

// Value set Scalar with the given text
func Value(s string) Scalar { return Scalar{val: s, set: true} }

// IntValue set Scalar from a number
func IntValue(n int64) Scalar { return Scalar{val: strconv.FormatInt(n, 10), set: true} }

func (s Scalar) Set() bool      { return s.set }
func (s Scalar) String() string { return s.val }

func (s *Scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = Scalar{}
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = Scalar{val: str, set: true}
		return nil
	}
	// numbers and anything else keep their literal form
	*s = Scalar{val: string(b), set: true}
	return nil
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	if !s.set {
		return []byte("null"), nil
	}
	return json.Marshal(s.val)
}
