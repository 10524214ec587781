package tools

import (
	"strconv"
	"strings"

	"github.com/Spok95/tool-requests-bot/internal/domain/requests"
)

// Record is one row of the tool administration list.
type Record struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Category    string `json:"category"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DistributionLog one hand-out of a tool to a facility.
type DistributionLog struct {
	ID       int64               `json:"id"`
	ToolID   int64               `json:"tool_id"`
	Quantity int                 `json:"quantity"`
	Date     *requests.Timestamp `json:"date"`
	Facility string              `json:"facility"`
	UserName string              `json:"user_name"`
}

// Form is the edit draft. Updates always send the full record.
type Form struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Category    string `json:"category"`
}

func FormFrom(r Record) Form {
	return Form{
		Name:        r.Name,
		Description: r.Description,
		Quantity:    r.Quantity,
		Category:    r.Category,
	}
}

// Field names accepted by Form.Set.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldQuantity    = "quantity"
	FieldCategory    = "category"
)

var Fields = []string{FieldName, FieldDescription, FieldQuantity, FieldCategory}

// Set writes one field from raw user input. Unknown fields are ignored.
func (f *Form) Set(field, raw string) bool {
	switch field {
	case FieldName:
		f.Name = strings.TrimSpace(raw)
	case FieldDescription:
		f.Description = strings.TrimSpace(raw)
	case FieldQuantity:
		f.Quantity = SanitizeQuantity(raw)
	case FieldCategory:
		f.Category = strings.TrimSpace(raw)
	default:
		return false
	}
	return true
}

// SanitizeQuantity keeps digits only; empty or unparsable input is 0.
func SanitizeQuantity(raw string) int {
	digits := Digits(raw)
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Digits drops every non-digit rune.
func Digits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
