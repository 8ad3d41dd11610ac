package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/erazemk/inventar/internal/model"
)

// Optional records whether a JSON field was present at all, so PATCH can
// tell "absent" from "null" and from a value.
type Optional[T any] struct {
	Set   bool
	Value T
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	return json.Unmarshal(b, &o.Value)
}

// RawQuantity is a quantity as a client sent it: a JSON string or number.
// It is parsed by the service so that errors name the field.
type RawQuantity string

func (r *RawQuantity) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	if s == "null" {
		s = ""
	}
	*r = RawQuantity(s)
	return nil
}

// CategoryInput is a full category, as created or replaced.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

// CategoryPatch carries only the category fields a client sent.
type CategoryPatch struct {
	Name        Optional[string] `json:"name"`
	Description Optional[string] `json:"description"`
}

// UnitInput is a full unit of measure.
type UnitInput struct {
	Name   string `json:"name" validate:"required,max=50"`
	Symbol string `json:"symbol" validate:"required,max=10"`
}

// UnitPatch carries only the unit fields a client sent.
type UnitPatch struct {
	Name   Optional[string] `json:"name"`
	Symbol Optional[string] `json:"symbol"`
}

// ItemInput is a full item. An empty quantity means zero; nil references
// mean no category or unit.
type ItemInput struct {
	Name        string      `json:"name" validate:"required,max=150"`
	Description string      `json:"description" validate:"max=2000"`
	Quantity    RawQuantity `json:"quantity"`
	CategoryID  *string     `json:"category_id" validate:"omitempty,uuid"`
	UnitID      *string     `json:"unit_id" validate:"omitempty,uuid"`
}

// ItemPatch carries only the item fields a client sent. A JSON null on
// category_id or unit_id clears the reference.
type ItemPatch struct {
	Name        Optional[string]      `json:"name"`
	Description Optional[string]      `json:"description"`
	Quantity    Optional[RawQuantity] `json:"quantity"`
	CategoryID  Optional[*string]     `json:"category_id"`
	UnitID      Optional[*string]     `json:"unit_id"`
}

// ImageUpload attaches new picture bytes to an item.
type ImageUpload struct {
	ItemID    string `json:"item_id" validate:"required,uuid"`
	IsPrimary bool   `json:"is_primary"`
	Data      []byte `json:"image" validate:"required"`
}

// ImageInput is the editable part of an image.
type ImageInput struct {
	IsPrimary bool `json:"is_primary"`
}

// ImagePatch carries only the image fields a client sent.
type ImagePatch struct {
	IsPrimary Optional[bool] `json:"is_primary"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags and turns the first failure into a
// FieldError wrapping ErrInvalidInput.
func (s *Service) validateStruct(cmd any) error {
	err := s.validate.Struct(cmd)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validating input: %w", err)
	}

	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "max":
		msg = "must be at most " + fe.Param() + " characters"
	case "uuid":
		msg = "must be a UUID"
	default:
		msg = "is invalid"
	}
	return model.NewFieldError(fe.Field(), fmt.Errorf("%w: %s %s", model.ErrInvalidInput, fe.Field(), msg))
}

func (in *CategoryInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
}

func (in *UnitInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Symbol = strings.TrimSpace(in.Symbol)
}

func (in *ItemInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Quantity = RawQuantity(strings.TrimSpace(string(in.Quantity)))
	in.CategoryID = blankToNil(in.CategoryID)
	in.UnitID = blankToNil(in.UnitID)
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*s))
	return &v
}

// parseQuantity turns the raw client value into a validated quantity.
func parseQuantity(raw RawQuantity) (model.Quantity, error) {
	if raw == "" {
		return model.ZeroQuantity, nil
	}
	q, err := model.ParseQuantity(string(raw))
	if err != nil {
		return model.Quantity{}, model.NewFieldError("quantity", err)
	}
	return q, nil
}

// parseRef parses an already validated optional id.
func parseRef(s *string) *uuid.UUID {
	if s == nil {
		return nil
	}
	id := uuid.MustParse(*s)
	return &id
}

func refString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
