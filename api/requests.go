package api

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/warren/pkg/category"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CategoryRequest is the body of POST /categories.
type CategoryRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	ParentName  *string `json:"parent_name" validate:"omitempty,min=1"`
}

// Category converts the request into a category record.
func (r *CategoryRequest) Category() *category.Category {
	c := category.New(r.Name, r.ParentName)
	c.Description = r.Description
	c.Image = r.Image
	return c
}

// CategoryUpdateRequest is the body of PUT /categories/:name. Only the
// description and image are applied; an explicit null clears a field and an
// omitted field is left as is. A name, when given, must match the path.
// A parent_name field is ignored: re-parenting goes through the move endpoint.
type CategoryUpdateRequest struct {
	Name        *string           `json:"name,omitempty" validate:"omitempty,min=1"`
	Description category.Optional `json:"description,omitzero"`
	Image       category.Optional `json:"image,omitzero"`
}

// Patch converts the request into a sparse category patch.
func (r *CategoryUpdateRequest) Patch() category.Patch {
	return category.Patch{
		Description: r.Description,
		Image:       r.Image,
	}
}

// SimilarityRequest is the body of POST and DELETE /similarities.
type SimilarityRequest struct {
	CategoryName1 string `json:"category_name_1" validate:"required"`
	CategoryName2 string `json:"category_name_2" validate:"required"`
}

// bind parses the JSON body into out and validates its tags.
func bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return RequestError{Message: fmt.Sprintf("invalid request body: %v", err)}
	}

	if err := validate.Struct(out); err != nil {
		return formatValidationError(err)
	}

	return nil
}

// formatValidationError turns validator errors into one readable RequestError.
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return RequestError{Message: err.Error()}
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}
	return RequestError{Message: strings.Join(msgs, "; ")}
}

func formatFieldError(e validator.FieldError) string {
	field := e.Field()

	switch e.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must not be empty"
	default:
		return field + " is invalid"
	}
}
