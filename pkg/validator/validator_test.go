package validator_test

import (
	"errors"
	"testing"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EvershineMarbles/EvershineBackend/pkg/validator"
)

type shade string

func (s shade) Validate() error {
	if s != "white" && s != "black" {
		return errors.New("unknown shade")
	}
	return nil
}

type slab struct {
	Name   string          `json:"name" validate:"required"`
	Price  decimal.Decimal `json:"price" validate:"gte=0"`
	Shade  shade           `json:"shade" validate:"enum"`
	Images []string        `json:"images" validate:"min=1,max=2,dive,url"`
}

func TestDefaultValidator(t *testing.T) {
	v, err := validator.NewDefaultValidator()
	require.NoError(t, err)

	valid := slab{
		Name:   "Nero Marquina",
		Price:  decimal.RequireFromString("10.25"),
		Shade:  "black",
		Images: []string{"https://cdn.example.com/a.jpg"},
	}

	t.Run("Should accept a valid struct", func(t *testing.T) {
		assert.NoError(t, v.Validate(valid))
	})

	tests := []struct {
		name    string
		mutate  func(*slab)
		field   string
		message string
	}{
		{"missing name", func(s *slab) { s.Name = "" }, "name", "field is required"},
		{"negative decimal", func(s *slab) { s.Price = decimal.RequireFromString("-0.01") }, "price", "must be greater than or equal to 0"},
		{"unknown enum", func(s *slab) { s.Shade = "green" }, "shade", "invalid enum value: green"},
		{"too many images", func(s *slab) { s.Images = []string{"https://a/1", "https://a/2", "https://a/3"} }, "images", "must be at most 2"},
		{"relative url", func(s *slab) { s.Images = []string{"/a.jpg"} }, "images[0]", "must be a fully-qualified URL"},
	}

	for _, tt := range tests {
		t.Run("Should reject "+tt.name, func(t *testing.T) {
			s := valid
			s.Images = append([]string{}, valid.Images...)
			tt.mutate(&s)

			err := v.Validate(s)
			require.Error(t, err)
			assert.True(t, validator.IsValidationError(err))

			var errs govalidator.ValidationErrors
			require.ErrorAs(t, err, &errs)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field())
			assert.Equal(t, tt.message, validator.ValidationErrorMessage(errs[0]))
		})
	}
}
