package model_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EvershineMarbles/EvershineBackend/internal/model"
	"github.com/EvershineMarbles/EvershineBackend/pkg/ptr"
)

func TestTransition(t *testing.T) {
	t.Run("Should reach every state from every state", func(t *testing.T) {
		for _, from := range model.Statuses {
			for _, to := range model.Statuses {
				got, err := model.Transition(from, to)
				require.NoError(t, err)
				assert.Equal(t, to, got)
			}
		}
	})

	t.Run("Should reject unknown target and keep current state", func(t *testing.T) {
		for _, target := range []model.Status{"", "archived", "Approved", "published"} {
			got, err := model.Transition(model.StatusApproved, target)
			assert.Error(t, err)
			assert.Equal(t, model.StatusApproved, got)
		}
	})
}

func TestEnums(t *testing.T) {
	assert.Len(t, model.Categories, 10)
	assert.Len(t, model.ApplicationAreas, 5)

	assert.NoError(t, model.CategoryOnyx.Validate())
	assert.ErrorContains(t, model.Category("Marble").Validate(), `"Marble"`)

	assert.NoError(t, model.AreaWalls.Validate())
	assert.Error(t, model.ApplicationArea("walls").Validate())

	areas := []model.ApplicationArea{model.AreaFlooring, model.AreaExterior}
	assert.Equal(t, areas, model.AreasFromStrings(model.AreasToStrings(areas)))
}

func TestProductPatch(t *testing.T) {
	product := model.Product{
		Name:           "Statuario",
		Description:    "white marble",
		Size:           "8x4",
		Thickness:      "18mm",
		NumberOfPieces: ptr.New(12),
		Price:          decimal.RequireFromString("250"),
		Images:         []string{"https://cdn.example/a.jpg"},
		Status:         model.StatusDraft,
	}

	t.Run("Should leave absent fields untouched", func(t *testing.T) {
		patch := model.ProductPatch{}
		assert.True(t, patch.IsEmpty())
		assert.Equal(t, product, patch.ApplyTo(product))
	})

	t.Run("Should clear fields patched with empty values", func(t *testing.T) {
		patch := model.ProductPatch{
			Size:           model.Set(""),
			NumberOfPieces: model.Set[*int](nil),
		}
		got := patch.ApplyTo(product)

		assert.False(t, patch.IsEmpty())
		assert.Empty(t, got.Size)
		assert.Nil(t, got.NumberOfPieces)
		assert.Equal(t, "18mm", got.Thickness)
		assert.Equal(t, "white marble", got.Description)
	})

	t.Run("Should overwrite fields patched with values", func(t *testing.T) {
		patch := model.ProductPatch{
			Price:  model.Set(decimal.RequireFromString("300.50")),
			Status: model.Set(model.StatusApproved),
		}
		got := patch.ApplyTo(product)

		assert.True(t, got.Price.Equal(decimal.RequireFromString("300.5")))
		assert.Equal(t, model.StatusApproved, got.Status)
		assert.Equal(t, model.StatusDraft, product.Status)
	})
}

func TestPresentFields(t *testing.T) {
	assert.Empty(t, model.ProductPatch{}.PresentFields())

	patch := model.ProductPatch{
		Status: model.Set(model.StatusPending),
		Name:   model.Set("Onyx"),
		Images: model.Set([]string{}),
	}
	assert.Equal(t, []string{"name", "images", "status"}, patch.PresentFields())
}
