package apicontract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apicontract "github.com/EvershineMarbles/EvershineBackend/api-contract"
	"github.com/EvershineMarbles/EvershineBackend/internal/model"
)

func TestLoad(t *testing.T) {
	doc, err := apicontract.Load(context.Background())
	require.NoError(t, err)

	t.Run("Should describe every product route", func(t *testing.T) {
		for _, path := range []string{"/health", "/api/products", "/api/products/{key}", "/api/products/{key}/status"} {
			assert.NotNil(t, doc.Paths.Find(path), path)
		}
	})

	t.Run("Should list the same enums as the model", func(t *testing.T) {
		schemas := doc.Components.Schemas

		var categories []string
		for _, v := range schemas["Category"].Value.Enum {
			categories = append(categories, v.(string))
		}
		for _, c := range model.Categories {
			assert.Contains(t, categories, string(c))
		}

		var statuses []string
		for _, v := range schemas["Status"].Value.Enum {
			statuses = append(statuses, v.(string))
		}
		for _, s := range model.Statuses {
			assert.Contains(t, statuses, string(s))
		}
	})
}
