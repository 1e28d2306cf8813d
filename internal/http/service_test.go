package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apicontract "github.com/EvershineMarbles/EvershineBackend/api-contract"
	"github.com/EvershineMarbles/EvershineBackend/internal/apperr"
	"github.com/EvershineMarbles/EvershineBackend/internal/config"
	apihttp "github.com/EvershineMarbles/EvershineBackend/internal/http"
	"github.com/EvershineMarbles/EvershineBackend/internal/http/apierr"
	"github.com/EvershineMarbles/EvershineBackend/internal/http/metric"
	"github.com/EvershineMarbles/EvershineBackend/internal/model"
	"github.com/EvershineMarbles/EvershineBackend/internal/service"
	"github.com/EvershineMarbles/EvershineBackend/internal/validation"
	"github.com/EvershineMarbles/EvershineBackend/pkg/correlationid"
)

type mockProductService struct {
	mock.Mock
}

func (m *mockProductService) CreateProduct(ctx context.Context, params service.CreateProductParams) (model.Product, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(model.Product), args.Error(1)
}

func (m *mockProductService) GetProduct(ctx context.Context, key string) (model.Product, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(model.Product), args.Error(1)
}

func (m *mockProductService) ListProducts(ctx context.Context, params service.ListProductsParams) ([]model.Product, error) {
	args := m.Called(ctx, params)
	products, _ := args.Get(0).([]model.Product)
	return products, args.Error(1)
}

func (m *mockProductService) UpdateProduct(ctx context.Context, key string, params service.UpdateProductParams) (model.Product, error) {
	args := m.Called(ctx, key, params)
	return args.Get(0).(model.Product), args.Error(1)
}

func (m *mockProductService) SetStatus(ctx context.Context, key string, status string) (model.Product, error) {
	args := m.Called(ctx, key, status)
	return args.Get(0).(model.Product), args.Error(1)
}

func (m *mockProductService) DeleteProduct(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type fakeHealth struct {
	err error
}

func (f fakeHealth) IsHealthy(context.Context) (bool, error) {
	return f.err == nil, f.err
}

var pngData = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

func product() model.Product {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	return model.Product{
		BusinessKey:       "1001",
		Name:              "Statuario",
		Price:             decimal.RequireFromString("1250.50"),
		Category:          model.CategoryImportedMarble,
		ApplicationAreas:  []model.ApplicationArea{model.AreaFlooring, model.AreaWalls},
		QuantityAvailable: decimal.NewFromInt(40),
		Images:            []string{"https://bucket.s3.ap-south-1.amazonaws.com/products/1-0-a.png"},
		Status:            model.StatusDraft,
		CreatedAt:         ts,
		UpdatedAt:         ts,
	}
}

func newRouter(t *testing.T, svc service.ProductService, health error) http.Handler {
	t.Helper()
	cfg := config.HTTP{Swagger: true, CorsAllowedOrigins: []string{"http://localhost:3000"}}
	upload := config.Upload{MaxFileSize: 1 << 20, MaxMemory: 1 << 20}
	return apihttp.New(cfg, upload, slog.New(slog.DiscardHandler), metric.NewRegistry(), svc, fakeHealth{err: health}).Router()
}

type formFile struct {
	name string
	data []byte
}

func multipartBody(t *testing.T, fields map[string][]string, files []formFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, values := range fields {
		for _, v := range values {
			require.NoError(t, w.WriteField(name, v))
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile("images", f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decodeError(t *testing.T, body io.Reader) apierr.ErrorResponse {
	t.Helper()
	var res apierr.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&res))
	return res
}

func TestCreateProductHandler(t *testing.T) {
	t.Run("Should pass form fields and files to the service", func(t *testing.T) {
		svc := &mockProductService{}
		svc.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p service.CreateProductParams) bool {
			f := p.Fields
			return *f.Name == "Statuario" &&
				*f.Price == "1250.50" &&
				*f.Category == "Imported Marble" &&
				assert.ObjectsAreEqual([]string{"Flooring", "Walls,Interior"}, f.ApplicationAreas) &&
				f.Description == nil &&
				*f.NumberOfPieces == "" &&
				len(p.Images) == 1 &&
				p.Images[0].Filename == "slab.png" &&
				bytes.Equal(p.Images[0].Data, pngData)
		})).Return(product(), nil)

		body, contentType := multipartBody(t, map[string][]string{
			"name":               {"Statuario"},
			"price":              {"1250.50"},
			"category":           {"Imported Marble"},
			"applicationAreas":   {"Flooring"},
			"applicationAreas[]": {"Walls,Interior"},
			"quantityAvailable":  {"40"},
			"numberOfPieces":     {""},
		}, []formFile{{name: "slab.png", data: pngData}})

		req := httptest.NewRequest(http.MethodPost, "/api/products", body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()

		newRouter(t, svc, nil).ServeHTTP(resp, req)

		require.Equal(t, http.StatusCreated, resp.Code)
		var got map[string]any
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
		assert.Equal(t, "1001", got["businessKey"])
		assert.Equal(t, "1250.5", got["price"])
		assert.Equal(t, []any{"Flooring", "Walls"}, got["applicationAreas"])
		assert.Nil(t, got["numberOfPieces"])
		assert.NotContains(t, got, "id")
		svc.AssertExpectations(t)
	})

	t.Run("Should reject a non-multipart body", func(t *testing.T) {
		svc := &mockProductService{}
		req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"name":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()

		newRouter(t, svc, nil).ServeHTTP(resp, req)

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, apperr.ValidationErrorCode, decodeError(t, resp.Body).Code)
		svc.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
	})

	t.Run("Should report the failing field", func(t *testing.T) {
		svc := &mockProductService{}
		fieldErr := validation.FieldError{Field: "price", Reason: "must be greater than 0"}
		svc.On("CreateProduct", mock.Anything, mock.Anything).
			Return(model.Product{}, apperr.ValidationErr.WrapParent(fieldErr).WithMsg(fieldErr.Error()))

		body, contentType := multipartBody(t, map[string][]string{"name": {"x"}, "price": {"0"}}, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/products", body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()

		newRouter(t, svc, nil).ServeHTTP(resp, req)

		require.Equal(t, http.StatusBadRequest, resp.Code)
		res := decodeError(t, resp.Body)
		assert.Equal(t, apperr.ValidationErrorCode, res.Code)
		assert.Equal(t, "price: must be greater than 0", res.Message)
		assert.Equal(t, []apierr.FieldError{{Field: "price", Message: "must be greater than 0"}}, res.Details)
	})

	t.Run("Should map upload failures to bad gateway", func(t *testing.T) {
		svc := &mockProductService{}
		svc.On("CreateProduct", mock.Anything, mock.Anything).
			Return(model.Product{}, apperr.ImageUploadErr.WrapParent(errors.New("access denied")))

		body, contentType := multipartBody(t, map[string][]string{"name": {"x"}}, []formFile{{name: "a.png", data: pngData}})
		req := httptest.NewRequest(http.MethodPost, "/api/products", body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()

		newRouter(t, svc, nil).ServeHTTP(resp, req)

		assert.Equal(t, http.StatusBadGateway, resp.Code)
		assert.Equal(t, apperr.ImageUploadFailedCode, decodeError(t, resp.Body).Code)
	})
}

func TestCreateProductHandlerMissingAreas(t *testing.T) {
	validator := validation.New(validation.FileRules{MaxFileSize: 1 << 20, AllowedTypes: []string{"image/png"}})

	var err error
	svc := &mockProductService{}
	svc.On("CreateProduct", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			p := args.Get(1).(service.CreateProductParams)
			_, err = validator.ValidateCreate(p.Fields, p.Images)
		}).
		Return(product(), nil)

	body, contentType := multipartBody(t, map[string][]string{
		"name":     {"Statuario"},
		"price":    {"1250"},
		"category": {"Imported Marble"},
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set("Content-Type", contentType)

	newRouter(t, svc, nil).ServeHTTP(httptest.NewRecorder(), req)

	var fe validation.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, validation.FieldError{Field: "applicationAreas", Reason: "is required"}, fe)
}

func TestUpdateProductHandler(t *testing.T) {
	t.Run("Should forward only the fields that were sent", func(t *testing.T) {
		svc := &mockProductService{}
		keep := `["https://bucket.s3.ap-south-1.amazonaws.com/products/1-0-a.png"]`
		svc.On("UpdateProduct", mock.Anything, "1001", mock.MatchedBy(func(p service.UpdateProductParams) bool {
			f := p.Fields
			return f.Name == nil &&
				f.Price == nil &&
				*f.Description == "" &&
				f.ApplicationAreas == nil &&
				p.KeepImages == keep &&
				len(p.Images) == 0
		})).Return(product(), nil)

		body, contentType := multipartBody(t, map[string][]string{
			"description": {""},
			"keepImages":  {keep},
		}, nil)
		req := httptest.NewRequest(http.MethodPut, "/api/products/1001", body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()

		newRouter(t, svc, nil).ServeHTTP(resp, req)

		assert.Equal(t, http.StatusOK, resp.Code)
		svc.AssertExpectations(t)
	})

	t.Run("Should pass validation when applicationAreas is omitted", func(t *testing.T) {
		validator := validation.New(validation.FileRules{MaxFileSize: 1 << 20, AllowedTypes: []string{"image/png"}})

		var (
			in  validation.UpdateInput
			err error
		)
		svc := &mockProductService{}
		svc.On("UpdateProduct", mock.Anything, "1001", mock.Anything).
			Run(func(args mock.Arguments) {
				p := args.Get(2).(service.UpdateProductParams)
				in, err = validator.ValidateUpdate(p.Fields, p.Images)
			}).
			Return(product(), nil)

		body, contentType := multipartBody(t, map[string][]string{"name": {"Nero Marquina"}}, nil)
		req := httptest.NewRequest(http.MethodPut, "/api/products/1001", body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()

		newRouter(t, svc, nil).ServeHTTP(resp, req)

		assert.Equal(t, http.StatusOK, resp.Code)
		require.NoError(t, err)
		assert.True(t, in.Patch.Name.Present)
		assert.False(t, in.Patch.ApplicationAreas.Present)
	})

	t.Run("Should collect bracketed applicationAreas", func(t *testing.T) {
		svc := &mockProductService{}
		svc.On("UpdateProduct", mock.Anything, "1001", mock.MatchedBy(func(p service.UpdateProductParams) bool {
			return len(p.Fields.ApplicationAreas) == 2
		})).Return(product(), nil)

		body, contentType := multipartBody(t, map[string][]string{"applicationAreas[]": {"Flooring", "Walls"}}, nil)
		req := httptest.NewRequest(http.MethodPut, "/api/products/1001", body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()

		newRouter(t, svc, nil).ServeHTTP(resp, req)

		assert.Equal(t, http.StatusOK, resp.Code)
		svc.AssertExpectations(t)
	})

	t.Run("Should return not found for an unknown key", func(t *testing.T) {
		svc := &mockProductService{}
		svc.On("UpdateProduct", mock.Anything, "404", mock.Anything).Return(model.Product{}, apperr.ProductNotFoundErr)

		body, contentType := multipartBody(t, map[string][]string{"name": {"x"}}, nil)
		req := httptest.NewRequest(http.MethodPut, "/api/products/404", body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()

		newRouter(t, svc, nil).ServeHTTP(resp, req)

		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, apperr.ProductNotFoundCode, decodeError(t, resp.Body).Code)
	})

	t.Run("Should reject bodies over the upload limit", func(t *testing.T) {
		svc := &mockProductService{}
		big := make([]byte, 12<<20)
		body, contentType := multipartBody(t, nil, []formFile{{name: "huge.png", data: big}})
		req := httptest.NewRequest(http.MethodPut, "/api/products/1001", body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()

		newRouter(t, svc, nil).ServeHTTP(resp, req)

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		svc.AssertNotCalled(t, "UpdateProduct", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReadHandlers(t *testing.T) {
	t.Run("Should list with a status filter", func(t *testing.T) {
		svc := &mockProductService{}
		svc.On("ListProducts", mock.Anything, mock.MatchedBy(func(p service.ListProductsParams) bool {
			return p.Status != nil && *p.Status == "approved"
		})).Return([]model.Product{product()}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/products?status=approved", nil)
		resp := httptest.NewRecorder()
		newRouter(t, svc, nil).ServeHTTP(resp, req)

		require.Equal(t, http.StatusOK, resp.Code)
		var got []map[string]any
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
		assert.Len(t, got, 1)
	})

	t.Run("Should return an empty array when nothing matches", func(t *testing.T) {
		svc := &mockProductService{}
		svc.On("ListProducts", mock.Anything, service.ListProductsParams{}).Return(nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		resp := httptest.NewRecorder()
		newRouter(t, svc, nil).ServeHTTP(resp, req)

		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, `[]`, resp.Body.String())
	})

	t.Run("Should get by key", func(t *testing.T) {
		svc := &mockProductService{}
		svc.On("GetProduct", mock.Anything, "1001").Return(product(), nil)

		req := httptest.NewRequest(http.MethodGet, "/api/products/1001", nil)
		resp := httptest.NewRecorder()
		newRouter(t, svc, nil).ServeHTTP(resp, req)

		require.Equal(t, http.StatusOK, resp.Code)
		var got model.Product
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
		assert.Equal(t, "Statuario", got.Name)
		assert.True(t, got.Price.Equal(decimal.RequireFromString("1250.5")))
	})

	t.Run("Should hide internal errors", func(t *testing.T) {
		svc := &mockProductService{}
		svc.On("GetProduct", mock.Anything, "1001").Return(model.Product{}, errors.New("conn reset"))

		req := httptest.NewRequest(http.MethodGet, "/api/products/1001", nil)
		resp := httptest.NewRecorder()
		newRouter(t, svc, nil).ServeHTTP(resp, req)

		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		res := decodeError(t, resp.Body)
		assert.Equal(t, apierr.InternalServerErr.Code, res.Code)
		assert.NotContains(t, res.Message, "conn reset")
	})
}

func TestSetStatusHandler(t *testing.T) {
	t.Run("Should set the status from a JSON body", func(t *testing.T) {
		svc := &mockProductService{}
		approved := product()
		approved.Status = model.StatusApproved
		svc.On("SetStatus", mock.Anything, "1001", "approved").Return(approved, nil)

		req := httptest.NewRequest(http.MethodPatch, "/api/products/1001/status", strings.NewReader(`{"status":"approved"}`))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		newRouter(t, svc, nil).ServeHTTP(resp, req)

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"status":"approved"`)
	})

	t.Run("Should reject malformed JSON", func(t *testing.T) {
		svc := &mockProductService{}
		req := httptest.NewRequest(http.MethodPatch, "/api/products/1001/status", strings.NewReader(`{status`))
		resp := httptest.NewRecorder()
		newRouter(t, svc, nil).ServeHTTP(resp, req)

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		svc.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDeleteProductHandler(t *testing.T) {
	svc := &mockProductService{}
	svc.On("DeleteProduct", mock.Anything, "1001").Return(nil)
	svc.On("DeleteProduct", mock.Anything, "404").Return(apperr.ProductNotFoundErr)
	router := newRouter(t, svc, nil)

	t.Run("Should return no content", func(t *testing.T) {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/products/1001", nil))
		assert.Equal(t, http.StatusNoContent, resp.Code)
		assert.Zero(t, resp.Body.Len())
	})

	t.Run("Should return not found", func(t *testing.T) {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/products/404", nil))
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestSystemRoutes(t *testing.T) {
	t.Run("Should report a healthy database", func(t *testing.T) {
		resp := httptest.NewRecorder()
		newRouter(t, &mockProductService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, `{"status":"ok","db":"up"}`, resp.Body.String())
	})

	t.Run("Should report an unreachable database", func(t *testing.T) {
		resp := httptest.NewRecorder()
		newRouter(t, &mockProductService{}, errors.New("dial tcp")).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
		assert.JSONEq(t, `{"status":"degraded","db":"down"}`, resp.Body.String())
	})

	t.Run("Should expose request metrics by route", func(t *testing.T) {
		svc := &mockProductService{}
		svc.On("GetProduct", mock.Anything, "1001").Return(product(), nil)
		router := newRouter(t, svc, nil)

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products/1001", nil))

		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `evershine_http_requests_total{method="GET",route="/api/products/{key}`)
		assert.NotContains(t, resp.Body.String(), `route="/api/products/1001"`)
	})

	t.Run("Should echo or mint a correlation id", func(t *testing.T) {
		router := newRouter(t, &mockProductService{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(correlationid.Header, "req-42")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		assert.Equal(t, "req-42", resp.Header().Get(correlationid.Header))

		resp = httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.NotEmpty(t, resp.Header().Get(correlationid.Header))
	})
}

func TestRoutesAreDocumented(t *testing.T) {
	doc, err := apicontract.Load(context.Background())
	require.NoError(t, err)

	router, ok := newRouter(t, &mockProductService{}, nil).(chi.Routes)
	require.True(t, ok)

	err = chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if strings.HasPrefix(route, "/docs") || route == "/metrics" {
			return nil
		}
		path := strings.TrimSuffix(route, "/")
		item := doc.Paths.Find(path)
		if assert.NotNil(t, item, "undocumented route %s", path) {
			assert.NotNil(t, item.GetOperation(method), "undocumented operation %s %s", method, path)
		}
		return nil
	})
	require.NoError(t, err)
}
