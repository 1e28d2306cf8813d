package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/EvershineMarbles/EvershineBackend/internal/apperr"
	"github.com/EvershineMarbles/EvershineBackend/internal/config"
	"github.com/EvershineMarbles/EvershineBackend/internal/model"
	"github.com/EvershineMarbles/EvershineBackend/internal/service"
	"github.com/EvershineMarbles/EvershineBackend/internal/validation"
)

// Multipart form field names.
const (
	formImages           = "images"
	formKeepImages       = "keepImages"
	formApplicationAreas = "applicationAreas"
)

type productHandler struct {
	productSvc service.ProductService
	upload     config.Upload
}

func newProductHandler(productSvc service.ProductService, upload config.Upload) *productHandler {
	return &productHandler{
		productSvc: productSvc,
		upload:     upload,
	}
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *productHandler) ListProducts(w http.ResponseWriter, r *http.Request) error {
	var status *string
	if err := runtime.BindQueryParameter("form", true, false, "status", r.URL.Query(), &status); err != nil {
		return paramErr(err)
	}

	products, err := h.productSvc.ListProducts(r.Context(), service.ListProductsParams{Status: status})
	if err != nil {
		return fmt.Errorf("product service list products: %w", err)
	}
	if products == nil {
		products = []model.Product{}
	}

	return writeJSON(w, http.StatusOK, products)
}

func (h *productHandler) GetProduct(w http.ResponseWriter, r *http.Request) error {
	key, err := productKey(r)
	if err != nil {
		return err
	}

	product, err := h.productSvc.GetProduct(r.Context(), key)
	if err != nil {
		return fmt.Errorf("product service get product: %w", err)
	}

	return writeJSON(w, http.StatusOK, product)
}

func (h *productHandler) CreateProduct(w http.ResponseWriter, r *http.Request) error {
	form, err := h.parseMultipart(w, r)
	if err != nil {
		return err
	}
	defer form.RemoveAll() //nolint:errcheck

	images, err := readImages(form)
	if err != nil {
		return err
	}

	params := service.CreateProductParams{
		Fields: validation.CreateFields{
			Name:              formValue(form, validation.FieldName),
			Price:             formValue(form, validation.FieldPrice),
			Category:          formValue(form, validation.FieldCategory),
			ApplicationAreas:  applicationAreas(form),
			Description:       formValue(form, "description"),
			QuantityAvailable: formValue(form, validation.FieldQuantityAvailable),
			Size:              formValue(form, "size"),
			Thickness:         formValue(form, "thickness"),
			NumberOfPieces:    formValue(form, validation.FieldNumberOfPieces),
			Status:            formValue(form, validation.FieldStatus),
		},
		Images: images,
	}

	product, err := h.productSvc.CreateProduct(r.Context(), params)
	if err != nil {
		return fmt.Errorf("product service create product: %w", err)
	}

	return writeJSON(w, http.StatusCreated, product)
}

func (h *productHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) error {
	key, err := productKey(r)
	if err != nil {
		return err
	}

	form, err := h.parseMultipart(w, r)
	if err != nil {
		return err
	}
	defer form.RemoveAll() //nolint:errcheck

	images, err := readImages(form)
	if err != nil {
		return err
	}

	var keep string
	if v := formValue(form, formKeepImages); v != nil {
		keep = *v
	}

	params := service.UpdateProductParams{
		Fields: validation.UpdateFields{
			Name:              formValue(form, validation.FieldName),
			Price:             formValue(form, validation.FieldPrice),
			Category:          formValue(form, validation.FieldCategory),
			ApplicationAreas:  applicationAreas(form),
			Description:       formValue(form, "description"),
			QuantityAvailable: formValue(form, validation.FieldQuantityAvailable),
			Size:              formValue(form, "size"),
			Thickness:         formValue(form, "thickness"),
			NumberOfPieces:    formValue(form, validation.FieldNumberOfPieces),
			Status:            formValue(form, validation.FieldStatus),
		},
		KeepImages: keep,
		Images:     images,
	}

	product, err := h.productSvc.UpdateProduct(r.Context(), key, params)
	if err != nil {
		return fmt.Errorf("product service update product: %w", err)
	}

	return writeJSON(w, http.StatusOK, product)
}

func (h *productHandler) SetStatus(w http.ResponseWriter, r *http.Request) error {
	key, err := productKey(r)
	if err != nil {
		return err
	}

	var req setStatusRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		return apperr.ValidationErr.WrapParent(err).WithMsg("request body must be a JSON object with a status")
	}

	product, err := h.productSvc.SetStatus(r.Context(), key, req.Status)
	if err != nil {
		return fmt.Errorf("product service set status: %w", err)
	}

	return writeJSON(w, http.StatusOK, product)
}

func (h *productHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) error {
	key, err := productKey(r)
	if err != nil {
		return err
	}

	if err := h.productSvc.DeleteProduct(r.Context(), key); err != nil {
		return fmt.Errorf("product service delete product: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// parseMultipart reads the request as multipart/form-data. The body is capped
// at MaxImages files of MaxFileSize plus room for the text fields; the
// per-file limit itself is enforced by the validator.
func (h *productHandler) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	limit := h.upload.MaxFileSize*int64(model.MaxImages) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(h.upload.MaxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, apperr.ValidationErr.WrapParent(err).
				WithMsg(fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit))
		}
		return nil, apperr.ValidationErr.WrapParent(err).WithMsg("request must be multipart/form-data")
	}

	return r.MultipartForm, nil
}

// formValue returns the first value of a form field, or nil when the field
// was not sent at all. An empty string is a present, empty value.
func formValue(form *multipart.Form, name string) *string {
	values, ok := form.Value[name]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

// applicationAreas collects repeated values sent either as applicationAreas
// or applicationAreas[]. It is nil when neither key was sent, so an update
// that omits the field leaves it untouched.
func applicationAreas(form *multipart.Form) []string {
	plain, hasPlain := form.Value[formApplicationAreas]
	bracketed, hasBracketed := form.Value[formApplicationAreas+"[]"]
	if !hasPlain && !hasBracketed {
		return nil
	}
	values := make([]string, 0, len(plain)+len(bracketed))
	values = append(values, plain...)
	return append(values, bracketed...)
}

func readImages(form *multipart.Form) ([]model.ImageFile, error) {
	headers := form.File[formImages]
	images := make([]model.ImageFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readFile(fh)
		if err != nil {
			return nil, fmt.Errorf("read image %q: %w", fh.Filename, err)
		}
		images = append(images, model.ImageFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return images, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	return io.ReadAll(f)
}

func productKey(r *http.Request) (string, error) {
	var key string
	err := runtime.BindStyledParameterWithOptions("simple", "key", chi.URLParam(r, "key"), &key,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		return "", paramErr(err)
	}
	return key, nil
}

func paramErr(err error) error {
	return apperr.ValidationErr.WrapParent(err).WithMsg(err.Error())
}

func writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}
