package apperr

import "github.com/EvershineMarbles/EvershineBackend/pkg/zerror"

const (
	ValidationErrorCode   = "VALIDATION_FAILED"
	ProductNotFoundCode   = "PRODUCT_NOT_FOUND"
	ImageUploadFailedCode = "IMAGE_UPLOAD_FAILED"
	PersistenceFailedCode = "PERSISTENCE_FAILED"
)

var (
	ValidationErr      = zerror.NewValidationFailed(ValidationErrorCode, "validation error")
	ProductNotFoundErr = zerror.NewNotFound(ProductNotFoundCode, "product not found")
	ImageUploadErr     = zerror.NewBadGateway(ImageUploadFailedCode, "failed to upload images")
	PersistenceErr     = zerror.NewInternalServerError(PersistenceFailedCode, "failed to save product")
)
