package zerror

// Status classifies a ZError independently of any transport.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusBadRequest
	StatusValidationFailed
	StatusUnauthorized
	StatusForbidden
	StatusNotFound
	StatusConflict
	StatusUnprocessableEntity
	StatusTooManyRequests
	StatusInternalServerError
	StatusNotImplemented
	StatusBadGateway
	StatusServiceUnavailable
	StatusTimeout
)

var statusNames = map[Status]string{
	StatusUnknown:             "unknown",
	StatusBadRequest:          "bad_request",
	StatusValidationFailed:    "validation_failed",
	StatusUnauthorized:        "unauthorized",
	StatusForbidden:           "forbidden",
	StatusNotFound:            "not_found",
	StatusConflict:            "conflict",
	StatusUnprocessableEntity: "unprocessable_entity",
	StatusTooManyRequests:     "too_many_requests",
	StatusInternalServerError: "internal_server_error",
	StatusNotImplemented:      "not_implemented",
	StatusBadGateway:          "bad_gateway",
	StatusServiceUnavailable:  "service_unavailable",
	StatusTimeout:             "timeout",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return statusNames[StatusUnknown]
}
