package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/sunday-edge/internal/circuitbreaker"
	"github.com/guttosm/sunday-edge/internal/datasource"
	"github.com/guttosm/sunday-edge/internal/domain/dto"
	"github.com/guttosm/sunday-edge/internal/middleware"
	"github.com/guttosm/sunday-edge/internal/service"
)

// CacheHeader reports whether a body came from the cache: hit, stale or miss.
const CacheHeader = "X-Cache"

var (
	successResponsePool = sync.Pool{
		New: func() any { return &dto.SuccessResponse{} },
	}
	errorResponsePool = sync.Pool{
		New: func() any { return &dto.ErrorResponse{} },
	}
)

func getSuccessResponse() *dto.SuccessResponse {
	if resp, ok := successResponsePool.Get().(*dto.SuccessResponse); ok {
		return resp
	}
	return &dto.SuccessResponse{}
}

func putSuccessResponse(resp *dto.SuccessResponse) {
	*resp = dto.SuccessResponse{}
	successResponsePool.Put(resp)
}

func getErrorResponse() *dto.ErrorResponse {
	if resp, ok := errorResponsePool.Get().(*dto.ErrorResponse); ok {
		return resp
	}
	return &dto.ErrorResponse{}
}

func putErrorResponse(resp *dto.ErrorResponse) {
	*resp = dto.ErrorResponse{}
	errorResponsePool.Put(resp)
}

// Validator is implemented by request types that check themselves.
type Validator interface {
	Validate() error
}

// BindQuery binds the query string into a T and validates it when T
// implements Validator.
func BindQuery[T any](c *gin.Context) (*T, error) {
	var req T
	if err := c.ShouldBindQuery(&req); err != nil {
		return nil, err
	}
	if v, ok := any(&req).(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return &req, nil
}

// ResponseBuilder writes the API envelopes. Envelopes are pooled; gin
// serializes synchronously so they can be returned right after writing.
type ResponseBuilder struct {
	c *gin.Context
}

// NewResponseBuilder creates a new response builder for the given context.
func NewResponseBuilder(c *gin.Context) *ResponseBuilder {
	return &ResponseBuilder{c: c}
}

// WithOutcome sets the X-Cache header from a fetch outcome.
func (b *ResponseBuilder) WithOutcome(o service.Outcome) *ResponseBuilder {
	b.c.Header(CacheHeader, o.CacheStatus())
	return b
}

// Success sends data wrapped in a SuccessResponse.
func (b *ResponseBuilder) Success(statusCode int, data any) {
	resp := getSuccessResponse()
	resp.Data = data
	resp.RequestID = middleware.GetRequestID(b.c)
	resp.Timestamp = time.Now()

	b.c.JSON(statusCode, resp)
	putSuccessResponse(resp)
}

// SuccessOK sends a 200 OK response with the given data.
func (b *ResponseBuilder) SuccessOK(data any) {
	b.Success(http.StatusOK, data)
}

// Error aborts with an ErrorResponse. err, when set, is attached to the
// context for ErrorHandler to log.
func (b *ResponseBuilder) Error(statusCode int, message string, err error) {
	resp := getErrorResponse()
	resp.Error = dto.ErrCodeFromStatus(statusCode)
	resp.Message = message
	resp.RequestID = middleware.GetRequestID(b.c)
	resp.Timestamp = time.Now()

	if err != nil && statusCode >= http.StatusInternalServerError {
		_ = b.c.Error(err)
	}
	b.c.AbortWithStatusJSON(statusCode, resp)
	putErrorResponse(resp)
}

// ValidationError sends a 400 for a bind or validation failure, with
// per-field details when err is a *dto.ValidationError.
func (b *ResponseBuilder) ValidationError(err error) {
	resp := getErrorResponse()
	resp.Error = dto.ErrCodeInvalidRequest
	resp.Message = err.Error()
	resp.Details = dto.FieldDetails(err)
	resp.RequestID = middleware.GetRequestID(b.c)
	resp.Timestamp = time.Now()

	b.c.AbortWithStatusJSON(http.StatusBadRequest, resp)
	putErrorResponse(resp)
}

// ServiceError maps an error returned by the services to a status code.
func (b *ResponseBuilder) ServiceError(err error) {
	status, message := statusFor(err)
	b.Error(status, message, err)
}

func statusFor(err error) (int, string) {
	var ue *datasource.UpstreamError
	switch {
	case errors.Is(err, datasource.ErrTeamIDRequired),
		errors.Is(err, service.ErrEmptyQuery),
		errors.Is(err, service.ErrInvalidTarget):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrHostNotAllowed):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrResponseTooLarge):
		return http.StatusBadGateway, "Upstream response too large"
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return http.StatusServiceUnavailable, "Upstream temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Upstream timed out"
	case errors.As(err, &ue) && ue.StatusCode == http.StatusNotFound:
		return http.StatusNotFound, ue.Message
	case errors.As(err, &ue):
		return http.StatusBadGateway, ue.Error()
	default:
		return http.StatusBadGateway, "Upstream request failed"
	}
}
