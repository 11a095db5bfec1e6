package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/zetta/backend/internal/domain/catalogsync"
	"github.com/zetta/backend/internal/domain/settlement"
	"github.com/zetta/backend/internal/domain/shared"
	"github.com/zetta/backend/internal/infrastructure/auth"
	"github.com/zetta/backend/internal/interfaces/http/dto"
	"github.com/zetta/backend/internal/interfaces/http/middleware"
)

// DateLayout is accepted alongside RFC 3339 for period bounds
const DateLayout = "2006-01-02"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	return middleware.GetRequestID(c)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving the status from the code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Forbidden sends a 403 forbidden response
func (h *BaseHandler) Forbidden(c *gin.Context, message string) {
	h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// BindError reports a request that failed binding or validation
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError converts service errors to HTTP responses. Domain errors carry
// their own code; plain sentinels are matched here.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		middleware.HandleValidationError(c, verrs)
		return
	}

	switch {
	case errors.Is(err, middleware.ErrSellerScope):
		h.Forbidden(c, err.Error())
	case errors.Is(err, auth.ErrInvalidClaims), errors.Is(err, auth.ErrMissingSellerID):
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, err.Error())
	case errors.Is(err, settlement.ErrInvalidTransition),
		errors.Is(err, catalogsync.ErrInvalidConfigStatus),
		errors.Is(err, catalogsync.ErrEventAlreadyHandled):
		h.ErrorWithCode(c, dto.ErrCodeInvalidState, err.Error())
	case errors.Is(err, settlement.ErrInvalidPeriod),
		errors.Is(err, settlement.ErrInvalidCommissionRate),
		errors.Is(err, settlement.ErrNegativeOrderAmount),
		errors.Is(err, settlement.ErrInvalidSellerID),
		errors.Is(err, settlement.ErrInvalidOrderID),
		errors.Is(err, settlement.ErrPaymentReferenceRequired),
		errors.Is(err, settlement.ErrPaymentMethodRequired),
		errors.Is(err, catalogsync.ErrInvalidSyncType),
		errors.Is(err, catalogsync.ErrInvalidSchedule),
		errors.Is(err, catalogsync.ErrInvalidSellerID),
		errors.Is(err, catalogsync.ErrInvalidEventType),
		errors.Is(err, catalogsync.ErrMissingExternalID),
		errors.Is(err, catalogsync.ErrUnexpectedPayload),
		errors.Is(err, catalogsync.ErrEmptyMappingRuleName):
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, err.Error())
	default:
		h.InternalError(c, "An unexpected error occurred")
	}
}

// parseUUIDParam reads a path parameter as a UUID, writing a 400 on failure
func (h *BaseHandler) parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// parseOptionalUUID parses a query value, returning nil when it is empty
func parseOptionalUUID(raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseTime accepts RFC 3339 timestamps or plain dates in UTC
func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(DateLayout, raw)
}

// parsePeriod builds a half-open settlement period from two bounds
func parsePeriod(start, end string) (settlement.Period, error) {
	s, err := parseTime(start)
	if err != nil {
		return settlement.Period{}, settlement.ErrInvalidPeriod
	}
	e, err := parseTime(end)
	if err != nil {
		return settlement.Period{}, settlement.ErrInvalidPeriod
	}
	return settlement.NewPeriod(s, e)
}
