package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Warning string      `json:"warning,omitempty"`
}

const warningKey = "response_warning"

// Warn attaches a non-fatal warning to the success envelope written later for c.
func Warn(c *gin.Context, msg string) {
	c.Set(warningKey, msg)
}

func success(c *gin.Context, data interface{}) Body {
	return Body{Success: true, Data: data, Warning: c.GetString(warningKey)}
}

// Page wraps a paginated list.
type Page struct {
	Items    interface{} `json:"items"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

// ShortfallBody is the 403 body for a metered operation the caller cannot afford.
// Credits mirrors Available so clients that only read "credits" keep working.
type ShortfallBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	Resource  string `json:"resource"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
	Credits   int    `json:"credits"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, success(c, data))
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, success(c, data))
}

// Paginated sends a 200 JSON response with a Page payload.
func Paginated(c *gin.Context, items interface{}, total, page, pageSize int) {
	c.JSON(http.StatusOK, success(c, Page{Items: items, Total: total, Page: page, PageSize: pageSize}))
}

// NoContent sends 204, or 200 with an empty envelope when a warning is pending.
func NoContent(c *gin.Context) {
	if c.GetString(warningKey) != "" {
		c.JSON(http.StatusOK, success(c, nil))
		return
	}
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err})
}

// ForbiddenCode sends 403 with a machine-readable code.
func ForbiddenCode(c *gin.Context, code, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err, Code: code})
}

// InsufficientBalance sends 403 carrying the required and available amounts.
func InsufficientBalance(c *gin.Context, resource string, required, available int) {
	c.JSON(http.StatusForbidden, ShortfallBody{
		Success:   false,
		Error:     "insufficient " + resource,
		Code:      "INSUFFICIENT_BALANCE",
		Resource:  resource,
		Required:  required,
		Available: available,
		Credits:   available,
	})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err})
}

// Conflict sends 409.
func Conflict(c *gin.Context, err string) {
	c.JSON(http.StatusConflict, Body{Success: false, Error: err})
}

// UnprocessableCode sends 422 with a machine-readable code.
func UnprocessableCode(c *gin.Context, code, err string) {
	c.JSON(http.StatusUnprocessableEntity, Body{Success: false, Error: err, Code: code})
}

// BadGateway sends 502 for upstream (AI / extraction) failures.
func BadGateway(c *gin.Context, err string) {
	c.JSON(http.StatusBadGateway, Body{Success: false, Error: err})
}

// TooManyRequests sends 429.
func TooManyRequests(c *gin.Context, err string) {
	c.JSON(http.StatusTooManyRequests, Body{Success: false, Error: err})
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) {
	c.JSON(http.StatusServiceUnavailable, Body{Success: false, Error: err})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err})
}
