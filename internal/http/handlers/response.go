// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response envelope shared by every endpoint. Success
// and failure use the same shape so clients can branch on `success` alone:
//
//	HTTP/1.1 200 OK
//	{
//	  "success": true,
//	  "data": { "id": "…", "displayName": "Octo" },
//	  "message": "Success",
//	  "metadata": { "executionTimeMs": 3 },
//	  "timestamp": "2024-06-12T09:00:00Z",
//	  "requestId": "123e4567-e89b-12d3-a456-426614174000"
//	}
//
//	HTTP/1.1 404 Not Found
//	{
//	  "success": false,
//	  "data": null,
//	  "message": "User with ID 'x' was not found.",
//	  "errors": [{ "code": "User.NotFound", "message": "…", "timestamp": "…" }],
//	  "timestamp": "…",
//	  "requestId": "…"
//	}
//
// Conventions:
//   - Every error response carries at least one APIError with a stable code.
//   - fail() centralizes error logging; 5xx responses are logged with the
//     request-scoped logger.
//   - ok() and noContent() write success responses.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/http/middleware"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success   bool       `json:"success" example:"true"`
	Data      any        `json:"data"`
	Message   string     `json:"message,omitempty" example:"Success"`
	Errors    []APIError `json:"errors,omitempty"`
	Metadata  *Metadata  `json:"metadata,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	RequestID string     `json:"requestId,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// APIError describes one failure.
type APIError struct {
	// Stable, machine-readable code such as "Squad.Full" or "not_found".
	Code string `json:"code" example:"User.NotFound"`
	// Human-readable message, safe to show to users.
	Message   string    `json:"message" example:"User with ID 'x' was not found."`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Metadata carries paging and cost information.
type Metadata struct {
	Pagination      *Pagination `json:"pagination,omitempty"`
	CostUnit        *float64    `json:"costUnit,omitempty"`
	ExecutionTimeMs *int64      `json:"executionTimeMs,omitempty"`
}

// Pagination describes the page returned by a paged list.
type Pagination struct {
	PageNumber        int    `json:"pageNumber" example:"1"`
	PageSize          int    `json:"pageSize" example:"20"`
	TotalCount        int    `json:"totalCount" example:"42"`
	TotalPages        int    `json:"totalPages" example:"3"`
	HasPreviousPage   bool   `json:"hasPreviousPage"`
	HasNextPage       bool   `json:"hasNextPage"`
	ContinuationToken string `json:"continuationToken,omitempty"`
}

// pageOf builds Pagination from a repository page.
func pageOf[T any](p domain.PagedList[T]) *Pagination {
	return &Pagination{
		PageNumber:        p.PageNumber,
		PageSize:          p.PageSize,
		TotalCount:        p.TotalCount,
		TotalPages:        p.TotalPages(),
		HasPreviousPage:   p.HasPreviousPage(),
		HasNextPage:       p.HasNextPage(),
		ContinuationToken: p.ContinuationToken,
	}
}

func requestID(c *gin.Context) string {
	if rid := c.Writer.Header().Get("X-Request-ID"); rid != "" {
		return rid
	}
	return c.GetString("requestID")
}

// withTiming fills ExecutionTimeMs when RequestID() recorded a start time.
func withTiming(c *gin.Context, md *Metadata) *Metadata {
	start, ok := middleware.StartedAt(c)
	if !ok {
		return md
	}
	if md == nil {
		md = &Metadata{}
	}
	ms := time.Since(start).Milliseconds()
	md.ExecutionTimeMs = &ms
	return md
}

// fail aborts the request with a single-error envelope and logs server-side
// errors.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	abort(c, status, code, msg)
}

func abort(c *gin.Context, status int, code, msg string) {
	now := time.Now().UTC()
	c.AbortWithStatusJSON(status, Envelope{
		Success:   false,
		Message:   msg,
		Errors:    []APIError{{Code: code, Message: msg, Timestamp: now}},
		Timestamp: now,
		RequestID: requestID(c),
	})
}

// Fail is the exported variant of fail() for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success envelope around data.
func ok(c *gin.Context, status int, data any, msg string) {
	okMeta(c, status, data, msg, nil)
}

// okMeta writes a success envelope with metadata.
func okMeta(c *gin.Context, status int, data any, msg string, md *Metadata) {
	if msg == "" {
		msg = "Success"
	}
	c.JSON(status, Envelope{
		Success:   true,
		Data:      data,
		Message:   msg,
		Metadata:  withTiming(c, md),
		Timestamp: time.Now().UTC(),
		RequestID: requestID(c),
	})
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
