// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serial-novel-api/pkg/errors"
)

// Response 统一响应结构
type Response[T any] struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    T         `json:"data,omitempty"`
	Meta    *PageMeta `json:"meta,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
}

// PageMeta 分页元数据
type PageMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// Success 返回成功响应
func Success[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, Response[T]{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
		TraceID: c.GetString("trace_id"),
	})
}

// SuccessWithPage 返回带分页的成功响应
func SuccessWithPage[T any](c *gin.Context, data T, meta *PageMeta) {
	c.JSON(http.StatusOK, Response[T]{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
		Meta:    meta,
		TraceID: c.GetString("trace_id"),
	})
}

// Created 返回创建成功响应 (201)
func Created[T any](c *gin.Context, data T) {
	c.JSON(http.StatusCreated, Response[T]{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
		TraceID: c.GetString("trace_id"),
	})
}

// Error 返回错误响应
func Error(c *gin.Context, httpCode int, message string) {
	c.JSON(httpCode, ErrorResponse{
		Code:    httpCode,
		Message: message,
		TraceID: c.GetString("trace_id"),
	})
}

// Fail 按 AppError 映射 HTTP 状态码返回错误响应
func Fail(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	c.JSON(appErr.HTTPStatus, ErrorResponse{
		Code:      appErr.HTTPStatus,
		ErrorCode: string(appErr.Code),
		Message:   appErr.Message,
		Detail:    appErr.Detail,
		TraceID:   c.GetString("trace_id"),
	})
}

// BadRequest 返回 400 错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// NotFound 返回 404 错误
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError 返回 500 错误
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// NewPageMeta 创建分页元数据
func NewPageMeta(page, pageSize int, total int64) *PageMeta {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &PageMeta{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}
