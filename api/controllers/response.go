package controllers

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// PaginatedResponse 分页响应结构
type PaginatedResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data"`
	Total  int64       `json:"total" example:"100"`
	Page   int         `json:"page" example:"1"`
	Size   int         `json:"size" example:"10"`
}

type successRenderer struct {
	APIResponse
	httpStatus int
}

func (res *successRenderer) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, res.httpStatus)
	return nil
}

type errorRenderer struct {
	APIResponse
	httpStatus int
}

func (res *errorRenderer) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, res.httpStatus)
	return nil
}

type paginatedRenderer struct {
	PaginatedResponse
	httpStatus int
}

func (res *paginatedRenderer) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, res.httpStatus)
	return nil
}

// SuccessResponse 构造成功响应
func SuccessResponse(msg string, data interface{}) render.Renderer {
	return &successRenderer{
		APIResponse: APIResponse{Status: 0, Msg: msg, Data: data},
		httpStatus:  http.StatusOK,
	}
}

// ErrorResponse 构造失败响应，err 非空时附加错误详情
func ErrorResponse(status int, msg string, err error) render.Renderer {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return &errorRenderer{
		APIResponse: APIResponse{Status: status, Msg: msg},
		httpStatus:  status,
	}
}

// SuccessPaginatedResponse 构造分页成功响应
func SuccessPaginatedResponse(msg string, data interface{}, total int64, page, size int) render.Renderer {
	return &paginatedRenderer{
		PaginatedResponse: PaginatedResponse{Status: 0, Msg: msg, Data: data, Total: total, Page: page, Size: size},
		httpStatus:        http.StatusOK,
	}
}
