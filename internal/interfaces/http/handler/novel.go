// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"serial-novel-api/internal/application/generation"
	"serial-novel-api/internal/application/reading"
	"serial-novel-api/internal/interfaces/http/dto"
	pkgerrors "serial-novel-api/pkg/errors"
	"serial-novel-api/pkg/logger"
)

// NovelHandler 小说处理器
type NovelHandler struct {
	genSvc  *generation.Service
	readSvc *reading.Service
}

// NewNovelHandler 创建小说处理器
func NewNovelHandler(genSvc *generation.Service, readSvc *reading.Service) *NovelHandler {
	return &NovelHandler{genSvc: genSvc, readSvc: readSvc}
}

// Create 创建小说
// @Summary 创建小说
// @Description 创建小说并启动后台生成，第一章提交后同步返回
// @Tags Novels
// @Accept json
// @Produce json
// @Param request body dto.CreateNovelRequest true "创建参数"
// @Success 201 {object} dto.Response[dto.CreateNovelResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/novels [post]
func (h *NovelHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateNovelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.genSvc.CreateNovel(ctx, generation.CreateRequest{
		OwnerID: req.UserID,
		Setting: req.ToSetting(),
	})
	if err != nil {
		if !pkgerrors.IsAppError(err) {
			logger.Error(ctx, "failed to create novel", err, "user_id", req.UserID)
		}
		dto.Fail(c, err)
		return
	}

	dto.Created(c, dto.ToCreateNovelResponse(result))
}

// Get 获取小说详情
// @Summary 获取小说详情
// @Tags Novels
// @Produce json
// @Param nid path string true "小说 ID"
// @Success 200 {object} dto.Response[dto.NovelResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/novels/{nid} [get]
func (h *NovelHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	novelID := c.Param("nid")

	novel, err := h.readSvc.GetNovel(ctx, novelID)
	if err != nil {
		dto.Fail(c, err)
		return
	}

	dto.Success(c, dto.ToNovelResponse(novel))
}

// ListByUser 获取用户的小说列表
// @Summary 获取用户的小说列表
// @Tags Novels
// @Produce json
// @Param uid path string true "用户 ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[[]dto.NovelResponse]
// @Router /v1/users/{uid}/novels [get]
func (h *NovelHandler) ListByUser(c *gin.Context) {
	ctx := c.Request.Context()
	ownerID := c.Param("uid")
	pagination := dto.BindPage(c)

	result, err := h.readSvc.ListNovels(ctx, ownerID, pagination)
	if err != nil {
		logger.Error(ctx, "failed to list novels", err, "owner_id", ownerID)
		dto.Fail(c, err)
		return
	}

	dto.SuccessWithPage(c, dto.ToNovelResponses(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, result.Total))
}

// List 按用户获取小说列表
// @Summary 按用户获取小说列表
// @Tags Novels
// @Produce json
// @Param user_id query string true "用户 ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[[]dto.NovelResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/novels [get]
func (h *NovelHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	ownerID := c.Query("user_id")
	pagination := dto.BindPage(c)

	result, err := h.readSvc.ListNovels(ctx, ownerID, pagination)
	if err != nil {
		if !pkgerrors.IsAppError(err) {
			logger.Error(ctx, "failed to list novels", err, "owner_id", ownerID)
		}
		dto.Fail(c, err)
		return
	}

	dto.SuccessWithPage(c, dto.ToNovelResponses(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, result.Total))
}

// GetUpdates 增量拉取新章节
// @Summary 增量拉取新章节
// @Description 返回 from_index 之后已提交的章节，供客户端轮询
// @Tags Novels
// @Produce json
// @Param nid path string true "小说 ID"
// @Param from_index query int false "已读到的最后章节序号" default(0)
// @Param X-Current-Index header int false "已读到的最后章节序号（查询参数缺省时生效）"
// @Success 200 {object} dto.Response[dto.NovelUpdateResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/novels/{nid}/updates [get]
func (h *NovelHandler) GetUpdates(c *gin.Context) {
	ctx := c.Request.Context()
	novelID := c.Param("nid")

	raw := c.Query("from_index")
	if raw == "" {
		raw = c.GetHeader("X-Current-Index")
	}
	fromIndex := 0
	if raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			dto.BadRequest(c, "invalid from_index: "+raw)
			return
		}
		fromIndex = parsed
	}

	update, err := h.readSvc.GetNewChapters(ctx, novelID, fromIndex)
	if err != nil {
		dto.Fail(c, err)
		return
	}

	dto.Success(c, dto.ToNovelUpdateResponse(update))
}

// ListChapters 获取小说章节记录
// @Summary 获取小说章节记录
// @Description 返回全部章节留痕，含失败章节的诊断信息
// @Tags Novels
// @Produce json
// @Param nid path string true "小说 ID"
// @Success 200 {object} dto.Response[[]dto.ChapterRecordResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/novels/{nid}/chapters [get]
func (h *NovelHandler) ListChapters(c *gin.Context) {
	ctx := c.Request.Context()
	novelID := c.Param("nid")

	chapters, err := h.readSvc.ListChapters(ctx, novelID)
	if err != nil {
		dto.Fail(c, err)
		return
	}

	dto.Success(c, dto.ToChapterRecordResponses(chapters))
}

// GetContents 获取小说全文
// @Summary 获取小说全文
// @Tags Novels
// @Produce json
// @Param nid path string true "小说 ID"
// @Success 200 {object} dto.Response[dto.NovelContentsResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/novels/{nid}/contents [get]
func (h *NovelHandler) GetContents(c *gin.Context) {
	ctx := c.Request.Context()
	novelID := c.Param("nid")

	contents, err := h.readSvc.GetContents(ctx, novelID)
	if err != nil {
		dto.Fail(c, err)
		return
	}

	dto.Success(c, dto.ToNovelContentsResponse(contents))
}
