package handler

import (
	"github.com/gin-gonic/gin"

	"serial-novel-api/internal/domain/repository"
	"serial-novel-api/internal/interfaces/http/dto"
	"serial-novel-api/pkg/logger"
)

// LookupHandler 参照表处理器
type LookupHandler struct {
	lookupRepo repository.LookupRepository
}

// NewLookupHandler 创建参照表处理器
func NewLookupHandler(lookupRepo repository.LookupRepository) *LookupHandler {
	return &LookupHandler{lookupRepo: lookupRepo}
}

// ListGenres 获取体裁清单
// @Summary 获取体裁清单
// @Tags Lookups
// @Produce json
// @Success 200 {object} dto.Response[[]dto.LookupItem]
// @Router /v1/genres [get]
func (h *LookupHandler) ListGenres(c *gin.Context) {
	ctx := c.Request.Context()

	genres, err := h.lookupRepo.ListGenres(ctx)
	if err != nil {
		logger.Error(ctx, "failed to list genres", err)
		dto.InternalError(c, "failed to list genres")
		return
	}

	dto.Success(c, dto.ToGenreItems(genres))
}

// ListMoods 获取氛围清单
// @Summary 获取氛围清单
// @Tags Lookups
// @Produce json
// @Success 200 {object} dto.Response[[]dto.LookupItem]
// @Router /v1/moods [get]
func (h *LookupHandler) ListMoods(c *gin.Context) {
	ctx := c.Request.Context()

	moods, err := h.lookupRepo.ListMoods(ctx)
	if err != nil {
		logger.Error(ctx, "failed to list moods", err)
		dto.InternalError(c, "failed to list moods")
		return
	}

	dto.Success(c, dto.ToMoodItems(moods))
}
