package http

import (
	"net/http"

	statService "anoa.com/labeebacademy/internal/modules/stat/service"
	"anoa.com/labeebacademy/pkg/response"
	"github.com/gin-gonic/gin"
)

type StatHandler struct {
	statService statService.StatService
}

func NewStatHandler(statService statService.StatService) *StatHandler {
	return &StatHandler{
		statService: statService,
	}
}

func (h *StatHandler) GetSummary(c *gin.Context) {
	summary, err := h.statService.GetSummary(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
