package api

import (
	"github.com/gin-gonic/gin"
)

type positionsResponse struct {
	Summary string `json:"summary"`
}

func (m ApiHandler) positions(c *gin.Context) {
	summary, err := m.PositionService.Summary(c.Request.Context())
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	c.JSON(200, positionsResponse{
		Summary: summary,
	})
}
