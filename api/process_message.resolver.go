package api

import (
	"github.com/gin-gonic/gin"
)

type processMessageRequest struct {
	ConversationID string `json:"conversationId" binding:"required"`
	Message        string `json:"message" binding:"required"`
}

type processMessageResponse struct {
	// nil when the message matched no trading intent and no fallback
	// handler produced anything - the transport decides what to do
	Reply   *string `json:"reply"`
	Handled bool    `json:"handled"`
}

func (m ApiHandler) processMessage(c *gin.Context) {
	var req processMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(400, gin.H{"error": err.Error()})
		return
	}

	reply, err := m.ChatHandler.ProcessMessage(c.Request.Context(), req.ConversationID, req.Message)
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	c.JSON(200, processMessageResponse{
		Reply:   reply,
		Handled: reply != nil,
	})
}
