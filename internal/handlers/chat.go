package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/leadlinehq/leadline/internal/channel"
)

type ChatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

type ChatHandler struct {
	orchestrator InboundProcessor
}

func NewChatHandler(orch InboundProcessor) *ChatHandler {
	return &ChatHandler{orchestrator: orch}
}

func (h *ChatHandler) Register(e *echo.Echo) {
	e.POST("/chat", h.Chat)
}

// Chat godoc
// @Summary Chat with the sales agent
// @Description Send one message on the web channel and get the agent's reply.
// @Tags chat
// @Accept json
// @Produce json
// @Param request body ChatRequest true "Chat request"
// @Success 200 {object} orchestrator.Reply
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /chat [post]
func (h *ChatHandler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	reply, err := h.orchestrator.HandleInbound(c.Request().Context(), channel.Inbound{
		Channel:    channel.ChannelWeb,
		ExternalID: strings.TrimSpace(req.UserID),
		Text:       req.Message,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, reply)
}
