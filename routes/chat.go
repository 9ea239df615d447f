package routes

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"vehicle-rental-server/middleware"
	"vehicle-rental-server/services"
	ws "vehicle-rental-server/websocket"
)

// ChatDeps bundles the services the chat routes work with.
type ChatDeps struct {
	Threads *services.ThreadService
	Inbox   *services.InboxService
	Hub     *ws.Hub
}

// RegisterChatRoutes registers thread, message and realtime routes
func RegisterChatRoutes(router *gin.RouterGroup, deps ChatDeps) {
	chat := router.Group("/chat")
	{
		// WebSocket endpoint authenticates via query token, not header.
		chat.GET("/ws", middleware.WebSocketAuthMiddleware(), func(c *gin.Context) {
			userID := middleware.CurrentUserID(c)
			ws.ServeWebSocket(deps.Hub, c.Writer, c.Request, userID)
		})

		protected := chat.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/threads", func(c *gin.Context) { listThreads(c, deps) })
			protected.GET("/threads/:id/messages", func(c *gin.Context) { listMessages(c, deps) })
			protected.POST("/threads/:id/messages", func(c *gin.Context) { sendMessage(c, deps) })
			protected.POST("/threads/:id/read", func(c *gin.Context) { markThreadRead(c, deps) })
			protected.GET("/unread-count", func(c *gin.Context) { unreadCount(c, deps) })
		}
	}
}

func listThreads(c *gin.Context, deps ChatDeps) {
	userID := middleware.CurrentUserID(c)

	view, err := deps.Inbox.Inbox(c.Request.Context(), userID)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"threads":      view.Threads,
		"unread_count": view.UnreadCount,
	})
}

func listMessages(c *gin.Context, deps ChatDeps) {
	userID := middleware.CurrentUserID(c)

	threadID, ok := threadIDParam(c)
	if !ok {
		return
	}

	messages, err := deps.Threads.Messages(c.Request.Context(), threadID, userID)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	// Opening the conversation counts as reading it.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := deps.Threads.MarkRead(ctx, threadID, userID); err != nil {
			log.Printf("⚠️ Failed to mark thread %d read for user %d: %v", threadID, userID, err)
		}
	}()

	deps.Hub.AddUserToThread(userID, threadID)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"messages": messages,
	})
}

func sendMessage(c *gin.Context, deps ChatDeps) {
	userID := middleware.CurrentUserID(c)

	threadID, ok := threadIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request data",
			"error":   err.Error(),
		})
		return
	}

	message, err := deps.Threads.SendMessage(c.Request.Context(), threadID, userID, req.Text)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	// Push to the other member if they are connected.
	deps.Hub.SendToThread(threadID, &ws.Message{
		Type:      "chat",
		ThreadID:  threadID,
		SenderID:  userID,
		Text:      message.Text,
		Timestamp: message.CreatedAt,
		Data:      message,
	}, userID)

	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"chat_message": message,
	})
}

func markThreadRead(c *gin.Context, deps ChatDeps) {
	userID := middleware.CurrentUserID(c)

	threadID, ok := threadIDParam(c)
	if !ok {
		return
	}

	if err := deps.Threads.MarkRead(c.Request.Context(), threadID, userID); err != nil {
		writeBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Thread marked as read",
	})
}

func unreadCount(c *gin.Context, deps ChatDeps) {
	userID := middleware.CurrentUserID(c)

	count, err := deps.Inbox.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"unread_count": count,
	})
}

func threadIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid thread ID",
		})
		return 0, false
	}
	return uint(id), true
}
