package server

import (
	"net/http"

	"github.com/chatly-app/chatly/errors"
	"github.com/chatly-app/chatly/models"
	"github.com/chatly-app/chatly/server/response"
	"github.com/gin-gonic/gin"
)

// handleHome serves the conversation overview: the caller's profile, one
// summary per counterpart, and, when a receiver is selected, that thread.
func (s *Server) handleHome() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := getUserFromContext(c)
		if err != nil {
			response.JSON(c, "", err.Status, nil, err)
			return
		}

		accounts, svcErr := s.ChatService.ListConversations(c.Request.Context(), user.ID)
		if svcErr != nil {
			response.JSON(c, "", svcErr.Status, nil, svcErr)
			return
		}

		messages := []models.MessageView{}
		receiver := c.Query("receiver")
		if receiver != "" {
			thread, threadErr := s.ChatService.GetThreadWithUsername(c.Request.Context(), user, receiver)
			if threadErr != nil {
				response.JSON(c, "", threadErr.Status, nil, threadErr)
				return
			}
			messages = thread
		}

		response.JSON(c, "", http.StatusOK, gin.H{
			"user":     user,
			"accounts": accounts,
			"messages": messages,
			"receiver": receiver,
		}, nil)
	}
}

// handleGetMessages returns the thread with the counterpart named by the
// "other" query param. Kept as a bare {messages}/{error} body for the
// polling frontend.
func (s *Server) handleGetMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := getUserFromContext(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing parameters"})
			return
		}

		otherUsername := c.Query("other")
		if otherUsername == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing parameters"})
			return
		}

		messages, svcErr := s.ChatService.GetThreadWithUsername(c.Request.Context(), user, otherUsername)
		if svcErr != nil {
			c.JSON(svcErr.Status, gin.H{"error": svcErr.Message})
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": messages})
	}
}

func (s *Server) handleSendMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := getUserFromContext(c)
		if err != nil {
			response.JSON(c, "", err.Status, nil, err)
			return
		}

		var request models.SendMessageRequest
		if bindErr := c.ShouldBind(&request); bindErr != nil {
			response.JSON(c, "", errors.ErrBadRequest.Status, nil, errors.New("invalid request body", http.StatusBadRequest))
			return
		}

		message, svcErr := s.ChatService.SendMessage(c.Request.Context(), user, &request)
		if svcErr != nil {
			response.JSON(c, "", svcErr.Status, nil, svcErr)
			return
		}
		response.JSON(c, "message sent", http.StatusCreated, message, nil)
	}
}

func (s *Server) handleUpdateUsername() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := getUserFromContext(c)
		if err != nil {
			response.JSON(c, "", err.Status, nil, err)
			return
		}

		var request models.UpdateUsernameRequest
		if bindErr := c.ShouldBind(&request); bindErr != nil {
			response.JSON(c, "", errors.ErrBadRequest.Status, nil, errors.New("invalid request body", http.StatusBadRequest))
			return
		}

		if svcErr := s.ChatService.RenameUser(c.Request.Context(), user.ID, request.Username); svcErr != nil {
			response.JSON(c, "", svcErr.Status, nil, svcErr)
			return
		}
		response.JSON(c, "username updated", http.StatusOK, nil, nil)
	}
}
