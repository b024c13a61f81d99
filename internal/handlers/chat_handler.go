package handlers

import (
	"net/http"

	"internship_backend/internal/services"
	"internship_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	*BaseHandler
	conversationService services.ConversationService
	messageService      services.MessageService
	unreadService       services.UnreadService
}

func NewChatHandler(
	base *BaseHandler,
	conversationService services.ConversationService,
	messageService services.MessageService,
	unreadService services.UnreadService,
) *ChatHandler {
	return &ChatHandler{
		BaseHandler:         base,
		conversationService: conversationService,
		messageService:      messageService,
		unreadService:       unreadService,
	}
}

func (h *ChatHandler) RegisterRoutes(r *gin.RouterGroup) {
	conversations := r.Group("/conversations")
	conversations.Use(h.auth)
	{
		conversations.POST("", h.CreateConversation)
		conversations.GET("", h.GetConversationSummary)
		conversations.GET("/:conversationId", h.GetConversation)
		conversations.PATCH("/:conversationId", h.RenameConversation)

		conversations.POST("/:conversationId/participants", h.AddParticipants)
		conversations.DELETE("/:conversationId/participants/:userId", h.RemoveParticipant)

		conversations.POST("/:conversationId/read", h.MarkConversationRead)
		conversations.GET("/:conversationId/unread-count", h.GetUnreadCount)

		conversations.GET("/:conversationId/messages", h.GetMessages)
		conversations.POST("/:conversationId/messages", h.SendMessage)
	}

	messages := r.Group("/messages")
	messages.Use(h.auth)
	{
		messages.PATCH("/:messageId", h.EditMessage)
	}
}

// --- Conversations ---

// CreateConversation: создатель всегда входит в состав беседы
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CreateConversationRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	req.UserIDs = append([]string{userID}, req.UserIDs...)

	conversation, err := h.conversationService.CreateConversation(h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, conversation)
}

func (h *ChatHandler) GetConversationSummary(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	page, pageSize := h.ParsePagination(c)
	response, err := h.unreadService.ConversationSummary(h.GetDB(c), userID, page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ChatHandler) GetConversation(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	conversation, err := h.conversationService.GetConversation(h.GetDB(c), userID, c.Param("conversationId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversation)
}

func (h *ChatHandler) RenameConversation(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.RenameConversationRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	conversation, err := h.conversationService.RenameConversation(h.GetDB(c), userID, c.Param("conversationId"), req.Name)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversation)
}

// --- Participants ---

func (h *ChatHandler) AddParticipants(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.AddParticipantsRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	conversation, err := h.conversationService.AddParticipants(h.GetDB(c), userID, c.Param("conversationId"), req.UserIDs)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversation)
}

func (h *ChatHandler) RemoveParticipant(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	err := h.conversationService.RemoveParticipant(h.GetDB(c), userID, c.Param("conversationId"), c.Param("userId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Participant removed"})
}

// --- Read state ---

// MarkConversationRead: тело необязательно, as_of по умолчанию - сейчас
func (h *ChatHandler) MarkConversationRead(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.MarkConversationReadRequest
	if c.Request.ContentLength > 0 && !h.BindAndValidate_JSON(c, &req) {
		return
	}

	conversationID := c.Param("conversationId")
	if err := h.unreadService.MarkConversationRead(h.GetDB(c), userID, conversationID, req.AsOf); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation marked as read"})
}

func (h *ChatHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	conversationID := c.Param("conversationId")
	count, err := h.unreadService.UnreadCount(h.GetDB(c), userID, conversationID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UnreadCountResponse{ConversationID: conversationID, UnreadCount: count})
}

// --- Messages ---

func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	page, pageSize := h.ParsePagination(c)
	response, err := h.messageService.GetMessages(h.GetDB(c), userID, c.Param("conversationId"), page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	message, err := h.messageService.SendMessage(h.GetDB(c), userID, c.Param("conversationId"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

func (h *ChatHandler) EditMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.EditMessageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	message, err := h.messageService.EditMessage(h.GetDB(c), userID, c.Param("messageId"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, message)
}
