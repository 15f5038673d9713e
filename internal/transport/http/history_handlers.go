package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pulsechat/pulsechat-server/internal/proto"
	"github.com/pulsechat/pulsechat-server/internal/store"
)

type historyHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// list returns persisted messages for a conversation, oldest first.
// Exactly one of ?peer= (direct) or ?group= must be given. Ciphertext
// is returned as stored; decryption is the client's business.
func (h *historyHandlers) list(c *gin.Context) {
	userID := c.GetString(ContextKeyUserID)
	peer := c.Query("peer")
	group := c.Query("group")

	if (peer == "") == (group == "") {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "exactly one of peer and group is required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	var beforeID *int64
	if raw := c.Query("before"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "before must be a message id"})
			return
		}
		beforeID = &id
	}

	var (
		messages []*store.Message
		err      error
	)
	if peer != "" {
		messages, err = h.store.ListDirectMessages(c.Request.Context(), userID, peer, limit, beforeID)
	} else {
		var member bool
		member, err = h.store.IsMember(c.Request.Context(), userID, group)
		if err == nil && !member {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a member of the group"})
			return
		}
		if err == nil {
			messages, err = h.store.ListGroupMessages(c.Request.Context(), group, limit, beforeID)
		}
	}
	if err != nil {
		h.log.Error().Err(err).Msg("list messages failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load messages"})
		return
	}

	out := make([]proto.EventMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, eventMessageFromStore(msg))
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

type createGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *historyHandlers) createGroup(c *gin.Context) {
	userID := c.GetString(ContextKeyUserID)

	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name is required"})
		return
	}

	group, err := h.store.CreateGroup(c.Request.Context(), req.Name, userID)
	if err != nil {
		h.log.Error().Err(err).Msg("create group failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create group"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": group.ID, "name": group.Name})
}

type addMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *historyHandlers) addMember(c *gin.Context) {
	callerID := c.GetString(ContextKeyUserID)
	groupID := c.Param("id")

	member, err := h.store.IsMember(c.Request.Context(), callerID, groupID)
	if err != nil {
		h.log.Error().Err(err).Msg("membership check failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to add member"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a member of the group"})
		return
	}

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user_id is required"})
		return
	}

	if err := h.store.AddMember(c.Request.Context(), groupID, req.UserID); err != nil {
		h.log.Error().Err(err).Msg("add member failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to add member"})
		return
	}

	// Takes effect on the new member's next reconnect; live connections
	// keep the room set resolved at setup.
	c.Status(http.StatusNoContent)
}
