// Message HTTP handlers.
//
// This file exposes message endpoints:
//   - POST /room/{id}             (post; joins the room's participants)
//   - GET  /message/{id}/delete   (confirm, author only)
//   - POST /message/{id}/delete   (delete, author only)
//
// Posting honors an optional Idempotency-Key header. A replayed key answers
// with the same redirect and inserts nothing.
package handlers

import (
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-forum-backend/internal/http/middleware"
)

// MessageRequest is the message form.
type MessageRequest struct {
	Body string `form:"body" json:"body" example:"Hello, room!"`
}

// PostMessage godoc
// @Summary      Post a message
// @Description  Appends a message to the room and adds the author to its participants.
// @Description  Provide Idempotency-Key to make retries safe.
// @Tags         messages
// @Accept       x-www-form-urlencoded
// @Accept       json
// @Param        id              path   string         true  "Room ID"
// @Param        Idempotency-Key header string         false "Idempotency key"
// @Param        body            body   MessageRequest true  "Message"
// @Success      302 "Posted; redirects to /room/{id}"
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /room/{id} [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	roomID := c.Param("id")
	var req MessageRequest
	if !bind(c, &req, "invalid message") {
		middleware.ObserveForumAction(middleware.ActionMessagePost, middleware.OutcomeInvalid)
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	res, err := h.msgs.Post(c.Request.Context(), middleware.ActorFrom(c), roomID, req.Body, key)
	if err != nil {
		middleware.ObserveForumAction(middleware.ActionMessagePost, serviceError(c, err))
		return
	}
	outcome := middleware.OutcomeOK
	if res.Replayed {
		outcome = middleware.OutcomeReplayed
		c.Header("Idempotent-Replay", "true")
	}
	middleware.ObserveForumAction(middleware.ActionMessagePost, outcome)
	seeOther(c, "/room/"+url.PathEscape(roomID))
}

// DeleteMessagePage godoc
// @Summary      Confirm message deletion
// @Tags         messages
// @Produce      json
// @Produce      plain
// @Param        id path string true "Message ID"
// @Success      200 {object} ConfirmResponse
// @Failure      403 {string} string "You are not allowed here!!"
// @Failure      404 {object} ErrorResponse
// @Router       /message/{id}/delete [get]
func (h *Handlers) DeleteMessagePage(c *gin.Context) {
	msg, err := h.msgs.Deletable(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, ConfirmResponse{Page: "delete", Obj: msg})
}

// DeleteMessage godoc
// @Summary      Delete a message
// @Description  Only the author may delete.
// @Tags         messages
// @Produce      plain
// @Param        id path string true "Message ID"
// @Success      302 "Deleted; redirects to /"
// @Failure      403 {string} string "You are not allowed here!!"
// @Failure      404 {object} ErrorResponse
// @Router       /message/{id}/delete [post]
func (h *Handlers) DeleteMessage(c *gin.Context) {
	if err := h.msgs.Delete(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		middleware.ObserveForumAction(middleware.ActionMessageDelete, serviceError(c, err))
		return
	}
	middleware.ObserveForumAction(middleware.ActionMessageDelete, middleware.OutcomeOK)
	seeOther(c, "/")
}
