// Room HTTP handlers.
//
// This file exposes the room lifecycle:
//   - GET  /room/{id}           (view: room, messages oldest first, participants)
//   - GET  /room/create         (form page)
//   - POST /room/create         (create; topic resolved case-insensitively)
//   - GET  /room/{id}/update    (form page, host only)
//   - POST /room/{id}/update    (edit, host only)
//   - GET  /room/{id}/delete    (confirm, host only)
//   - POST /room/{id}/delete    (delete with its messages, host only)
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-forum-backend/internal/http/middleware"
	"github.com/tbourn/go-forum-backend/internal/services"
)

// RoomRequest is the room form used by both create and update.
type RoomRequest struct {
	Topic       string `form:"topic" json:"topic" example:"Go"`
	Name        string `form:"name" json:"name" example:"Generics in practice"`
	Description string `form:"description" json:"description" example:"Share what worked."`
}

func (r RoomRequest) input() services.RoomInput {
	return services.RoomInput{Topic: r.Topic, Name: r.Name, Description: r.Description}
}

// ViewRoom godoc
// @Summary      View a room
// @Tags         rooms
// @Produce      json
// @Param        id path string true "Room ID"
// @Success      200 {object} services.RoomView
// @Failure      404 {object} ErrorResponse
// @Router       /room/{id} [get]
func (h *Handlers) ViewRoom(c *gin.Context) {
	view, err := h.rooms.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, view)
}

// CreateRoomPage godoc
// @Summary      Room creation page
// @Description  Returns the form context with every topic to choose from.
// @Tags         rooms
// @Produce      json
// @Success      200 {object} PageResponse
// @Success      302 "Anonymous; redirects to /login"
// @Router       /room/create [get]
func (h *Handlers) CreateRoomPage(c *gin.Context) {
	topics, err := h.topics(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, PageResponse{Page: "create", Topics: topics})
}

// CreateRoom godoc
// @Summary      Create a room
// @Description  The signed-in user becomes the host. An unknown topic name creates the topic.
// @Tags         rooms
// @Accept       x-www-form-urlencoded
// @Accept       json
// @Param        body body RoomRequest true "Room form"
// @Success      302 "Created; redirects to /"
// @Failure      400 {object} ErrorResponse
// @Router       /room/create [post]
func (h *Handlers) CreateRoom(c *gin.Context) {
	var req RoomRequest
	if !bind(c, &req, services.ErrInvalidRoom.Error()) {
		middleware.ObserveForumAction(middleware.ActionRoomCreate, middleware.OutcomeInvalid)
		return
	}
	if _, err := h.rooms.Create(c.Request.Context(), middleware.ActorFrom(c), req.input()); err != nil {
		middleware.ObserveForumAction(middleware.ActionRoomCreate, serviceError(c, err))
		return
	}
	middleware.ObserveForumAction(middleware.ActionRoomCreate, middleware.OutcomeOK)
	seeOther(c, "/")
}

// UpdateRoomPage godoc
// @Summary      Room edit page
// @Tags         rooms
// @Produce      json
// @Produce      plain
// @Param        id path string true "Room ID"
// @Success      200 {object} PageResponse
// @Failure      403 {string} string "You are not allowed here!!"
// @Failure      404 {object} ErrorResponse
// @Router       /room/{id}/update [get]
func (h *Handlers) UpdateRoomPage(c *gin.Context) {
	ctx := c.Request.Context()
	room, err := h.rooms.Editable(ctx, middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	topics, err := h.topics(ctx)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, PageResponse{Page: "update", Topics: topics, Room: room})
}

// UpdateRoom godoc
// @Summary      Edit a room
// @Description  Only the host may edit. Every field is overwritten.
// @Tags         rooms
// @Accept       x-www-form-urlencoded
// @Accept       json
// @Produce      plain
// @Param        id   path string      true "Room ID"
// @Param        body body RoomRequest true "Room form"
// @Success      302 "Updated; redirects to /"
// @Failure      400 {object} ErrorResponse
// @Failure      403 {string} string "You are not allowed here!!"
// @Failure      404 {object} ErrorResponse
// @Router       /room/{id}/update [post]
func (h *Handlers) UpdateRoom(c *gin.Context) {
	var req RoomRequest
	if !bind(c, &req, services.ErrInvalidRoom.Error()) {
		middleware.ObserveForumAction(middleware.ActionRoomUpdate, middleware.OutcomeInvalid)
		return
	}
	if _, err := h.rooms.Update(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.input()); err != nil {
		middleware.ObserveForumAction(middleware.ActionRoomUpdate, serviceError(c, err))
		return
	}
	middleware.ObserveForumAction(middleware.ActionRoomUpdate, middleware.OutcomeOK)
	seeOther(c, "/")
}

// DeleteRoomPage godoc
// @Summary      Confirm room deletion
// @Tags         rooms
// @Produce      json
// @Produce      plain
// @Param        id path string true "Room ID"
// @Success      200 {object} ConfirmResponse
// @Failure      403 {string} string "You are not allowed here!!"
// @Failure      404 {object} ErrorResponse
// @Router       /room/{id}/delete [get]
func (h *Handlers) DeleteRoomPage(c *gin.Context) {
	room, err := h.rooms.Editable(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, ConfirmResponse{Page: "delete", Obj: room})
}

// DeleteRoom godoc
// @Summary      Delete a room
// @Description  Only the host may delete. The room's messages are deleted with it.
// @Tags         rooms
// @Produce      plain
// @Param        id path string true "Room ID"
// @Success      302 "Deleted; redirects to /"
// @Failure      403 {string} string "You are not allowed here!!"
// @Failure      404 {object} ErrorResponse
// @Router       /room/{id}/delete [post]
func (h *Handlers) DeleteRoom(c *gin.Context) {
	if err := h.rooms.Delete(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		middleware.ObserveForumAction(middleware.ActionRoomDelete, serviceError(c, err))
		return
	}
	middleware.ObserveForumAction(middleware.ActionRoomDelete, middleware.OutcomeOK)
	seeOther(c, "/")
}
