// Browse HTTP handlers.
//
// This file exposes the read-only pages:
//   - GET /              (home: search rooms by topic, name or description)
//   - GET /topics        (topic list filtered by q)
//   - GET /activity      (every message, newest first, ETag support)
//   - GET /profile/{id}  (a user's rooms, messages and topics)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Home godoc
// @Summary      Home page
// @Description  Rooms whose topic, name or description contains q (case-insensitive), their count,
// @Description  the first sidebar topics, and the messages of rooms whose topic matches q.
// @Tags         browse
// @Produce      json
// @Param        q query string false "Search text"
// @Success      200 {object} services.HomeView
// @Router       / [get]
func (h *Handlers) Home(c *gin.Context) {
	view, err := h.browse.Home(c.Request.Context(), c.Query("q"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, view)
}

// Topics godoc
// @Summary      Topics page
// @Description  Every topic whose name contains q, with its room count.
// @Tags         browse
// @Produce      json
// @Param        q query string false "Search text"
// @Success      200 {object} services.TopicsView
// @Router       /topics [get]
func (h *Handlers) Topics(c *gin.Context) {
	view, err := h.browse.Topics(c.Request.Context(), c.Query("q"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, view)
}

// Activity godoc
// @Summary      Activity feed
// @Description  Every message, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags         browse
// @Produce      json
// @Param        If-None-Match header string false "Return 304 if ETag matches"
// @Success      200 {object} services.ActivityView
// @Header       200 {string} ETag "Weak ETag for current result"
// @Success      304 {string} string "Not Modified"
// @Router       /activity [get]
func (h *Handlers) Activity(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if count, maxTS, err := h.browse.ActivityStamp(ctx); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"activity:%d:%d"`, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	view, err := h.browse.Activity(ctx)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, view)
}

// Profile godoc
// @Summary      User profile
// @Tags         browse
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} services.ProfileView
// @Failure      404 {object} ErrorResponse
// @Router       /profile/{id} [get]
func (h *Handlers) Profile(c *gin.Context) {
	view, err := h.browse.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, view)
}
