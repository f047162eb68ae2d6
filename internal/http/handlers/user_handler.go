// Profile edit HTTP handlers.
//
//   - GET  /user/update  (form page with the current account)
//   - POST /user/update  (multipart or urlencoded; optional avatar upload)
package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-forum-backend/internal/http/middleware"
	"github.com/tbourn/go-forum-backend/internal/media"
	"github.com/tbourn/go-forum-backend/internal/services"
)

// avatarField is the multipart field carrying the avatar image.
const avatarField = "avatar"

// ProfileRequest is the profile form. Every field is written.
type ProfileRequest struct {
	Name     string `form:"name" json:"name" example:"Alice"`
	Username string `form:"username" json:"username" binding:"required,max=150,username" example:"alice"`
	Email    string `form:"email" json:"email" binding:"required,email,max=254" example:"alice@example.com"`
	Bio      string `form:"bio" json:"bio" example:"Gopher."`
}

// UpdateUserPage godoc
// @Summary      Profile edit page
// @Tags         accounts
// @Produce      json
// @Success      200 {object} PageResponse
// @Success      302 "Anonymous; redirects to /login"
// @Router       /user/update [get]
func (h *Handlers) UpdateUserPage(c *gin.Context) {
	u, err := h.users.Current(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, PageResponse{Page: "update-user", User: u})
}

// UpdateUser godoc
// @Summary      Edit own profile
// @Description  Username is lowercased and re-checked for uniqueness. The avatar is validated by content.
// @Tags         accounts
// @Accept       multipart/form-data
// @Accept       x-www-form-urlencoded
// @Param        name     formData string false "Display name"
// @Param        username formData string true  "Username"
// @Param        email    formData string true  "Email"
// @Param        bio      formData string false "Bio"
// @Param        avatar   formData file   false "Avatar image (png, jpeg, gif, webp)"
// @Success      302 "Updated; redirects to /profile/{id}"
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Failure      415 {object} ErrorResponse
// @Router       /user/update [post]
func (h *Handlers) UpdateUser(c *gin.Context) {
	var req ProfileRequest
	if !bind(c, &req, services.ErrInvalidProfile.Error()) {
		middleware.ObserveForumAction(middleware.ActionProfileUpdate, middleware.OutcomeInvalid)
		return
	}

	avatar, err := h.readAvatar(c)
	if err != nil {
		middleware.ObserveForumAction(middleware.ActionProfileUpdate, serviceError(c, err))
		return
	}

	u, err := h.users.UpdateProfile(c.Request.Context(), middleware.ActorFrom(c), services.ProfileInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Bio:      req.Bio,
	}, avatar)
	if err != nil {
		middleware.ObserveForumAction(middleware.ActionProfileUpdate, serviceError(c, err))
		return
	}
	middleware.ObserveForumAction(middleware.ActionProfileUpdate, middleware.OutcomeOK)
	seeOther(c, "/profile/"+url.PathEscape(u.ID))
}

// readAvatar returns the uploaded avatar, or nil when none was sent.
func (h *Handlers) readAvatar(c *gin.Context) (*media.Image, error) {
	fh, err := c.FormFile(avatarField)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if fh.Size == 0 {
		return nil, nil
	}
	if fh.Size > h.opts.AvatarMaxBytes {
		return nil, media.ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return media.Read(f, h.opts.AvatarMaxBytes)
}
