// Account HTTP handlers.
//
// This file exposes the session endpoints:
//   - GET  /login     (page)
//   - POST /login     (authenticate with email or username)
//   - GET  /register  (page)
//   - POST /register  (create account and sign in)
//   - GET  /logout    (end session)
//
// A successful login or registration sets the session cookie and redirects.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-forum-backend/internal/http/middleware"
	"github.com/tbourn/go-forum-backend/internal/services"
)

//
// DTOs
//

// LoginRequest is the login form. Email carries either an email address or a
// username.
type LoginRequest struct {
	Email    string `form:"email" json:"email" example:"alice@example.com"`
	Password string `form:"password" json:"password" example:"correct horse"`
	// Next is where to go after signing in; only local paths are honored.
	Next string `form:"next" json:"next" example:"/room/create"`
}

// RegisterRequest is the registration form.
type RegisterRequest struct {
	Username  string `form:"username" json:"username" binding:"required,max=150,username" example:"alice"`
	Email     string `form:"email" json:"email" binding:"required,email,max=254" example:"alice@example.com"`
	Name      string `form:"name" json:"name" binding:"max=200" example:"Alice"`
	Password1 string `form:"password1" json:"password1" binding:"required,min=8,max=72" example:"correct horse"`
	Password2 string `form:"password2" json:"password2" binding:"required,eqfield=Password1" example:"correct horse"`
}

// LoginPage godoc
// @Summary      Login page
// @Description  Returns the login page context. Signed-in users are redirected home.
// @Tags         accounts
// @Produce      json
// @Success      200 {object} PageResponse
// @Success      302 "Already signed in"
// @Router       /login [get]
func (h *Handlers) LoginPage(c *gin.Context) {
	ok(c, PageResponse{Page: "login"})
}

// Login godoc
// @Summary      Sign in
// @Description  Authenticates with an email address or username. The email is resolved to its account's username first.
// @Tags         accounts
// @Accept       x-www-form-urlencoded
// @Accept       json
// @Produce      json
// @Param        body body LoginRequest true "Credentials"
// @Success      302 "Signed in; redirects to next or /"
// @Failure      401 {object} ErrorResponse "Email/Username or password is incorrect."
// @Failure      429 {object} ErrorResponse
// @Router       /login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req, msgInvalidCredentials) {
		middleware.ObserveForumAction(middleware.ActionLogin, middleware.OutcomeInvalid)
		return
	}
	if req.Next == "" {
		req.Next = c.Query("next")
	}

	sess, err := h.auth.Login(c.Request.Context(), middleware.ActorFrom(c), services.LoginInput{
		Identifier: req.Email,
		Password:   req.Password,
	})
	if err != nil {
		middleware.ObserveForumAction(middleware.ActionLogin, serviceError(c, err))
		return
	}

	middleware.SetSessionCookie(c, h.opts.Cookie, sess.Issued.Token, sess.Issued.ExpiresAt)
	middleware.ObserveForumAction(middleware.ActionLogin, middleware.OutcomeOK)
	seeOther(c, middleware.SafeNext(req.Next))
}

// RegisterPage godoc
// @Summary      Registration page
// @Tags         accounts
// @Produce      json
// @Success      200 {object} PageResponse
// @Success      302 "Already signed in"
// @Router       /register [get]
func (h *Handlers) RegisterPage(c *gin.Context) {
	ok(c, PageResponse{Page: "register"})
}

// Register godoc
// @Summary      Create an account
// @Description  Creates the account with a lowercased username and signs it in.
// @Tags         accounts
// @Accept       x-www-form-urlencoded
// @Accept       json
// @Produce      json
// @Param        body body RegisterRequest true "Registration form"
// @Success      302 "Registered; redirects to /"
// @Failure      400 {object} ErrorResponse "An error occurred during registration."
// @Failure      409 {object} ErrorResponse
// @Router       /register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if !bind(c, &req, msgRegistrationFailed) {
		middleware.ObserveForumAction(middleware.ActionRegister, middleware.OutcomeInvalid)
		return
	}

	sess, err := h.auth.Register(c.Request.Context(), middleware.ActorFrom(c), services.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Name:      req.Name,
		Password1: req.Password1,
		Password2: req.Password2,
	})
	if err != nil {
		middleware.ObserveForumAction(middleware.ActionRegister, serviceError(c, err))
		return
	}

	middleware.SetSessionCookie(c, h.opts.Cookie, sess.Issued.Token, sess.Issued.ExpiresAt)
	middleware.ObserveForumAction(middleware.ActionRegister, middleware.OutcomeOK)
	seeOther(c, "/")
}

// Logout godoc
// @Summary      Sign out
// @Description  Revokes the session and clears the cookie. Works for anonymous visitors too.
// @Tags         accounts
// @Success      302 "Redirects to /"
// @Router       /logout [get]
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.ActorFrom(c)); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("logout: revoke session")
	}
	middleware.ClearSessionCookie(c, h.opts.Cookie)
	seeOther(c, "/")
}
