package authhandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"drawboardgo/internal/services/user"
)

const sessionCookie = "board_session"

type Handler struct {
	svc user.IUserService
}

func New(svc user.IUserService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/auth/register", h.register)
	r.POST("/auth/login", h.login)
	r.POST("/auth/logout", h.logout)
	r.GET("/auth/me", h.me)
}

// RequireAuth rejects requests without a live session and stores the
// username in the gin context for downstream handlers.
func (h *Handler) RequireAuth(ginCtx *gin.Context) {
	username, err := h.currentUser(ginCtx)
	if err != nil {
		ginCtx.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}
	ginCtx.Set("username", username)
	ginCtx.Next()
}

func (h *Handler) currentUser(ginCtx *gin.Context) (string, error) {
	token, err := ginCtx.Cookie(sessionCookie)
	if err != nil {
		return "", user.ErrNoSession
	}
	return h.svc.Current(ginCtx.Request.Context(), token)
}

// @Summary		Register a new user
// @Description	Creates an account from a credential pair.
// @Tags			Auth
// @Param			body	body	CredentialsBody	true	"Credentials"
// @Success		201
// @Failure		400	{object}	ErrorResponse
// @Failure		409	{object}	ErrorResponse
// @Router			/auth/register [post]
func (h *Handler) register(ginCtx *gin.Context) {
	var body CredentialsBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	err := h.svc.Register(ginCtx.Request.Context(), body.Username, body.Password)
	switch {
	case errors.Is(err, user.ErrUsernameTaken):
		ginCtx.JSON(http.StatusConflict, &ErrorResponse{Error: err.Error()})
	case errors.Is(err, user.ErrWeakPassword):
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
	case err != nil:
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
	default:
		ginCtx.Status(http.StatusCreated)
	}
}

// @Summary		Log in
// @Description	Verifies credentials and starts a cookie session.
// @Tags			Auth
// @Param			body	body		CredentialsBody	true	"Credentials"
// @Success		200		{object}	UserResponse
// @Failure		401		{object}	ErrorResponse
// @Router			/auth/login [post]
func (h *Handler) login(ginCtx *gin.Context) {
	var body CredentialsBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	token, err := h.svc.Login(ginCtx.Request.Context(), body.Username, body.Password)
	if errors.Is(err, user.ErrInvalidCredentials) {
		ginCtx.JSON(http.StatusUnauthorized, &ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}

	ginCtx.SetCookie(sessionCookie, token, 0, "/", "", false, true)
	ginCtx.JSON(http.StatusOK, UserResponse{Authenticated: true, Username: body.Username})
}

// @Summary		Log out
// @Description	Ends the current session.
// @Tags			Auth
// @Success		204
// @Router			/auth/logout [post]
func (h *Handler) logout(ginCtx *gin.Context) {
	if token, err := ginCtx.Cookie(sessionCookie); err == nil {
		_ = h.svc.Logout(ginCtx.Request.Context(), token)
	}
	ginCtx.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	ginCtx.Status(http.StatusNoContent)
}

// @Summary		Current user
// @Description	Reports whether the caller is authenticated and as whom.
// @Tags			Auth
// @Success		200	{object}	UserResponse
// @Router			/auth/me [get]
func (h *Handler) me(ginCtx *gin.Context) {
	username, err := h.currentUser(ginCtx)
	if err != nil {
		ginCtx.JSON(http.StatusOK, UserResponse{Authenticated: false})
		return
	}
	ginCtx.JSON(http.StatusOK, UserResponse{Authenticated: true, Username: username})
}
