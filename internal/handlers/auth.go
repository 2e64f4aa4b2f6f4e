package handlers

import (
	"net/http"

	"github.com/ChrisAbdo/event-manager/internal/models"

	"github.com/gin-gonic/gin"
)

// RefreshRequest carries a refresh token for /auth/refresh and /auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// @Summary      Register
// @Description  Creates an AUTHENTICATED user. A nickname is generated when omitted.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.UserCreate  true  "Signup payload"
// @Success      201   {object}  models.User
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/register [post]
func (h *Handler) register(c *gin.Context) {
	var input models.UserCreate
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	u, err := h.services.Register(c.Request.Context(), input)
	if err != nil {
		h.fail(c, "auth_register_failed", err, "email", input.Email)
		return
	}

	c.JSON(http.StatusCreated, u)
}

// @Summary      Login
// @Description  Returns an access/refresh token pair. The access token is also set as an HttpOnly cookie.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.LoginRequest  true  "Credentials"
// @Success      200   {object}  models.TokenPair
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/login [post]
func (h *Handler) login(c *gin.Context) {
	var input models.LoginRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	pair, err := h.services.Login(c.Request.Context(), input)
	if err != nil {
		h.fail(c, "auth_sign_in_failed", err, "email", input.Email)
		return
	}

	h.setAccessCookie(c, pair.AccessToken, pair.ExpiresIn)
	c.JSON(http.StatusOK, pair)
}

// @Summary      Refresh tokens
// @Description  Exchanges a refresh token for a new pair. Each refresh token works once.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      RefreshRequest  true  "Refresh token"
// @Success      200   {object}  models.TokenPair
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /auth/refresh [post]
func (h *Handler) refresh(c *gin.Context) {
	var input RefreshRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	pair, err := h.services.Refresh(c.Request.Context(), input.RefreshToken)
	if err != nil {
		h.fail(c, "auth_refresh_failed", err)
		return
	}

	h.setAccessCookie(c, pair.AccessToken, pair.ExpiresIn)
	c.JSON(http.StatusOK, pair)
}

// @Summary      Logout
// @Description  Revokes the refresh token and clears the access token cookie.
// @Tags         auth
// @Accept       json
// @Param        body  body  RefreshRequest  true  "Refresh token"
// @Success      204
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/logout [post]
func (h *Handler) logout(c *gin.Context) {
	var input RefreshRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	if err := h.services.Logout(c.Request.Context(), input.RefreshToken); err != nil {
		h.fail(c, "auth_logout_failed", err)
		return
	}

	h.setAccessCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

func (h *Handler) setAccessCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenCookie, token, maxAge, "/", "", h.secureCookies, true)
}
