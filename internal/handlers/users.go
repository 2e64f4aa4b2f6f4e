package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ChrisAbdo/event-manager/internal/models"
	"github.com/ChrisAbdo/event-manager/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	statusOK = "ok"

	errInvalidPage = "page must be an integer between 1 and 21474836"
	errInvalidSize = "size must be an integer between 1 and 100"
)

// ProfessionalRequest toggles the professional flag of a user.
type ProfessionalRequest struct {
	IsProfessional *bool `json:"is_professional" binding:"required" example:"true"`
}

// @Summary      Health check
// @Description  Reports process and database health.
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	if err := h.services.Ready(c.Request.Context()); err != nil {
		if h.log != nil {
			h.log.Errorw("health_db_unavailable", "err", err)
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "database": statusOK})
}

// @Summary      Current user
// @Tags         users
// @Produce      json
// @Success      200  {object}  models.User
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/v1/users/me [get]
// @Security     BearerAuth
func (h *Handler) getMe(c *gin.Context) {
	u, err := h.services.Users.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.fail(c, "users_get_me_failed", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// @Summary      Update current user
// @Description  Partial update of the caller's profile. The role cannot be changed here.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      models.UserUpdate  true  "Fields to change"
// @Success      200   {object}  models.User
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/v1/users/me [patch]
// @Security     BearerAuth
func (h *Handler) updateMe(c *gin.Context) {
	var input models.UserUpdate
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}
	me := currentUserID(c)
	u, err := h.services.UpdateProfile(c.Request.Context(), me, me, input, false)
	if err != nil {
		h.fail(c, "users_update_me_failed", err, "user_id", me)
		return
	}
	c.JSON(http.StatusOK, u)
}

// @Summary      List users
// @Tags         users
// @Produce      json
// @Param        page  query     int  false  "Page number, 1..21474836"  default(1)
// @Param        size  query     int  false  "Page size, 1..100"         default(10)
// @Success      200   {object}  models.UserPage
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /api/v1/users [get]
// @Security     BearerAuth
func (h *Handler) listUsers(c *gin.Context) {
	p := service.ListParams{Page: service.DefaultPage, Size: service.DefaultPageSize}
	if qs := c.Query("page"); qs != "" {
		v, err := strconv.Atoi(qs)
		if err != nil || v < 1 || v > service.MaxPage {
			badRequest(c, errInvalidPage)
			return
		}
		p.Page = v
	}
	if qs := c.Query("size"); qs != "" {
		v, err := strconv.Atoi(qs)
		if err != nil || v < 1 || v > service.MaxPageSize {
			badRequest(c, errInvalidSize)
			return
		}
		p.Size = v
	}

	page, err := h.services.Users.List(c.Request.Context(), p)
	if err != nil {
		h.fail(c, "users_list_failed", err, "page", p.Page, "size", p.Size)
		return
	}
	c.JSON(http.StatusOK, page)
}

// pathUserID parses :id and writes a 400 when it is not a UUID.
func pathUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, errInvalidUserID)
		return uuid.Nil, false
	}
	return id, true
}

// @Summary      Get user
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User id (UUID)"
// @Success      200  {object}  models.User
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/v1/users/{id} [get]
// @Security     BearerAuth
func (h *Handler) getUser(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		return
	}
	u, err := h.services.Users.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "users_get_failed", err, "user_id", id)
		return
	}
	c.JSON(http.StatusOK, u)
}

// @Summary      Update user
// @Description  Administrative partial update. A role change must be a single-step promotion.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "User id (UUID)"
// @Param        body  body      models.UserUpdate  true  "Fields to change"
// @Success      200   {object}  models.User
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/v1/users/{id} [patch]
// @Security     BearerAuth
func (h *Handler) updateUser(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		return
	}
	var input models.UserUpdate
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}
	u, err := h.services.UpdateProfile(c.Request.Context(), currentUserID(c), id, input, true)
	if err != nil {
		h.fail(c, "users_update_failed", err, "user_id", id)
		return
	}
	c.JSON(http.StatusOK, u)
}

// @Summary      Set professional status
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      string               true  "User id (UUID)"
// @Param        body  body      ProfessionalRequest  true  "New status"
// @Success      200   {object}  models.User
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/v1/users/{id}/professional [patch]
// @Security     BearerAuth
func (h *Handler) setProfessional(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		return
	}
	var input ProfessionalRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}
	u, err := h.services.SetProfessional(c.Request.Context(), currentUserID(c), id, *input.IsProfessional)
	if err != nil {
		h.fail(c, "users_set_professional_failed", err, "user_id", id)
		return
	}
	c.JSON(http.StatusOK, u)
}

// @Summary      Unlock user
// @Description  Clears the lock and the failed login counter.
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User id (UUID)"
// @Success      200  {object}  models.User
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/v1/users/{id}/unlock [post]
// @Security     BearerAuth
func (h *Handler) unlockUser(c *gin.Context) {
	h.withUser(c, "users_unlock_failed", func(ctx context.Context, actor, id uuid.UUID) (any, error) {
		return h.services.Unlock(ctx, actor, id)
	})
}

// @Summary      Delete user
// @Tags         users
// @Param        id   path  string  true  "User id (UUID)"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/v1/users/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteUser(c *gin.Context) {
	h.withUser(c, "users_delete_failed", func(ctx context.Context, actor, id uuid.UUID) (any, error) {
		return nil, h.services.Users.Delete(ctx, actor, id)
	})
}

// withUser runs fn for the :id user. A nil result is answered with 204.
func (h *Handler) withUser(c *gin.Context, logKey string, fn func(ctx context.Context, actor, id uuid.UUID) (any, error)) {
	id, ok := pathUserID(c)
	if !ok {
		return
	}
	out, err := fn(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		h.fail(c, logKey, err, "user_id", id)
		return
	}
	if out == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, out)
}
