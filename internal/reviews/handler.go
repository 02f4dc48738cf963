package reviews

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/roomhive/roomhive/internal/authz"
	"github.com/roomhive/roomhive/internal/platform/httpx"
)

// Handler exposes the reviews service HTTP API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guard    authz.Guard
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validate: validator.New()}
}

// Routes mounts the reviews endpoints. A room's review feed is readable by
// anyone who can read rooms or reviews; per-review writes go through the
// review policy with ownership resolution.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.guard.RequireIdentity)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.With(h.guard.Require(authz.ResourceReview, authz.ActionFlag)).Post("/{id}/flag", h.Flag)
	r.With(h.guard.RequireAny(
		authz.Pair(authz.ResourceRoom, authz.ActionRead),
		authz.Pair(authz.ResourceReview, authz.ActionRead),
	)).Get("/room/{roomID}", h.ListForRoom)
	return r
}

type reviewResponse struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	RoomID    int64  `json:"room_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	Status    string `json:"status"`
	IsFlagged bool   `json:"is_flagged"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toResponse(rv Review) reviewResponse {
	resp := reviewResponse{
		ID:        rv.ID,
		UserID:    rv.UserID,
		RoomID:    rv.RoomID,
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		Status:    rv.Status,
		IsFlagged: rv.IsFlagged,
	}
	if !rv.CreatedAt.IsZero() {
		resp.CreatedAt = rv.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

type createRequest struct {
	UserID  int64  `json:"user_id" validate:"required,gt=0"`
	RoomID  int64  `json:"room_id" validate:"required,gt=0"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=500"`
}

// Create handles POST /reviews.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.guard.AuthorizeOwner(r.Context(), authz.ActionCreate, authz.ResourceReview, req.UserID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rv, err := h.service.Create(r.Context(), CreateInput{
		UserID:  req.UserID,
		RoomID:  req.RoomID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		h.logger.Error("create review", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(rv))
}

type updateRequest struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=500"`
}

// Update handles PUT /reviews/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.guard.Authorize(r.Context(), authz.ActionUpdate, authz.ResourceReview, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rv, err := h.service.Update(r.Context(), id, UpdateInput{Rating: req.Rating, Comment: req.Comment})
	if err != nil {
		h.logger.Error("update review", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(rv))
}

// Delete handles DELETE /reviews/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.guard.Authorize(r.Context(), authz.ActionDelete, authz.ResourceReview, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "review deleted"})
}

// Flag handles POST /reviews/{id}/flag.
func (h *Handler) Flag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	rv, err := h.service.Flag(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(rv))
}

// ListForRoom handles GET /reviews/room/{roomID}.
func (h *Handler) ListForRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := pathID(r, "roomID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	list, err := h.service.ListForRoom(r.Context(), roomID)
	if err != nil {
		h.logger.Error("list room reviews", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	result := make([]reviewResponse, len(list))
	for i, rv := range list {
		result[i] = toResponse(rv)
	}
	httpx.JSON(w, http.StatusOK, result)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
