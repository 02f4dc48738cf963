package rooms

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/roomhive/roomhive/internal/authz"
	"github.com/roomhive/roomhive/internal/platform/httpx"
)

// Handler exposes the rooms service HTTP API.
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

// Routes mounts the rooms endpoints. Rooms have no ownership; every check is
// a role-level grant.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.guard.RequireIdentity)
	r.With(h.guard.Require(authz.ResourceRoom, authz.ActionRead)).Get("/", h.List)
	r.With(h.guard.Require(authz.ResourceRoom, authz.ActionRead)).Get("/{id}", h.Get)
	r.With(h.guard.Require(authz.ResourceRoom, authz.ActionCreate)).Post("/", h.Create)
	r.With(h.guard.Require(authz.ResourceRoom, authz.ActionUpdate)).Put("/{id}", h.Update)
	r.With(h.guard.Require(authz.ResourceRoom, authz.ActionDelete)).Delete("/{id}", h.Delete)
	return r
}

type roomResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Equipment string `json:"equipment"`
	Location  string `json:"location"`
	Available bool   `json:"available"`
}

func toResponse(room Room) roomResponse {
	return roomResponse{
		ID:        room.ID,
		Name:      room.Name,
		Capacity:  room.Capacity,
		Equipment: room.Equipment,
		Location:  room.Location,
		Available: room.Available,
	}
}

// List handles GET /rooms.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list rooms", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	result := make([]roomResponse, len(list))
	for i, room := range list {
		result[i] = toResponse(room)
	}
	httpx.JSON(w, http.StatusOK, result)
}

// Get handles GET /rooms/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	room, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(room))
}

type createRequest struct {
	Name      string `json:"name" validate:"required"`
	Capacity  int    `json:"capacity" validate:"required,gt=0"`
	Equipment string `json:"equipment"`
	Location  string `json:"location" validate:"required"`
}

// Create handles POST /rooms.
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
	room, err := h.service.Create(r.Context(), Room{
		Name:      req.Name,
		Capacity:  req.Capacity,
		Equipment: req.Equipment,
		Location:  req.Location,
		Available: true,
	})
	if err != nil {
		h.logger.Error("create room", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(room))
}

type updateRequest struct {
	Name      *string `json:"name"`
	Capacity  *int    `json:"capacity" validate:"omitempty,gt=0"`
	Equipment *string `json:"equipment"`
	Location  *string `json:"location"`
	Available *bool   `json:"available"`
}

// Update handles PUT /rooms/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
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
	room, err := h.service.Update(r.Context(), id, UpdateInput{
		Name:      req.Name,
		Capacity:  req.Capacity,
		Equipment: req.Equipment,
		Location:  req.Location,
		Available: req.Available,
	})
	if err != nil {
		h.logger.Error("update room", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(room))
}

// Delete handles DELETE /rooms/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
