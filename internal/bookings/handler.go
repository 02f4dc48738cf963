package bookings

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/roomhive/roomhive/internal/authz"
	"github.com/roomhive/roomhive/internal/platform/httpx"
	"github.com/roomhive/roomhive/internal/shared"
)

// HeaderMFACode carries the second factor required to cancel a booking.
const HeaderMFACode = "X-MFA-Code"

// HeaderIdempotencyKey deduplicates booking creation retries.
const HeaderIdempotencyKey = "X-Idempotency-Key"

// Handler exposes the bookings service HTTP API.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	guard       authz.Guard
	validate    *validator.Validate
	idempotency *shared.IdempotencyStore
	mfaCode     string
}

// NewHandler constructs a Handler. idempotency may be nil in tests.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Guard, idempotency *shared.IdempotencyStore, mfaCode string) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		guard:       guard,
		validate:    validator.New(),
		idempotency: idempotency,
		mfaCode:     mfaCode,
	}
}

// Routes mounts the bookings endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.guard.RequireIdentity)
	r.With(h.guard.Require(authz.ResourceBooking, authz.ActionRead)).Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/user/{userID}", h.History)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Cancel)
	r.With(h.guard.Require(authz.ResourceBooking, authz.ActionForceCancel)).Delete("/{id}/force", h.ForceCancel)
	return r
}

// AvailabilityRoutes mounts the availability check. Checking a room's
// schedule is a room read, open to every role.
func (h *Handler) AvailabilityRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.guard.RequireIdentity)
	r.With(h.guard.Require(authz.ResourceRoom, authz.ActionRead)).Get("/", h.Availability)
	return r
}

type bookingResponse struct {
	ID        int64  `json:"id"`
	Reference string `json:"reference"`
	UserID    int64  `json:"user_id"`
	RoomID    int64  `json:"room_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toResponse(b Booking) bookingResponse {
	resp := bookingResponse{
		ID:        b.ID,
		Reference: b.Reference,
		UserID:    b.UserID,
		RoomID:    b.RoomID,
		StartTime: b.StartTime.Format(time.RFC3339),
		EndTime:   b.EndTime.Format(time.RFC3339),
		Status:    b.Status,
	}
	if !b.CreatedAt.IsZero() {
		resp.CreatedAt = b.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

func toResponseList(list []Booking) []bookingResponse {
	result := make([]bookingResponse, len(list))
	for i, b := range list {
		result[i] = toResponse(b)
	}
	return result
}

// List handles GET /bookings. Supports page and per_page query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	list, pagination, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list bookings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data": toResponseList(list),
		"pagination": map[string]int{
			"page":        pagination.Page,
			"per_page":    pagination.PerPage,
			"total":       pagination.Total,
			"total_pages": pagination.TotalPages,
		},
	})
}

type createRequest struct {
	UserID    int64  `json:"user_id" validate:"required,gt=0"`
	RoomID    int64  `json:"room_id" validate:"required,gt=0"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// Create handles POST /bookings. The intended owner comes from the payload,
// so the ownership check runs against it before anything is written.
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
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_time must be RFC3339")
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_time must be RFC3339")
		return
	}

	if err := h.guard.AuthorizeOwner(r.Context(), authz.ActionCreate, authz.ResourceBooking, req.UserID); err != nil {
		httpx.RespondError(w, err)
		return
	}

	if key := r.Header.Get(HeaderIdempotencyKey); key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "bookings"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate", "request already processed")
				return
			}
			h.logger.Error("idempotency check", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
	}

	b, err := h.service.Create(r.Context(), CreateInput{
		UserID:    req.UserID,
		RoomID:    req.RoomID,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		h.logger.Error("create booking", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(b))
}

type updateRequest struct {
	RoomID    *int64  `json:"room_id" validate:"omitempty,gt=0"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

// Update handles PUT /bookings/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.guard.Authorize(r.Context(), authz.ActionUpdate, authz.ResourceBooking, id); err != nil {
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
	input := UpdateInput{RoomID: req.RoomID}
	if req.StartTime != nil {
		start, err := time.Parse(time.RFC3339, *req.StartTime)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_time must be RFC3339")
			return
		}
		input.StartTime = &start
	}
	if req.EndTime != nil {
		end, err := time.Parse(time.RFC3339, *req.EndTime)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_time must be RFC3339")
			return
		}
		input.EndTime = &end
	}
	b, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.logger.Error("update booking", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(b))
}

// Cancel handles DELETE /bookings/{id}. Requires the MFA header on top of
// the policy decision.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.guard.Authorize(r.Context(), authz.ActionCancel, authz.ResourceBooking, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !h.verifyMFA(r) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "MFA required or invalid code")
		return
	}
	b, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.logger.Error("cancel booking", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(b))
}

// ForceCancel handles DELETE /bookings/{id}/force. The force_cancel grant is
// role-checked by the route middleware; the MFA requirement still applies.
func (h *Handler) ForceCancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if !h.verifyMFA(r) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "MFA required or invalid code")
		return
	}
	b, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.logger.Error("force cancel booking", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(b))
}

// History handles GET /bookings/user/{userID}. Roles with an unconditional
// booking read see anyone's history; regular users only their own.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.guard.AuthorizeOwner(r.Context(), authz.ActionRead, authz.ResourceBooking, userID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.History(r.Context(), userID)
	if err != nil {
		h.logger.Error("booking history", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponseList(list))
}

// Availability handles GET /availability.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.ParseInt(r.URL.Query().Get("room_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "room_id is required")
		return
	}
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start_time"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_time must be RFC3339")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end_time"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_time must be RFC3339")
		return
	}
	available, err := h.service.Available(r.Context(), roomID, start, end)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"room_id": roomID, "available": available})
}

func (h *Handler) verifyMFA(r *http.Request) bool {
	return h.mfaCode != "" && r.Header.Get(HeaderMFACode) == h.mfaCode
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
