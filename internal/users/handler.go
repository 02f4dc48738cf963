package users

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

// Handler exposes the users service HTTP API.
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

// Routes mounts the users endpoints. Register and login stay outside the
// identity middleware; everything else requires identity headers.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireIdentity)
		r.With(h.guard.Require(authz.ResourceUser, authz.ActionRead)).Get("/", h.List)
		r.With(h.guard.Require(authz.ResourceUser, authz.ActionRead)).Get("/{id}", h.Get)
		r.With(h.guard.Require(authz.ResourceUser, authz.ActionCreate)).Post("/", h.Create)
		r.With(h.guard.Require(authz.ResourceUser, authz.ActionUpdate)).Put("/{id}", h.Update)
		r.With(h.guard.Require(authz.ResourceUser, authz.ActionDelete)).Delete("/{id}", h.Delete)
	})
	return r
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type userResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// minimalUserResponse is the projection served to service accounts.
type minimalUserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func toResponse(u User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.Format(time.RFC3339),
	}
}

func toMinimalResponse(u User) minimalUserResponse {
	return minimalUserResponse{ID: u.ID, Username: u.Username, Email: u.Email, Role: string(u.Role)}
}

// renderUser picks the projection based on caller role: service accounts see
// minimal fields only.
func renderUser(w http.ResponseWriter, r *http.Request, status int, u User) {
	if id, ok := authz.IdentityFromContext(r.Context()); ok && id.Role == authz.RoleServiceAccount {
		httpx.JSON(w, status, toMinimalResponse(u))
		return
	}
	httpx.JSON(w, status, toResponse(u))
}

// Register handles POST /users/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	u, err := h.service.Register(r.Context(), RegisterInput{Username: req.Username, Email: req.Email, Password: req.Password})
	if err != nil {
		h.logError("register user", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(u))
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /users/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	u, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(u))
}

// List handles GET /users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logError("list users", err)
		httpx.RespondError(w, err)
		return
	}
	if id, ok := authz.IdentityFromContext(r.Context()); ok && id.Role == authz.RoleServiceAccount {
		result := make([]minimalUserResponse, len(list))
		for i, u := range list {
			result[i] = toMinimalResponse(u)
		}
		httpx.JSON(w, http.StatusOK, result)
		return
	}
	result := make([]userResponse, len(list))
	for i, u := range list {
		result[i] = toResponse(u)
	}
	httpx.JSON(w, http.StatusOK, result)
}

// Get handles GET /users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	renderUser(w, r, http.StatusOK, u)
}

type createRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
}

// Create handles POST /users (admin provisioning, including non-default roles).
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
	u, err := h.service.Register(r.Context(), RegisterInput{Username: req.Username, Email: req.Email, Password: req.Password})
	if err != nil {
		h.logError("create user", err)
		httpx.RespondError(w, err)
		return
	}
	role := authz.Role(req.Role)
	u, err = h.service.Update(r.Context(), u.ID, UpdateInput{Role: &role})
	if err != nil {
		h.logError("assign role", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(u))
}

type updateRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=64"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Role     *string `json:"role"`
}

// Update handles PUT /users/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
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
	input := UpdateInput{Username: req.Username, Email: req.Email}
	if req.Role != nil {
		role := authz.Role(*req.Role)
		input.Role = &role
	}
	u, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.logError("update user", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(u))
}

// Delete handles DELETE /users/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
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

func (h *Handler) logError(msg string, err error) {
	if h.logger != nil {
		h.logger.Error(msg, slog.Any("error", err))
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
