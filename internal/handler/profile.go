package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-server/internal/middleware"
	"github.com/iliyamo/gym-server/internal/model"
	"github.com/iliyamo/gym-server/internal/service"
)

// ProfileAPI is the profile dispatcher as seen by the HTTP layer.
type ProfileAPI interface {
	List(ctx context.Context, p *model.Principal, kind model.ProfileKind, f model.ProfileFilter) ([]service.ProfileView, error)
	Get(ctx context.Context, p *model.Principal, kind model.ProfileKind, id uint64) (service.ProfileView, error)
	Create(ctx context.Context, p *model.Principal, kind model.ProfileKind, in service.CreateInput) (service.ProfileView, error)
	Update(ctx context.Context, p *model.Principal, kind model.ProfileKind, id uint64, patch model.ProfilePatch) (service.ProfileView, error)
	Delete(ctx context.Context, p *model.Principal, kind model.ProfileKind, id uint64) (uint64, error)
}

// ProfileHandler serves /users.  The profile kind comes from the role
// query parameter, already parsed by middleware.RequireRoleParam.
type ProfileHandler struct {
	Profiles ProfileAPI
}

func NewProfileHandler(p ProfileAPI) *ProfileHandler { return &ProfileHandler{Profiles: p} }

// ----- DTOs -----

// profileReq is the create and update body.  Creates use user, position,
// subscription_data and the linked id list; updates nest user and
// subscription changes under updated_data.
type profileReq struct {
	User             *uint64                  `json:"user"`
	Position         *uint64                  `json:"position"`
	Services         []uint64                 `json:"services"`
	Clients          []uint64                 `json:"clients"`
	SubscriptionData *model.SubscriptionPatch `json:"subscription_data"`
	UpdatedData      *struct {
		User         *model.UserPatch         `json:"user"`
		Subscription *model.SubscriptionPatch `json:"subscription"`
	} `json:"updated_data"`
}

func (r profileReq) linked(kind model.ProfileKind) []uint64 {
	if kind == model.KindStaff {
		return r.Clients
	}
	return r.Services
}

type userDTO struct {
	ID        uint64     `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	IsActive  bool       `json:"is_active"`
	CreatedAt string     `json:"created_at"`
}

type subscriptionDTO struct {
	ID        uint64  `json:"id"`
	Month     int     `json:"month"`
	UpdatedAt *string `json:"updated_at"`
}

type clientDTO struct {
	ID           uint64           `json:"id"`
	User         userDTO          `json:"user"`
	Subscription *subscriptionDTO `json:"subscription"`
	Services     []model.Service  `json:"services"`
	IsExpired    bool             `json:"is_expired"`
}

type staffDTO struct {
	ID       uint64          `json:"id"`
	User     userDTO         `json:"user"`
	Position *model.Position `json:"position"`
	Clients  []userDTO       `json:"clients"`
}

func toUserDTO(u model.User) userDTO {
	return userDTO{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.Format(time.DateOnly),
	}
}

func toSubscriptionDTO(s *model.Subscription) *subscriptionDTO {
	if s == nil {
		return nil
	}
	out := &subscriptionDTO{ID: s.ID, Month: s.Month}
	if s.UpdatedAt != nil {
		d := s.UpdatedAt.Format(time.DateOnly)
		out.UpdatedAt = &d
	}
	return out
}

func renderProfile(v service.ProfileView) any {
	switch p := v.Profile.(type) {
	case *model.ClientProfile:
		services := p.Services
		if services == nil {
			services = []model.Service{}
		}
		return clientDTO{
			ID:           p.ID,
			User:         toUserDTO(p.User),
			Subscription: toSubscriptionDTO(p.Subscription),
			Services:     services,
			IsExpired:    v.Expired != nil && *v.Expired,
		}
	case *model.StaffProfile:
		clients := make([]userDTO, 0, len(p.Clients))
		for _, u := range p.Clients {
			clients = append(clients, toUserDTO(u))
		}
		return staffDTO{ID: p.ID, User: toUserDTO(p.User), Position: p.Position, Clients: clients}
	}
	return nil
}

func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, service.ErrNotFound
	}
	return id, nil
}

func parseIDList(raw string) ([]uint64, bool) {
	var out []uint64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

func parseDateParam(ve *service.ValidationError, c echo.Context, name string) *time.Time {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, time.UTC)
	if err != nil {
		ve.Add(name, service.CodeDate)
		return nil
	}
	return &t
}

// profileFilter reads the list filters.  Filters that do not apply to the
// selected kind are ignored downstream.
func profileFilter(c echo.Context) (model.ProfileFilter, error) {
	ve := &service.ValidationError{}
	f := model.ProfileFilter{
		CreatedAfter:  parseDateParam(ve, c, "created_gt"),
		CreatedBefore: parseDateParam(ve, c, "created_lt"),
		ServiceName:   strings.TrimSpace(c.QueryParam("service_name")),
		PositionName:  strings.TrimSpace(c.QueryParam("position_name")),
	}
	if raw := c.QueryParam("expired"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			ve.Add("expired", service.CodeInvalid)
		} else {
			f.Expired = &b
		}
	}
	if raw := c.QueryParam("client_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			ve.Add("client_id", service.CodeInvalid)
		} else {
			f.ClientIDs = append(f.ClientIDs, id)
		}
	}
	if raw := c.QueryParam("clients_id"); raw != "" {
		ids, ok := parseIDList(raw)
		if !ok {
			ve.Add("clients_id", service.CodeInvalid)
		}
		f.ClientIDs = append(f.ClientIDs, ids...)
	}
	return f, ve.OrNil()
}

// List handles GET /users?role=N.
func (h *ProfileHandler) List(c echo.Context) error {
	f, err := profileFilter(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	views, err := h.Profiles.List(ctx, middleware.PrincipalFrom(c), middleware.KindFrom(c), f)
	if err != nil {
		return err
	}
	out := make([]any, 0, len(views))
	for _, v := range views {
		out = append(out, renderProfile(v))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /users/:id?role=N.  A lapsed client subscription still
// answers 200 and is flagged in the X-Subscription-Status header.
func (h *ProfileHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Profiles.Get(ctx, middleware.PrincipalFrom(c), middleware.KindFrom(c), id)
	if err != nil {
		return err
	}
	if v.Expired != nil && *v.Expired {
		c.Response().Header().Set("X-Subscription-Status", "expired")
	}
	return c.JSON(http.StatusOK, renderProfile(v))
}

// Create handles POST /users?role=N.
func (h *ProfileHandler) Create(c echo.Context) error {
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	kind := middleware.KindFrom(c)
	in := service.CreateInput{
		LinkedIDs:    req.linked(kind),
		PositionID:   req.Position,
		Subscription: req.SubscriptionData,
	}
	if req.User != nil {
		in.UserID = *req.User
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Profiles.Create(ctx, middleware.PrincipalFrom(c), kind, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, renderProfile(v))
}

// Update handles PUT and PATCH /users/:id?role=N.  Both are partial.
func (h *ProfileHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	kind := middleware.KindFrom(c)
	patch := model.ProfilePatch{PositionID: req.Position}
	if ids := req.linked(kind); ids != nil {
		patch.LinkedIDs = &ids
	}
	if u := req.UpdatedData; u != nil {
		patch.User = u.User
		patch.Subscription = u.Subscription
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Profiles.Update(ctx, middleware.PrincipalFrom(c), kind, id, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, renderProfile(v))
}

// Delete handles DELETE /users/:id?role=N.  The owning user is kept but
// deactivated.
func (h *ProfileHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Profiles.Delete(ctx, middleware.PrincipalFrom(c), middleware.KindFrom(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":        userID,
		"delete_message": "User id:" + strconv.FormatUint(userID, 10) + " is deactivated.",
	})
}
