package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-server/internal/model"
	"github.com/iliyamo/gym-server/internal/repository"
	"github.com/iliyamo/gym-server/internal/service"
)

// CatalogStore is the persistence behind /services, /positions and
// /subscriptions.  *repository.CatalogRepo implements it.
type CatalogStore interface {
	ListServices(ctx context.Context, f repository.ServiceFilter) ([]model.Service, error)
	GetService(ctx context.Context, id uint64) (model.Service, error)
	CreateService(ctx context.Context, s *model.Service) error
	UpdateService(ctx context.Context, s model.Service) error
	DeleteService(ctx context.Context, id uint64) error

	ListPositions(ctx context.Context, f repository.PositionFilter) ([]model.Position, error)
	GetPosition(ctx context.Context, id uint64) (model.Position, error)
	CreatePosition(ctx context.Context, p *model.Position) error
	UpdatePosition(ctx context.Context, p model.Position) error
	DeletePosition(ctx context.Context, id uint64) error

	ListSubscriptions(ctx context.Context, f repository.SubscriptionFilter) ([]model.Subscription, error)
}

// CatalogHandler serves the gym catalogs.  Capability checks are attached
// per route by the router.
type CatalogHandler struct {
	Store CatalogStore
}

func NewCatalogHandler(s CatalogStore) *CatalogHandler { return &CatalogHandler{Store: s} }

type serviceReq struct {
	Name      string `json:"name" validate:"required,max=255"`
	TimeStart string `json:"time_start" validate:"required"`
	TimeEnd   string `json:"time_end" validate:"required"`
}

type positionReq struct {
	Name string `json:"name" validate:"required,max=255"`
	Duty string `json:"duty" validate:"required,max=255"`
}

// clockTime normalizes "HH:MM" and "HH:MM:SS" to the TIME column format.
func clockTime(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.TimeOnly, "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(time.TimeOnly), true
		}
	}
	return "", false
}

func catalogError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return service.ErrNotFound
	}
	return err
}

func (h *CatalogHandler) bindService(c echo.Context) (model.Service, error) {
	var req serviceReq
	if err := c.Bind(&req); err != nil {
		return model.Service{}, errInvalidBody
	}
	if err := c.Validate(&req); err != nil {
		return model.Service{}, err
	}
	ve := &service.ValidationError{}
	start, ok := clockTime(req.TimeStart)
	if !ok {
		ve.Add("time_start", service.CodeInvalid)
	}
	end, ok := clockTime(req.TimeEnd)
	if !ok {
		ve.Add("time_end", service.CodeInvalid)
	}
	if err := ve.OrNil(); err != nil {
		return model.Service{}, err
	}
	return model.Service{Name: strings.TrimSpace(req.Name), TimeStart: start, TimeEnd: end}, nil
}

func (h *CatalogHandler) ListServices(c echo.Context) error {
	ve := &service.ValidationError{}
	f := repository.ServiceFilter{Name: strings.TrimSpace(c.QueryParam("name"))}
	for name, dst := range map[string]*string{"start_gte": &f.StartGTE, "start_lte": &f.StartLTE} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		v, ok := clockTime(raw)
		if !ok {
			ve.Add(name, service.CodeInvalid)
			continue
		}
		*dst = v
	}
	if err := ve.OrNil(); err != nil {
		return err
	}
	out, err := h.Store.ListServices(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) GetService(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	s, err := h.Store.GetService(c.Request().Context(), id)
	if err != nil {
		return catalogError(err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *CatalogHandler) CreateService(c echo.Context) error {
	s, err := h.bindService(c)
	if err != nil {
		return err
	}
	if err := h.Store.CreateService(c.Request().Context(), &s); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *CatalogHandler) UpdateService(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	s, err := h.bindService(c)
	if err != nil {
		return err
	}
	s.ID = id
	if err := h.Store.UpdateService(c.Request().Context(), s); err != nil {
		return catalogError(err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *CatalogHandler) DeleteService(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.Store.DeleteService(c.Request().Context(), id); err != nil {
		return catalogError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHandler) ListPositions(c echo.Context) error {
	f := repository.PositionFilter{
		Name: strings.TrimSpace(c.QueryParam("name")),
		Duty: strings.TrimSpace(c.QueryParam("duty")),
	}
	out, err := h.Store.ListPositions(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) GetPosition(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.Store.GetPosition(c.Request().Context(), id)
	if err != nil {
		return catalogError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) bindPosition(c echo.Context) (model.Position, error) {
	var req positionReq
	if err := c.Bind(&req); err != nil {
		return model.Position{}, errInvalidBody
	}
	if err := c.Validate(&req); err != nil {
		return model.Position{}, err
	}
	return model.Position{Name: strings.TrimSpace(req.Name), Duty: strings.TrimSpace(req.Duty)}, nil
}

func (h *CatalogHandler) CreatePosition(c echo.Context) error {
	p, err := h.bindPosition(c)
	if err != nil {
		return err
	}
	if err := h.Store.CreatePosition(c.Request().Context(), &p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *CatalogHandler) UpdatePosition(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.bindPosition(c)
	if err != nil {
		return err
	}
	p.ID = id
	if err := h.Store.UpdatePosition(c.Request().Context(), p); err != nil {
		return catalogError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) DeletePosition(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.Store.DeletePosition(c.Request().Context(), id); err != nil {
		return catalogError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListSubscriptions supports month, updated_at__lt and updated_at__gt,
// with updated_lt and updated_gt as short aliases.
func (h *CatalogHandler) ListSubscriptions(c echo.Context) error {
	ve := &service.ValidationError{}
	var f repository.SubscriptionFilter
	if raw := c.QueryParam("month"); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil || !model.ValidSubscriptionMonth(m) {
			ve.Add("month", service.CodeMonth)
		} else {
			f.Month = m
		}
	}
	f.UpdatedBefore = firstDate(ve, c, "updated_at__lt", "updated_lt")
	f.UpdatedAfter = firstDate(ve, c, "updated_at__gt", "updated_gt")
	if err := ve.OrNil(); err != nil {
		return err
	}
	out, err := h.Store.ListSubscriptions(c.Request().Context(), f)
	if err != nil {
		return err
	}
	resp := make([]*subscriptionDTO, 0, len(out))
	for i := range out {
		resp = append(resp, toSubscriptionDTO(&out[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func firstDate(ve *service.ValidationError, c echo.Context, names ...string) *time.Time {
	for _, n := range names {
		if t := parseDateParam(ve, c, n); t != nil {
			return t
		}
	}
	return nil
}
