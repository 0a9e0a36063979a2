package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/text/language"

	"github.com/iliyamo/gym-server/internal/i18n"
	"github.com/iliyamo/gym-server/internal/service"
)

// errInvalidBody is returned when a request body cannot be decoded.
var errInvalidBody = echo.NewHTTPError(http.StatusBadRequest, "invalid_body")

func statusOf(k service.Kind) int {
	switch k {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindAuthentication:
		return http.StatusUnauthorized
	case service.KindPermission:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders every error returned by handlers and middleware as
// {"errors": ...}.  Field errors become a map of field to messages, all
// other errors a {"detail": message} object, localized from
// Accept-Language.
func ErrorHandler(loc *i18n.Localizer) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		tag := loc.Match(c.Request().Header.Get("Accept-Language"))
		status, body := renderError(loc, tag, err)
		if status >= http.StatusInternalServerError {
			c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, echo.Map{"errors": body})
		}
		if err != nil {
			c.Logger().Error(err)
		}
	}
}

func renderError(loc *i18n.Localizer, tag language.Tag, err error) (int, any) {
	var (
		he *echo.HTTPError
		ve *service.ValidationError
	)
	switch {
	case errors.As(err, &ve):
		fields := make(map[string][]string, len(ve.Fields))
		for f, codes := range ve.Fields {
			for _, code := range codes {
				fields[f] = append(fields[f], loc.Text(tag, code))
			}
		}
		return http.StatusBadRequest, fields
	case errors.As(err, &he):
		msg, ok := he.Message.(string)
		if !ok {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, echo.Map{"detail": loc.Text(tag, msg)}
	}

	status := statusOf(service.KindOf(err))
	if code := service.CodeOf(err); code != "" {
		return status, echo.Map{"detail": loc.Text(tag, code)}
	}
	return status, echo.Map{"detail": err.Error()}
}
