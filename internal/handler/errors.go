package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorItem is one entry of an error response. Field validation failures
// use Type "field" and name the offending JSON field in Path.
type ErrorItem struct {
	Type     string `json:"type"`
	Msg      string `json:"msg"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

// ErrorBody is the shape of every non-2xx response.
type ErrorBody struct {
	Errors []ErrorItem `json:"errors"`
}

// ValidationError carries field-level failures from the request validator.
type ValidationError struct {
	Items []ErrorItem
}

func (v *ValidationError) Error() string {
	msgs := make([]string, 0, len(v.Items))
	for _, it := range v.Items {
		msgs = append(msgs, it.Path+": "+it.Msg)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ErrorHandler renders every error returned by handlers and middleware as
// an ErrorBody. Server-side failures are logged with their cause and reach
// the client only as a generic message.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		var body ErrorBody

		var ve *ValidationError
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ve):
			status = http.StatusBadRequest
			body.Errors = ve.Items
		case errors.As(err, &he):
			status = he.Code
			msg := http.StatusText(status)
			if s, ok := he.Message.(string); ok && s != "" {
				msg = s
			}
			if status >= http.StatusInternalServerError {
				msg = "Internal server error"
			}
			body.Errors = []ErrorItem{{Type: errorType(status), Msg: msg}}
		default:
			body.Errors = []ErrorItem{{Type: errorType(status), Msg: "Internal server error"}}
		}

		if status >= http.StatusInternalServerError {
			cause := err
			if he != nil && he.Internal != nil {
				cause = he.Internal
			}
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(cause))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Warn("write error response", zap.Error(err))
		}
	}
}

// errorType names an HTTP status the way clients of the service expect,
// e.g. 400 -> "BadRequestError".
func errorType(status int) string {
	switch status {
	case http.StatusInternalServerError:
		return "InternalServerError"
	}
	text := strings.ReplaceAll(http.StatusText(status), " ", "")
	text = strings.ReplaceAll(text, "-", "")
	if text == "" {
		return "Error"
	}
	return text + "Error"
}

func badRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

func internal(err error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
}
