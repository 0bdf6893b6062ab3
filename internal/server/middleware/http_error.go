package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// ErrorClassifier maps an application error to a response. It returns nil
// for errors it does not know.
type ErrorClassifier func(err error) *ResponseError

// ErrorHandler return custom http error handler.
func ErrorHandler(log Logger, classify ErrorClassifier) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if err == nil || c.Response().Committed {
			return
		}

		resp := &ResponseError{
			Status:       http.StatusInternalServerError,
			Err:          err,
			ErrorMessage: http.StatusText(http.StatusInternalServerError),
		}

		var (
			httpErr     *echo.HTTPError
			respErr     *ResponseError
			validateErr validator.ValidationErrors
		)
		switch {
		case errors.As(err, &respErr):
			resp = respErr
		case errors.As(err, &httpErr):
			resp.Status = httpErr.Code
			resp.ErrorMessage = fmt.Sprint(httpErr.Message)
		case errors.As(err, &validateErr):
			resp.Status = http.StatusBadRequest
			resp.ErrorCode = "invalid_request"
			resp.ErrorMessage = validateErr.Error()
		case errors.Is(err, context.Canceled) && c.Request().Context().Err() == context.Canceled:
			resp.Status = 499
		default:
			if classify != nil {
				if mapped := classify(err); mapped != nil {
					resp = mapped
				}
			}
		}

		if resp.Status == http.StatusNotFound && isNotFoundHandler(c.Handler()) {
			resp.ErrorMessage = "no route matched"
		}
		if resp.Status >= http.StatusInternalServerError {
			log.Errorw("Request failed", "status", resp.Status, "error", err, "request_id", GetRequestID(c))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(resp.Status)
		} else {
			err = c.JSON(resp.Status, resp)
		}
		if err != nil {
			log.Errorw("could not response", "code", resp.Status, "response_body", resp)
		}
	}
}
