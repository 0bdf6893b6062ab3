package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handle binds and validates Req, calls fn and writes its result in a
// Response envelope. fn may return a *Response to pick the status.
func Handle[Req any, Res any](fn func(c echo.Context, req Req) (Res, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req Req
		if err := BindAndValidate(c, &req); err != nil {
			return err
		}

		data, err := fn(c, req)
		if err != nil {
			return err
		}
		if c.Response().Committed {
			return nil
		}

		var body interface{} = data
		resp := &Response{
			Status:  http.StatusOK,
			Success: true,
			Data:    body,
		}
		if v, ok := body.(*Response); ok {
			resp = v
		}
		return c.JSON(resp.Status, resp)
	}
}

// HandleNoContent is Handle for operations without a result.
func HandleNoContent[Req any](fn func(c echo.Context, req Req) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req Req
		if err := BindAndValidate(c, &req); err != nil {
			return err
		}
		if err := fn(c, req); err != nil {
			return err
		}
		if c.Response().Committed {
			return nil
		}
		c.Response().Header().Del(echo.HeaderContentType)
		return c.NoContent(http.StatusNoContent)
	}
}
