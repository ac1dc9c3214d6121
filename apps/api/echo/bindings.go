package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Pagination carries the skip/limit query params of list endpoints.
type Pagination struct {
	Skip  int `query:"skip"`
	Limit int `query:"limit"`
}

func (p *Pagination) Bind(ctx echo.Context) error {
	p.Limit = defaultListLimit
	if err := ctx.Bind(p); err != nil {
		return err
	}
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 || p.Limit > maxListLimit {
		p.Limit = defaultListLimit
	}
	return nil
}

// ListResponse is the envelope of every list endpoint. Count is the size of
// the full filtered set, not of the returned page.
type ListResponse struct {
	Data  interface{} `json:"data"`
	Count int         `json:"count"`
}

func intParam(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
