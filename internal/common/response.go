package common

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jo-hoe/imageroulette/internal/backend/ranking"
	"github.com/jo-hoe/imageroulette/internal/core"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondError maps core errors to status codes and writes a JSON error body
func RespondError(ctx echo.Context, handler string, err error) error {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
		message = "image not found"
	case errors.Is(err, core.ErrStore):
		message = "storage unavailable"
	}

	if status >= http.StatusInternalServerError {
		slog.Error(handler+": request failed", "status", status, "error", err)
	} else {
		slog.Warn(handler+": request failed", "status", status, "error", err)
	}
	return ctx.JSON(status, ErrorResponse{Error: message})
}

// StatsResponse adds human readable sizes to the stats
type StatsResponse struct {
	ranking.Stats
	AvgSizeHuman   string `json:"avgSizeHuman"`
	TotalSizeHuman string `json:"totalSizeHuman"`
}

func NewStatsResponse(stats ranking.Stats) StatsResponse {
	return StatsResponse{
		Stats:          stats,
		AvgSizeHuman:   HumanSize(stats.AvgSize),
		TotalSizeHuman: HumanSize(stats.TotalSize),
	}
}

// HumanSize formats a byte count like "1.2 MB"
func HumanSize(bytes float64) string {
	if bytes <= 0 {
		return humanize.Bytes(0)
	}
	return humanize.Bytes(uint64(bytes))
}

// PageParam reads the 1-indexed "page" query parameter, defaulting to 1
func PageParam(ctx echo.Context) (int, error) {
	raw := ctx.QueryParam("page")
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "page must be a positive integer")
	}
	return page, nil
}

// SetNoCache prevents caching of listings that change with every upload
func SetNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}
