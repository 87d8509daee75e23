package frontend

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jo-hoe/imageroulette/internal/backend/metadata"
	"github.com/jo-hoe/imageroulette/internal/backend/ranking"
	"github.com/jo-hoe/imageroulette/internal/common"
	"github.com/jo-hoe/imageroulette/internal/core"
	"github.com/labstack/echo/v4"
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.GET("/sharexconfig", service.sharexConfigHandler)
	e.POST("/upload", service.uploadImageHandler)

	e.GET("/api/image/:id", service.imageDetailsHandler)
	e.GET("/raw/:id", service.rawImageHandler)
	e.GET("/api/gallery", service.galleryHandler)
	e.GET("/api/leaderboard", service.leaderboardHandler)
}

// sharexConfig is a ShareX custom uploader definition (.sxcu)
type sharexConfig struct {
	Version         string            `json:"Version"`
	Name            string            `json:"Name"`
	DestinationType string            `json:"DestinationType"`
	RequestMethod   string            `json:"RequestMethod"`
	RequestURL      string            `json:"RequestURL"`
	Body            string            `json:"Body"`
	FileFormName    string            `json:"FileFormName"`
	Arguments       map[string]string `json:"Arguments"`
	URL             string            `json:"URL"`
}

type uploadResponse struct {
	ID          string  `json:"id"`
	Tier        string  `json:"tier"`
	TierName    string  `json:"tierName"`
	Roll        float64 `json:"roll"`
	RollLabel   string  `json:"rollLabel"`
	ContentType string  `json:"contentType"`
	Hidden      bool    `json:"hidden"`
	Size        string  `json:"size"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	URL         string  `json:"url"`
}

type imageResponse struct {
	*core.ImageDetails
	TierName  string `json:"tierName"`
	RollLabel string `json:"rollLabel"`
	DateLabel string `json:"dateLabel"`
	Size      string `json:"size"`
	URL       string `json:"url"`
}

type galleryResponse struct {
	ranking.Page[core.ImageSummary]
	HasNext     bool                 `json:"hasNext"`
	HasPrevious bool                 `json:"hasPrevious"`
	Stats       common.StatsResponse `json:"stats"`
}

type leaderboardResponse struct {
	Items []core.ImageSummary  `json:"items"`
	Stats common.StatsResponse `json:"stats"`
}

func (service *FrontendService) uploadImageHandler(ctx echo.Context) error {
	// Get uploaded file
	file, err := ctx.FormFile("image")
	if err != nil {
		slog.Warn("uploadImageHandler: failed to get uploaded file",
			"status", http.StatusBadRequest, "error", err)
		return ctx.JSON(http.StatusBadRequest, common.ErrorResponse{Error: "no file uploaded"})
	}

	maxBytes := service.config.Upload.MaxBytes
	if file.Size > maxBytes {
		slog.Warn("uploadImageHandler: upload too large",
			"status", http.StatusRequestEntityTooLarge, "size_bytes", file.Size, "max_bytes", maxBytes)
		return ctx.JSON(http.StatusRequestEntityTooLarge, common.ErrorResponse{Error: "file too large"})
	}

	src, err := file.Open()
	if err != nil {
		slog.Error("uploadImageHandler: failed to open uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.JSON(http.StatusInternalServerError, common.ErrorResponse{Error: "failed to open uploaded file"})
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("uploadImageHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	// Read one byte past the limit to detect lying size headers
	image, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		slog.Error("uploadImageHandler: failed to read uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.JSON(http.StatusInternalServerError, common.ErrorResponse{Error: "failed to read uploaded file"})
	}
	if int64(len(image)) > maxBytes {
		return ctx.JSON(http.StatusRequestEntityTooLarge, common.ErrorResponse{Error: "file too large"})
	}
	if len(image) == 0 {
		return ctx.JSON(http.StatusBadRequest, common.ErrorResponse{Error: "empty file"})
	}

	contentType, ok := sniffImageType(image)
	if !ok {
		slog.Warn("uploadImageHandler: rejected non-image upload",
			"status", http.StatusUnsupportedMediaType, "detected", contentType, "filename", file.Filename)
		return ctx.JSON(http.StatusUnsupportedMediaType, common.ErrorResponse{Error: "only images are accepted"})
	}

	hidden := ctx.FormValue("hide") == "on"
	result, err := service.coreService.AddImage(ctx.Request().Context(), image, contentType, hidden)
	if err != nil {
		return common.RespondError(ctx, "uploadImageHandler", err)
	}

	return ctx.JSON(http.StatusCreated, uploadResponse{
		ID:          result.ID,
		Tier:        result.Tier.String(),
		TierName:    result.Tier.DisplayName(),
		Roll:        result.Roll,
		RollLabel:   metadata.RollLabel(result.Roll),
		ContentType: result.ContentType,
		Hidden:      result.Hidden,
		Size:        common.HumanSize(float64(result.SizeBytes)),
		Width:       result.Width,
		Height:      result.Height,
		URL:         rawURL(result.ID),
	})
}

// sharexConfigHandler serves an uploader config pointing ShareX at this host.
// Uploads made through it are hidden.
func (service *FrontendService) sharexConfigHandler(ctx echo.Context) error {
	baseURL := ctx.Scheme() + "://" + ctx.Request().Host
	config := sharexConfig{
		Version:         "14.1.0",
		Name:            "imageroulette",
		DestinationType: "ImageUploader",
		RequestMethod:   http.MethodPost,
		RequestURL:      baseURL + "/upload",
		Body:            "MultipartFormData",
		FileFormName:    "image",
		Arguments:       map[string]string{"hide": "on"},
		URL:             baseURL + "{json:url}",
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="imageroulette.sxcu"`)
	return ctx.JSONPretty(http.StatusOK, config, "  ")
}

// sniffImageType detects the content type from the bytes themselves. The
// returned type carries no parameters so it can be stored as is.
func sniffImageType(data []byte) (string, bool) {
	detected := mimetype.Detect(data)
	contentType, _, _ := strings.Cut(detected.String(), ";")
	contentType = strings.TrimSpace(contentType)
	return contentType, strings.HasPrefix(contentType, "image/")
}

func (service *FrontendService) imageDetailsHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	details, err := service.coreService.ViewImage(ctx.Request().Context(), id)
	if err != nil {
		return common.RespondError(ctx, "imageDetailsHandler", err)
	}

	common.SetNoCache(ctx)
	return ctx.JSON(http.StatusOK, imageResponse{
		ImageDetails: details,
		TierName:     details.Tier.DisplayName(),
		RollLabel:    metadata.RollLabel(details.Roll),
		DateLabel:    formatDate(details.Date),
		Size:         common.HumanSize(float64(details.SizeBytes)),
		URL:          rawURL(details.ID),
	})
}

func (service *FrontendService) rawImageHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	data, contentType, err := service.coreService.RawImage(ctx.Request().Context(), id)
	if err != nil {
		return common.RespondError(ctx, "rawImageHandler", err)
	}

	// stored images never change, only their visibility does
	ctx.Response().Header().Set("Cache-Control", "public, max-age=86400, immutable")
	return ctx.Blob(http.StatusOK, contentType, data)
}

func (service *FrontendService) galleryHandler(ctx echo.Context) error {
	page, err := common.PageParam(ctx)
	if err != nil {
		return err
	}

	gallery, err := service.coreService.Gallery(ctx.Request().Context(), page)
	if err != nil {
		return common.RespondError(ctx, "galleryHandler", err)
	}

	common.SetNoCache(ctx)
	return ctx.JSON(http.StatusOK, galleryResponse{
		Page:        gallery.Page,
		HasNext:     gallery.HasNext(),
		HasPrevious: gallery.HasPrevious(),
		Stats:       common.NewStatsResponse(gallery.Stats),
	})
}

func (service *FrontendService) leaderboardHandler(ctx echo.Context) error {
	board, err := service.coreService.Leaderboard(ctx.Request().Context())
	if err != nil {
		return common.RespondError(ctx, "leaderboardHandler", err)
	}

	common.SetNoCache(ctx)
	return ctx.JSON(http.StatusOK, leaderboardResponse{
		Items: board.Items,
		Stats: common.NewStatsResponse(board.Stats),
	})
}

func rawURL(id string) string {
	return "/raw/" + id
}

// formatDate renders upload dates for display, "unknown" when absent
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
