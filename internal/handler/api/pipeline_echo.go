package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"StockPredictor/internal/domain/models"
	domrepo "StockPredictor/internal/domain/repository"
	xhttp "StockPredictor/pkg/http"
	xlogger "StockPredictor/pkg/logger"
)

// PipelineReader is the read side of the pipeline served over HTTP.
type PipelineReader interface {
	PredictLatest(ctx context.Context, symbol string, period domrepo.Period) (*models.PredictionSnapshot, error)
	RecentRuns(ctx context.Context, symbol string, limit int) ([]models.RunRecord, error)
}

// PipelineEchoHandler serves predictions and the run ledger.
type PipelineEchoHandler struct {
	logger *xlogger.Logger
	uc     PipelineReader
}

func NewPipelineEchoHandler(logger *xlogger.Logger, uc PipelineReader) *PipelineEchoHandler {
	return &PipelineEchoHandler{logger: logger, uc: uc}
}

func (h *PipelineEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	g := e.Group("/api")
	g.GET("/predict", h.Predict)
	g.GET("/runs", h.Runs)
}

func (h *PipelineEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *PipelineEchoHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	period := domrepo.NormalizePeriod(req.Period)

	res, err := h.uc.PredictLatest(c.Request().Context(), strings.TrimSpace(req.Symbol), period)
	if err != nil {
		h.logger.Error("predict usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineEchoHandler) Runs(c echo.Context) error {
	req := &models.RunsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.uc.RecentRuns(c.Request().Context(), strings.TrimSpace(req.Symbol), req.Limit)
	if err != nil {
		h.logger.Error("runs usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// toAppError maps pipeline error kinds onto HTTP statuses.
func toAppError(err error) error {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	msg := err.Error()
	switch {
	case errors.Is(err, models.ErrUnknownSymbol):
		return xhttp.NotFoundError(msg).WithError(err)
	case errors.Is(err, models.ErrModelNotFitted), errors.Is(err, models.ErrArtifactCorrupt):
		return xhttp.UnavailableError("ERR_MODEL_UNAVAILABLE", msg).WithError(err)
	case errors.Is(err, models.ErrNetwork):
		return xhttp.UnavailableError("ERR_UPSTREAM", msg).WithError(err)
	case errors.Is(err, models.ErrDataUnavailable),
		errors.Is(err, models.ErrInsufficientFeatures),
		errors.Is(err, models.ErrLabelDegenerate):
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_DATA", msg).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", msg, http.StatusGatewayTimeout).WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
