package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/sheet_aggregator/internal/domain"
	"github.com/locvowork/sheet_aggregator/internal/logger"
	"github.com/locvowork/sheet_aggregator/internal/source"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WorkbookHandler handles HTTP requests for workbook aggregation and
// previews.
type WorkbookHandler struct {
	svc            domain.WorkbookService
	maxUploadBytes int64
}

// NewWorkbookHandler creates a new WorkbookHandler. maxUploadBytes bounds
// preview uploads; zero means unlimited.
func NewWorkbookHandler(svc domain.WorkbookService, maxUploadBytes int64) *WorkbookHandler {
	return &WorkbookHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Aggregate handles POST /api/workbooks/aggregate
func (h *WorkbookHandler) Aggregate(c echo.Context) error {
	var req domain.AggregateRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, "Invalid request body", echo.NewHTTPError(http.StatusBadRequest, err.Error()))
	}
	ctx := c.Request().Context()
	logger.InfoLog(ctx, "aggregating %d sources", len(req.Sources))

	res, err := h.svc.Aggregate(ctx, req)
	if err != nil {
		return respondError(c, "Failed to aggregate workbooks", err)
	}

	hdr := c.Response().Header()
	hdr.Set(echo.HeaderContentDisposition, `attachment; filename="aggregated.xlsx"`)
	hdr.Set("X-Sheet-Count", strconv.Itoa(len(res.Report.Sheets)))
	hdr.Set("X-Skipped-Sources", skippedHeader(res))
	if res.RunID != 0 {
		hdr.Set("X-Run-ID", strconv.FormatInt(res.RunID, 10))
	}
	return c.Blob(http.StatusOK, xlsxContentType, res.Data)
}

// skippedHeader lists skipped source indices, comma separated.
func skippedHeader(res *domain.AggregateResult) string {
	idx := make([]string, 0, len(res.Report.Skipped))
	for _, s := range res.Report.Skipped {
		idx = append(idx, strconv.Itoa(s.Source))
	}
	return strings.Join(idx, ",")
}

// Preview handles POST /api/workbooks/preview
func (h *WorkbookHandler) Preview(c echo.Context) error {
	var req domain.PreviewRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, "Invalid request body", echo.NewHTTPError(http.StatusBadRequest, err.Error()))
	}
	page, err := h.svc.Preview(c.Request().Context(), req)
	if err != nil {
		return respondError(c, "Failed to render preview", err)
	}
	return c.HTML(http.StatusOK, page)
}

// PreviewUpload handles POST /api/workbooks/preview/upload
func (h *WorkbookHandler) PreviewUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return respondError(c, "Missing upload", echo.NewHTTPError(http.StatusBadRequest, "form field \"file\" is required"))
	}
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		return respondError(c, "Upload rejected", fmt.Errorf("%w: %d bytes", source.ErrTooLarge, fh.Size))
	}
	f, err := fh.Open()
	if err != nil {
		return respondError(c, "Failed to read upload", err)
	}
	defer f.Close()

	var r io.Reader = f
	if h.maxUploadBytes > 0 {
		r = io.LimitReader(f, h.maxUploadBytes)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return respondError(c, "Failed to read upload", err)
	}

	recalc, _ := strconv.ParseBool(c.FormValue("recalculate"))
	page, err := h.svc.PreviewUpload(c.Request().Context(), data, c.FormValue("sheet"), recalc)
	if err != nil {
		return respondError(c, "Failed to render preview", err)
	}
	return c.HTML(http.StatusOK, page)
}

// SheetNames handles GET /api/workbooks/sheets?location=
func (h *WorkbookHandler) SheetNames(c echo.Context) error {
	location := c.QueryParam("location")
	if location == "" {
		return respondError(c, "Invalid request", echo.NewHTTPError(http.StatusBadRequest, "location parameter required"))
	}
	names, err := h.svc.SheetNames(c.Request().Context(), location)
	if err != nil {
		return respondError(c, "Failed to list sheets", err)
	}
	return respondJSON(c, http.StatusOK, APIResponse{Success: true, Data: names})
}

// Runs handles GET /api/workbooks/runs?limit=
func (h *WorkbookHandler) Runs(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	runs, err := h.svc.Runs(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, "Failed to list runs", err)
	}
	return respondJSON(c, http.StatusOK, APIResponse{Success: true, Data: runs})
}

// SearchRuns handles GET /api/workbooks/runs/search?q=&limit=
func (h *WorkbookHandler) SearchRuns(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	runs, err := h.svc.SearchRuns(c.Request().Context(), c.QueryParam("q"), limit)
	if err != nil {
		return respondError(c, "Failed to search runs", err)
	}
	return respondJSON(c, http.StatusOK, APIResponse{Success: true, Data: runs})
}

// Health handles GET /healthz
func (h *WorkbookHandler) Health(c echo.Context) error {
	return respondJSON(c, http.StatusOK, APIResponse{Success: true, Message: "ok"})
}
