package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/propertydeck/leadsync/pkg/api/errors"
	"github.com/propertydeck/leadsync/pkg/domain"
	"github.com/propertydeck/leadsync/pkg/fieldnorm"
	"github.com/propertydeck/leadsync/pkg/importer"
	"github.com/propertydeck/leadsync/pkg/logger"
	"github.com/propertydeck/leadsync/pkg/metrics"
	"github.com/propertydeck/leadsync/pkg/middleware"
	"github.com/propertydeck/leadsync/pkg/models"
	"github.com/propertydeck/leadsync/pkg/pipeline"
	"github.com/propertydeck/leadsync/pkg/recordstore"
	"github.com/propertydeck/leadsync/pkg/session"
)

// LeadHandler handles lead pipeline endpoints
type LeadHandler struct {
	sessions  *session.Manager
	store     recordstore.Store
	importSvc *importer.Service
	metrics   *metrics.Metrics
	log       logger.Logger
	validator *validator.Validate
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(sessions *session.Manager, store recordstore.Store, importSvc *importer.Service, m *metrics.Metrics, log logger.Logger) *LeadHandler {
	return &LeadHandler{
		sessions:  sessions,
		store:     store,
		importSvc: importSvc,
		metrics:   m,
		log:       log,
		validator: validator.New(),
	}
}

// Register wires the handler's routes onto the group
func (h *LeadHandler) Register(g *echo.Group) {
	g.GET("/leads", h.List)
	g.GET("/leads/board", h.Board)
	g.GET("/leads/stats", h.Stats)
	g.PATCH("/leads/:id", h.Mutate)
	g.POST("/leads/:id/move", h.Move)
	g.POST("/leads/:id/re-score", h.Rescore)
	g.POST("/leads/bulk-action", h.BulkAction)
	g.POST("/leads/import", h.Import)
	g.POST("/leads/import/submit", h.ImportSubmit)
}

func (h *LeadHandler) session(c echo.Context) (*session.Session, error) {
	user := middleware.UserFrom(c)
	if user == nil {
		return nil, apierrors.UnauthorizedError(c)
	}
	return h.sessions.Get(user), nil
}

// bindQuery binds only the query string; POST handlers reuse it after
// their body has already been consumed.
func (h *LeadHandler) bindQuery(c echo.Context, mode models.ViewMode) (models.QueryDescriptor, error) {
	var q models.QueryDescriptor
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return q, domain.NewBadRequestError("invalid query parameters")
	}
	if err := h.validator.Struct(q); err != nil {
		return q, domain.NewValidationError("invalid pagination: " + err.Error())
	}
	q.Mode = mode
	return q.Normalize(), nil
}

// List returns the paginated list projection for the current filters
func (h *LeadHandler) List(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	q, err := h.bindQuery(c, models.ViewModeList)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}

	if h.metrics != nil {
		if sess.State.LastFingerprint() == q.Fingerprint() {
			h.metrics.RecordFetchDeduped()
		} else {
			h.metrics.RecordFetch("list")
		}
	}

	if err := sess.Fetcher.Refresh(c.Request().Context(), q); err != nil {
		return apierrors.FromDomain(c, err)
	}

	// prefetch the board for the same filters once the operator stops
	// editing them, so switching views needs no fetch
	boardQ := q
	boardQ.Mode = models.ViewModeBoard
	boardQ.Page = 1
	sess.Debounce.Trigger(boardQ.Normalize())

	leads, pagination, _ := sess.State.ListView()
	return c.JSON(http.StatusOK, models.LeadPage{Leads: leads, Pagination: pagination})
}

// Board returns the bounded kanban aggregate grouped into columns
func (h *LeadHandler) Board(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	q, err := h.bindQuery(c, models.ViewModeBoard)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}

	if h.metrics != nil {
		if sess.State.LastFingerprint() == q.Fingerprint() {
			h.metrics.RecordFetchDeduped()
		} else {
			h.metrics.RecordFetch("board")
		}
	}

	if err := sess.Fetcher.Refresh(c.Request().Context(), q); err != nil {
		return apierrors.FromDomain(c, err)
	}

	leads, capped, _ := sess.State.BoardView()
	for i := range leads {
		leads[i].Status = fieldnorm.CanonicalStatus(string(leads[i].Status))
	}
	if capped && h.metrics != nil {
		h.metrics.RecordBoardCapped()
	}

	return c.JSON(http.StatusOK, models.BoardResponse{
		Columns: models.GroupByStatus(leads),
		Capped:  capped,
		Total:   len(leads),
	})
}

// Stats returns pipeline counts over the currently loaded set
func (h *LeadHandler) Stats(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	mode := models.ViewMode(c.QueryParam("view"))
	if mode != models.ViewModeBoard {
		mode = models.ViewModeList
	}

	stats := pipeline.ComputeStats(sess.State.Loaded(mode))
	return c.JSON(http.StatusOK, stats)
}

// Mutate applies a single-field change to one lead
func (h *LeadHandler) Mutate(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	var req models.MutateRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, domain.NewBadRequestError("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, domain.NewValidationError("invalid mutation: "+err.Error()))
	}

	outcome, err := sess.Engine.Mutate(c.Request().Context(), c.Param("id"), req.Field, req.Value)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordMutation(req.Field, "failed")
			if domain.IsUpstream(err) {
				h.metrics.RecordRollback()
			}
		}
		return apierrors.FromDomain(c, err)
	}

	if h.metrics != nil {
		if outcome.NoOp {
			h.metrics.RecordMutation(req.Field, "noop")
		} else {
			h.metrics.RecordMutation(req.Field, "applied")
		}
	}
	return c.JSON(http.StatusOK, outcome)
}

// Move drops a board card onto a column
func (h *LeadHandler) Move(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	var req models.MoveRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, domain.NewBadRequestError("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, domain.NewValidationError("column is required"))
	}

	outcome, err := sess.Engine.MoveCard(c.Request().Context(), c.Param("id"), req.Column)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, outcome)
}

// Rescore asks the record store to recompute one lead's score
func (h *LeadHandler) Rescore(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	if _, ok := sess.State.Get(id); !ok {
		return apierrors.NotFoundError(c, domain.NewNotFoundError("lead"))
	}

	if err := h.store.Rescore(c.Request().Context(), id); err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "re-score requested"})
}

// BulkAction fans one operation out across the selection, then reconciles
// the projections with a full refetch.
func (h *LeadHandler) BulkAction(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	var req models.BulkActionRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, domain.NewBadRequestError("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, domain.NewValidationError("invalid bulk action: "+err.Error()))
	}

	summary, err := sess.Bulk.Apply(c.Request().Context(), req.IDs, pipeline.Operation{
		Action: req.Action,
		Value:  req.Value,
		Method: req.Method,
	})
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	if h.metrics != nil {
		h.metrics.RecordBulkItems(req.Action, summary.SuccessCount, len(summary.Failures))
	}

	// accumulated optimistic state is not trusted after a bulk write
	q, qErr := h.bindQuery(c, models.ViewModeList)
	if qErr != nil {
		h.log.Warn("post-bulk reload query invalid, using last descriptor", "error", qErr)
		var ok bool
		if q, ok = sess.State.LastQuery(); !ok {
			q = models.QueryDescriptor{}.Normalize()
		}
	}
	if reloadErr := sess.Fetcher.Reload(c.Request().Context(), q); reloadErr != nil {
		h.log.Warn("post-bulk reload failed", "error", reloadErr)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"summary": summary,
		"message": summary.Message(),
	})
}

// Import parses an uploaded spreadsheet and stores the preview on the
// session. Nothing reaches the record store until submit.
func (h *LeadHandler) Import(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apierrors.ValidationError(c, domain.NewValidationError("missing file upload"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	defer file.Close()

	preview, err := h.importSvc.Parse(file, fileHeader.Filename, fileHeader.Size)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}

	if h.metrics != nil {
		h.metrics.RecordImportParsed(preview.TotalRows, preview.DroppedCount)
	}
	sess.SetPreview(preview.ValidRows)
	return c.JSON(http.StatusOK, preview)
}

// ImportSubmit sends the previewed rows to the record store
func (h *LeadHandler) ImportSubmit(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	rows := sess.TakePreview()
	result, err := h.importSvc.Submit(c.Request().Context(), rows)
	if err != nil {
		// the preview is consumed either way; a failed submit requires a
		// fresh upload so stale rows cannot be replayed
		return apierrors.FromDomain(c, err)
	}

	if h.metrics != nil {
		h.metrics.RecordImportSubmitted()
	}
	return c.JSON(http.StatusOK, result)
}
