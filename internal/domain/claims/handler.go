package claims

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/revcycle/claims/internal/platform/auth"
	"github.com/revcycle/claims/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "billing"))

	g.GET("/claims", h.ListClaims)
	g.POST("/claims", h.CreateClaim)
	g.GET("/claims/aging-report", h.AgingReport)
	g.GET("/claims/metrics", h.Metrics)
	g.GET("/claims/:id", h.GetClaim)
	g.PUT("/claims/:id", h.UpdateClaim)
	g.GET("/claims/:id/status", h.GetClaimStatus)
	g.GET("/claims/:id/timeline", h.GetTimeline)
	g.GET("/claims/:id/service-lines", h.GetServiceLines)

	g.POST("/claims/:id/validate", h.ValidateClaim)
	g.POST("/claims/:id/mark-validated", h.MarkValidated)
	g.POST("/claims/:id/submit", h.SubmitClaim)
	g.POST("/claims/:id/resubmit", h.ResubmitClaim)
	g.POST("/claims/:id/refresh-status", h.RefreshStatus)
	g.POST("/claims/:id/adjudication", h.RecordAdjudication)
	g.POST("/claims/:id/void", h.VoidClaim)
	g.POST("/claims/:id/appeal", h.AppealClaim)
	g.POST("/claims/:id/appeal/resolve", h.ResolveAppeal)
	g.POST("/claims/:id/final-deny", h.FinalDenyClaim)
	g.POST("/claims/:id/adjustments", h.CreateAdjustment)

	g.POST("/claims/batch/validate", h.BatchValidate)
	g.POST("/claims/batch/submit", h.BatchSubmit)
	g.POST("/claims/batch/refresh-status", h.BatchRefreshStatus)
}

// respondError maps the claim error taxonomy onto HTTP status codes. A failed
// validation gate returns 400 with the full validation result as the body.
func respondError(c echo.Context, err error) error {
	var nf *NotFoundError
	var sc *StateConflictError
	var vf *ValidationFailedError
	var ie *IntegrationError
	var ce *ConcurrencyError
	switch {
	case errors.As(err, &nf):
		return echo.NewHTTPError(http.StatusNotFound, nf.Error())
	case errors.As(err, &sc):
		return echo.NewHTTPError(http.StatusConflict, sc.Error())
	case errors.As(err, &ce):
		return echo.NewHTTPError(http.StatusConflict, ce.Error())
	case errors.As(err, &vf):
		return c.JSON(http.StatusBadRequest, vf.Result)
	case errors.As(err, &ie):
		return echo.NewHTTPError(http.StatusBadGateway, ie.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func claimID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid claim id")
	}
	return id, nil
}

func actor(c echo.Context) *string {
	if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
		return &uid
	}
	return nil
}

type createClaimRequest struct {
	Claim
	ServiceLines []*ServiceLine `json:"service_lines"`
}

func (h *Handler) CreateClaim(c echo.Context) error {
	var req createClaimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &req.Claim, req.ServiceLines, actor(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, req.Claim)
}

func (h *Handler) GetClaim(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	cl, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) ListClaims(c echo.Context) error {
	pg := pagination.FromContext(c)
	var f Filter
	if v := c.QueryParam("status"); v != "" {
		st := ClaimStatus(v)
		if !st.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		f.Status = &st
	}
	if v := c.QueryParam("client_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid client_id")
		}
		f.ClientID = &id
	}
	if v := c.QueryParam("payer_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid payer_id")
		}
		f.PayerID = &id
	}
	if v := c.QueryParam("claim_type"); v != "" {
		t := ClaimType(v)
		if !t.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid claim_type")
		}
		f.ClaimType = &t
	}
	if v := c.QueryParam("service_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid service_from")
		}
		f.ServiceFrom = &t
	}
	if v := c.QueryParam("service_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid service_to")
		}
		f.ServiceTo = &t
	}
	items, total, err := h.svc.Search(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateClaim(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	var cl Claim
	if err := c.Bind(&cl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl.ID = id
	if err := h.svc.UpdateDraft(c.Request().Context(), &cl, actor(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) GetClaimStatus(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	cl, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"claim_id":     cl.ID,
		"claim_number": cl.ClaimNumber,
		"status":       cl.Status,
		"version":      cl.Version,
	})
}

func (h *Handler) GetTimeline(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	history, err := h.svc.Timeline(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, history)
}

func (h *Handler) GetServiceLines(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	lines, err := h.svc.ServiceLines(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lines)
}

// -- Validation --

func (h *Handler) ValidateClaim(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	result, err := h.svc.Validate(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) MarkValidated(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	cl, err := h.svc.MarkValidated(c.Request().Context(), id, actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

// -- Submission --

type submitRequest struct {
	SubmissionMethod SubmissionMethod `json:"submission_method"`
	SubmissionDate   time.Time        `json:"submission_date"`
	Validate         bool             `json:"validate"`
}

func (r *submitRequest) date() time.Time {
	if r.SubmissionDate.IsZero() {
		return time.Now().UTC()
	}
	return r.SubmissionDate
}

func (h *Handler) SubmitClaim(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	var cl *Claim
	if req.Validate {
		cl, err = h.svc.SubmitWithValidation(ctx, id, req.SubmissionMethod, req.date(), actor(c))
	} else {
		cl, err = h.svc.Submit(ctx, id, req.SubmissionMethod, req.date(), actor(c))
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) ResubmitClaim(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.Resubmit(c.Request().Context(), id, req.SubmissionMethod, req.date(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) RefreshStatus(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	cl, err := h.svc.RefreshStatus(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

type adjudicationRequest struct {
	Outcome          ClaimStatus   `json:"outcome"`
	AdjudicationDate time.Time     `json:"adjudication_date"`
	DenialReason     *DenialReason `json:"denial_reason,omitempty"`
	DenialDetails    *string       `json:"denial_details,omitempty"`
}

func (h *Handler) RecordAdjudication(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	var req adjudicationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.RecordAdjudication(c.Request().Context(), id, req.Outcome,
		req.AdjudicationDate, req.DenialReason, req.DenialDetails, actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

// -- Lifecycle actions --

type voidRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) VoidClaim(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	var req voidRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.Void(c.Request().Context(), id, req.Notes, actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

type appealRequest struct {
	AppealReason        string   `json:"appeal_reason"`
	SupportingDocuments []string `json:"supporting_documents,omitempty"`
}

func (h *Handler) AppealClaim(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	var req appealRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.Appeal(c.Request().Context(), id, req.AppealReason, req.SupportingDocuments, actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

type resolveAppealRequest struct {
	Outcome        ClaimStatus `json:"outcome"`
	ResolutionDate time.Time   `json:"resolution_date"`
	DenialDetails  *string     `json:"denial_details,omitempty"`
}

func (h *Handler) ResolveAppeal(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	var req resolveAppealRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ResolutionDate.IsZero() {
		req.ResolutionDate = time.Now().UTC()
	}
	cl, err := h.svc.ResolveAppeal(c.Request().Context(), id, req.Outcome, req.ResolutionDate, req.DenialDetails, actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

type finalDenyRequest struct {
	Notes *string `json:"notes,omitempty"`
}

func (h *Handler) FinalDenyClaim(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	var req finalDenyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.FinalDeny(c.Request().Context(), id, req.Notes, actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) CreateAdjustment(c echo.Context) error {
	id, err := claimID(c)
	if err != nil {
		return err
	}
	var req createClaimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl, err := h.svc.CreateAdjustment(c.Request().Context(), id, &req.Claim, req.ServiceLines, actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, cl)
}

// -- Batch --

type batchValidateRequest struct {
	ClaimIDs []uuid.UUID `json:"claim_ids"`
}

func (h *Handler) BatchValidate(c echo.Context) error {
	var req batchValidateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.ClaimIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "claim_ids is required")
	}
	batch, results, err := h.svc.BatchValidate(c.Request().Context(), req.ClaimIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"batch":   batch,
		"results": results,
	})
}

type batchSubmitRequest struct {
	ClaimIDs         []uuid.UUID      `json:"claim_ids"`
	SubmissionMethod SubmissionMethod `json:"submission_method"`
	SubmissionDate   time.Time        `json:"submission_date"`
	MaxItems         int              `json:"max_items"`
}

func (h *Handler) BatchSubmit(c echo.Context) error {
	var req batchSubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.ClaimIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "claim_ids is required")
	}
	date := req.SubmissionDate
	if date.IsZero() {
		date = time.Now().UTC()
	}
	batch, err := h.svc.BatchSubmit(c.Request().Context(), req.ClaimIDs, req.SubmissionMethod, date, actor(c), req.MaxItems)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, batch)
}

type batchRefreshRequest struct {
	ClaimIDs []uuid.UUID `json:"claim_ids"`
	MaxItems int         `json:"max_items"`
}

func (h *Handler) BatchRefreshStatus(c echo.Context) error {
	var req batchRefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.ClaimIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "claim_ids is required")
	}
	batch, err := h.svc.BatchRefreshStatus(c.Request().Context(), req.ClaimIDs, req.MaxItems)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, batch)
}

// -- Aging & metrics --

func (h *Handler) AgingReport(c echo.Context) error {
	asOf := time.Now().UTC()
	if v := c.QueryParam("as_of"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid as_of")
		}
		asOf = t
	}
	byPayer := c.QueryParam("by_payer") == "true"
	report, err := h.svc.AgingReport(c.Request().Context(), asOf, nil, byPayer)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) Metrics(c echo.Context) error {
	from, err := time.Parse("2006-01-02", c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "from is required (YYYY-MM-DD)")
	}
	to, err := time.Parse("2006-01-02", c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to is required (YYYY-MM-DD)")
	}
	metrics, err := h.svc.Metrics(c.Request().Context(), from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, metrics)
}
