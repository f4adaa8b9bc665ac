// Package readings exposes the reading lifecycle over HTTP: create, list,
// update, delete, period statistics and export shaping for each metric
// family. One handler set serves all three families through their
// descriptors.
package readings

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"vitalog/internal/metric"
	"vitalog/internal/utility"
)

// Handler serves the reading routes on top of a repository.
type Handler struct {
	repo metric.Repository
	loc  *time.Location
	now  func() time.Time
}

// NewHandler creates a Handler. Day boundaries for trend series use the
// server's local zone until a per-user timezone exists.
func NewHandler(repo metric.Repository) *Handler {
	return &Handler{
		repo: repo,
		loc:  time.Local,
		now:  time.Now,
	}
}

// ReadingRequest is the superset create/update payload; the family selects
// which fields apply. Pointers distinguish absent from zero.
type ReadingRequest struct {
	Systolic         *float64 `json:"systolic"`
	Diastolic        *float64 `json:"diastolic"`
	Pulse            *float64 `json:"pulse"`
	WalkMinutes      *float64 `json:"walk_minutes"`
	PeakPulse        *float64 `json:"peak_pulse"`
	Glucose          *float64 `json:"glucose"`
	WeightKg         *float64 `json:"weight_kg"`
	Subtype          string   `json:"subtype"`
	CapturedAt       string   `json:"captured_at"` // YYYY-MM-DDTHH:MM, client local
	UTCOffsetMinutes *int     `json:"utc_offset_minutes"`
	Notes            *string  `json:"notes"`
}

// ReadingResponse is a persisted reading plus its recomputed category.
type ReadingResponse struct {
	metric.Reading
	Category metric.Category `json:"category"`
}

func respond(r metric.Reading) ReadingResponse {
	return ReadingResponse{
		Reading:  r,
		Category: metric.Classify(r.Family, r.Subtype, r.Values),
	}
}

var familiesByPath = map[string]metric.Family{
	"pressure": metric.FamilyBloodPressure,
	"glucose":  metric.FamilyGlucose,
	"weight":   metric.FamilyWeight,
}

func (h *Handler) descriptor(c echo.Context) (metric.Descriptor, bool) {
	family, ok := familiesByPath[c.Param("family")]
	if !ok {
		return metric.Descriptor{}, false
	}
	return metric.Describe(family)
}

// toReading resolves the capture instant and assembles a reading for
// validation. Ownership is set here from the authenticated caller and never
// from the payload.
func (req *ReadingRequest) toReading(d metric.Descriptor, ownerID string) (*metric.Reading, error) {
	if req.CapturedAt == "" {
		return nil, metric.ErrMissingField("captured_at")
	}
	capturedAt, err := metric.NormalizeTimestamp(req.CapturedAt, req.UTCOffsetMinutes)
	if err != nil {
		return nil, err
	}
	if req.UTCOffsetMinutes == nil {
		log.Warn().Str("captured_at", req.CapturedAt).Msg("No client UTC offset supplied; interpreting timestamp in server-local time")
	}

	values := map[metric.Field]float64{}
	set := func(f metric.Field, v *float64) {
		if v != nil {
			values[f] = *v
		}
	}
	set(metric.FieldSystolic, req.Systolic)
	set(metric.FieldDiastolic, req.Diastolic)
	set(metric.FieldPulse, req.Pulse)
	set(metric.FieldWalkMinutes, req.WalkMinutes)
	set(metric.FieldPeakPulse, req.PeakPulse)
	set(metric.FieldGlucose, req.Glucose)
	set(metric.FieldWeight, req.WeightKg)

	r := &metric.Reading{
		OwnerID:    ownerID,
		Family:     d.Family,
		Subtype:    metric.Subtype(req.Subtype),
		Values:     values,
		CapturedAt: capturedAt,
	}
	if req.Notes != nil {
		r.Notes = *req.Notes
	}
	if err := d.Validate(r); err != nil {
		return nil, err
	}
	return r, nil
}

// CreateReadingHandler handles POST /health/:family
func (h *Handler) CreateReadingHandler(c echo.Context) error {
	ctx := c.Request().Context()

	d, ok := h.descriptor(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown metric family"})
	}
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return errorResponse(c, metric.ErrUnauthenticated)
	}

	var req ReadingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	reading, err := req.toReading(d, userID)
	if err != nil {
		return errorResponse(c, err)
	}

	if _, err := h.repo.Create(ctx, reading); err != nil {
		log.Error().Err(err).Str("family", string(d.Family)).Msg("Failed to create reading")
		return errorResponse(c, metric.ErrStorage(err))
	}
	return c.JSON(http.StatusCreated, respond(*reading))
}

// ListReadingsHandler handles GET /health/:family
func (h *Handler) ListReadingsHandler(c echo.Context) error {
	ctx := c.Request().Context()

	d, ok := h.descriptor(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown metric family"})
	}
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return errorResponse(c, metric.ErrUnauthenticated)
	}

	filter, err := h.listFilter(c, d)
	if err != nil {
		return errorResponse(c, err)
	}

	records, err := h.repo.ListByOwner(ctx, userID, d.Family, filter)
	if err != nil {
		log.Error().Err(err).Str("family", string(d.Family)).Msg("Failed to list readings")
		return errorResponse(c, metric.ErrStorage(err))
	}

	out := make([]ReadingResponse, 0, len(records))
	for _, r := range records {
		out = append(out, respond(r))
	}
	return c.JSON(http.StatusOK, out)
}

// UpdateReadingHandler handles PUT /health/:family/:reading_id with a full
// replacement field set.
func (h *Handler) UpdateReadingHandler(c echo.Context) error {
	ctx := c.Request().Context()

	d, ok := h.descriptor(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown metric family"})
	}
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return errorResponse(c, metric.ErrUnauthenticated)
	}

	var req ReadingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	reading, err := req.toReading(d, userID)
	if err != nil {
		return errorResponse(c, err)
	}

	matched, err := h.repo.UpdateOne(ctx, c.Param("reading_id"), userID, reading)
	if err != nil {
		log.Error().Err(err).Str("family", string(d.Family)).Msg("Failed to update reading")
		return errorResponse(c, metric.ErrStorage(err))
	}
	if !matched {
		return errorResponse(c, metric.ErrNotFound)
	}
	return c.JSON(http.StatusOK, respond(*reading))
}

// DeleteReadingHandler handles DELETE /health/:family/:reading_id
func (h *Handler) DeleteReadingHandler(c echo.Context) error {
	ctx := c.Request().Context()

	d, ok := h.descriptor(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown metric family"})
	}
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return errorResponse(c, metric.ErrUnauthenticated)
	}

	deleted, err := h.repo.DeleteOne(ctx, c.Param("reading_id"), userID, d.Family)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete reading")
		return errorResponse(c, metric.ErrStorage(err))
	}
	if !deleted {
		return errorResponse(c, metric.ErrNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetStatsHandler handles GET /health/:family/stats
func (h *Handler) GetStatsHandler(c echo.Context) error {
	ctx := c.Request().Context()

	d, ok := h.descriptor(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown metric family"})
	}
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return errorResponse(c, metric.ErrUnauthenticated)
	}

	period, err := h.period(c)
	if err != nil {
		return errorResponse(c, err)
	}

	now := h.now()
	from, to := period.Window(now)
	records, err := h.repo.ListByOwner(ctx, userID, d.Family, metric.ListFilter{From: from, To: to})
	if err != nil {
		log.Error().Err(err).Str("family", string(d.Family)).Msg("Failed to load readings for stats")
		return errorResponse(c, metric.ErrStorage(err))
	}

	return c.JSON(http.StatusOK, metric.Aggregate(d, records, period, now, h.loc))
}

// ExportReadingsHandler handles GET /health/:family/export
func (h *Handler) ExportReadingsHandler(c echo.Context) error {
	ctx := c.Request().Context()

	d, ok := h.descriptor(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown metric family"})
	}
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return errorResponse(c, metric.ErrUnauthenticated)
	}

	filter, err := h.listFilter(c, d)
	if err != nil {
		return errorResponse(c, err)
	}

	records, err := h.repo.ListByOwner(ctx, userID, d.Family, filter)
	if err != nil {
		log.Error().Err(err).Str("family", string(d.Family)).Msg("Failed to load readings for export")
		return errorResponse(c, metric.ErrStorage(err))
	}

	return c.JSON(http.StatusOK, metric.Shape(d, records, h.loc, h.now()))
}

// GetWeightBMIHandler handles GET /health/weight/bmi. Height is display-only
// input; nothing about it is persisted.
func (h *Handler) GetWeightBMIHandler(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return errorResponse(c, metric.ErrUnauthenticated)
	}

	heightCm, err := strconv.ParseFloat(c.QueryParam("height_cm"), 64)
	if err != nil || heightCm <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "height_cm is required and must be positive"})
	}

	records, err := h.repo.ListByOwner(ctx, userID, metric.FamilyWeight, metric.ListFilter{Limit: 1})
	if err != nil {
		log.Error().Err(err).Msg("Failed to load latest weight")
		return errorResponse(c, metric.ErrStorage(err))
	}
	if len(records) == 0 {
		return errorResponse(c, metric.ErrNotFound)
	}

	bmi, category := metric.ClassifyBMI(records[0].Value(metric.FieldWeight), heightCm)
	return c.JSON(http.StatusOK, map[string]any{
		"weight_kg": records[0].Value(metric.FieldWeight),
		"height_cm": heightCm,
		"bmi":       bmi,
		"category":  category,
	})
}

// listFilter parses subtype/limit/period/start/end query parameters.
func (h *Handler) listFilter(c echo.Context, d metric.Descriptor) (metric.ListFilter, error) {
	var filter metric.ListFilter

	if sub := c.QueryParam("subtype"); sub != "" {
		if !d.ValidSubtype(metric.Subtype(sub)) {
			return filter, metric.ErrInvalidSubtype(metric.Subtype(sub))
		}
		filter.Subtype = metric.Subtype(sub)
	}

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return filter, &metric.Error{Code: metric.CodeOutOfRange, Message: "limit must be a non-negative integer"}
		}
		filter.Limit = limit
	}

	period, err := h.period(c)
	if err != nil {
		return filter, err
	}
	filter.From, filter.To = period.Window(h.now())
	return filter, nil
}

// period resolves the requested window: explicit start/end dates win over the
// named period; date-only bounds cover whole local days.
func (h *Handler) period(c echo.Context) (metric.Period, error) {
	startStr := c.QueryParam("start")
	endStr := c.QueryParam("end")
	if startStr != "" || endStr != "" {
		start, err := time.ParseInLocation("2006-01-02", startStr, h.loc)
		if err != nil {
			return metric.Period{}, metric.ErrMalformedTimestamp(startStr)
		}
		end, err := time.ParseInLocation("2006-01-02", endStr, h.loc)
		if err != nil {
			return metric.Period{}, metric.ErrMalformedTimestamp(endStr)
		}
		return metric.CustomPeriod(start, end, h.loc), nil
	}
	return metric.ParsePeriod(c.QueryParam("period"))
}

// errorResponse maps engine error codes onto HTTP statuses with the stable
// machine-readable code in the body.
func errorResponse(c echo.Context, err error) error {
	code := metric.CodeOf(err)

	status := http.StatusInternalServerError
	switch code {
	case metric.CodeMissingField, metric.CodeOutOfRange, metric.CodeInvalidRelation,
		metric.CodeInvalidSubtype, metric.CodeMalformedTimestamp:
		status = http.StatusBadRequest
	case metric.CodeNotFound, metric.CodeMalformedIdentifier:
		status = http.StatusNotFound
	case metric.CodeUnauthenticated:
		status = http.StatusUnauthorized
	case metric.CodeStorageUnavailable:
		status = http.StatusServiceUnavailable
	}

	var e *metric.Error
	if me, ok := err.(*metric.Error); ok {
		e = me
	} else {
		e = &metric.Error{Code: code, Message: err.Error()}
	}
	return c.JSON(status, e)
}
