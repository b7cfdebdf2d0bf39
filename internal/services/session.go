package services

import (
	"context"
	"log/slog"
	"sync"

	gonumplot "gonum.org/v1/plot"

	"adcpview/internal/archive"
	"adcpview/internal/catalog"
	"adcpview/internal/dataprocessing"
	"adcpview/internal/dataset"
	apperrors "adcpview/internal/errors"
	"adcpview/internal/infrastructure"
	"adcpview/internal/plot"
	ws "adcpview/internal/websocket"
)

// pendingSelections is the queue length of a session's change channel.
const pendingSelections = 8

// YearRange is the effective catalog year filter.
type YearRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// EffectiveYears orders a year filter. Both bounds zero selects every year
// of the catalog.
func EffectiveYears(cat *catalog.Catalog, from, to int) YearRange {
	years := YearRange{From: from, To: to}
	if years.From == 0 && years.To == 0 {
		if lo, hi, ok := cat.YearBounds(); ok {
			years = YearRange{From: lo, To: hi}
		}
	}
	if years.From > years.To {
		years.From, years.To = years.To, years.From
	}
	return years
}

// View is the outcome of one pipeline run.
type View struct {
	SessionID string `json:"session_id"`
	// Selection is the effective selection after file resolution and
	// range clamping.
	Selection Selection `json:"selection"`
	Years     YearRange `json:"years"`
	Files     []string  `json:"files"`
	Bounds    Bounds    `json:"bounds"`
	// Reloaded is set when the run opened a file or changed the year range,
	// which resets every filter range to its bounds.
	Reloaded bool          `json:"reloaded"`
	Casts    int           `json:"casts"`
	Summary  catalog.Table `json:"summary"`
	Details  catalog.Table `json:"details"`
	// SeriesNames lists the variables of Series in order.
	SeriesNames []string `json:"series"`

	Map    *gonumplot.Plot   `json:"-"`
	Series []*gonumplot.Plot `json:"-"`
}

// SeriesPlot returns the time series plot of a variable.
func (v *View) SeriesPlot(name string) (*gonumplot.Plot, bool) {
	for i, n := range v.SeriesNames {
		if n == name && i < len(v.Series) {
			return v.Series[i], true
		}
	}
	return nil, false
}

// Session is one viewer's selection state and the survey file it holds
// open. Pipeline runs of a session are serialised.
type Session struct {
	id     string
	svc    *ViewerService
	logger *slog.Logger

	updates chan Selection
	cancel  context.CancelFunc
	done    chan struct{}

	mu     sync.Mutex
	closed bool
	handle *archive.Handle
	file   string
	years  YearRange
	data   *dataset.Dataset
	bounds Bounds
	view   *View
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Apply runs the pipeline for sel and returns the resulting view. A change of
// file or year range reloads the file and resets every filter range to the
// slider bounds; otherwise the ranges are clamped to them.
func (s *Session) Apply(ctx context.Context, sel Selection) (*View, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	ctx = infrastructure.WithSessionID(ctx, s.id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, apperrors.NewNotFoundError("session " + s.id)
	}

	years := EffectiveYears(s.svc.catalog, sel.YearFrom, sel.YearTo)
	res := s.svc.catalog.Resolve(years.From, years.To, sel.File)
	sel.YearFrom, sel.YearTo, sel.File = years.From, years.To, res.File
	view := &View{SessionID: s.id, Years: years, Files: res.Files}

	if res.File == "" {
		s.release(ctx)
		s.years = years
		view.Selection = sel
		s.view = view
		s.logger.InfoContext(ctx, "no survey file in year range",
			slog.Int("from", years.From),
			slog.Int("to", years.To))
		return view, nil
	}

	reload := s.data == nil || res.File != s.file || years != s.years
	if s.data == nil || res.File != s.file {
		if err := s.load(ctx, res.File); err != nil {
			return nil, err
		}
	}
	s.years = years

	if reload {
		sel = sel.reset(s.bounds)
	} else {
		sel = sel.clamp(s.bounds)
	}
	view.Selection = sel
	view.Bounds = s.bounds
	view.Reloaded = reload

	if err := s.render(ctx, view); err != nil {
		return nil, err
	}
	s.view = view
	return view, nil
}

// render filters the loaded dataset and builds the figures of view.
func (s *Session) render(ctx context.Context, view *View) error {
	sel := view.Selection
	filtered, err := dataprocessing.FilterBBox(s.data, sel.Lon, sel.Lat, true)
	if err != nil {
		return err
	}
	if td, ok := filtered.Var(dataprocessing.VarTime); ok && len(td.Dims) == 1 {
		view.Casts, _ = filtered.DimLen(td.Dims[0])
	}

	if view.Map, err = s.svc.builder.VectorMap(ctx, filtered, s.svc.bathy, sel.MapRequest()); err != nil {
		return err
	}
	if view.Series, err = s.svc.builder.TimeSeries(ctx, filtered); err != nil {
		return err
	}
	view.SeriesNames = plot.SeriesVariables

	if view.Summary, view.Details, err = s.svc.catalog.Tables(sel.File, sel.YearFrom, sel.YearTo); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "selection applied",
		slog.Int("casts", view.Casts),
		slog.Bool("reloaded", view.Reloaded))
	return nil
}

// load releases the held file, then opens and transforms file.
func (s *Session) load(ctx context.Context, file string) error {
	s.release(ctx)
	ctx = infrastructure.WithSurveyFile(ctx, file)

	h, err := s.svc.store.Open(ctx, file)
	if err != nil {
		return err
	}
	s.svc.recordOpen(ctx)

	ds, err := s.svc.transformer.Transform(ctx, h.Dataset(), dataprocessing.TransformOptions{Name: file})
	if err != nil {
		h.Close()
		return err
	}
	b, err := sliderBounds(ds)
	if err != nil {
		h.Close()
		return err
	}

	s.handle, s.file, s.data, s.bounds = h, file, ds, b
	return nil
}

// release closes the held file, if any.
func (s *Session) release(ctx context.Context) {
	if s.handle == nil {
		return
	}
	if err := s.handle.Close(); err != nil {
		s.logger.WarnContext(infrastructure.WithSurveyFile(ctx, s.file), "closing survey file failed",
			slog.String("error", err.Error()))
	}
	s.handle, s.file, s.data, s.bounds = nil, "", nil, Bounds{}
}

// View returns the latest view, or false before the first successful run.
func (s *Session) View() (*View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view, s.view != nil
}

// File returns the name of the held file.
func (s *Session) File() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file
}

// Notify queues sel for the session's listener. When the queue is full the
// oldest pending selection is discarded; only the newest one matters.
func (s *Session) Notify(sel Selection) {
	for {
		select {
		case s.updates <- sel:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

// Listen applies the selections received on updates until ctx ends or the
// channel closes. Selections that queue up while a run is in progress are
// collapsed to the newest. Every result is published to the session's
// subscribers.
func (s *Session) Listen(ctx context.Context, updates <-chan Selection) error {
	for {
		var sel Selection
		select {
		case <-ctx.Done():
			return ctx.Err()
		case next, ok := <-updates:
			if !ok {
				return nil
			}
			sel = next
		}

		sel, open := latest(updates, sel)
		s.publish(ctx, sel)
		if !open {
			return nil
		}
	}
}

func (s *Session) publish(ctx context.Context, sel Selection) {
	view, err := s.Apply(ctx, sel)
	if s.svc.publisher == nil {
		return
	}
	if err != nil {
		s.logger.WarnContext(ctx, "selection rejected", slog.String("error", err.Error()))
		s.svc.publisher.Publish(ctx, s.id, ws.TypeError, map[string]any{
			"message": err.Error(),
			"field":   apperrors.Field(err),
		})
		return
	}
	s.svc.publisher.Publish(ctx, s.id, ws.TypeView, view)
}

// latest drains the selections already queued on updates and returns the
// newest. open is false when the channel was closed.
func latest(updates <-chan Selection, sel Selection) (_ Selection, open bool) {
	for {
		select {
		case next, ok := <-updates:
			if !ok {
				return sel, false
			}
			sel = next
		default:
			return sel, true
		}
	}
}

// Close stops the listener and releases the held file. It is idempotent.
func (s *Session) Close(ctx context.Context) {
	s.cancel()
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.release(ctx)
	s.view = nil
}
