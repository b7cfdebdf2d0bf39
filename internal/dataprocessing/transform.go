package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"

	"adcpview/internal/config"
	"adcpview/internal/dataset"
	apperrors "adcpview/internal/errors"
	"adcpview/internal/infrastructure"
)

// Transformer runs the survey transformation pipeline.
type Transformer struct {
	logger *slog.Logger
	tracer *PipelineTracer
}

// NewTransformer creates a Transformer. metrics may be nil.
func NewTransformer(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Transformer {
	return &Transformer{
		logger: logger.With(slog.String("component", "transformer")),
		tracer: NewPipelineTracer(metrics),
	}
}

// Transform converts a raw survey dataset into its transformed form. raw is
// not modified.
func (t *Transformer) Transform(ctx context.Context, raw *dataset.Dataset, opts TransformOptions) (out *dataset.Dataset, err error) {
	if opts.Persist && opts.Sink == nil {
		return nil, apperrors.NewAppValidationError("persist requested without a sink")
	}

	if opts.Name != "" {
		ctx = infrastructure.WithSurveyFile(ctx, opts.Name)
	}
	ctx, done := t.tracer.TraceRun(ctx, opts.Name)
	defer func() { done(err) }()

	ds := raw
	var depthDim string

	steps := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		{"squeeze", func(context.Context) error {
			ds = ds.Squeeze()
			return nil
		}},
		{"reference_depth", func(context.Context) error {
			var err error
			ds, depthDim, err = referenceDepth(ds)
			return err
		}},
		{"qc_mask", func(ctx context.Context) error {
			var masked int
			var err error
			ds, masked, err = applyQC(ds)
			t.tracer.RecordMasked(ctx, masked)
			return err
		}},
		{"select", func(context.Context) error {
			if err := requireVars(ds, KeptVariables...); err != nil {
				return err
			}
			var err error
			ds, err = ds.Select(KeptVariables...)
			return err
		}},
		{"fix_time", func(context.Context) error {
			var err error
			ds, err = FixTime(ds)
			return err
		}},
		{"swap_depth", func(context.Context) error {
			var err error
			ds, err = ds.SwapDim(depthDim, VarDepth)
			if err != nil {
				return apperrors.NewDataFormatError(VarDepth, err)
			}
			return nil
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := t.tracer.Stage(ctx, step.name, step.run); err != nil {
			t.logger.ErrorContext(ctx, "transform stage failed",
				slog.String("stage", step.name),
				slog.String("error", err.Error()))
			return nil, err
		}
	}

	if opts.Persist {
		if err := t.tracer.Stage(ctx, "persist", func(ctx context.Context) error {
			return opts.Sink.Write(ctx, opts.Name, ds)
		}); err != nil {
			return nil, fmt.Errorf("persist %s: %w", opts.Name, err)
		}
	}

	n, _ := ds.DimLen(mustTimeDim(ds))
	t.logger.InfoContext(ctx, "survey transformed",
		slog.Int("casts", n),
		slog.Bool("persisted", opts.Persist))

	return ds, nil
}

// referenceDepth replaces PROFZ with the negated depths of the first cast as
// a 1-D coordinate. It returns the depth dimension.
func referenceDepth(ds *dataset.Dataset) (*dataset.Dataset, string, error) {
	if err := requireVars(ds, VarDepth); err != nil {
		return nil, "", err
	}
	pv, _ := ds.Var(VarDepth)
	td, err := timeDim(ds)
	if err != nil {
		return nil, "", apperrors.NewDataFormatError(VarTime, err)
	}

	if pv.HasDim(td) {
		if pv, err = pv.Isel(td, 0); err != nil {
			return nil, "", apperrors.NewDataFormatError(VarDepth, err)
		}
	}
	if len(pv.Dims) != 1 {
		return nil, "", apperrors.NewDataFormatError(VarDepth,
			fmt.Errorf("reference depth has dimensions %v", pv.Dims))
	}

	out, err := ds.AssignCoord(VarDepth, pv.Scale(-1))
	if err != nil {
		return nil, "", apperrors.NewDataFormatError(VarDepth, err)
	}
	return out, pv.Dims[0], nil
}

// applyQC masks every data sample whose flags are not all good. It returns
// the number of grid points rejected.
func applyQC(ds *dataset.Dataset) (*dataset.Dataset, int, error) {
	var mask *dataset.Mask
	for _, name := range QCVariables {
		if err := requireVars(ds, name); err != nil {
			return nil, 0, err
		}
		v, _ := ds.Var(name)
		m, err := dataset.Equal(v, config.QCGood)
		if err != nil {
			return nil, 0, apperrors.NewDataFormatError(name, err)
		}
		if mask == nil {
			mask = m
			continue
		}
		if mask, err = mask.And(m); err != nil {
			return nil, 0, apperrors.NewDataFormatError(name, err)
		}
	}

	out, err := ds.Where(mask)
	if err != nil {
		return nil, 0, apperrors.NewDataFormatError(QCVariables[0], err)
	}
	return out, len(mask.Keep) - mask.Count(), nil
}

// requireVars reports the first absent name as a data format error.
func requireVars(ds *dataset.Dataset, names ...string) error {
	for _, n := range names {
		if _, ok := ds.Var(n); !ok {
			return apperrors.NewDataFormatError(n, dataset.ErrNoVariable)
		}
	}
	return nil
}

func mustTimeDim(ds *dataset.Dataset) string {
	td, _ := timeDim(ds)
	return td
}
