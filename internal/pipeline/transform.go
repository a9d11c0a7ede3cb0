package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/couchcryptid/wildfire-etl/internal/features"
)

// DefaultTestRatio is the share of most recent rows held out by the temporal split.
const DefaultTestRatio = 0.3

// Engineered is the output of one region transform.
type Engineered struct {
	Dataset       domain.Dataset
	DatasetTable  domain.Table
	Features      []features.Row
	FeatureTable  domain.Table
	Scaler        features.Scaler
	Summaries     []features.Summary // before scaling
	PositiveShare float64
	TrainRows     int
	TestRows      int
}

// Engineer turns a consolidated table into a labeled dataset and its
// normalized feature rows.
type Engineer struct {
	opts   domain.ClusterOptions
	logger *slog.Logger
}

// NewEngineer creates an Engineer with the given clustering options.
func NewEngineer(opts domain.ClusterOptions, logger *slog.Logger) *Engineer {
	return &Engineer{opts: opts, logger: logger}
}

// Transform parses, clusters and synthesizes absences, then derives features.
// Any parse or clustering error rejects the whole table.
func (e *Engineer) Transform(t domain.Table) (Engineered, error) {
	records, err := domain.ParseOccurrences(t)
	if err != nil {
		return Engineered{}, fmt.Errorf("parse occurrences: %w", err)
	}

	ds, err := domain.BuildDataset(records, e.opts)
	if err != nil {
		return Engineered{}, err
	}

	raw := features.Extract(features.FillMissing(ds.Records))
	summaries, positive := features.Summarize(raw)
	for _, s := range summaries {
		e.logger.Debug("feature summary", "column", s.Column, "mean", s.Mean, "std_dev", s.StdDev, "min", s.Min, "max", s.Max)
	}

	rows, scaler := features.Normalize(raw)
	train, test := features.TemporalSplit(rows, DefaultTestRatio)

	return Engineered{
		Dataset:       ds,
		DatasetTable:  ds.Table(t.Columns),
		Features:      rows,
		FeatureTable:  features.Table(rows),
		Scaler:        scaler,
		Summaries:     summaries,
		PositiveShare: positive,
		TrainRows:     len(train),
		TestRows:      len(test),
	}, nil
}
