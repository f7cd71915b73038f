package report

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/janekbaraniewski/routerspend/internal/aggregate"
	"github.com/janekbaraniewski/routerspend/internal/core"
	"github.com/janekbaraniewski/routerspend/internal/fetch"
)

// Fetcher is what the service needs from the activity layer.
type Fetcher interface {
	Fetch(ctx context.Context, r core.DateRange) (string, error)
	Refresh(ctx context.Context, r core.DateRange) (string, error)
}

var _ Fetcher = (*fetch.Client)(nil)

// Service runs the resolve→fetch→aggregate pipeline for one date range.
type Service struct {
	fetcher Fetcher
	log     *logrus.Logger
}

func NewService(fetcher Fetcher, log *logrus.Logger) *Service {
	return &Service{fetcher: fetcher, log: log}
}

// Report fetches (cache permitting) and aggregates activity for the range.
// An empty aggregate is not an error; it means no usage in the window.
func (s *Service) Report(ctx context.Context, r core.DateRange) (core.Result, error) {
	payload, err := s.fetcher.Fetch(ctx, r)
	if err != nil {
		return core.NewResult(), err
	}
	return s.aggregate(payload, r), nil
}

// Refresh bypasses the cache for the exact range and re-aggregates.
func (s *Service) Refresh(ctx context.Context, r core.DateRange) (core.Result, error) {
	payload, err := s.fetcher.Refresh(ctx, r)
	if err != nil {
		return core.NewResult(), err
	}
	return s.aggregate(payload, r), nil
}

func (s *Service) aggregate(payload string, r core.DateRange) core.Result {
	res := aggregate.Aggregate(payload, r, s.log)
	s.log.WithFields(logrus.Fields{
		"range":   r.Key(),
		"models":  len(res.Costs),
		"tokens":  res.TotalTokens,
		"skipped": res.Skipped,
	}).Debug("aggregated transaction activity")
	return res
}
