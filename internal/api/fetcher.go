package api

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calumet/energy-bridge/internal/database"
	"github.com/calumet/energy-bridge/internal/models"
	"github.com/calumet/energy-bridge/internal/readings"
	"github.com/calumet/energy-bridge/internal/usage"
)

const lookbackDays = 30

// UsageFetcher drives the one-shot historical backfill: authenticate,
// resolve the account, fetch the lookback window, expand each day into
// UTC hourly points, and write them as a single batch.
type UsageFetcher struct {
	client *Client
	repo   database.PointRepository
	loc    *time.Location
	logger *logrus.Logger
}

func NewUsageFetcher(client *Client, repo database.PointRepository, loc *time.Location, logger *logrus.Logger) *UsageFetcher {
	return &UsageFetcher{
		client: client,
		repo:   repo,
		loc:    loc,
		logger: logger,
	}
}

// Backfill runs the whole pipeline once. Any failure aborts the run
// with nothing written; there are no partial batches and no retries.
func (f *UsageFetcher) Backfill(ctx context.Context) error {
	if err := f.client.SignIn(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	account, err := f.client.AccountNumber(ctx)
	if err != nil {
		return fmt.Errorf("account lookup failed: %w", err)
	}

	// The report is keyed by calendar date in the account's local zone.
	end := time.Now().In(f.loc)
	start := end.AddDate(0, 0, -lookbackDays)

	days, err := f.client.UsageReport(ctx, account, start, end)
	if err != nil {
		return err
	}

	var points []models.Point
	for _, day := range days {
		for _, hv := range usage.Expand(day, f.loc) {
			r, err := readings.NewHourlyUsage(hv.Time, hv.KWH)
			if err != nil {
				return err
			}
			points = append(points, r.Point())
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })

	f.logger.WithFields(logrus.Fields{
		"account": account,
		"days":    len(days),
		"points":  len(points),
	}).Info("Writing usage batch")

	if err := f.repo.WriteBatch(ctx, points); err != nil {
		return fmt.Errorf("failed to write usage batch: %w", err)
	}
	return nil
}
