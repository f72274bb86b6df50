package service

import (
	"errors"
	"strings"
	"time"

	"trackbot/internal/core/logger"
	shipdomain "trackbot/internal/features/shipments/domain"
	"trackbot/internal/features/shipments/ports"

	"go.uber.org/zap"
)

// ErrNoSheetsConfigured aborts a run before any network call happens.
var ErrNoSheetsConfigured = errors.New("no sheet tokens configured")

// unknownCarrierStatus is reported for rows whose carrier has no stored
// status to carry forward.
const unknownCarrierStatus = "UNKNOWN CARRIER"

// skipTabs are never processed.
var skipTabs = map[string]bool{"TEMPLATE": true}

// Runner executes one polling run: read tracked items, poll carriers,
// reconcile, write confirmed changes, send one summary. Processing is
// fully sequential; one item resolves completely before the next starts.
type Runner struct {
	store      ports.Store
	notifier   ports.Notifier
	tracker    ports.Tracker
	reconciler *Reconciler
	tokens     []string
	pause      time.Duration
	logger     *zap.Logger

	// now is replaceable in tests to pin the current month tab.
	now func() time.Time
}

// NewRunner creates a Runner over the given collaborators.
func NewRunner(store ports.Store, notifier ports.Notifier, tracker ports.Tracker,
	tokens []string, pause time.Duration) *Runner {
	return &Runner{
		store:      store,
		notifier:   notifier,
		tracker:    tracker,
		reconciler: NewReconciler(),
		tokens:     tokens,
		pause:      pause,
		logger:     logger.Get(),
		now:        time.Now,
	}
}

// currentMonthTab returns the month tab for today, e.g. "FEB".
func (r *Runner) currentMonthTab() string {
	return monthOrder[r.now().UTC().Month()-1]
}

// Run executes one full polling run and returns the rendered report.
// In dry-run mode nothing is written and no notification is sent.
func (r *Runner) Run(dryRun bool) (string, error) {
	if len(r.tokens) == 0 {
		return "", ErrNoSheetsConfigured
	}

	var entries []shipdomain.Entry
	for _, token := range r.tokens {
		r.logger.Info("Processing spreadsheet", zap.String("token", token))
		entries = append(entries, r.processSpreadsheet(token, dryRun)...)
	}
	r.logger.Info("Run complete", zap.Int("active_shipments", len(entries)))

	report := RenderReport(entries)

	if dryRun {
		r.logger.Info("Dry run, skipping notification", zap.String("report", report))
		return report, nil
	}

	if err := r.notifier.Send(report); err != nil {
		return report, err
	}
	return report, nil
}

// processSpreadsheet handles the permanent tabs plus the current month tab
// of one spreadsheet. A spreadsheet that cannot be read is skipped; the run
// carries on with the remaining sources.
func (r *Runner) processSpreadsheet(token string, dryRun bool) []shipdomain.Entry {
	tabs, err := r.store.ListTabs(token)
	if err != nil {
		r.logger.Error("Failed to read spreadsheet", zap.String("token", token), zap.Error(err))
		return nil
	}

	wanted := make(map[string]bool, len(permanentTabs)+1)
	for _, t := range permanentTabs {
		wanted[strings.ToUpper(t)] = true
	}
	wanted[r.currentMonthTab()] = true

	var entries []shipdomain.Entry
	for _, tab := range tabs {
		if skipTabs[strings.ToUpper(tab.Title)] || !wanted[strings.ToUpper(tab.Title)] {
			continue
		}

		items, err := r.store.ReadItems(token, tab)
		if err != nil {
			r.logger.Error("Failed to read tab",
				zap.String("token", token),
				zap.String("tab", tab.Title),
				zap.Error(err),
			)
			continue
		}
		r.logger.Info("Processing tab",
			zap.String("tab", tab.Title),
			zap.Int("rows", len(items)),
		)

		entries = append(entries, r.processItems(items, dryRun)...)
	}
	return entries
}

// processItems resolves each tracked item in scan order.
func (r *Runner) processItems(items []shipdomain.Item, dryRun bool) []shipdomain.Entry {
	var entries []shipdomain.Entry

	for _, item := range items {
		stored := strings.ToUpper(strings.TrimSpace(item.CurrentStatus))

		// Delivered is terminal: no lookup, no write, no report entry.
		if stored == "DELIVERED" {
			r.logger.Debug("Skipping delivered shipment", zap.String("tracking_number", item.TrackingNum))
			continue
		}

		// Unrecognized carriers never reach an adapter. The stored
		// status is carried into the report unchanged.
		if !r.tracker.Supports(item.Carrier) {
			r.logger.Warn("Unknown carrier, carrying stored status forward",
				zap.String("carrier", item.Carrier),
				zap.Int("row", item.RowNum),
			)
			status := stored
			if status == "" {
				status = unknownCarrierStatus
			}
			entries = append(entries, shipdomain.NewEntry(item, shipdomain.Decision{
				Status:       status,
				DeliveryDate: item.DeliveryDate,
				Suppressed:   true,
			}))
			continue
		}

		fresh := r.tracker.Track(item.TrackingNum, item.Carrier)
		decision := r.reconciler.Decide(item, fresh)

		if decision.Suppressed {
			r.logger.Warn("Lookup produced no trustworthy status, keeping stored state",
				zap.String("tracking_number", item.TrackingNum),
				zap.String("error", fresh.Error),
				zap.String("kept_status", decision.Status),
			)
		}

		if decision.Write && !dryRun {
			err := r.store.WriteStatus(item.SheetToken, item.SheetID, item.RowNum,
				decision.Status, decision.DeliveryDate)
			if err != nil {
				r.logger.Error("Failed to write row",
					zap.Int("row", item.RowNum),
					zap.Error(err),
				)
			} else {
				r.logger.Info("Status updated",
					zap.String("tracking_number", item.TrackingNum),
					zap.String("from", stored),
					zap.String("to", decision.Status),
				)
			}
		}

		entries = append(entries, shipdomain.NewEntry(item, decision))

		// Pacing between lookups, to stay friendly with carrier rate limits.
		if r.pause > 0 {
			time.Sleep(r.pause)
		}
	}

	return entries
}
