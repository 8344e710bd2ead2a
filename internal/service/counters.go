package service

import (
	"strings"
	"time"

	"cartera-reconciler/internal/classifier"
	"cartera-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

// Counters is a derived view of one portfolio snapshot. Every value is
// recomputed from scratch on each snapshot; nothing is incrementally
// maintained, so independent consumers can never drift apart.
type Counters struct {
	Total int `json:"total"`

	Active        int `json:"active"`
	Voided        int `json:"voided"`
	PendingVoid   int `json:"pending_void"`
	ConfirmedVoid int `json:"confirmed_void"`

	Current  int `json:"current"`
	Upcoming int `json:"upcoming"`
	Expired  int `json:"expired"`

	InAlertWindow int `json:"in_alert_window"`

	// GestionResolved counts records whose management note carries the
	// resolved sentinel; GestionOpen counts free-text notes.
	GestionResolved int `json:"gestion_resolved"`
	GestionOpen     int `json:"gestion_open"`

	// ActiveAmount sums the parsed monetary value of non-void records.
	// NegativeCount and NegativeAmount track the records whose parsed
	// value is below zero (credit balances).
	ActiveAmount   decimal.Decimal `json:"active_amount"`
	NegativeCount  int             `json:"negative_count"`
	NegativeAmount decimal.Decimal `json:"negative_amount"`
}

// ComputeCounters derives all counters from a snapshot.
func ComputeCounters(records []*models.PolicyRecord, now time.Time, th classifier.Thresholds) Counters {
	c := Counters{Total: len(records), ActiveAmount: decimal.Zero, NegativeAmount: decimal.Zero}

	for _, rec := range records {
		if classifier.IsVoid(rec.Anulada) {
			c.Voided++
			switch strings.ToLower(strings.TrimSpace(rec.Anulada)) {
			case models.VoidPending:
				c.PendingVoid++
			case models.VoidConfirmed:
				c.ConfirmedVoid++
			}
		} else {
			c.Active++
			amount := classifier.Amount(rec)
			c.ActiveAmount = c.ActiveAmount.Add(amount)
			if amount.IsNegative() {
				c.NegativeCount++
				c.NegativeAmount = c.NegativeAmount.Add(amount)
			}

			switch classifier.Status(rec, now, th) {
			case models.StatusExpired:
				c.Expired++
			case models.StatusUpcoming:
				c.Upcoming++
			default:
				c.Current++
			}
			if classifier.InAlertWindow(rec, now, th) {
				c.InAlertWindow++
			}
		}

		if rec.Gestion != "" {
			if classifier.GestionResolved(rec.Gestion) {
				c.GestionResolved++
			} else {
				c.GestionOpen++
			}
		}
	}
	return c
}

// WatchCounters recomputes counters for every snapshot the input channel
// delivers, until it closes.
func WatchCounters(snapshots <-chan []*models.PolicyRecord, now func() time.Time, th classifier.Thresholds) <-chan Counters {
	out := make(chan Counters, 1)
	go func() {
		defer close(out)
		for snap := range snapshots {
			out <- ComputeCounters(snap, now(), th)
		}
	}()
	return out
}
