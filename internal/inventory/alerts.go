// Package inventory computes stock and expiry alerts over the drug list.
package inventory

import (
	"sort"
	"time"

	"medeasy/pos/domain"
)

type ExpiryAlert struct {
	domain.Drug
	DaysUntilExpiry int `json:"days_until_expiry"`
}

type Alerts struct {
	LowStock   []domain.Drug `json:"low_stock"`
	Expired    []ExpiryAlert `json:"expired"`
	NearExpiry []ExpiryAlert `json:"near_expiry"`
}

type Options struct {
	LowStockLimit    int
	ExpiryWindowDays int
}

func Compute(drugs []domain.Drug, now time.Time, opts Options) Alerts {
	return Alerts{
		LowStock:   LowStock(drugs, opts.LowStockLimit),
		Expired:    Expired(drugs, now),
		NearExpiry: NearExpiry(drugs, now, opts.ExpiryWindowDays),
	}
}

// LowStock returns drugs at or below their threshold, scarcest first, capped
// at limit when limit is positive.
func LowStock(drugs []domain.Drug, limit int) []domain.Drug {
	low := []domain.Drug{}
	for _, d := range drugs {
		if d.Quantity <= d.LowStockThreshold {
			low = append(low, d)
		}
	}
	sort.SliceStable(low, func(i, j int) bool {
		if low[i].Quantity != low[j].Quantity {
			return low[i].Quantity < low[j].Quantity
		}
		return low[i].Name < low[j].Name
	})
	if limit > 0 && len(low) > limit {
		low = low[:limit]
	}
	return low
}

// Expired returns drugs whose expiry date is before today.
func Expired(drugs []domain.Drug, now time.Time) []ExpiryAlert {
	out := []ExpiryAlert{}
	for _, d := range drugs {
		if days, ok := daysUntil(d, now); ok && days < 0 {
			out = append(out, ExpiryAlert{Drug: d, DaysUntilExpiry: days})
		}
	}
	sortByExpiry(out)
	return out
}

// NearExpiry returns drugs expiring between today and windowDays from now,
// both inclusive.
func NearExpiry(drugs []domain.Drug, now time.Time, windowDays int) []ExpiryAlert {
	out := []ExpiryAlert{}
	for _, d := range drugs {
		if days, ok := daysUntil(d, now); ok && days >= 0 && days <= windowDays {
			out = append(out, ExpiryAlert{Drug: d, DaysUntilExpiry: days})
		}
	}
	sortByExpiry(out)
	return out
}

func daysUntil(d domain.Drug, now time.Time) (int, bool) {
	if d.ExpiryDate == nil {
		return 0, false
	}
	return int(dateOf(*d.ExpiryDate).Sub(dateOf(now)).Hours() / 24), true
}

func dateOf(t time.Time) time.Time {
	y, m, day := t.UTC().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func sortByExpiry(alerts []ExpiryAlert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].DaysUntilExpiry < alerts[j].DaysUntilExpiry
	})
}
