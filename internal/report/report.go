// Package report aggregates stored sales for the reporting endpoints.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"medeasy/pos/domain"
)

const dateLayout = "2006-01-02"

type DailyTotal struct {
	Date    string          `json:"date"`
	Sales   int             `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
}

type SalesReport struct {
	TotalSales   int             `json:"total_sales"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalItems   int64           `json:"total_items"`
	AvgSaleValue decimal.Decimal `json:"avg_sale_value"`
	Daily        []DailyTotal    `json:"daily"`
}

// Summarize totals sales with their lines attached. Days are UTC and listed
// newest first.
func Summarize(sales []domain.Sale) SalesReport {
	rep := SalesReport{
		TotalRevenue: decimal.Zero,
		AvgSaleValue: decimal.Zero,
		Daily:        []DailyTotal{},
	}
	byDay := map[string]*DailyTotal{}
	for _, s := range sales {
		rep.TotalSales++
		rep.TotalRevenue = rep.TotalRevenue.Add(s.TotalAmount)
		rep.TotalItems += itemsIn(s)

		day := s.CreatedAt.UTC().Format(dateLayout)
		d, ok := byDay[day]
		if !ok {
			d = &DailyTotal{Date: day, Revenue: decimal.Zero}
			byDay[day] = d
		}
		d.Sales++
		d.Revenue = d.Revenue.Add(s.TotalAmount)
	}
	if rep.TotalSales > 0 {
		rep.AvgSaleValue = rep.TotalRevenue.Div(decimal.NewFromInt(int64(rep.TotalSales))).Round(2)
	}
	for _, d := range byDay {
		rep.Daily = append(rep.Daily, *d)
	}
	sort.Slice(rep.Daily, func(i, j int) bool { return rep.Daily[i].Date > rep.Daily[j].Date })
	return rep
}

type MyStats struct {
	SalesCount  int             `json:"sales_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemsSold   int64           `json:"items_sold"`
}

// Mine summarizes one cashier's sales.
func Mine(sales []domain.Sale) MyStats {
	st := MyStats{TotalAmount: decimal.Zero}
	for _, s := range sales {
		st.SalesCount++
		st.TotalAmount = st.TotalAmount.Add(s.TotalAmount)
		st.ItemsSold += itemsIn(s)
	}
	return st
}

func itemsIn(s domain.Sale) int64 {
	var n int64
	for _, l := range s.Lines {
		n += l.Quantity
	}
	return n
}
