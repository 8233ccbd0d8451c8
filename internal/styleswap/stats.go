package styleswap

import "github.com/shopspring/decimal"

func GetAffiliateStats(affiliate Affiliate, commissions []Commission) (stats AffiliateStats) {
	stats.Balance = affiliate.Balance
	stats.TotalEarned = affiliate.TotalEarned
	stats.Pending = decimal.Zero
	stats.Paid = decimal.Zero
	for _, commission := range commissions {
		stats.TotalSales++
		switch commission.Status {
		case CommissionPending:
			stats.Pending = stats.Pending.Add(commission.Amount)
		case CommissionPaid:
			stats.Paid = stats.Paid.Add(commission.Amount)
		}
	}
	return stats
}
