package model

import "time"

// ConversionMetric is the aggregated conversion view for one
// (source, opportunity type) pair. It is fully recomputed from the
// decision ledger on every outcome insert, never incremented, so
// conversion_rate is always exactly customers/decisions*100.
type ConversionMetric struct {
	Source                   Source          `json:"source"`
	OpportunityType          OpportunityType `json:"opportunity_type"`
	TotalDecisions           int             `json:"total_decisions"`
	TotalResponses           int             `json:"total_responses"`
	TotalCustomers           int             `json:"total_customers"`
	TotalDealsClosed         int             `json:"total_deals_closed"`
	TotalRevenue             float64         `json:"total_revenue"`
	AvgTimeToConversionHours float64         `json:"avg_time_to_conversion_hours"`
	ConversionRate           float64         `json:"conversion_rate"`
	LastUpdated              time.Time       `json:"last_updated"`
}

// ROIRow is the revenue-per-decision view for one (type, source) pair,
// restricted to pairs with positive revenue.
type ROIRow struct {
	OpportunityType       OpportunityType `json:"opportunity_type"`
	Source                Source          `json:"source"`
	DecisionsMade         int             `json:"decisions_made"`
	TotalRevenue          float64         `json:"total_revenue"`
	AvgRevenuePerDecision float64         `json:"avg_revenue_per_decision"`
	ClosedDeals           int             `json:"closed_deals"`
	AvgTimeHours          float64         `json:"avg_time_hours"`
}
