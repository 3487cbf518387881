package model

// DecisionActivity counts decisions logged on a given day.
type DecisionActivity struct {
	Count   int      `json:"count"`
	Types   []string `json:"types"`
	Sources []string `json:"sources"`
}

// OutcomeActivity totals outcomes recorded on a given day.
type OutcomeActivity struct {
	Total       int     `json:"total"`
	Revenue     float64 `json:"revenue"`
	Customers   int     `json:"customers"`
	DealsClosed int     `json:"deals_closed"`
}

// DailySummary is the per-day roll-up of ledger activity, topped with the
// freshest insights and best conversion rates.
type DailySummary struct {
	Date            string             `json:"date"`
	Decisions       DecisionActivity   `json:"decisions"`
	Outcomes        OutcomeActivity    `json:"outcomes"`
	Insights        []Insight          `json:"insights"`
	ConversionRates []ConversionMetric `json:"conversion_rates"`
}
