package core

import "time"

// CategoryTotal is an amount aggregated by category name.
type CategoryTotal struct {
	Name  string `json:"name"`
	Total Money  `json:"total"`
}

// MonthTotal is an amount aggregated by calendar month.
type MonthTotal struct {
	MonthStart time.Time `json:"monthStart"`
	Total      Money     `json:"total"`
}

// Dashboard is the compact summary shown on the home screen.
type Dashboard struct {
	Total      Money           `json:"total"`
	Today      Money           `json:"today"`
	ByCategory []CategoryTotal `json:"byCategory"`
	ByMonth    []MonthTotal    `json:"byMonth"`
}
