package model

import "time"

// CompanyProfile describes a listed company.
type CompanyProfile struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"company_name"`
	Sector      string `json:"sector"`
}

// WatchlistEntry is one symbol on a user's watchlist.
type WatchlistEntry struct {
	Symbol    string    `json:"symbol"`
	CreatedAt time.Time `json:"created_at"`
}
