package models

import "time"

// PlayerStats holds a player's results. Only resolved matches count.
type PlayerStats struct {
	AccountID   string    `db:"account_id" json:"accountId"`
	DisplayName string    `db:"display_name" json:"displayName,omitempty"`
	GamesPlayed int       `db:"games_played" json:"gamesPlayed"`
	Wins        int       `db:"wins" json:"wins"`
	Losses      int       `db:"losses" json:"losses"`
	TotalWon    int64     `db:"total_won" json:"totalWon"`
	TotalLost   int64     `db:"total_lost" json:"totalLost"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// WinRate returns the percentage of games won
func (s *PlayerStats) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.GamesPlayed) * 100
}

// NetProfit is what the player won from others minus stakes lost
func (s *PlayerStats) NetProfit() int64 {
	return s.TotalWon - s.TotalLost
}
