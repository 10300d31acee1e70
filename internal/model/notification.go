package model

import "time"

// NotificationStatus represents the lifecycle of a dispatched notification.
type NotificationStatus string

const (
	NotificationPosted        NotificationStatus = "posted"
	NotificationBoosted       NotificationStatus = "boosted"
	NotificationCancelPending NotificationStatus = "cancel_pending"
	NotificationCanceled      NotificationStatus = "canceled"
)

// SurrenderScore is the computed index plus the input snapshot it was
// computed from. Created once per qualifying punt, never mutated.
type SurrenderScore struct {
	Value       float64 `json:"value"`
	Play        Play    `json:"play"`
	ContextPlay Play    `json:"context_play"`
	DelayOfGame bool    `json:"delay_of_game"`

	// Unadjusted is set only for delay-of-game punts: the index the punt
	// would have earned without the penalty adjustment. Informational.
	Unadjusted float64 `json:"unadjusted,omitempty"`
}

// PercentileResult holds both percentile ranks for a score, in [0, 100].
type PercentileResult struct {
	CurrentSeason float64 `json:"current_season"`
	Historical    float64 `json:"historical"`
}

// NotificationRecord tracks one dispatched notification through its
// lifecycle. The (GameID, DriveID) pair is the dedup key.
type NotificationRecord struct {
	ID                   string             `json:"id"`
	GameID               string             `json:"game_id"`
	DriveID              string             `json:"drive_id"`
	StatusID             string             `json:"status_id"`
	BoostID              string             `json:"boost_id,omitempty"`
	Score                float64            `json:"score"`
	CurrentPercentile    float64            `json:"current_percentile"`
	HistoricalPercentile float64            `json:"historical_percentile"`
	Status               NotificationStatus `json:"status"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// NotificationEvent is the per-punt output of a poll cycle.
type NotificationEvent struct {
	ID                   string    `json:"id"`
	GameID               string    `json:"game_id"`
	DriveID              string    `json:"drive_id"`
	StatusID             string    `json:"status_id"`
	Text                 string    `json:"text"`
	Score                float64   `json:"score"`
	CurrentPercentile    float64   `json:"current_percentile"`
	HistoricalPercentile float64   `json:"historical_percentile"`
	DelayOfGame          bool      `json:"delay_of_game"`
	CreatedAt            time.Time `json:"created_at"`
}
