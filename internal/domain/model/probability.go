package model

import (
	"encoding/json"
	"time"
)

// GameProbability is the latest live win-probability snapshot for a game.
//
// @Description Live win probabilities for a game
type GameProbability struct {
	GameID        string             `json:"game_id" example:"401547417"`
	Probabilities map[string]float64 `json:"probabilities"`
	GameState     json.RawMessage    `json:"game_state,omitempty" swaggertype:"object"`
	ReceivedAt    time.Time          `json:"received_at" example:"2025-01-28T10:00:00Z"`
} // @name GameProbability
