// Package model defines the core domain entities for the Sunday Edge data service.
package model

import (
	"bytes"
	"encoding/json"
)

// Team is an NFL franchise as reported by the roster data service.
//
// @Description NFL team
type Team struct {
	ID           string `json:"id" example:"12"`
	Name         string `json:"name" example:"Kansas City Chiefs"`
	Abbreviation string `json:"abbreviation" example:"KC"`
} // @name Team

// Player is a rostered player.
//
// @Description NFL player
type Player struct {
	Name            string `json:"name" example:"Patrick Mahomes"`
	Position        string `json:"position" example:"QB"`
	Team            string `json:"team" example:"KC"`
	ExperienceYears int    `json:"experience_years" example:"8"`
} // @name Player

// TeamRef identifies the team a roster belongs to. The upstream sends
// either a bare identifier or a full team object.
type TeamRef struct {
	Team
}

func (r *TeamRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	if data[0] != '{' {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		r.ID = n.String()
		return nil
	}
	return json.Unmarshal(data, &r.Team)
}

// Roster is the list of players for one team.
//
// @Description Team roster
type Roster struct {
	Team    TeamRef  `json:"team" swaggertype:"object"`
	Players []Player `json:"roster"`
} // @name Roster
