package prizepicks

import (
	"encoding/json"
	"fmt"

	"github.com/fortuna/propscout/internal/store"
)

// response is the JSON:API envelope of the projections endpoint
type response struct {
	Data     []resource `json:"data"`
	Included []resource `json:"included"`
}

type resource struct {
	ID            string                  `json:"id"`
	Type          string                  `json:"type"`
	Attributes    json.RawMessage         `json:"attributes"`
	Relationships map[string]relationship `json:"relationships"`
}

type relationship struct {
	Data *struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"data"`
}

type projectionAttributes struct {
	LineScore   store.LineScore `json:"line_score"`
	StatType    string          `json:"stat_type"`
	Description string          `json:"description"` // opponent team code
	UpdatedAt   string          `json:"updated_at"`
	StartTime   string          `json:"start_time"`
	IsPromo     bool            `json:"is_promo"`
}

type playerAttributes struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	Team     string `json:"team"`
	TeamName string `json:"team_name"`
	Market   string `json:"market"`
}

const playerType = "new_player"

// ParseProjections joins each projection to its included player record.
// Projections without a player relationship, or whose player is absent from
// "included", are left out and counted in dropped.
func ParseProjections(body []byte) (projections []store.Projection, dropped int, err error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("decoding projections: %w", err)
	}

	players := make(map[string]playerAttributes)
	for _, inc := range resp.Included {
		if inc.Type != playerType {
			continue
		}
		var attrs playerAttributes
		if err := json.Unmarshal(inc.Attributes, &attrs); err != nil {
			return nil, 0, fmt.Errorf("decoding player %s: %w", inc.ID, err)
		}
		players[inc.ID] = attrs
	}

	projections = make([]store.Projection, 0, len(resp.Data))
	for _, res := range resp.Data {
		var attrs projectionAttributes
		if err := json.Unmarshal(res.Attributes, &attrs); err != nil {
			return nil, 0, fmt.Errorf("decoding projection %s: %w", res.ID, err)
		}

		rel, ok := res.Relationships[playerType]
		if !ok || rel.Data == nil || rel.Data.Type != playerType {
			dropped++
			continue
		}
		player, ok := players[rel.Data.ID]
		if !ok || player.Name == "" {
			dropped++
			continue
		}

		projections = append(projections, store.Projection{
			ID:        res.ID,
			Name:      player.Name,
			Line:      attrs.LineScore,
			StatType:  attrs.StatType,
			Opponent:  attrs.Description,
			IsPromo:   attrs.IsPromo,
			Position:  player.Position,
			Team:      player.Team,
			TeamName:  player.TeamName,
			Market:    player.Market,
			UpdatedAt: attrs.UpdatedAt,
			StartTime: attrs.StartTime,
		})
	}

	return projections, dropped, nil
}
