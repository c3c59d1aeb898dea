// Package schedule classifies a team's rest situation from its recent game dates.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/fortuna/propscout/internal/store"
)

// RestSituation describes how rested a team is going into today's game
type RestSituation string

const (
	PlayedYesterday            RestSituation = "played_yesterday"
	ThirdInFourRestedYesterday RestSituation = "third_in_four_rested_yesterday"
	OneDayRest                 RestSituation = "one_day_rest"
	TwoPlusDaysRest            RestSituation = "two_plus_days_rest"
)

// Describe returns a human-readable sentence for a team
func (r RestSituation) Describe(team string) string {
	switch r {
	case PlayedYesterday:
		return team + " played yesterday"
	case ThirdInFourRestedYesterday:
		return team + " is playing their 3rd game in 4 days (rested yesterday)"
	case OneDayRest:
		return team + " is playing with 1 day of rest"
	default:
		return team + " is playing with 2+ days of rest"
	}
}

// Rest is a classified situation plus the dates it was derived from
type Rest struct {
	Team       string        `json:"team"`
	Situation  RestSituation `json:"situation"`
	LastGame   string        `json:"last_game"`
	DaysSince  int           `json:"days_since"`
	RecentDays []string      `json:"recent_games"`
}

const dateLayout = "2006-01-02"

// Classify looks at the team's last three games played before today.
// Games dated today or later are ignored.
func Classify(team string, games []store.TeamGame, today time.Time) (Rest, error) {
	day := truncate(today)

	var dates []time.Time
	for _, g := range games {
		d, err := time.Parse(dateLayout, g.GameDate)
		if err != nil {
			return Rest{}, fmt.Errorf("game date %q: %w", g.GameDate, err)
		}
		if d.Before(day) {
			dates = append(dates, d)
		}
	}
	if len(dates) == 0 {
		return Rest{}, fmt.Errorf("no games before %s for %s: %w", day.Format(dateLayout), team, store.ErrMissingData)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	if len(dates) > 3 {
		dates = dates[len(dates)-3:]
	}

	last := dates[len(dates)-1]
	since := daysBetween(last, day)

	rest := Rest{
		Team:      team,
		LastGame:  last.Format(dateLayout),
		DaysSince: since,
	}
	for _, d := range dates {
		rest.RecentDays = append(rest.RecentDays, d.Format(dateLayout))
	}

	switch {
	case since == 1:
		rest.Situation = PlayedYesterday
	case since == 2 && len(dates) >= 2 && daysBetween(dates[len(dates)-2], last) == 1:
		rest.Situation = ThirdInFourRestedYesterday
	case since == 2:
		rest.Situation = OneDayRest
	default:
		rest.Situation = TwoPlusDaysRest
	}
	return rest, nil
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
