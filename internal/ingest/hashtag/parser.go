package hashtag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fortuna/propscout/internal/store"
)

// GridID is the element id of the defense-vs-position table
const GridID = "ContentPlaceHolder1_GridView1"

var requiredColumns = []string{"Team", "Position", "PTS", "FG%", "FT%", "3PM", "REB", "AST", "STL", "BLK", "TO"}

// ParseDvpTable extracts one DvpAggregate per (team, position) row of the grid HTML.
// Cells carry a value followed by a rank ("24.3 12"); only the value is kept.
func ParseDvpTable(html string) ([]store.DvpAggregate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	table := doc.Find("table#" + GridID)
	if table.Length() == 0 {
		table = doc.Find("table").First()
	}
	if table.Length() == 0 {
		return nil, fmt.Errorf("dvp grid not found")
	}

	columns := headerIndex(table)
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			return nil, fmt.Errorf("dvp grid missing column %q", col)
		}
	}

	var (
		rows   []store.DvpAggregate
		rowErr error
	)
	table.Find("tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return true
		}
		text := func(col string) string {
			return strings.TrimSpace(cells.Eq(columns[col]).Text())
		}

		row := store.DvpAggregate{
			Team:     teamCode(text("Team")),
			Position: strings.ToUpper(firstField(text("Position"))),
		}
		for _, f := range []struct {
			col string
			dst *float64
		}{
			{"PTS", &row.Points},
			{"FG%", &row.FGPct},
			{"FT%", &row.FTPct},
			{"3PM", &row.ThreesMade},
			{"REB", &row.Rebounds},
			{"AST", &row.Assists},
			{"STL", &row.Steals},
			{"BLK", &row.Blocks},
			{"TO", &row.Turnovers},
		} {
			v, err := strconv.ParseFloat(firstField(text(f.col)), 64)
			if err != nil {
				rowErr = fmt.Errorf("row %d column %s: %w", i, f.col, err)
				return false
			}
			*f.dst = v
		}

		rows = append(rows, row)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	return rows, nil
}

// headerIndex maps header labels to cell positions. Sort links render as "Sort: PTS".
func headerIndex(table *goquery.Selection) map[string]int {
	columns := make(map[string]int)
	table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		label := strings.TrimSpace(th.Text())
		if title, ok := th.Find("a").Attr("title"); ok && label == "" {
			label = title
		}
		label = strings.TrimSpace(strings.TrimPrefix(label, "Sort:"))
		columns[label] = i
	})
	return columns
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func teamCode(s string) string {
	s = strings.ToUpper(firstField(s))
	if len(s) > 3 {
		s = s[:3]
	}
	return s
}
