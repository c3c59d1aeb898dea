package bbref

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fortuna/propscout/internal/names"
	"github.com/fortuna/propscout/internal/store"
)

// ParsePositions reads the per-game stats page into a name -> position table.
// Only full_table rows count; a traded player's first row (the season total) wins.
// Hall-of-fame markers ("*") are stripped and names are folded to plain ASCII letters.
func ParsePositions(html string) (store.PositionTable, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	rows := doc.Find("tr.full_table")
	if rows.Length() == 0 {
		return nil, fmt.Errorf("no player rows found: %w", store.ErrMissingData)
	}

	table := make(store.PositionTable, rows.Length())
	rows.Each(func(i int, tr *goquery.Selection) {
		name := cellText(tr, "player", "name_display")
		pos := cellText(tr, "pos")
		if name == "" || pos == "" {
			return
		}

		name = names.Fold(strings.ReplaceAll(name, "*", ""))
		if _, seen := table[name]; seen {
			return
		}
		table[name] = strings.ToUpper(pos)
	})

	if len(table) == 0 {
		return nil, fmt.Errorf("position table is empty: %w", store.ErrMissingData)
	}
	return table, nil
}

// cellText returns the text of the first cell carrying one of the data-stat keys
func cellText(tr *goquery.Selection, keys ...string) string {
	for _, key := range keys {
		cell := tr.Find(fmt.Sprintf(`[data-stat="%s"]`, key)).First()
		if cell.Length() > 0 {
			return strings.TrimSpace(cell.Text())
		}
	}
	return ""
}
