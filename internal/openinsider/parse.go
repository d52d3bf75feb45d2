package openinsider

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bighogz/insider-signal/internal/reconcile"
)

// Parse reads the listing's "tinytable" into rows keyed by canonical column.
// Headers are matched by name, so screener, latest-filings and filtered
// pages with different column sets all parse. A page without the table
// yields no rows.
func Parse(html string) ([]reconcile.Row, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	table := doc.Find("table.tinytable").First()
	if table.Length() == 0 {
		return nil, nil
	}

	idxToCol := make(map[int]string)
	table.Find("thead tr th").Each(func(i int, th *goquery.Selection) {
		if col, ok := reconcile.Canonical(th.Text()); ok {
			idxToCol[i] = col
		}
	})

	body := table.Find("tbody").First()
	if body.Length() == 0 {
		body = table
	}
	rows := make([]reconcile.Row, 0)
	body.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() == 0 {
			return
		}
		row := make(reconcile.Row, len(idxToCol))
		for idx, col := range idxToCol {
			if idx >= tds.Length() {
				continue
			}
			row[col] = reconcile.CleanText(tds.Eq(idx).Text())
		}
		rows = append(rows, row)
	})
	return rows, nil
}
