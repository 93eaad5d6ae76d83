package ui

import (
	"driftline/internal/domain"

	gomponents "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	html "maragu.dev/gomponents/html"
)

type watermarkRowData struct {
	Filter   string
	Source   string
	URL      string
	FolderTS string
	Updated  string
}

func watermarksListPage(principal domain.ContextPrincipal, rows []watermarkRowData) gomponents.Node {
	tableRows := make([]gomponents.Node, 0, len(rows))
	for i := range rows {
		row := rows[i]
		tableRows = append(tableRows, html.Tr(
			data.Show(containsExpr(row.Filter)),
			html.Td(html.A(html.Href(row.URL), gomponents.Text(row.Source))),
			html.Td(html.Code(gomponents.Text(row.FolderTS))),
			html.Td(gomponents.Text(row.Updated)),
		))
	}

	body := []gomponents.Node{
		quickFilterCard("Filter by source or folder"),
		html.Div(
			html.Class(cardClass("table-wrap")),
			html.Table(
				html.THead(html.Tr(
					html.Th(gomponents.Text("Source")),
					html.Th(gomponents.Text("Last loaded folder")),
					html.Th(gomponents.Text("Updated")),
				)),
				html.TBody(gomponents.Group(tableRows)),
			),
		),
	}
	if len(rows) == 0 {
		body = []gomponents.Node{emptyStateCard("No watermarks recorded. A watermark appears after the first successful load.", "", "")}
	}

	return appPage("Watermarks", "watermarks", principal, gomponents.Group(body))
}
