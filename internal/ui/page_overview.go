package ui

import (
	"strconv"

	"driftline/internal/domain"

	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"
)

type overviewDatasetRow struct {
	Name     string
	URL      string
	Table    string
	Schedule string
	Paused   bool
}

type overviewRunRow struct {
	ID      string
	URL     string
	Dataset string
	Status  string
	Started string
}

type overviewWatermarkRow struct {
	Source   string
	URL      string
	FolderTS string
	Updated  string
}

type overviewPageData struct {
	TotalDatasets  int64
	PausedDatasets int
	TotalRuns      int64
	RecentFailed   int
	Datasets       []overviewDatasetRow
	Runs           []overviewRunRow
	Watermarks     []overviewWatermarkRow
}

func overviewPage(principal domain.ContextPrincipal, d overviewPageData) gomponents.Node {
	datasetRows := make([]gomponents.Node, 0, len(d.Datasets))
	for i := range d.Datasets {
		row := d.Datasets[i]
		state := statusLabel("active", "success")
		if row.Paused {
			state = statusLabel("paused", "secondary")
		}
		datasetRows = append(datasetRows, html.Tr(
			html.Td(html.A(html.Href(row.URL), gomponents.Text(row.Name))),
			html.Td(gomponents.Text(row.Table)),
			html.Td(gomponents.Text(row.Schedule)),
			html.Td(state),
		))
	}

	runRows := make([]gomponents.Node, 0, len(d.Runs))
	for i := range d.Runs {
		row := d.Runs[i]
		runRows = append(runRows, html.Tr(
			html.Td(html.A(html.Href(row.URL), gomponents.Text(shortID(row.ID)))),
			html.Td(gomponents.Text(row.Dataset)),
			html.Td(statusLabel(row.Status, runStatusTone(row.Status))),
			html.Td(gomponents.Text(row.Started)),
		))
	}

	watermarkRows := make([]gomponents.Node, 0, len(d.Watermarks))
	for i := range d.Watermarks {
		row := d.Watermarks[i]
		watermarkRows = append(watermarkRows, html.Tr(
			html.Td(html.A(html.Href(row.URL), gomponents.Text(row.Source))),
			html.Td(gomponents.Text(row.FolderTS)),
			html.Td(gomponents.Text(row.Updated)),
		))
	}

	return appPage(
		"Overview",
		"home",
		principal,
		html.Div(
			html.Class("stat-grid"),
			statTile("Datasets", strconv.FormatInt(d.TotalDatasets, 10)),
			statTile("Paused", strconv.Itoa(d.PausedDatasets)),
			statTile("Runs recorded", strconv.FormatInt(d.TotalRuns, 10)),
			statTile("Recent failures", strconv.Itoa(d.RecentFailed)),
		),
		html.Div(
			html.Class(cardClass("table-wrap")),
			html.H2(gomponents.Text("Datasets")),
			html.Table(
				html.THead(html.Tr(html.Th(gomponents.Text("Name")), html.Th(gomponents.Text("Table")), html.Th(gomponents.Text("Schedule")), html.Th(gomponents.Text("State")))),
				html.TBody(gomponents.Group(datasetRows)),
			),
			html.P(html.A(html.Href("/ui/datasets"), gomponents.Text("All datasets ->"))),
		),
		html.Div(
			html.Class(cardClass("table-wrap")),
			html.H2(gomponents.Text("Latest runs")),
			html.Table(
				html.THead(html.Tr(html.Th(gomponents.Text("Run")), html.Th(gomponents.Text("Dataset")), html.Th(gomponents.Text("Status")), html.Th(gomponents.Text("Started")))),
				html.TBody(gomponents.Group(runRows)),
			),
			html.P(html.A(html.Href("/ui/runs"), gomponents.Text("All runs ->"))),
		),
		html.Div(
			html.Class(cardClass("table-wrap")),
			html.H2(gomponents.Text("Watermarks")),
			html.Table(
				html.THead(html.Tr(html.Th(gomponents.Text("Source")), html.Th(gomponents.Text("Folder")), html.Th(gomponents.Text("Updated")))),
				html.TBody(gomponents.Group(watermarkRows)),
			),
			html.P(html.A(html.Href("/ui/watermarks"), gomponents.Text("All watermarks ->"))),
		),
	)
}

func statTile(label, value string) gomponents.Node {
	return html.Div(
		html.Class("Box p-3 stat-tile"),
		html.P(html.Class(mutedClass()), gomponents.Text(label)),
		html.Strong(html.Class("stat-value"), gomponents.Text(value)),
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
