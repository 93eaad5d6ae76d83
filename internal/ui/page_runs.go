package ui

import (
	"driftline/internal/domain"

	gomponents "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	html "maragu.dev/gomponents/html"
)

type runListRowData struct {
	Filter   string
	ID       string
	URL      string
	Dataset  string
	FolderTS string
	Status   string
	Trigger  string
	Started  string
	Finished string
}

type runsListPageData struct {
	Rows           []runListRowData
	SelectedStatus string
	Dataset        string
	Page           domain.PageRequest
	Total          int64
}

func runsListPage(principal domain.ContextPrincipal, d runsListPageData) gomponents.Node {
	tableRows := make([]gomponents.Node, 0, len(d.Rows))
	for i := range d.Rows {
		row := d.Rows[i]
		tableRows = append(tableRows, html.Tr(
			data.Show(containsExpr(row.Filter)),
			html.Td(html.A(html.Href(row.URL), gomponents.Text(shortID(row.ID)))),
			html.Td(gomponents.Text(row.Dataset)),
			html.Td(gomponents.Text(row.FolderTS)),
			html.Td(statusLabel(row.Status, runStatusTone(row.Status))),
			html.Td(gomponents.Text(row.Trigger)),
			html.Td(gomponents.Text(row.Started)),
			html.Td(gomponents.Text(row.Finished)),
		))
	}

	statusOptions := []gomponents.Node{statusOption("", "All statuses", d.SelectedStatus)}
	for _, s := range runStatusFilters {
		statusOptions = append(statusOptions, statusOption(s, s, d.SelectedStatus))
	}

	datasetField := gomponents.Node(nil)
	if d.Dataset != "" {
		datasetField = html.Input(html.Type("hidden"), html.Name("dataset"), html.Value(d.Dataset))
	}
	statusForm := html.Form(
		html.Method("get"),
		html.Action("/ui/runs"),
		html.Class("d-flex flex-items-center gap-2"),
		html.Select(html.Name("status"), html.Class("form-select"), gomponents.Group(statusOptions)),
		datasetField,
		html.Button(html.Type("submit"), html.Class(secondaryButtonClass()), gomponents.Text("Apply")),
	)

	body := []gomponents.Node{
		quickFilterCard("Filter by dataset, status or folder", statusForm),
		html.Div(
			html.Class(cardClass("table-wrap")),
			html.Table(
				html.THead(html.Tr(
					html.Th(gomponents.Text("Run")),
					html.Th(gomponents.Text("Dataset")),
					html.Th(gomponents.Text("Folder")),
					html.Th(gomponents.Text("Status")),
					html.Th(gomponents.Text("Trigger")),
					html.Th(gomponents.Text("Started")),
					html.Th(gomponents.Text("Finished")),
				)),
				html.TBody(gomponents.Group(tableRows)),
			),
		),
		paginationCard("/ui/runs", d.Page, d.Total),
	}
	if len(d.Rows) == 0 {
		body = []gomponents.Node{
			quickFilterCard("Filter by dataset, status or folder", statusForm),
			emptyStateCard("No runs match the current filter.", "", ""),
		}
	}

	return appPage("Runs", "runs", principal, gomponents.Group(body))
}

func statusOption(value, label, selected string) gomponents.Node {
	if value == selected {
		return html.Option(html.Value(value), html.Selected(), gomponents.Text(label))
	}
	return html.Option(html.Value(value), gomponents.Text(label))
}

type runEventRowData struct {
	Step    string
	Level   string
	Message string
	At      string
}

type runDetailPageData struct {
	Principal    domain.ContextPrincipal
	ID           string
	Dataset      string
	DatasetURL   string
	ObjectKey    string
	FolderTS     string
	Status       string
	Trigger      string
	TriggeredBy  string
	RowsLoaded   string
	RowsDropped  string
	RetryAttempt string
	ErrorMessage string
	Started      string
	Finished     string
	Events       []runEventRowData
}

func runDetailPage(d runDetailPageData) gomponents.Node {
	eventRows := make([]gomponents.Node, 0, len(d.Events))
	for i := range d.Events {
		ev := d.Events[i]
		eventRows = append(eventRows, html.Tr(
			html.Td(gomponents.Text(ev.At)),
			html.Td(gomponents.Text(ev.Step)),
			html.Td(statusLabel(ev.Level, eventLevelTone(ev.Level))),
			html.Td(gomponents.Text(ev.Message)),
		))
	}

	return appPage(
		"Run: "+shortID(d.ID),
		"runs",
		d.Principal,
		html.Div(
			html.Class(cardClass()),
			html.Div(html.Class("d-flex flex-items-center gap-2 mb-2"), statusLabel(d.Status, runStatusTone(d.Status))),
			html.P(gomponents.Text("Dataset: "), html.A(html.Href(d.DatasetURL), gomponents.Text(d.Dataset))),
			html.P(gomponents.Text("Object: "), html.Code(gomponents.Text(d.ObjectKey))),
			html.P(gomponents.Text("Folder: "+d.FolderTS)),
			html.P(gomponents.Text("Trigger: "+d.Trigger+" by "+d.TriggeredBy)),
			html.P(gomponents.Text("Rows loaded: "+d.RowsLoaded+", dropped: "+d.RowsDropped)),
			html.P(gomponents.Text("Retry attempt: "+d.RetryAttempt)),
			html.P(gomponents.Text("Error: "+d.ErrorMessage)),
			html.P(html.Class(mutedClass()), gomponents.Text("Started "+d.Started+", finished "+d.Finished)),
		),
		html.Div(
			html.Class(cardClass("table-wrap")),
			html.H2(gomponents.Text("Step events")),
			html.Table(
				html.THead(html.Tr(
					html.Th(gomponents.Text("At")),
					html.Th(gomponents.Text("Step")),
					html.Th(gomponents.Text("Level")),
					html.Th(gomponents.Text("Message")),
				)),
				html.TBody(gomponents.Group(eventRows)),
			),
		),
	)
}
