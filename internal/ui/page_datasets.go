package ui

import (
	"driftline/internal/domain"

	gomponents "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	html "maragu.dev/gomponents/html"
)

type datasetListRowData struct {
	Filter   string
	Name     string
	URL      string
	Table    string
	Location string
	Schedule string
	Paused   bool
	Updated  string
}

func datasetsListPage(principal domain.ContextPrincipal, rows []datasetListRowData, page domain.PageRequest, total int64) gomponents.Node {
	tableRows := make([]gomponents.Node, 0, len(rows))
	for i := range rows {
		row := rows[i]
		state := statusLabel("active", "success")
		if row.Paused {
			state = statusLabel("paused", "secondary")
		}
		tableRows = append(tableRows, html.Tr(
			data.Show(containsExpr(row.Filter)),
			html.Td(html.A(html.Href(row.URL), gomponents.Text(row.Name))),
			html.Td(gomponents.Text(row.Table)),
			html.Td(html.Code(gomponents.Text(row.Location))),
			html.Td(gomponents.Text(row.Schedule)),
			html.Td(state),
			html.Td(gomponents.Text(row.Updated)),
		))
	}

	body := []gomponents.Node{
		quickFilterCard("Filter by dataset, table or state"),
		html.Div(
			html.Class(cardClass("table-wrap")),
			html.Table(
				html.THead(html.Tr(
					html.Th(gomponents.Text("Name")),
					html.Th(gomponents.Text("Table")),
					html.Th(gomponents.Text("Landing location")),
					html.Th(gomponents.Text("Schedule")),
					html.Th(gomponents.Text("State")),
					html.Th(gomponents.Text("Updated")),
				)),
				html.TBody(gomponents.Group(tableRows)),
			),
		),
		paginationCard("/ui/datasets", page, total),
	}
	if len(rows) == 0 {
		body = []gomponents.Node{emptyStateCard("No datasets registered yet. Register one through the API or driftctl apply.", "", "")}
	}

	return appPage("Datasets", "datasets", principal, gomponents.Group(body))
}

type datasetRunRowData struct {
	ID       string
	URL      string
	FolderTS string
	Status   string
	Trigger  string
	Rows     string
	Started  string
	Finished string
}

type datasetDetailPageData struct {
	Principal     domain.ContextPrincipal
	Name          string
	Table         string
	Location      string
	KeyColumns    string
	Schedule      string
	Paused        bool
	Transformed   bool
	CreatedBy     string
	Created       string
	WatermarkTS   string
	WatermarkAt   string
	Notice        string
	TriggerURL    string
	Runs          []datasetRunRowData
	CSRFFieldFunc func() gomponents.Node
}

func datasetDetailPage(d datasetDetailPageData) gomponents.Node {
	runRows := make([]gomponents.Node, 0, len(d.Runs))
	for i := range d.Runs {
		r := d.Runs[i]
		runRows = append(runRows, html.Tr(
			html.Td(html.A(html.Href(r.URL), gomponents.Text(shortID(r.ID)))),
			html.Td(gomponents.Text(r.FolderTS)),
			html.Td(statusLabel(r.Status, runStatusTone(r.Status))),
			html.Td(gomponents.Text(r.Trigger)),
			html.Td(gomponents.Text(r.Rows)),
			html.Td(gomponents.Text(r.Started)),
			html.Td(gomponents.Text(r.Finished)),
		))
	}

	state := statusLabel("active", "success")
	if d.Paused {
		state = statusLabel("paused", "secondary")
	}
	transform := "none"
	if d.Transformed {
		transform = "starlark hook"
	}

	return appPage(
		"Dataset: "+d.Name,
		"datasets",
		d.Principal,
		noticeCard(d.Notice),
		html.Div(
			html.Class(cardClass()),
			html.Div(html.Class("d-flex flex-items-center gap-2 mb-2"), state),
			html.P(gomponents.Text("Destination table: "), html.Code(gomponents.Text(d.Table))),
			html.P(gomponents.Text("Landing location: "), html.Code(gomponents.Text(d.Location))),
			html.P(gomponents.Text("Key columns: "+d.KeyColumns)),
			html.P(gomponents.Text("Schedule: "+d.Schedule)),
			html.P(gomponents.Text("Transform: "+transform)),
			html.P(html.Class(mutedClass()), gomponents.Text("Registered by "+d.CreatedBy+" at "+d.Created)),
			html.Form(
				html.Method("post"),
				html.Action(d.TriggerURL),
				d.CSRFFieldFunc(),
				html.Label(html.Class("mr-2"), html.Input(html.Type("checkbox"), html.Name("force"), html.Value("true")), gomponents.Text(" Reload the newest folder even if already loaded")),
				html.Button(html.Type("submit"), html.Class(primaryButtonClass()), gomponents.Text("Trigger scan")),
			),
		),
		html.Div(
			html.Class(cardClass()),
			html.H2(gomponents.Text("Watermark")),
			html.P(gomponents.Text("Last loaded folder: "), html.Code(gomponents.Text(d.WatermarkTS))),
			html.P(html.Class(mutedClass()), gomponents.Text("Updated "+d.WatermarkAt)),
		),
		html.Div(
			html.Class(cardClass("table-wrap")),
			html.H2(gomponents.Text("Recent runs")),
			html.Table(
				html.THead(html.Tr(
					html.Th(gomponents.Text("Run")),
					html.Th(gomponents.Text("Folder")),
					html.Th(gomponents.Text("Status")),
					html.Th(gomponents.Text("Trigger")),
					html.Th(gomponents.Text("Rows")),
					html.Th(gomponents.Text("Started")),
					html.Th(gomponents.Text("Finished")),
				)),
				html.TBody(gomponents.Group(runRows)),
			),
		),
	)
}
