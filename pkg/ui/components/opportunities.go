// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// OpportunityRow is one route in the opportunities table. Amounts are
// rounded by the caller.
type OpportunityRow struct {
	ItemID    string
	Name      string
	From      string
	To        string
	Flip      bool
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal
	NetProfit decimal.Decimal
	ProfitPct decimal.Decimal
	// AgeMinutes is negative when the age is unknown.
	AgeMinutes int
}

// Route renders the trade direction.
func (r OpportunityRow) Route() string {
	if r.Flip {
		return r.From + " (flip)"
	}
	return r.From + " → " + r.To
}

// Age renders the data age.
func (r OpportunityRow) Age() string {
	if r.AgeMinutes < 0 {
		return "n/a"
	}
	return strconv.Itoa(r.AgeMinutes) + "m"
}

// Cells returns the table cells for the row.
func (r OpportunityRow) Cells() table.Row {
	return table.Row{
		r.Name,
		r.Route(),
		r.BuyPrice.StringFixed(0),
		r.SellPrice.StringFixed(0),
		r.NetProfit.StringFixed(0),
		r.ProfitPct.StringFixed(2) + "%",
		r.Age(),
	}
}

var opportunityColumns = []table.Column{
	{Title: "Item", Width: 26},
	{Title: "Route", Width: 30},
	{Title: "Buy", Width: 9},
	{Title: "Sell", Width: 9},
	{Title: "Net", Width: 9},
	{Title: "Profit", Width: 8},
	{Title: "Age", Width: 5},
}

// OpportunitiesComponent renders the opportunities table.
type OpportunitiesComponent struct {
	table table.Model
	rows  []OpportunityRow
}

// NewOpportunitiesComponent creates a new opportunities component.
func NewOpportunitiesComponent(height int) *OpportunitiesComponent {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#374151")).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED"))
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#7C3AED")).
		Bold(false)

	t := table.New(
		table.WithColumns(opportunityColumns),
		table.WithFocused(true),
		table.WithHeight(height),
		table.WithStyles(styles),
	)

	return &OpportunitiesComponent{table: t}
}

// SetRows replaces the table contents.
func (o *OpportunitiesComponent) SetRows(rows []OpportunityRow) {
	o.rows = rows
	cells := make([]table.Row, len(rows))
	for i, r := range rows {
		cells[i] = r.Cells()
	}
	o.table.SetRows(cells)
	if o.table.Cursor() >= len(cells) {
		o.table.SetCursor(0)
	}
}

// Clear clears all opportunities.
func (o *OpportunitiesComponent) Clear() {
	o.SetRows(nil)
}

// Len returns the number of rows.
func (o *OpportunitiesComponent) Len() int {
	return len(o.rows)
}

// Selected returns the highlighted row.
func (o *OpportunitiesComponent) Selected() (OpportunityRow, bool) {
	i := o.table.Cursor()
	if i < 0 || i >= len(o.rows) {
		return OpportunityRow{}, false
	}
	return o.rows[i], true
}

// SetHeight resizes the table viewport.
func (o *OpportunitiesComponent) SetHeight(h int) {
	o.table.SetHeight(max(h, 3))
}

// Update forwards navigation keys to the table.
func (o *OpportunitiesComponent) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	o.table, cmd = o.table.Update(msg)
	return cmd
}

// View renders the opportunities component.
func (o *OpportunitiesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	title := headerStyle.Render(fmt.Sprintf("OPPORTUNITIES (%d)", len(o.rows)))
	if len(o.rows) == 0 {
		return title + "\n\n" + mutedStyle.Render("No profitable routes in the last scan...")
	}
	return title + "\n" + o.table.View()
}
