package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/fd1az/albion-market-router/pkg/ui/components"
)

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func dashboard(t *testing.T) Model {
	t.Helper()
	OnStartModules = nil
	OnRefresh = nil

	m := New()
	next, _ := m.Update(keyMsg("x"))
	m = next.(Model)
	if m.phase != PhaseDashboard {
		t.Fatalf("phase = %s, want dashboard after a key press", m.phase)
	}
	return m
}

func scanMsg(n int) ScanResultMsg {
	rows := make([]components.OpportunityRow, n)
	for i := range rows {
		rows[i] = components.OpportunityRow{
			ItemID:    "T4_BAG",
			Name:      "Novice's Bag",
			From:      "Bridgewatch",
			To:        "Martlock",
			NetProfit: decimal.NewFromInt(284),
			ProfitPct: decimal.RequireFromString("27.71"),
		}
	}
	return ScanResultMsg{
		ID:       "0b7c9d1e-aaaa-4bbb-8ccc-123456789abc",
		Rows:     rows,
		Items:    5,
		Quotes:   30,
		Coverage: 80,
		Source:   "manual",
		Freshest: time.Date(2024, 5, 1, 11, 58, 0, 0, time.UTC),
	}
}

func TestModel_ScanResult(t *testing.T) {
	m := dashboard(t)

	next, _ := m.Update(scanMsg(2))
	m = next.(Model)

	if m.opportunities.Len() != 2 {
		t.Errorf("rows = %d, want 2", m.opportunities.Len())
	}
	stats := m.stats.Stats()
	if stats.Scans != 1 || stats.Opportunities != 2 || stats.Quotes != 30 || stats.ScanSource != "manual" {
		t.Errorf("stats = %+v", stats)
	}

	view := m.View()
	for _, want := range []string{"Novice's Bag", "OPPORTUNITIES (2)", "Scan 0b7c9d1e"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_PauseFreezesTable(t *testing.T) {
	m := dashboard(t)

	next, _ := m.Update(scanMsg(1))
	m = next.(Model)
	next, _ = m.Update(keyMsg("p"))
	m = next.(Model)
	if !m.paused {
		t.Fatal("expected paused")
	}

	next, _ = m.Update(scanMsg(3))
	m = next.(Model)
	if m.opportunities.Len() != 1 {
		t.Errorf("rows = %d, want 1 while paused", m.opportunities.Len())
	}
	if !strings.Contains(m.View(), "PAUSED") {
		t.Error("view should show the paused marker")
	}

	next, _ = m.Update(keyMsg("c"))
	m = next.(Model)
	if m.opportunities.Len() != 0 {
		t.Errorf("rows = %d after clear", m.opportunities.Len())
	}
}

func TestModel_ErrorPanelKeepsLastThree(t *testing.T) {
	m := dashboard(t)

	for i := 0; i < 5; i++ {
		next, _ := m.Update(ErrorMsg{Error: errors.New(strings.Repeat("x", i+1))})
		m = next.(Model)
	}

	if len(m.errors) != 3 {
		t.Fatalf("errors = %d, want 3", len(m.errors))
	}
	if m.errors[0].Message != "xxx" {
		t.Errorf("oldest kept = %q, want xxx", m.errors[0].Message)
	}
	if got := m.stats.Stats().Errors; got != 5 {
		t.Errorf("error count = %d, want 5", got)
	}

	next, _ := m.Update(keyMsg("e"))
	m = next.(Model)
	if len(m.errors) != 0 {
		t.Errorf("errors = %d after clear", len(m.errors))
	}
}

func TestModel_RefreshCallsHook(t *testing.T) {
	m := dashboard(t)

	called := make(chan struct{}, 1)
	OnRefresh = func() { called <- struct{}{} }
	t.Cleanup(func() { OnRefresh = nil })

	m.Update(keyMsg("r"))

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("OnRefresh was not called")
	}
}

func TestModel_Quit(t *testing.T) {
	m := New()
	next, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !next.(Model).quitting {
		t.Error("expected quitting")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("cmd() = %T, want tea.QuitMsg", cmd())
	}
}
