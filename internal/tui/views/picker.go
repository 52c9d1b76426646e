// Package views provides the screens of the consultprep TUI.
package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/consultprep-dev/consultprep/internal/cases"
	"github.com/consultprep-dev/consultprep/internal/tui"
)

// Picker filter keys. "/" searches titles and descriptions.
const (
	keyCycleDifficulty = "ctrl+f"
	keyCycleIndustry   = "ctrl+g"
	keyCycleType       = "ctrl+t"
)

// CaseItem implements list.Item for one library entry.
type CaseItem struct {
	Entry cases.Entry
}

// Title returns the case title for list display.
func (i CaseItem) Title() string {
	return i.Entry.Title
}

// Description returns the case tags for list display.
func (i CaseItem) Description() string {
	return fmt.Sprintf("%s · %s · %s · %d min", i.Entry.Industry, i.Entry.Difficulty, i.Entry.Type, i.Entry.Minutes)
}

// FilterValue is matched by the list's "/" search.
func (i CaseItem) FilterValue() string {
	return i.Entry.Title + " " + i.Entry.Desc
}

// facet cycles through "All" and the distinct values of one case field.
type facet struct {
	name    string
	options []string
	index   int
}

func newFacet(lib *cases.Library, name string) facet {
	return facet{name: name, options: append([]string{cases.All}, lib.Values(name)...)}
}

func (f *facet) next() {
	f.index = (f.index + 1) % len(f.options)
}

func (f facet) value() string {
	return f.options[f.index]
}

// PickerModel lists the case library with facet filters.
type PickerModel struct {
	lib        *cases.Library
	list       list.Model
	difficulty facet
	industry   facet
	kind       facet
	width      int
	height     int
}

// NewPickerModel creates a picker over lib.
func NewPickerModel(lib *cases.Library, width, height int) PickerModel {
	l := list.New(nil, list.NewDefaultDelegate(), width, listHeight(height))
	l.Title = "Case Library"
	l.SetShowHelp(false)

	m := PickerModel{
		lib:        lib,
		list:       l,
		difficulty: newFacet(lib, "difficulty"),
		industry:   newFacet(lib, "industry"),
		kind:       newFacet(lib, "type"),
		width:      width,
		height:     height,
	}
	m.refresh()
	return m
}

func listHeight(h int) int {
	if h-4 < 5 {
		return 5
	}
	return h - 4
}

// Filter returns the facet filter currently applied.
func (m PickerModel) Filter() cases.Filter {
	return cases.Filter{
		Difficulty: m.difficulty.value(),
		Industry:   m.industry.value(),
		Type:       m.kind.value(),
	}
}

// Visible returns the cases passing the facet filters.
func (m PickerModel) Visible() []cases.Entry {
	items := m.list.Items()
	out := make([]cases.Entry, 0, len(items))
	for _, it := range items {
		out = append(out, it.(CaseItem).Entry)
	}
	return out
}

func (m *PickerModel) refresh() {
	entries := m.lib.Filter(m.Filter())
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = CaseItem{Entry: e}
	}
	m.list.SetItems(items)
}

// Init implements tea.Model.
func (m PickerModel) Init() tea.Cmd {
	return nil
}

// Update handles picker input.
func (m PickerModel) Update(msg tea.Msg) (PickerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width, listHeight(msg.Height))
		return m, nil

	case tea.KeyMsg:
		// While the list search box is open every key belongs to it.
		if m.list.FilterState() == list.Filtering {
			break
		}
		if key.Matches(msg, tui.DefaultKeyMap.Enter) {
			item, ok := m.list.SelectedItem().(CaseItem)
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg { return tui.CaseSelectedMsg{Entry: item.Entry} }
		}
		switch msg.String() {
		case keyCycleDifficulty:
			m.difficulty.next()
			m.refresh()
			return m, nil
		case keyCycleIndustry:
			m.industry.next()
			m.refresh()
			return m, nil
		case keyCycleType:
			m.kind.next()
			m.refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the picker.
func (m PickerModel) View() string {
	var b strings.Builder
	b.WriteString(m.list.View())
	b.WriteString("\n")
	b.WriteString(tui.DimStyle.Render(fmt.Sprintf(
		"Difficulty: %s (ctrl+f) · Industry: %s (ctrl+g) · Type: %s (ctrl+t) · /: search · enter: start",
		m.difficulty.value(), m.industry.value(), m.kind.value())))
	return b.String()
}
