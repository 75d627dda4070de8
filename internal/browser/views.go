package browser

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	. "github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
)

// coreColumns lead the table view, in this order, before the union of
// extras.
var coreColumns = []string{"title", "class", "objects"}

func (a *App) render() {
	a.renderCrumbs()
	if a.tableMode {
		a.renderTable()
	} else {
		a.renderGrid()
	}
	a.renderDetails()
}

func (a *App) renderCrumbs() {
	var b strings.Builder
	for i, title := range a.session.Breadcrumbs() {
		if i > 0 {
			b.WriteString(" [gray]>[-] ")
		}
		fmt.Fprintf(&b, `["crumb-%d"][yellow]%s[-][""]`, i, tview.Escape(title))
	}
	a.crumbs.SetText(b.String())
}

// tileWidth scales the grid tile with the zoom level.
func (a *App) tileWidth() int {
	w := int(float64(baseTileWidth) * a.store.Settings.ZoomLevel)
	if w < 6 {
		w = 6
	}
	return w
}

// columns computes the icon-grid column count from the viewport width.
func (a *App) columns() int {
	_, _, width, _ := a.grid.GetInnerRect()
	if width <= 0 {
		width = a.lastWidth
	}
	cols := width / (a.tileWidth() + tileSpacing)
	if cols < 1 {
		cols = 1
	}
	return cols
}

// renderGrid lays objects out left to right, top to bottom.
func (a *App) renderGrid() {
	a.grid.Clear()
	objects := a.session.Objects()
	cols := a.columns()
	width := a.tileWidth()

	for i, o := range objects {
		row, col := i/cols, i%cols
		label := o.Title
		if runes := []rune(label); len(runes) > width {
			label = string(runes[:width-1]) + "…"
		}
		cell := tview.NewTableCell(tileText(o, label)).
			SetMaxWidth(width).
			SetAlign(tview.AlignLeft).
			SetReference(i)
		a.grid.SetCell(row, col, cell)
	}
	if len(objects) > 0 {
		sel := a.selected
		if sel >= len(objects) {
			sel = 0
		}
		a.grid.Select(sel/cols, sel%cols)
	}
	a.setStatus(fmt.Sprintf("%d objects  zoom %.1f", len(objects), a.store.Settings.ZoomLevel))
}

// tileText renders one grid tile: a glyph per icon, the title, and a count
// marker for enterable objects.
func tileText(o *model.Object, label string) string {
	glyph := iconGlyph(o)
	if o.Objects > 0 {
		return fmt.Sprintf("%s %s [gray](%d)[-]", glyph, tview.Escape(label), o.Objects)
	}
	return fmt.Sprintf("%s %s", glyph, tview.Escape(label))
}

// iconGlyph picks a character stand-in for the PNG icon named by the
// object. The real pixmap stays in the session cache for front ends that
// can draw it.
func iconGlyph(o *model.Object) string {
	name := ""
	if o.Icon != nil {
		name = strings.TrimSuffix(path.Base(*o.Icon), ".png")
	}
	switch {
	case o.Class == model.ClassGroup:
		return "▣"
	case strings.Contains(name, "IDCard"):
		return "☻"
	case o.Objects > 0:
		return "▸"
	default:
		return "·"
	}
}

func (a *App) gridIndex(row, col int) int {
	cell := a.grid.GetCell(row, col)
	if cell == nil {
		return a.selected
	}
	if i, ok := cell.GetReference().(int); ok {
		return i
	}
	return a.selected
}

// tableColumns is the union of object keys: core columns first, then
// extras in first-seen order.
func (a *App) tableColumns() []string {
	cols := append([]string{}, coreColumns...)
	seen := map[string]bool{}
	for _, c := range cols {
		seen[c] = true
	}
	for _, o := range a.session.Objects() {
		for _, key := range o.ExtraKeys() {
			if !seen[key] {
				seen[key] = true
				cols = append(cols, key)
			}
		}
	}
	return cols
}

func (a *App) renderTable() {
	a.table.Clear()
	objects := a.session.Objects()
	cols := a.tableColumns()

	for c, name := range cols {
		header := name
		if c == a.sortCol {
			if a.sortAsc {
				header += " ▲"
			} else {
				header += " ▼"
			}
		}
		cell := tview.NewTableCell("[::b]" + tview.Escape(header)).
			SetSelectable(false).
			SetTextColor(tcell.ColorYellow)
		a.table.SetCell(0, c, cell)
	}

	rows := a.sortedIndexes(cols)
	for r, idx := range rows {
		o := objects[idx]
		for c, name := range cols {
			a.table.SetCell(r+1, c, tview.NewTableCell(tview.Escape(cellValue(o, name))).SetReference(idx))
		}
	}
	if len(rows) > 0 {
		a.table.Select(1, 0)
	}
	a.setStatus(fmt.Sprintf("%d objects  sort: %s", len(objects), a.sortLabel(cols)))
}

func (a *App) sortLabel(cols []string) string {
	if a.sortCol < 0 || a.sortCol >= len(cols) {
		return "none"
	}
	return cols[a.sortCol]
}

// SortBy toggles direction when the same column is picked twice.
func (a *App) SortBy(col int) {
	if a.sortCol == col {
		a.sortAsc = !a.sortAsc
	} else {
		a.sortCol = col
		a.sortAsc = true
	}
	a.renderTable()
}

// sortedIndexes returns listing indexes in display order.
func (a *App) sortedIndexes(cols []string) []int {
	objects := a.session.Objects()
	rows := make([]int, len(objects))
	for i := range rows {
		rows[i] = i
	}
	if a.sortCol < 0 || a.sortCol >= len(cols) {
		return rows
	}
	name := cols[a.sortCol]
	sort.SliceStable(rows, func(i, j int) bool {
		vi, vj := cellValue(objects[rows[i]], name), cellValue(objects[rows[j]], name)
		if a.sortAsc {
			return vi < vj
		}
		return vi > vj
	})
	return rows
}

func cellValue(o *model.Object, name string) string {
	v, ok := o.Prop(name)
	if !ok || v == nil {
		return ""
	}
	s, ok := model.Stringify(v)
	if !ok {
		return ""
	}
	return s
}

func (a *App) renderDetails() {
	o := a.selectedObject()
	if o == nil {
		a.details.SetText("")
		return
	}
	var b strings.Builder
	for _, key := range o.DictKeys() {
		v, _ := o.Prop(key)
		val := ""
		if v != nil {
			val, _ = model.Stringify(v)
		}
		fmt.Fprintf(&b, "[yellow]%s[-]: %s\n", key, tview.Escape(val))
	}
	a.details.SetText(b.String())
}

// startSearch issues the initial search call, then polls every second with
// the returned handle until done. Navigation cancels the poll loop.
func (a *App) startSearch(term string) {
	a.stopSearch()
	ctx, cancel := context.WithCancel(context.Background())
	a.searchCancel = cancel

	// Bind the endpoint before spawning. The poll goroutine must not read
	// the nav stack while the UI keeps navigating.
	search := a.session.SearchFunc()
	initial, err := search(ctx, term, true, nil)
	if err != nil || len(initial) == 0 {
		L_warn("search failed to start", "term", term, "error", err)
		a.setStatus("search failed")
		return
	}
	handle := initial[0]
	if handle.Class != model.ClassSearchHandle {
		// Synchronous provider: the reply is already the result set.
		a.showObjects(initial)
		return
	}
	a.setStatus("searching: " + term)

	go func() {
		ticker := time.NewTicker(searchPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			objects, err := search(ctx, term, true, handle)
			if err != nil {
				continue
			}
			if len(objects) == 0 {
				continue
			}
			first := objects[0]
			if first.Class == model.ClassSearchProgress {
				if state, _ := first.Extra("state"); state == "done" {
					results := objects[1:]
					a.tv.QueueUpdateDraw(func() {
						a.showObjects(results)
						a.setStatus(fmt.Sprintf("search done: %d results", len(results)))
					})
					return
				}
				continue
			}
			// No progress marker means a terminal payload.
			a.tv.QueueUpdateDraw(func() { a.showObjects(objects) })
			return
		}
	}()
}

func (a *App) stopSearch() {
	if a.searchCancel != nil {
		a.searchCancel()
		a.searchCancel = nil
	}
}

// showObjects swaps the listing for ad-hoc results such as completed
// searches, without pushing a crumb.
func (a *App) showObjects(objects []*model.Object) {
	a.session.SetObjects(objects)
	a.selected = 0
	a.render()
}
