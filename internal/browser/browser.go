// Package browser is the terminal front end: breadcrumbs, an icon grid or
// sortable table over the current listing, a details panel, and the
// async-search polling loop. All navigation logic lives in internal/nav;
// this package only renders and forwards input.
package browser

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	. "github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/nav"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/pipeline"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/settings"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/shortcut"
)

// searchPollInterval is the cadence for async-search progress polls.
const searchPollInterval = time.Second

// resizeCoalesce batches viewport-resize relayouts.
const resizeCoalesce = 50 * time.Millisecond

// baseTileWidth is the icon-grid tile width at zoom 1.0.
const baseTileWidth = 18

const tileSpacing = 2

// reservedProps never show up in the group-by menu.
var reservedProps = map[string]bool{
	"class": true, "id": true, "title": true, "icon": true, "objects": true,
	"openaction": true, "contextmenu": true,
}

// App is the running browser.
type App struct {
	tv       *tview.Application
	session  *nav.Session
	store    *settings.Store
	selfPath string

	crumbs  *tview.TextView
	grid    *tview.Table
	table   *tview.Table
	details *tview.TextView
	status  *tview.TextView
	logView *tview.TextView
	pages   *tview.Pages
	body    *tview.Flex

	tableMode bool
	selected  int
	sortCol   int
	sortAsc   bool

	lastWidth   int
	resizeTimer *time.Timer

	searchCancel context.CancelFunc
}

// New wires the UI around an existing session. selfPath is this binary's
// absolute path, used for desktop shortcuts.
func New(session *nav.Session, store *settings.Store, selfPath string) *App {
	a := &App{
		tv:       tview.NewApplication(),
		session:  session,
		store:    store,
		selfPath: selfPath,
		sortCol:  -1,
	}
	a.build()
	return a
}

// Run enters the event loop and persists settings on exit.
func (a *App) Run() error {
	defer func() {
		if err := a.store.Save(); err != nil {
			L_warn("settings save failed", "error", err)
		}
	}()
	a.render()
	return a.tv.Run()
}

func (a *App) build() {
	a.crumbs = tview.NewTextView().SetDynamicColors(true).SetRegions(true)
	a.crumbs.SetBorder(false)
	a.crumbs.SetHighlightedFunc(func(added, _, _ []string) {
		if len(added) == 0 {
			return
		}
		var k int
		if _, err := fmt.Sscanf(added[0], "crumb-%d", &k); err != nil {
			return
		}
		a.stopSearch()
		a.session.CrumbClicked(k)
		a.selected = 0
		a.render()
	})

	a.grid = tview.NewTable().SetSelectable(true, true)
	a.grid.SetBorder(true).SetTitle(" Objects ")
	a.grid.SetSelectedFunc(func(row, col int) {
		a.activateSelected()
	})
	a.grid.SetSelectionChangedFunc(func(row, col int) {
		a.selected = a.gridIndex(row, col)
		a.renderDetails()
	})

	a.table = tview.NewTable().SetSelectable(true, false).SetFixed(1, 0)
	a.table.SetBorder(true).SetTitle(" Objects ")
	a.table.SetSelectedFunc(func(row, col int) {
		a.activateSelected()
	})
	a.table.SetSelectionChangedFunc(func(row, col int) {
		if row >= 1 {
			a.selected = row - 1
			a.renderDetails()
		}
	})

	a.details = tview.NewTextView().SetDynamicColors(true)
	a.details.SetBorder(true).SetTitle(" Details ")

	a.status = tview.NewTextView().SetDynamicColors(true)

	a.logView = tview.NewTextView().SetMaxLines(200).SetChangedFunc(func() {
		a.tv.Draw()
	})
	a.logView.SetBorder(true).SetTitle(" Log ")
	SetOutput(tview.ANSIWriter(a.logView))

	a.body = tview.NewFlex()
	a.pages = tview.NewPages()

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.body, 0, 1, true).
		AddItem(a.logView, 6, 0, false).
		AddItem(a.status, 1, 0, false)
	a.pages.AddPage("main", root, true, true)

	a.tv.SetRoot(a.pages, true)
	a.tv.SetInputCapture(a.handleKey)
	a.tv.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		w, _ := screen.Size()
		if w != a.lastWidth {
			a.lastWidth = w
			a.scheduleRelayout()
		}
		return false
	})
	a.layoutBody()
}

// layoutBody rebuilds the main flex to reflect the details toggle.
func (a *App) layoutBody() {
	a.body.Clear()
	view := a.currentView()
	a.body.AddItem(view, 0, 1, true)
	if a.store.Settings.DetailsVisible {
		width := a.store.Settings.DetailsSavedWidth
		if width <= 0 {
			width = 40
		}
		a.body.AddItem(a.details, width, 0, false)
	}
	a.tv.SetFocus(view)
}

func (a *App) currentView() *tview.Table {
	if a.tableMode {
		return a.table
	}
	return a.grid
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if a.pages.HasPage("modal") {
		return event
	}
	switch event.Key() {
	case tcell.KeyEscape:
		if a.session.Depth() > 1 {
			a.stopSearch()
			a.session.CrumbClicked(a.session.Depth() - 2)
			a.selected = 0
			a.render()
			return nil
		}
	case tcell.KeyCtrlF:
		a.promptSearch()
		return nil
	}
	switch event.Rune() {
	case 'q':
		a.tv.Stop()
		return nil
	case 't':
		a.tableMode = !a.tableMode
		a.layoutBody()
		a.render()
		return nil
	case 'd':
		a.store.Settings.DetailsVisible = !a.store.Settings.DetailsVisible
		a.layoutBody()
		a.render()
		return nil
	case '+':
		a.store.SetZoom(a.store.Settings.ZoomLevel + 0.1)
		a.render()
		return nil
	case '-':
		a.store.SetZoom(a.store.Settings.ZoomLevel - 0.1)
		a.render()
		return nil
	case 'g':
		a.promptGroupBy()
		return nil
	case 's':
		a.makeShortcut()
		return nil
	case 'm':
		a.promptContextMenu()
		return nil
	}
	if a.tableMode && event.Rune() >= '1' && event.Rune() <= '9' {
		a.SortBy(int(event.Rune() - '1'))
		return nil
	}
	return event
}

func (a *App) activateSelected() {
	o := a.selectedObject()
	if o == nil {
		return
	}
	a.stopSearch()
	a.session.Activate(o)
	a.selected = 0
	a.render()
}

func (a *App) selectedObject() *model.Object {
	objects := a.session.Objects()
	if a.selected < 0 || a.selected >= len(objects) {
		return nil
	}
	return objects[a.selected]
}

// scheduleRelayout coalesces resize events before re-rendering the grid.
func (a *App) scheduleRelayout() {
	if a.resizeTimer != nil {
		a.resizeTimer.Stop()
	}
	a.resizeTimer = time.AfterFunc(resizeCoalesce, func() {
		a.tv.QueueUpdateDraw(a.render)
	})
}

// promptGroupBy offers the union of non-reserved properties across the
// current listing.
func (a *App) promptGroupBy() {
	props := a.groupableProps()
	if len(props) == 0 {
		return
	}
	list := tview.NewList()
	list.SetBorder(true).SetTitle(" Group by ")
	for _, prop := range props {
		prop := prop
		list.AddItem(prop, "", 0, func() {
			a.closeModal()
			a.applyGroupBy(prop)
		})
	}
	list.AddItem("Cancel", "", 'c', a.closeModal)
	a.showModal(list, 30, len(props)+4)
}

func (a *App) groupableProps() []string {
	seen := map[string]bool{}
	var props []string
	for _, o := range a.session.Objects() {
		for _, key := range o.ExtraKeys() {
			if reservedProps[key] || seen[key] {
				continue
			}
			seen[key] = true
			props = append(props, key)
		}
	}
	sort.Strings(props)
	return props
}

func (a *App) applyGroupBy(prop string) {
	cur := a.session.Current()
	token := pipeline.Token{Cmd: pipeline.CmdGroupBy, Prop: prop, HasProp: true}
	target := cur.RemoteID
	if target == "/" || target == "" {
		target = ""
	}
	group := model.New(model.ClassGroup, target+"/"+token.String(), "Group by "+prop, "", 1)
	a.stopSearch()
	a.session.Activate(group)
	a.selected = 0
	a.render()
}

// promptContextMenu renders the selected object's contextmenu extra.
func (a *App) promptContextMenu() {
	o := a.selectedObject()
	if o == nil {
		return
	}
	entries := a.session.ContextMenu(o)
	if len(entries) == 0 {
		return
	}
	list := tview.NewList()
	list.SetBorder(true).SetTitle(" Actions ")
	for _, entry := range entries {
		entry := entry
		title, _ := entry["title"].(string)
		if title == "" {
			title, _ = entry["action"].(string)
		}
		list.AddItem(title, "", 0, func() {
			a.closeModal()
			a.session.DispatchContextAction(entry)
		})
	}
	list.AddItem("Cancel", "", 'c', a.closeModal)
	a.showModal(list, 40, len(entries)+4)
}

// promptSearch starts an async search rooted at the current path.
func (a *App) promptSearch() {
	input := tview.NewInputField().SetLabel("Search: ")
	form := tview.NewForm().AddFormItem(input)
	form.SetBorder(true).SetTitle(" Search ")
	form.AddButton("Go", func() {
		term := strings.TrimSpace(input.GetText())
		a.closeModal()
		if term != "" {
			a.startSearch(term)
		}
	})
	form.AddButton("Cancel", a.closeModal)
	a.showModal(form, 50, 7)
}

func (a *App) makeShortcut() {
	link := a.session.BuildDeepLink()
	name := a.session.Breadcrumbs()[a.session.Depth()-1]
	path, err := shortcut.Write(shortcut.DesktopDir(), name, a.selfPath, a.selfPath, link)
	if err != nil {
		L_warn("shortcut failed", "error", err)
		a.setStatus(fmt.Sprintf("shortcut failed: %v", err))
		return
	}
	a.setStatus("shortcut written: " + path)
}

func (a *App) showModal(p tview.Primitive, width, height int) {
	grid := tview.NewGrid().
		SetColumns(0, width, 0).
		SetRows(0, height, 0).
		AddItem(p, 1, 1, 1, 1, 0, 0, true)
	a.pages.AddPage("modal", grid, true, true)
	a.tv.SetFocus(p)
}

func (a *App) closeModal() {
	a.pages.RemovePage("modal")
	a.tv.SetFocus(a.currentView())
}

func (a *App) setStatus(msg string) {
	a.status.SetText(msg)
}
