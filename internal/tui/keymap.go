package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit          key.Binding
	reload        key.Binding
	toggleHelp    key.Binding
	toggleSidebar key.Binding
	nextPage      key.Binding
	prevPage      key.Binding
	signOut       key.Binding

	moveLeft      key.Binding
	moveRight     key.Binding
	moveUp        key.Binding
	moveDown      key.Binding
	addTask       key.Binding
	editTask      key.Binding
	deleteTask    key.Binding
	moveTaskLeft  key.Binding
	moveTaskRight key.Binding
	addColumn     key.Binding

	copyReport   key.Binding
	exportHTML   key.Binding
	exportText   key.Binding
	exportMD     key.Binding
	toggleSource key.Binding
	editProfile  key.Binding
	toggleOption key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		toggleSidebar: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "collapse sidebar")),
		nextPage:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next page")),
		prevPage:      key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous page")),
		signOut:       key.NewBinding(key.WithKeys("O", "shift+o"), key.WithHelp("O", "sign out")),

		moveLeft:      key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:     key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		moveDown:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		addTask:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		editTask:      key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e/enter", "edit task")),
		deleteTask:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete task")),
		moveTaskLeft:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "move task left")),
		moveTaskRight: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "move task right")),
		addColumn:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "new column")),

		copyReport:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy summary")),
		exportHTML:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export html")),
		exportText:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "export txt")),
		exportMD:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "export markdown")),
		toggleSource: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "recorded/synthesized")),
		editProfile:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit profile")),
		toggleOption: key.NewBinding(key.WithKeys("enter", " ", "space"), key.WithHelp("enter/space", "change setting")),
	}
}

// pageKeys adapts the key map to the bindings active on one page.
type pageKeys struct {
	keys keyMap
	page page
}

// ShortHelp handles short help.
func (p pageKeys) ShortHelp() []key.Binding {
	k := p.keys
	switch p.page {
	case pageDashboard:
		return []key.Binding{k.addTask, k.editTask, k.deleteTask, k.moveTaskLeft, k.moveTaskRight, k.addColumn, k.nextPage, k.quit}
	case pageReports:
		return []key.Binding{k.copyReport, k.exportHTML, k.exportText, k.exportMD, k.nextPage, k.quit}
	case pageActivity:
		return []key.Binding{k.toggleSource, k.moveUp, k.moveDown, k.nextPage, k.quit}
	case pageProfile:
		return []key.Binding{k.editProfile, k.signOut, k.nextPage, k.quit}
	case pageSettings:
		return []key.Binding{k.moveUp, k.moveDown, k.toggleOption, k.nextPage, k.quit}
	default:
		return []key.Binding{k.nextPage, k.toggleSidebar, k.toggleHelp, k.quit}
	}
}

// FullHelp handles full help.
func (p pageKeys) FullHelp() [][]key.Binding {
	k := p.keys
	return [][]key.Binding{
		{k.nextPage, k.prevPage, k.toggleSidebar, k.toggleHelp, k.reload, k.signOut, k.quit},
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.moveTaskLeft, k.moveTaskRight},
		{k.addTask, k.editTask, k.deleteTask, k.addColumn},
		{k.copyReport, k.exportHTML, k.exportText, k.exportMD, k.toggleSource, k.editProfile, k.toggleOption},
	}
}
