package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	enter     key.Binding
	back      key.Binding
	tab       key.Binding
	refresh   key.Binding
	toggle    key.Binding
	selectAll key.Binding
	sort      key.Binding
	reverse   key.Binding
	add       key.Binding
	moveUp    key.Binding
	moveDown  key.Binding
	remove    key.Binding
	clear     key.Binding
	info      key.Binding
	export    key.Binding
	cancel    key.Binding
	dir       key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "queue/catalog")),
		refresh:   key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "refresh")),
		toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		selectAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
		sort:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		reverse:   key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "reverse")),
		add:       key.NewBinding(key.WithKeys("+", "enter"), key.WithHelp("+", "add to queue")),
		moveUp:    key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
		moveDown:  key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
		remove:    key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "remove")),
		clear:     key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "clear")),
		info:      key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "error detail")),
		export:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		cancel:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel export")),
		dir:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "export folder")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.enter, k.back, k.tab, k.refresh},
		{k.toggle, k.selectAll, k.sort, k.reverse, k.add},
		{k.moveUp, k.moveDown, k.remove, k.clear, k.info},
		{k.export, k.cancel, k.dir, k.quit},
	}
}

// forView returns the bindings shown in the help line of v.
func (k keyMap) forView(v ViewState) []key.Binding {
	switch v {
	case CatalogView:
		return []key.Binding{k.toggle, k.selectAll, k.add, k.sort, k.reverse, k.back, k.tab, k.quit}
	case QueueView:
		return []key.Binding{k.export, k.cancel, k.dir, k.moveUp, k.moveDown, k.remove, k.clear, k.info, k.tab, k.quit}
	case DirPromptView:
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
			k.back,
		}
	default:
		return []key.Binding{k.enter, k.refresh, k.tab, k.quit}
	}
}
