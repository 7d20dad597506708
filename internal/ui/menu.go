package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"github.com/hrko/vmcompact/internal/remote"
)

var engineCommands = []remote.Command{
	remote.Show,
	remote.Hide,
	remote.Restart,
	remote.Shutdown,
	remote.Lock,
	remote.Unlock,
}

type menus struct {
	u    *UI
	main *fyne.MainMenu

	engine  *fyne.Menu
	configs *fyne.Menu
	layout  *fyne.Menu
	vban    *fyne.Menu
	help    *fyne.Menu
}

func newMenus(u *UI) *menus {
	m := &menus{u: u}
	m.engine = fyne.NewMenu("Voicemeeter")
	for _, c := range engineCommands {
		m.engine.Items = append(m.engine.Items, fyne.NewMenuItem(titleCase(c.String()), func() {
			if err := u.core.Command(c); err != nil {
				u.showError(fmt.Errorf("error sending %v: %w", c, err))
			}
		}))
	}
	m.configs = fyne.NewMenu("Configs")
	m.layout = fyne.NewMenu("Layout")
	m.vban = fyne.NewMenu("VBAN")
	m.help = fyne.NewMenu("Help", fyne.NewMenuItem("About", m.about))
	m.main = fyne.NewMainMenu(m.engine, m.configs, m.layout, m.vban, m.help)
	return m
}

// refresh rebuilds the menus that depend on the current target.
func (m *menus) refresh() {
	m.configs.Items = m.configItems()
	m.layout.Items = m.layoutItems()
	m.vban.Items = m.vbanItems()
	m.main.Refresh()
}

func (m *menus) configItems() []*fyne.MenuItem {
	names, err := m.u.core.ProfileNames()
	if err != nil {
		log.Warnf("error listing profiles: %v", err)
		item := fyne.NewMenuItem("No configs", nil)
		item.Disabled = true
		return []*fyne.MenuItem{item}
	}
	items := make([]*fyne.MenuItem, 0, len(names)+1)
	for i, name := range names {
		if i == len(names)-1 && len(names) > 1 {
			items = append(items, fyne.NewMenuItemSeparator())
		}
		items = append(items, fyne.NewMenuItem(name, func() {
			m.u.core.SelectProfile(name, m.u.reportError)
		}))
	}
	return items
}

func (m *menus) layoutItems() []*fyne.MenuItem {
	mgr := m.u.core.Manager()
	extend := fyne.NewMenuItem("Extended", func() {
		if err := mgr.ToggleExtend(); err != nil {
			m.u.showError(err)
		}
		m.refresh()
	})
	extend.Checked = mgr.Extended()
	extend.Disabled = !mgr.NavState().ExtendEnabled
	nav := fyne.NewMenuItem("Navigation", func() {
		mgr.SetNavigation(!mgr.NavigationShown())
		m.refresh()
	})
	nav.Checked = mgr.NavigationShown()
	items := []*fyne.MenuItem{extend, nav}

	k := mgr.Kind()
	if !k.HasSubmix() {
		return items
	}
	submix := fyne.NewMenuItem("Submixes", nil)
	sub := fyne.NewMenu("")
	for i, name := range k.BusNames() {
		item := fyne.NewMenuItem(name, func() {
			if err := mgr.SetSubmix(i); err != nil {
				m.u.showError(err)
			}
			m.refresh()
		})
		item.Checked = i == mgr.Submix()
		sub.Items = append(sub.Items, item)
	}
	submix.ChildMenu = sub
	return append(items, submix)
}

func (m *menus) vbanItems() []*fyne.MenuItem {
	core := m.u.core
	conns := core.Connections()
	if len(conns) == 0 {
		item := fyne.NewMenuItem("No connections in vban.toml", nil)
		item.Disabled = true
		return []*fyne.MenuItem{item}
	}
	items := make([]*fyne.MenuItem, 0, len(conns)+2)
	for i, c := range conns {
		item := fyne.NewMenuItem(fmt.Sprintf("%v (%v)", c.Name, c.IP), func() {
			if err := core.ConnectAsync(m.u.ctx, i, m.u.reportError); err != nil {
				m.u.showError(err)
			}
		})
		item.Checked = core.Connection() == i
		item.Disabled = !core.CanConnect()
		items = append(items, item)
	}
	disconnect := fyne.NewMenuItem("Disconnect", func() {
		if err := core.Disconnect(); err != nil {
			m.u.showError(err)
		}
	})
	disconnect.Disabled = !core.Connected()
	return append(items, fyne.NewMenuItemSeparator(), disconnect)
}

func (m *menus) about() {
	dialog.ShowInformation("About",
		fmt.Sprintf("Voicemeeter %v Compact\nA compact window for Voicemeeter.", titleCase(m.u.kind.Name)),
		m.u.win)
}
