package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/broadlink/internal/device"
)

// Messages for async operations
type scanStartMsg struct{}
type scanCompleteMsg struct {
	devices []device.Info
	err     error
}

// pickerKeyMap defines key bindings for the picker screen
type pickerKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k pickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k pickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Quit},
	}
}

// deviceItem wraps an Info for use with bubbles/list
type deviceItem struct {
	info device.Info
}

// FilterValue lets the list filter by name, model, or address
func (d deviceItem) FilterValue() string {
	return d.info.Name + " " + d.info.ModelName() + " " + d.info.Addr.String()
}

// Title returns the device name for list display
func (d deviceItem) Title() string {
	if d.info.Name != "" {
		return d.info.Name
	}
	return d.info.ModelName()
}

// Description returns device details for list display
func (d deviceItem) Description() string {
	return fmt.Sprintf("%s • %s • %s", d.info.ModelName(), d.info.Addr, d.info.MACString())
}

// deviceDelegate renders one device per row with a selection marker
type deviceDelegate struct{}

func (d deviceDelegate) Height() int  { return 2 }
func (d deviceDelegate) Spacing() int { return 1 }

func (d deviceDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(deviceItem)
	if !ok {
		return
	}

	title := it.Title()
	if it.info.Locked {
		title += " " + LockedStyle.Render("(locked)")
	}

	var b strings.Builder
	if index == m.Index() {
		b.WriteString(lipgloss.NewStyle().Foreground(HighlightColor).Bold(true).Render("→ " + title))
	} else {
		b.WriteString("  " + title)
	}
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render("    " + it.Description()))

	fmt.Fprint(w, b.String())
}

// PickerModel is the interactive device selection screen
type PickerModel struct {
	// Discovery state
	Scanning   bool
	DeviceList list.Model
	Selected   bool
	Err        error

	// ScanTimeout bounds each discovery broadcast window
	ScanTimeout time.Duration

	// UI state
	Width         int
	Height        int
	Spinner       spinner.Model
	ScanStartTime time.Time
	Help          help.Model
	Keys          pickerKeyMap
}

// NewPickerModel creates a picker that starts scanning immediately
func NewPickerModel(scanTimeout time.Duration) PickerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	deviceList := list.New([]list.Item{}, deviceDelegate{}, 0, 0)
	deviceList.Title = "Discovered Devices"
	deviceList.SetShowStatusBar(false)
	deviceList.SetFilteringEnabled(true)
	deviceList.Styles.Title = TitleStyle

	keys := pickerKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "select"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
	}

	if scanTimeout <= 0 {
		scanTimeout = device.DefaultScanTimeout
	}

	return PickerModel{
		DeviceList:  deviceList,
		ScanTimeout: scanTimeout,
		Spinner:     s,
		Help:        help.New(),
		Keys:        keys,
	}
}

// Init starts the first scan
func (m PickerModel) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return scanStartMsg{} },
		scanDevices(m.ScanTimeout),
		m.Spinner.Tick,
	)
}

// Update handles messages and updates the model
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.DeviceList.SetWidth(msg.Width - 4)
		m.DeviceList.SetHeight(msg.Height - 8)

	case scanStartMsg:
		m.Scanning = true
		m.ScanStartTime = time.Now()

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		items := make([]list.Item, len(msg.devices))
		for i, info := range msg.devices {
			items[i] = deviceItem{info: info}
		}
		m.DeviceList.SetItems(items)

	case spinner.TickMsg:
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	if !m.Scanning {
		m.DeviceList, cmd = m.DeviceList.Update(msg)
	}

	return m, cmd
}

func (m PickerModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Let the list's filter input capture keystrokes while active
	if m.DeviceList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.DeviceList, cmd = m.DeviceList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit

	case "enter", " ":
		if !m.Scanning && m.DeviceList.SelectedItem() != nil {
			m.Selected = true
			return m, tea.Quit
		}

	case "r":
		if !m.Scanning {
			m.DeviceList.SetItems([]list.Item{})
			m.Err = nil
			return m, tea.Batch(
				func() tea.Msg { return scanStartMsg{} },
				scanDevices(m.ScanTimeout),
				m.Spinner.Tick,
			)
		}
	}

	var cmd tea.Cmd
	m.DeviceList, cmd = m.DeviceList.Update(msg)
	return m, cmd
}

// View renders the picker screen
func (m PickerModel) View() string {
	var content string
	switch {
	case m.Scanning:
		elapsed := int(time.Since(m.ScanStartTime).Seconds())
		content = fmt.Sprintf("\n  %s Scanning for devices... (%ds)\n", m.Spinner.View(), elapsed)
	case m.Err != nil:
		content = "\n  " + ErrorStyle.Render(fmt.Sprintf("Scan failed: %v", m.Err)) + "\n"
	case len(m.DeviceList.Items()) == 0:
		content = "\n  " + WarningStyle.Render("No devices found on your network") + "\n\n" +
			"  Troubleshooting:\n" +
			"    • Ensure the device is powered on and on this network\n" +
			"    • Some networks block broadcast traffic; try the same subnet\n" +
			"    • Press 'r' to rescan\n"
	default:
		content = "\n" + m.DeviceList.View()
	}

	return content + "\n" + HelpStyle.Render(m.Help.View(m.Keys))
}

// SelectedDevice returns the chosen device, if any
func (m PickerModel) SelectedDevice() (device.Info, bool) {
	if !m.Selected {
		return device.Info{}, false
	}
	item, ok := m.DeviceList.SelectedItem().(deviceItem)
	if !ok {
		return device.Info{}, false
	}
	return item.info, true
}

// scanDevices returns a command that performs one discovery broadcast
func scanDevices(timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		scanner := device.NewScanner()
		scanner.Client.Timeout = timeout

		ctx, cancel := context.WithTimeout(context.Background(), timeout+time.Second)
		defer cancel()

		devices, err := scanner.Scan(ctx)
		return scanCompleteMsg{devices: devices, err: err}
	}
}

// Pick runs the picker to completion and returns the chosen device.
// A quit without a selection returns ok=false.
func Pick(scanTimeout time.Duration) (device.Info, bool, error) {
	p := tea.NewProgram(NewPickerModel(scanTimeout), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return device.Info{}, false, err
	}
	m, ok := final.(PickerModel)
	if !ok {
		return device.Info{}, false, nil
	}
	info, picked := m.SelectedDevice()
	return info, picked, nil
}
