// Package model implements the live capture viewer: a bubbletea app that
// streams records from a running dwcapd over its control socket.
package model

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/openuwb/dwcap/pkg/core"
	"github.com/openuwb/dwcap/pkg/transport/uds"
)

// maxLines bounds the scrollback kept in memory.
const maxLines = 2000

// entry is one rendered scrollback line.
type entry struct {
	text       string
	annotation bool
	marked     bool
}

// App is the root Bubble Tea model.
type App struct {
	// Connection
	socketPath string
	client     *uds.Client
	recordCh   chan core.Record
	connected  bool

	// State
	entries []entry
	status  core.Status
	paused  bool
	follow  bool

	// UI
	vp        viewport.Model
	filter    textinput.Model
	filtering bool
	width     int
	height    int
	ready     bool
	statusMsg string
}

// New creates a viewer attached to the given daemon socket.
func New(socketPath string) App {
	fi := textinput.New()
	fi.Placeholder = "filter..."
	fi.CharLimit = 64

	return App{
		socketPath: socketPath,
		filter:     fi,
		follow:     true,
	}
}

// Init connects to the daemon.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		connectCmd(a.socketPath),
		tea.SetWindowTitle("dwcap"),
	)
}

// tickMsg triggers a periodic status refresh.
type tickMsg time.Time

// connectedMsg indicates a successful daemon connection.
type connectedMsg struct {
	client *uds.Client
	ch     chan core.Record
}

// recordMsg carries one captured record.
type recordMsg core.Record

// recordChClosedMsg indicates the event stream ended.
type recordChClosedMsg struct{}

// statusResultMsg carries a status snapshot.
type statusResultMsg core.Status

// errorMsg carries an error to display.
type errorMsg struct{ err error }

func connectCmd(socketPath string) tea.Cmd {
	return func() tea.Msg {
		client, err := uds.Dial(socketPath)
		if err != nil {
			return errorMsg{err}
		}
		ch := make(chan core.Record, 256)
		client.OnEvent(func(msg uds.Message) {
			if msg.Method != uds.EventRecord {
				return
			}
			var rec core.Record
			if msg.UnmarshalData(&rec) != nil {
				return
			}
			select {
			case ch <- rec:
			default: // viewer is behind; the file still has everything
			}
		})
		// The handler stops firing before Closed, so this close is safe.
		go func() {
			<-client.Closed()
			close(ch)
		}()
		return connectedMsg{client: client, ch: ch}
	}
}

func waitRecordCmd(ch chan core.Record) tea.Cmd {
	return func() tea.Msg {
		rec, ok := <-ch
		if !ok {
			return recordChClosedMsg{}
		}
		return recordMsg(rec)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchStatusCmd(client *uds.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		resp, err := client.Request(ctx, uds.MethodStatus, nil)
		if err != nil {
			return errorMsg{err}
		}
		var st core.Status
		if err := resp.UnmarshalData(&st); err != nil {
			return errorMsg{err}
		}
		return statusResultMsg(st)
	}
}

// Update handles messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resizeViewport()
		return a, nil

	case connectedMsg:
		a.client = msg.client
		a.recordCh = msg.ch
		a.connected = true
		a.statusMsg = "connected"
		return a, tea.Batch(waitRecordCmd(a.recordCh), fetchStatusCmd(a.client), tickCmd())

	case recordMsg:
		if !a.paused {
			a.appendRecord(core.Record(msg))
		}
		return a, waitRecordCmd(a.recordCh)

	case recordChClosedMsg:
		a.connected = false
		a.statusMsg = "stream closed"
		return a, nil

	case statusResultMsg:
		a.status = core.Status(msg)
		return a, nil

	case tickMsg:
		if a.client != nil && a.connected {
			return a, tea.Batch(tickCmd(), fetchStatusCmd(a.client))
		}
		return a, tickCmd()

	case errorMsg:
		a.statusMsg = "error: " + msg.err.Error()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a *App) appendRecord(rec core.Record) {
	a.entries = append(a.entries, entry{
		text:   strings.TrimRight(rec.Line, "\r\n"),
		marked: rec.Marked,
	})
	if rec.Marked {
		a.entries = append(a.entries, entry{
			text:       strings.TrimRight(core.Annotation(rec.RxNanos), "\n"),
			annotation: true,
		})
	}
	if len(a.entries) > maxLines {
		a.entries = a.entries[len(a.entries)-maxLines:]
	}
	a.refreshContent()
}

func (a *App) resizeViewport() {
	w := max(a.width-4, 10)
	h := max(a.height-5, 3)
	if !a.ready {
		a.vp = viewport.New(w, h)
		a.ready = true
	} else {
		a.vp.Width = w
		a.vp.Height = h
	}
	a.refreshContent()
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.filtering {
		switch msg.String() {
		case "esc":
			a.filtering = false
			a.filter.SetValue("")
			a.filter.Blur()
			a.refreshContent()
			return a, nil
		case "enter":
			a.filtering = false
			a.filter.Blur()
			return a, nil
		default:
			var cmd tea.Cmd
			a.filter, cmd = a.filter.Update(msg)
			a.refreshContent()
			return a, cmd
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		if a.client != nil {
			a.client.Close()
		}
		return a, tea.Quit

	case " ":
		a.paused = !a.paused
		if a.paused {
			a.statusMsg = "paused"
		} else {
			a.statusMsg = ""
		}
		return a, nil

	case "/":
		a.filtering = true
		a.filter.Focus()
		return a, textinput.Blink

	case "f":
		a.follow = !a.follow
		if a.follow {
			a.vp.GotoBottom()
		}
		return a, nil

	case "g":
		a.follow = false
		a.vp.GotoTop()
		return a, nil
	case "G":
		a.vp.GotoBottom()
		return a, nil
	}

	// Scrolling keys fall through to the viewport.
	var cmd tea.Cmd
	a.vp, cmd = a.vp.Update(msg)
	return a, cmd
}

func (a *App) visibleEntries() []entry {
	q := strings.ToLower(a.filter.Value())
	if q == "" {
		return a.entries
	}
	var filtered []entry
	for _, e := range a.entries {
		// Annotations stay with their line when it matches.
		if e.annotation {
			if n := len(filtered); n > 0 && filtered[n-1].marked {
				filtered = append(filtered, e)
			}
			continue
		}
		if strings.Contains(strings.ToLower(e.text), q) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
