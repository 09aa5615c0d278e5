package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatline/pkg/audio"
	"github.com/papercomputeco/chatline/pkg/chat"
	"github.com/papercomputeco/chatline/pkg/render"
)

type mode int

const (
	modeInput mode = iota
	modeSelect
)

// changedMsg reports that the conversation or a rendered message changed.
type changedMsg struct{}

type sentMsg struct{ err error }

type playedMsg struct {
	result audio.Result
	err    error
}

// Options tune the render pipeline.
type Options struct {
	Renderer render.Renderer
	Interval time.Duration
	Workers  int

	// Copy writes text to the clipboard. Defaults to the system clipboard.
	Copy func(string) error
}

// Model is the bubbletea model of the chat client.
type Model struct {
	ctx     context.Context
	session *Session
	conv    *chat.Conversation
	sched   *render.Scheduler
	changes chan struct{}
	copyFn  func(string) error
	logger  *zap.Logger

	input    textinput.Model
	viewport viewport.Model
	mode     mode
	cursor   int
	width    int
	height   int
	status   string
	failed   bool
	quitting bool
}

// New creates the chat model. Renders of every message are scheduled as the
// conversation changes; Close stops the scheduler.
func New(ctx context.Context, session *Session, opts Options, logger *zap.Logger) Model {
	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	schedOpts := []render.SchedulerOption{
		render.WithOnRendered(func(string, string) { notify() }),
	}
	if opts.Interval > 0 {
		schedOpts = append(schedOpts, render.WithInterval(opts.Interval))
	}
	if opts.Workers > 0 {
		schedOpts = append(schedOpts, render.WithWorkers(opts.Workers))
	}
	sched := render.NewScheduler(opts.Renderer, logger, schedOpts...)

	conv := session.Conversation()
	render.Bind(conv, sched)
	conv.Subscribe(func(chat.Event) { notify() })
	for _, m := range conv.Messages() {
		sched.Schedule(m.ID, m.Content, m.IsTemporary())
	}

	copyFn := opts.Copy
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	ti := textinput.New()
	ti.Placeholder = "ask something..."
	ti.CharLimit = 0
	ti.SetValue(conv.Draft())
	ti.Focus()

	return Model{
		ctx:      ctx,
		session:  session,
		conv:     conv,
		sched:    sched,
		changes:  changes,
		copyFn:   copyFn,
		logger:   logger,
		input:    ti,
		viewport: viewport.New(80, 20),
		width:    80,
		height:   24,
	}
}

// Close stops rendering.
func (m Model) Close() {
	m.sched.Close()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange())
}

func (m Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = m.viewportHeight()
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case changedMsg:
		m.clampCursor()
		m.refresh()
		return m, m.waitForChange()

	case sentMsg:
		if msg.err != nil {
			m.setError(msg.err)
		}
		return m, nil

	case playedMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus("audio " + msg.result.String())
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.mode {
		case modeInput:
			return m.updateInput(msg)
		case modeSelect:
			return m.updateSelect(msg)
		}
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		question := strings.TrimSpace(m.input.Value())
		if question == "" {
			return m, nil
		}
		m.input.Reset()
		m.conv.SetDraft("")
		m.setStatus("waiting for reply")
		return m, m.send(question)

	case "esc":
		if m.conv.Len() == 0 {
			return m, nil
		}
		m.input.Blur()
		m.mode = modeSelect
		m.cursor = m.conv.Len() - 1
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != m.conv.Draft() {
		m.conv.SetDraft(m.input.Value())
	}
	return m, cmd
}

func (m Model) updateSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "esc", "i", "tab":
		m.mode = modeInput
		m.input.Focus()
		m.refresh()
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < m.conv.Len()-1 {
			m.cursor++
		}

	case "home", "g":
		m.cursor = 0

	case "end", "G":
		m.cursor = max(0, m.conv.Len()-1)

	case "d":
		removed, err := m.conv.Delete(m.cursor)
		if err != nil {
			m.setError(err)
			break
		}
		m.setStatus(fmt.Sprintf("deleted %d message(s)", len(removed)))

	case "r":
		question, err := m.conv.ReAnswer(m.cursor, m.session.Resend(m.ctx))
		if err != nil {
			m.setError(err)
			break
		}
		m.setStatus("regenerating: " + preview(question, 40))

	case "l":
		if err := m.conv.Lock(m.cursor); err != nil {
			m.setError(err)
			break
		}
		m.setStatus("lock toggled")

	case "e":
		draft, err := m.conv.Edit(m.cursor)
		if err != nil {
			m.setError(err)
			break
		}
		m.input.SetValue(draft)
		m.input.CursorEnd()
		m.input.Focus()
		m.mode = modeInput
		m.setStatus("editing")

	case "y":
		msgAt, err := m.conv.At(m.cursor)
		if err != nil {
			m.setError(err)
			break
		}
		if err := m.copyFn(msgAt.Content); err != nil {
			m.setError(fmt.Errorf("copy: %w", err))
			break
		}
		m.setStatus("copied to clipboard")

	case "p":
		return m, m.play(m.cursor)

	case "x":
		removed := m.conv.Clear()
		m.cursor = 0
		m.setStatus(fmt.Sprintf("cleared %d message(s)", len(removed)))
	}

	m.clampCursor()
	m.refresh()
	return m, nil
}

func (m Model) send(question string) tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return sentMsg{err: session.Send(ctx, question)}
	}
}

func (m Model) play(index int) tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		result, err := session.Play(ctx, index)
		return playedMsg{result: result, err: err}
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.failed = false
}

func (m *Model) setError(err error) {
	m.logger.Debug("action failed", zap.Error(err))
	m.status = err.Error()
	m.failed = true
}

func (m *Model) clampCursor() {
	n := m.conv.Len()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if n == 0 && m.mode == modeSelect {
		m.mode = modeInput
		m.input.Focus()
	}
}

func (m Model) viewportHeight() int {
	// title, input and help lines
	return max(m.height-3, 1)
}

// refresh rebuilds the viewport content and keeps the cursor (or, while
// typing, the latest message) in view.
func (m *Model) refresh() {
	content, cursorLine := m.renderMessages()
	m.viewport.SetContent(content)
	if m.mode == modeInput {
		m.viewport.GotoBottom()
		return
	}
	if cursorLine < m.viewport.YOffset || cursorLine >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(cursorLine)
	}
}

// renderMessages returns the transcript and the line the cursor message
// starts on.
func (m Model) renderMessages() (string, int) {
	var b strings.Builder
	cursorLine := 0
	lines := 0
	for i, msg := range m.conv.Messages() {
		if i > 0 {
			b.WriteString("\n")
			lines++
		}
		selected := m.mode == modeSelect && i == m.cursor
		if selected {
			cursorLine = lines
		}

		header := m.renderHeader(msg, selected)
		body := m.renderBody(msg)
		b.WriteString(header + "\n" + body + "\n")
		lines += 2 + strings.Count(body, "\n")
	}
	return b.String(), cursorLine
}

func (m Model) renderHeader(msg chat.Message, selected bool) string {
	var role string
	switch msg.Role {
	case chat.RoleUser:
		role = userRoleStyle.Render("You")
	case chat.RoleError:
		role = errorRoleStyle.Render("Error")
	default:
		role = assistantRoleStyle.Render("Assistant")
	}

	marker := "  "
	if selected {
		marker = cursorStyle.Render("▸ ")
	}

	var tag string
	switch {
	case msg.IsTemporary():
		tag = tagStyle.Render(" typing...")
	case msg.IsLocked():
		tag = tagStyle.Render(" locked")
	}

	return ansi.Truncate(marker+role+tag, m.width, "…")
}

// renderBody prefers the rendered markdown and falls back to the raw content,
// wrapped to the window, until the first render lands.
func (m Model) renderBody(msg chat.Message) string {
	if out, ok := m.sched.Output(msg.ID); ok && out != "" {
		return out
	}
	if msg.Content == "" {
		return tagStyle.Render("  …")
	}
	return ansi.Wordwrap(msg.Content, max(m.width-2, 10), " -")
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := titleStyle.Render("chatline")
	status := statusStyle.Render(m.status)
	if m.failed {
		status = errorStatusStyle.Render(m.status)
	}
	b.WriteString(ansi.Truncate(title+" "+status, m.width, "…") + "\n")
	b.WriteString(m.viewport.View() + "\n")
	b.WriteString(inputStyle.Render(m.input.View()) + "\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m Model) renderHelp() string {
	var help string
	if m.mode == modeSelect {
		help = "  ↑/↓: move  d: delete  r: regenerate  l: lock  p: play  e: edit  y: copy  x: clear  esc: type  q: quit"
	} else {
		help = "  enter: send  esc: select messages  ctrl+c: quit"
	}
	return ansi.Truncate(helpStyle.Render(help), m.width, "…")
}

func preview(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return ansi.Truncate(s, n, "…")
}
