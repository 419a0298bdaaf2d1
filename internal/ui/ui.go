package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/pulse/internal/catalog"
	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/queue"
	"github.com/desertthunder/pulse/internal/shared"
	"github.com/desertthunder/pulse/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistView ViewState = iota
	CatalogView
	QueueView
	DirPromptView
)

const (
	maxNotices   = 5
	chromeHeight = 10
)

var sortCycle = []catalog.SortField{
	catalog.SortNone,
	catalog.SortTitle,
	catalog.SortArtist,
	catalog.SortAlbum,
	catalog.SortYear,
}

// Deps are the components the TUI drives.
type Deps struct {
	Catalog  *catalog.Loader
	Queue    *queue.Store
	Pipeline *tasks.Pipeline
	Logger   *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	catalog  *catalog.Loader
	queue    *queue.Store
	pipeline *tasks.Pipeline
	logger   *log.Logger

	view   ViewState
	prev   ViewState
	width  int
	height int

	playlistList list.Model
	catalogList  list.Model
	queueList    list.Model
	dirInput     textinput.Model
	spinner      spinner.Model
	bar          progress.Model

	job            *exportJob
	progress       tasks.ProgressUpdate
	lastRun        *models.ExportRun
	exportAfterDir bool
	dirErr         error
	notices        []string
	detail         string
	err            error
	help           help.Model
	keys           keyMap
}

// exportJob is a pipeline run owned by the TUI.
//
// run and err are written before updates is closed and read only after.
type exportJob struct {
	updates chan tasks.ProgressUpdate
	done    chan struct{}
	run     *models.ExportRun
	err     error
}

func (j *exportJob) start(ctx context.Context, p *tasks.Pipeline) {
	defer close(j.done)
	j.run, j.err = p.Run(ctx, j.updates)
	close(j.updates)
}

func (j *exportJob) wait() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-j.updates
		if !ok {
			return exportDoneMsg(j.run, j.err)
		}
		return progressMsg(update)
	}
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, deps Deps) *Model {
	logger := deps.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	input := textinput.New()
	input.Placeholder = "~/Music/pulse"
	input.Prompt = "Export folder: "

	queueList := newList("Queue")
	queueList.SetFilteringEnabled(false)

	m := &Model{
		ctx:          ctx,
		catalog:      deps.Catalog,
		queue:        deps.Queue,
		pipeline:     deps.Pipeline,
		logger:       shared.WithLogger(logger, "component", "tui"),
		view:         PlaylistView,
		playlistList: newList("Spotify Playlists"),
		catalogList:  newList("Tracks"),
		queueList:    queueList,
		dirInput:     input,
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:         help.New(),
		keys:         newKeyMap(),
	}
	m.refreshQueue("")
	return m
}

// Init initializes the TUI by fetching playlists from Spotify.
func (m *Model) Init() tea.Cmd {
	return m.loadPlaylists(false)
}

// Wait blocks until an export started from the TUI has stopped writing to the queue.
func (m *Model) Wait() {
	if j := m.job; j != nil {
		<-j.done
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.job == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateActive(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsLoaded:
		if msg.err != nil {
			if errors.Is(msg.err, shared.ErrNotAuthenticated) {
				m.err = fmt.Errorf("%w (run `pulse auth login` first)", msg.err)
			} else {
				m.err = msg.err
			}
			return m, nil
		}
		return m, m.playlistList.SetItems(playlistItems(msg.data.([]models.Playlist)))

	case MsgTracksLoaded:
		if errors.Is(msg.err, shared.ErrStaleRequest) {
			return m, nil
		}
		if msg.err != nil {
			m.notify(styles.err.Render(msg.err.Error()))
			return m, nil
		}
		m.catalogList.ResetSelected()
		return m, m.refreshCatalog()

	case MsgQueueChanged:
		if msg.err != nil {
			m.notify(styles.err.Render(msg.err.Error()))
		}
		return m, m.refreshQueue(msg.data.(string))

	case MsgTracksQueued:
		if msg.err != nil {
			m.notify(styles.err.Render(msg.err.Error()))
			return m, nil
		}
		res := msg.data.(queuedResult)
		text := fmt.Sprintf("Queued %d track(s)", len(res.added))
		if len(res.duplicates) > 0 {
			text += fmt.Sprintf(", %d already queued", len(res.duplicates))
		}
		m.notify(styles.ok.Render(text))
		m.catalog.SelectAll(false)
		return m, tea.Batch(m.refreshCatalog(), m.refreshQueue(""))

	case MsgDirSet:
		if msg.err != nil {
			m.dirErr = msg.err
			return m, nil
		}
		m.dirInput.Blur()
		m.view = m.prev
		m.notify(fmt.Sprintf("Export folder: %s", msg.data.(string)))
		if m.exportAfterDir {
			m.exportAfterDir = false
			return m, m.startExport()
		}
		return m, m.refreshQueue("")

	case MsgProgress:
		update := msg.data.(tasks.ProgressUpdate)
		if update.IsNotice() {
			m.notify(noticeStyle(update.Notice).Render(update.Message))
		} else {
			m.progress = update
		}
		cmd := m.refreshQueue("")
		if m.job == nil {
			return m, cmd
		}
		return m, tea.Batch(cmd, m.job.wait())

	case MsgExportDone:
		m.job = nil
		m.progress = tasks.ProgressUpdate{}
		if run, ok := msg.data.(*models.ExportRun); ok && run != nil {
			m.lastRun = run
		}
		if msg.err != nil {
			m.logger.Warn("export did not run", "error", msg.err)
		}
		return m, m.refreshQueue("")
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, m.quit()
	}
	if m.view == DirPromptView {
		return m.handleDirKeys(msg)
	}
	if l := m.activeList(); l != nil && l.FilterState() == list.Filtering {
		return m.updateActive(msg)
	}
	if m.detail != "" {
		m.detail = ""
		return m, nil
	}
	if key.Matches(msg, m.keys.quit) {
		return m, m.quit()
	}

	switch m.view {
	case PlaylistView:
		return m.handlePlaylistKeys(msg)
	case CatalogView:
		return m.handleCatalogKeys(msg)
	case QueueView:
		return m.handleQueueKeys(msg)
	}
	return m, nil
}

func (m *Model) handlePlaylistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			m.view = CatalogView
			m.catalogList.Title = item.playlist.Name
			return m, tea.Batch(m.catalogList.SetItems(nil), m.loadTracks(item.playlist.ID))
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.loadPlaylists(true)
	case key.Matches(msg, m.keys.tab):
		m.view = QueueView
		return m, m.refreshQueue("")
	}
	return m.updateActive(msg)
}

func (m *Model) handleCatalogKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.toggle):
		if item, ok := m.catalogList.SelectedItem().(trackItem); ok {
			m.catalog.Toggle(item.track.ID)
			cmd := m.refreshCatalog()
			m.catalogList.CursorDown()
			return m, cmd
		}
		return m, nil

	case key.Matches(msg, m.keys.selectAll):
		tracks := m.catalog.Tracks()
		m.catalog.SelectAll(len(m.catalog.Selected()) < len(tracks))
		return m, m.refreshCatalog()

	case key.Matches(msg, m.keys.sort):
		field, desc := m.catalog.SortState()
		m.catalog.Sort(nextSort(field), desc)
		return m, m.refreshCatalog()

	case key.Matches(msg, m.keys.reverse):
		field, desc := m.catalog.SortState()
		m.catalog.Sort(field, !desc)
		return m, m.refreshCatalog()

	case key.Matches(msg, m.keys.add):
		tracks := m.catalog.Selected()
		if len(tracks) == 0 {
			if item, ok := m.catalogList.SelectedItem().(trackItem); ok {
				tracks = []models.Track{item.track}
			}
		}
		if len(tracks) == 0 {
			return m, nil
		}
		return m, m.addTracks(tracks)

	case key.Matches(msg, m.keys.back):
		m.view = PlaylistView
		return m, nil

	case key.Matches(msg, m.keys.tab):
		m.view = QueueView
		return m, m.refreshQueue("")
	}
	return m.updateActive(msg)
}

func (m *Model) handleQueueKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item, hasItem := m.queueList.SelectedItem().(queueItem)

	switch {
	case key.Matches(msg, m.keys.moveUp), key.Matches(msg, m.keys.moveDown):
		if !hasItem {
			return m, nil
		}
		delta := -1
		if key.Matches(msg, m.keys.moveDown) {
			delta = 1
		}
		id := item.track.ID
		return m, m.mutateQueue(id, func(ctx context.Context) error {
			return m.queue.Move(ctx, id, delta)
		})

	case key.Matches(msg, m.keys.remove):
		if !hasItem {
			return m, nil
		}
		id := item.track.ID
		return m, m.mutateQueue("", func(ctx context.Context) error {
			return m.queue.Remove(ctx, id)
		})

	case key.Matches(msg, m.keys.clear):
		return m, m.mutateQueue("", m.queue.Clear)

	case key.Matches(msg, m.keys.info):
		if !hasItem {
			return m, nil
		}
		if item.track.ErrorMessage == "" {
			m.notify(fmt.Sprintf("%s has no error", item.track.Title))
			return m, nil
		}
		m.detail = fmt.Sprintf("%s - %s\n\n%s", item.track.Artist, item.track.Title, item.track.ErrorMessage)
		return m, nil

	case key.Matches(msg, m.keys.export):
		return m, m.startExport()

	case key.Matches(msg, m.keys.cancel):
		if m.pipeline.Cancel() {
			m.notify(styles.warn.Render("Cancelling export..."))
		}
		return m, nil

	case key.Matches(msg, m.keys.dir):
		return m, m.openDirPrompt(false)

	case key.Matches(msg, m.keys.tab):
		if m.catalog.PlaylistID() != "" {
			m.view = CatalogView
		} else {
			m.view = PlaylistView
		}
		return m, nil

	case key.Matches(msg, m.keys.back):
		m.view = PlaylistView
		return m, nil
	}
	return m.updateActive(msg)
}

func (m *Model) handleDirKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.dirInput.Blur()
		m.view = m.prev
		m.exportAfterDir = false
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.dirInput.Value())
		if value == "" {
			m.dirInput.Blur()
			m.view = m.prev
			m.exportAfterDir = false
			return m, nil
		}
		return m, m.setDir(value)
	}

	var cmd tea.Cmd
	m.dirInput, cmd = m.dirInput.Update(msg)
	return m, cmd
}

func (m *Model) openDirPrompt(thenExport bool) tea.Cmd {
	if m.view != DirPromptView {
		m.prev = m.view
	}
	m.view = DirPromptView
	m.exportAfterDir = thenExport
	m.dirErr = nil
	m.dirInput.SetValue(m.queue.ExportDir())
	m.dirInput.CursorEnd()
	return m.dirInput.Focus()
}

// startExport runs the pipeline in the background, asking for a folder first when none is set.
func (m *Model) startExport() tea.Cmd {
	if m.job != nil {
		m.notify(styles.warn.Render(shared.ErrExportInProgress.Error()))
		return nil
	}
	if m.queue.Len() > 0 && m.queue.ExportDir() == "" {
		return m.openDirPrompt(true)
	}

	job := &exportJob{
		updates: make(chan tasks.ProgressUpdate, 64),
		done:    make(chan struct{}),
	}
	m.job = job
	m.progress = tasks.ProgressUpdate{}
	m.logger.Info("starting export from tui", "tracks", m.queue.Len())

	go job.start(m.ctx, m.pipeline)
	return tea.Batch(job.wait(), m.spinner.Tick)
}

func (m *Model) quit() tea.Cmd {
	if m.job != nil {
		m.pipeline.Cancel()
	}
	return tea.Quit
}

func (m *Model) loadPlaylists(refresh bool) tea.Cmd {
	ctx, loader := m.ctx, m.catalog
	return func() tea.Msg {
		load := loader.Playlists
		if refresh {
			load = loader.RefreshPlaylists
		}
		playlists, err := load(ctx)
		return playlistsLoadedMsg(playlists, err)
	}
}

func (m *Model) loadTracks(playlistID string) tea.Cmd {
	ctx, loader := m.ctx, m.catalog
	return func() tea.Msg {
		tracks, err := loader.Load(ctx, playlistID)
		return tracksLoadedMsg(tracks, err)
	}
}

func (m *Model) addTracks(tracks []models.Track) tea.Cmd {
	ctx, store := m.ctx, m.queue
	return func() tea.Msg {
		added, duplicates, err := store.AddAll(ctx, tracks)
		return tracksQueuedMsg(added, duplicates, err)
	}
}

func (m *Model) setDir(dir string) tea.Cmd {
	ctx, store := m.ctx, m.queue
	return func() tea.Msg {
		resolved, err := store.SetExportDir(ctx, dir)
		return dirSetMsg(resolved, err)
	}
}

func (m *Model) mutateQueue(focus string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return queueChangedMsg(focus, fn(ctx))
	}
}

func (m *Model) refreshCatalog() tea.Cmd {
	field, desc := m.catalog.SortState()
	title := m.catalogList.Title
	if i := strings.Index(title, " · "); i >= 0 {
		title = title[:i]
	}
	if field != catalog.SortNone {
		dir := "asc"
		if desc {
			dir = "desc"
		}
		title = fmt.Sprintf("%s · by %s %s", title, field, dir)
	}
	m.catalogList.Title = title
	return m.catalogList.SetItems(trackItems(m.catalog.Tracks()))
}

// refreshQueue reloads the queue list from the store, keeping focus on the given id if set.
func (m *Model) refreshQueue(focus string) tea.Cmd {
	tracks := m.queue.Tracks()
	m.queueList.Title = "Queue · " + m.queue.Summary().String()
	cmd := m.queueList.SetItems(queueItems(tracks))
	if focus != "" {
		for i, t := range tracks {
			if t.ID == focus {
				m.queueList.Select(i)
				break
			}
		}
	}
	return cmd
}

func (m *Model) notify(msg string) {
	m.notices = append(m.notices, msg)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

func (m *Model) activeList() *list.Model {
	switch m.view {
	case PlaylistView:
		return &m.playlistList
	case CatalogView:
		return &m.catalogList
	case QueueView:
		return &m.queueList
	}
	return nil
}

func (m *Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	l := m.activeList()
	if l == nil {
		return m, nil
	}
	var cmd tea.Cmd
	*l, cmd = l.Update(msg)
	return m, cmd
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	listHeight := max(h-chromeHeight, 5)
	for _, l := range []*list.Model{&m.playlistList, &m.catalogList, &m.queueList} {
		l.SetSize(w, listHeight)
	}
	m.bar.Width = max(10, min(w-4, 60))
	m.dirInput.Width = max(10, w-20)
}

func nextSort(field catalog.SortField) catalog.SortField {
	for i, f := range sortCycle {
		if f == field {
			return sortCycle[(i+1)%len(sortCycle)]
		}
	}
	return catalog.SortNone
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	var b strings.Builder
	if m.detail != "" {
		b.WriteString(styles.box.Render(m.detail))
		b.WriteString("\n" + styles.help.Render("press any key to close") + "\n\n")
	}

	switch m.view {
	case PlaylistView:
		b.WriteString(m.playlistList.View())
	case CatalogView:
		b.WriteString(m.catalogList.View())
	case QueueView:
		b.WriteString(m.renderQueue())
	case DirPromptView:
		b.WriteString(m.renderDirPrompt())
	}

	if m.job != nil && m.view != QueueView {
		b.WriteString("\n" + m.renderExport())
	}
	if len(m.notices) > 0 {
		b.WriteString("\n\n" + strings.Join(m.notices, "\n"))
	}
	b.WriteString("\n\n" + m.help.ShortHelpView(m.keys.forView(m.view)))
	return b.String()
}

func (m *Model) renderQueue() string {
	dir := m.queue.ExportDir()
	if dir == "" {
		dir = styles.warn.Render("not set (press o)")
	}

	var b strings.Builder
	b.WriteString(m.queueList.View())
	b.WriteString("\n" + styles.help.Render("Export folder: ") + dir)
	if m.job != nil {
		b.WriteString("\n\n" + m.renderExport())
	} else if m.lastRun != nil {
		r := m.lastRun
		line := fmt.Sprintf("Last run: %d downloaded, %d failed, %d skipped", r.Downloaded, r.Failed, r.Skipped)
		if r.Cancelled {
			line += " (cancelled)"
		}
		b.WriteString("\n" + styles.help.Render(line))
	}
	return b.String()
}

func (m *Model) renderExport() string {
	p := m.progress
	fraction := 0.0
	if p.Total > 0 {
		done := float64(max(p.Step-1, 0))
		if f, ok := p.Data.(float64); ok {
			done += f
		}
		fraction = min(done/float64(p.Total), 1)
	}

	msg := p.Message
	if msg == "" {
		msg = "Preparing export..."
	}
	return fmt.Sprintf("%s %s\n%s", m.spinner.View(), msg, m.bar.ViewAs(fraction))
}

func (m *Model) renderDirPrompt() string {
	title := styles.title.Render("Choose an export folder")
	body := m.dirInput.View()
	if m.dirErr != nil {
		body += "\n\n" + styles.err.Render(m.dirErr.Error())
	}
	if m.exportAfterDir {
		body += "\n\n" + styles.help.Render("The export starts once the folder is saved.")
	}
	return fmt.Sprintf("%s\n%s", title, body)
}
