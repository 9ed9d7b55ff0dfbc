// Package autosave periodically flushes the board to storage in the
// background and reports each result to the Bubble Tea runtime.
package autosave

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

// DefaultInterval is used when a non-positive interval is given.
const DefaultInterval = 30 * time.Second

// Target is whatever the saver flushes; *board.Board satisfies it.
type Target interface {
	SaveAll() error
}

// State describes what the saver is doing.
type State int

const (
	StateIdle State = iota
	StateSaving
	StateFailed
)

// Reason records what triggered a save.
type Reason string

const (
	ReasonTick   Reason = "interval"
	ReasonManual Reason = "manual"
	ReasonExit   Reason = "exit"
)

// Status is a snapshot of the saver's progress.
type Status struct {
	State    State
	LastSave time.Time
	Error    error
}

// ResultMsg is a tea.Msg sent after every background save.
type ResultMsg struct {
	Reason Reason
	At     time.Time
	Error  error
}

// Saver runs SaveAll on a ticker and on demand.
type Saver struct {
	target   Target
	interval time.Duration
	log      zerolog.Logger

	resultCh  chan ResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}

	mu      sync.Mutex
	status  Status
	running bool
}

// New creates a stopped Saver.
func New(target Target, interval time.Duration, log zerolog.Logger) *Saver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Saver{
		target:    target,
		interval:  interval,
		log:       log.With().Str("component", "autosave").Logger(),
		resultCh:  make(chan ResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the save loop and returns a command that delivers the
// first ResultMsg. Calling Start on a running saver returns nil.
func (s *Saver) Start() tea.Cmd {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	go s.loop()
	s.log.Debug().Dur("interval", s.interval).Msg("autosave started")
	return s.waitForResult()
}

// Stop halts the loop and performs a final save. It is a no-op on a
// saver that is not running.
func (s *Saver) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh
	return s.save(ReasonExit)
}

// SaveNow requests an immediate save without blocking.
func (s *Saver) SaveNow() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
		// A save is already pending.
	}
}

// Status returns the current state.
func (s *Saver) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Saver) loop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			_ = s.save(ReasonTick)
		case <-s.triggerCh:
			_ = s.save(ReasonManual)
		}
	}
}

func (s *Saver) save(reason Reason) error {
	s.setState(StateSaving, nil)

	err := s.target.SaveAll()
	at := time.Now()
	if err != nil {
		s.log.Error().Err(err).Str("reason", string(reason)).Msg("autosave failed")
		s.setState(StateFailed, err)
	} else {
		s.log.Debug().Str("reason", string(reason)).Msg("autosave done")
		s.mu.Lock()
		s.status = Status{State: StateIdle, LastSave: at}
		s.mu.Unlock()
	}

	s.sendResult(ResultMsg{Reason: reason, At: at, Error: err})
	return err
}

func (s *Saver) setState(state State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = state
	s.status.Error = err
}

// sendResult never blocks; results are dropped when nobody listens.
func (s *Saver) sendResult(msg ResultMsg) {
	select {
	case s.resultCh <- msg:
	default:
	}
}

func (s *Saver) waitForResult() tea.Cmd {
	return func() tea.Msg {
		return <-s.resultCh
	}
}

// WaitForNextResult returns a command that waits for the next save.
// Call it after handling a ResultMsg to keep listening.
func (s *Saver) WaitForNextResult() tea.Cmd {
	return s.waitForResult()
}
