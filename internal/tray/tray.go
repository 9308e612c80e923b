// Package tray provides a system tray interface for the handspace tracker.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/handspace/internal/tracker"
)

var rates = []tracker.Rate{tracker.EveryFrame, tracker.EveryOtherFrame, tracker.EveryFourthFrame}

var rateTitles = map[tracker.Rate]string{
	tracker.EveryFrame:       "Detect every frame",
	tracker.EveryOtherFrame:  "Detect every 2nd frame",
	tracker.EveryFourthFrame: "Detect every 4th frame",
}

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onRate   func(r tracker.Rate) error
	onViewer func()
	onQuit   func()
	enabled  bool
	rate     tracker.Rate
	visible  bool
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuHand   *systray.MenuItem
	menuRates  map[tracker.Rate]*systray.MenuItem
}

// New creates a new Tray with tracking enabled at the given rate.
func New(rate tracker.Rate) *Tray {
	return &Tray{
		enabled: true,
		rate:    rate,
	}
}

// OnToggle sets the callback function to be called when tracking is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnRate sets the callback function to be called when a detection rate is chosen.
func (t *Tray) OnRate(fn func(r tracker.Rate) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRate = fn
}

// OnViewer sets the callback function to be called when the viewer menu item is clicked.
func (t *Tray) OnViewer(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onViewer = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Handspace")
	systray.SetTooltip("Handspace hand tracking")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle hand tracking")
	t.menuHand = systray.AddMenuItem(handTitle(t.visible), "Hand visibility")
	t.menuHand.Disable()
	systray.AddSeparator()

	t.menuRates = make(map[tracker.Rate]*systray.MenuItem, len(rates))
	for _, r := range rates {
		t.menuRates[r] = systray.AddMenuItemCheckbox(rateTitles[r], "Run the hand detector at this rate", r == t.rate)
	}
	systray.AddSeparator()
	t.mu.Unlock()

	menuViewer := systray.AddMenuItem("Open Viewer...", "Open the joint viewer in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Handspace")

	for _, r := range rates {
		go func(r tracker.Rate, item *systray.MenuItem) {
			for range item.ClickedCh {
				t.handleRate(r)
			}
		}(r, t.menuRates[r])
	}

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuViewer.ClickedCh:
				t.handleViewer()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Paused"
}

func handTitle(visible bool) string {
	if visible {
		return "Hand: visible"
	}
	return "Hand: none"
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleRate applies a chosen detection rate. The check marks only move
// when the callback accepts the rate.
func (t *Tray) handleRate(r tracker.Rate) {
	t.mu.RLock()
	callback := t.onRate
	t.mu.RUnlock()

	if callback != nil {
		if err := callback(r); err != nil {
			return
		}
	}
	t.SetRate(r)
}

// handleViewer handles the viewer menu item click.
func (t *Tray) handleViewer() {
	t.mu.RLock()
	callback := t.onViewer
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetRate marks r as the current detection rate.
func (t *Tray) SetRate(r tracker.Rate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rate = r
	for rate, item := range t.menuRates {
		if rate == r {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

// SetHandVisible updates the hand visibility line in the menu.
func (t *Tray) SetHandVisible(visible bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.visible == visible {
		return
	}
	t.visible = visible
	if t.menuHand != nil {
		t.menuHand.SetTitle(handTitle(visible))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Rate returns the detection rate shown as selected.
func (t *Tray) Rate() tracker.Rate {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rate
}

// HandVisible returns the hand visibility shown in the menu.
func (t *Tray) HandVisible() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.visible
}
