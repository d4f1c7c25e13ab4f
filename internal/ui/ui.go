// Package ui declares the presentation boundary of the storefront client:
// transient notices, navigation and confirmation prompts. Rendering is left
// to whatever front-end embeds the client.
package ui

import (
	"log"
	"sync"
)

// Level classifies a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a transient, auto-dismissing message.
type Notice struct {
	Level Level
	Title string
	Text  string
}

// Notifier shows notices. Implementations must not block.
type Notifier interface {
	Notify(n Notice)
}

// Navigator moves the user between entry points.
type Navigator interface {
	// ToLogin opens the login entry point; returnTo is where the user goes
	// after signing in ("" for the default landing page).
	ToLogin(returnTo string)
	ToCart()
}

// Confirmer asks the user to confirm an irreversible action.
type Confirmer interface {
	Confirm(title, text string) bool
}

// LogNotifier writes notices to the standard logger.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notice) {
	if n.Text == "" {
		log.Printf("%s: %s", n.Level, n.Title)
		return
	}
	log.Printf("%s: %s: %s", n.Level, n.Title, n.Text)
}

// Recorder is an in-memory Notifier and Navigator. Front-ends that render
// asynchronously drain it; tests inspect it.
type Recorder struct {
	mu       sync.Mutex
	notices  []Notice
	logins   []string
	cartNavs int
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *Recorder) ToLogin(returnTo string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins = append(r.logins, returnTo)
}

func (r *Recorder) ToCart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cartNavs++
}

// Notices returns a copy of every notice recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// LoginRedirects returns the returnTo value of every ToLogin call.
func (r *Recorder) LoginRedirects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.logins...)
}

// CartRedirects counts ToCart calls.
func (r *Recorder) CartRedirects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cartNavs
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(title, text string) bool

func (f ConfirmFunc) Confirm(title, text string) bool { return f(title, text) }

// AlwaysConfirm accepts every prompt.
var AlwaysConfirm = ConfirmFunc(func(string, string) bool { return true })
