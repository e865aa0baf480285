package notify

import (
	"github.com/rs/zerolog/log"
)

// Notifier shows user-facing messages.
type Notifier interface {
	// Notify shows a message the user should not miss.
	Notify(message string)
	// QuickNotify shows a short-lived message.
	QuickNotify(message string)
}

// Kind distinguishes persistent notifications from transient ones.
type Kind string

const (
	KindNotify Kind = "notify"
	KindQuick  Kind = "quick"
)

// Message is the wire form sent to overlays.
type Message struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
	Time int64  `json:"time"`
}

// LogNotifier writes notifications to the global zerolog logger.
type LogNotifier struct{}

func (LogNotifier) Notify(message string) {
	log.Warn().Str("kind", string(KindNotify)).Msg(message)
}

func (LogNotifier) QuickNotify(message string) {
	log.Info().Str("kind", string(KindQuick)).Msg(message)
}

// Multi fans every notification out to all of its notifiers.
type Multi []Notifier

func (m Multi) Notify(message string) {
	for _, n := range m {
		n.Notify(message)
	}
}

func (m Multi) QuickNotify(message string) {
	for _, n := range m {
		n.QuickNotify(message)
	}
}
