// Package notify delivers the rest-over signal to users who granted
// notification permission.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/gymcoach/internal/metrics"
	"github.com/claude/gymcoach/internal/models"
)

// maxInbox bounds the undelivered notifications kept per user.
const maxInbox = 20

// ProfileSource reads the stored notification permission.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
}

// Notification is a message waiting to be fetched by the client.
type Notification struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier queues notifications in per-user inboxes.
type Notifier struct {
	profiles ProfileSource
	metrics  *metrics.Manager
	log      *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	inbox map[string][]Notification
}

// New creates a Notifier.
func New(profiles ProfileSource, m *metrics.Manager, log *slog.Logger) *Notifier {
	return &Notifier{
		profiles: profiles,
		metrics:  m,
		log:      log,
		now:      time.Now,
		inbox:    make(map[string][]Notification),
	}
}

var restOverMessages = map[models.Language]string{
	models.LanguageJapanese: "インターバル終了！次のセットを始めましょう。",
	models.LanguageEnglish:  "Rest is over. Time for your next set.",
	models.LanguageItalian:  "Recupero finito. È ora della prossima serie.",
}

// RestOver is the rest timer's expiry callback. The signal is queued only
// when the user's permission is granted and dropped otherwise.
func (n *Notifier) RestOver(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := n.profiles.GetProfile(ctx, userID)
	if err != nil {
		n.log.Warn("rest over: reading profile", "user", userID, "error", err)
		n.count("error")
		return
	}
	if p.NotificationPermission != models.PermissionGranted {
		n.count("dropped")
		return
	}

	n.push(userID, Notification{
		Kind:    "rest_over",
		Message: restOverMessages[p.Language.OrDefault()],
		At:      n.now(),
	})
	n.count("queued")
}

func (n *Notifier) push(userID string, note Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	q := append(n.inbox[userID], note)
	if len(q) > maxInbox {
		q = q[len(q)-maxInbox:]
	}
	n.inbox[userID] = q
}

// Drain returns and removes userID's queued notifications, oldest first.
func (n *Notifier) Drain(userID string) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	q := n.inbox[userID]
	delete(n.inbox, userID)
	if q == nil {
		return []Notification{}
	}
	return q
}

func (n *Notifier) count(outcome string) {
	if n.metrics != nil {
		n.metrics.CounterNotifications.WithLabelValues(outcome).Inc()
	}
}
