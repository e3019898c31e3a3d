package announce

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const tickInterval = 30 * time.Second

// Worker sends scheduled announcements. It ticks on a coarse interval and
// fires every announcement whose next-fire time has passed since the last
// tick, so a slow tick never skips an entry.
type Worker struct {
	session  *discordgo.Session
	schedule []Announcement
	nextFire []time.Time
	now      func() time.Time
}

func NewWorker(session *discordgo.Session, schedule []Announcement) *Worker {
	return &Worker{
		session:  session,
		schedule: schedule,
		now:      time.Now,
	}
}

// Run blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if len(w.schedule) == 0 {
		log.Info("No scheduled announcements configured")
		return
	}

	now := w.now()
	w.nextFire = make([]time.Time, len(w.schedule))
	for idx := range w.schedule {
		w.nextFire[idx] = w.schedule[idx].NextFire(now)
		log.WithFields(log.Fields{
			"name": w.schedule[idx].Name,
			"at":   w.nextFire[idx].Format(time.RFC3339),
		}).Info("Scheduled announcement")
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.fireDue()
		}
	}
}

func (w *Worker) fireDue() {
	now := w.now()
	for idx := range w.schedule {
		if now.Before(w.nextFire[idx]) {
			continue
		}
		w.send(&w.schedule[idx])
		w.nextFire[idx] = w.schedule[idx].NextFire(now)
	}
}

func (w *Worker) send(a *Announcement) {
	if _, err := w.session.ChannelMessageSend(a.ChannelID, a.Message); err != nil {
		log.WithFields(log.Fields{
			"name":    a.Name,
			"channel": a.ChannelID,
		}).Errorf("Error sending announcement: %v", err)
		return
	}
	log.WithField("name", a.Name).Info("Sent scheduled announcement")
}
