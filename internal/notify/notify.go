// Package notify builds badge announcements and fans them out to live
// subscribers. Delivery beyond the subscriber boundary (chat, email) is the
// subscriber's problem.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streakforge/streakforge/internal/catalog"
	"github.com/streakforge/streakforge/internal/core"
	"github.com/streakforge/streakforge/internal/logging"
)

// Event wraps an announcement with delivery metadata.
type Event struct {
	ID           string            `json:"id"`
	Announcement core.Announcement `json:"announcement"`
	At           time.Time         `json:"at"`
}

// Subscriber receives announcement events in real-time
type Subscriber interface {
	Send(event Event) error
	ID() string
}

// Service manages announcement fan-out
type Service struct {
	subscribers map[string]Subscriber
	mu          sync.RWMutex
}

// NewService creates a new announcement service
func NewService() *Service {
	return &Service{
		subscribers: make(map[string]Subscriber),
	}
}

// Subscribe adds a subscriber for real-time announcements
func (s *Service) Subscribe(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[sub.ID()] = sub
}

// Unsubscribe removes a subscriber
func (s *Service) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, id)
}

// SubscriberCount returns the number of live subscribers.
func (s *Service) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Announce broadcasts an announcement to all subscribers.
func (s *Service) Announce(ann core.Announcement) Event {
	event := Event{
		ID:           uuid.New().String(),
		Announcement: ann,
		At:           time.Now().UTC(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subscribers {
		go func(subscriber Subscriber) {
			if err := subscriber.Send(event); err != nil {
				logging.Warn("Failed to deliver announcement %s to %s: %v", event.ID, subscriber.ID(), err)
			}
		}(sub)
	}

	return event
}

// Build renders the announcement for user earning def.
func Build(user core.Handle, def catalog.BadgeDefinition) core.Announcement {
	message := fmt.Sprintf("🎉 %s earned %s", user, def.Name)
	if def.Icon != "" {
		message += " " + def.Icon
	}
	message += "!"

	return core.Announcement{
		User:    user,
		BadgeID: def.ID,
		Name:    def.Name,
		Message: message,
	}
}
