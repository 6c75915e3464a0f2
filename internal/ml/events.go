package ml

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Transition is emitted to subscribers whenever the session status changes,
// and as a Trained->Trained self-loop for every successful prediction.
type Transition struct {
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	RunID      string    `json:"run_id,omitempty"`
	Message    string    `json:"message"`
	Error      string    `json:"error,omitempty"`
	Input      *int      `json:"input,omitempty"`
	Prediction *float64  `json:"prediction,omitempty"`
	At         time.Time `json:"at"`
}

// Subscribe registers an observer for session transitions. Events that do not
// fit in the buffer are dropped for that subscriber. The returned function
// unregisters the observer and closes its channel.
func (s *Session) Subscribe(buffer int) (<-chan Transition, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Transition, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// transition moves the session to a new status. Caller must hold s.mu.
func (s *Session) transition(to Status, message string, err error) {
	from := s.status
	s.status = to
	s.message = message

	if s.opts.Metrics != nil {
		s.opts.Metrics.TransitionsInc(to.String())
	}

	t := Transition{
		From:    from,
		To:      to,
		RunID:   s.runID,
		Message: message,
		At:      time.Now(),
	}
	if err != nil {
		t.Error = err.Error()
	}
	s.publish(t)
}

// publish fans t out to subscribers without blocking. Caller must hold s.mu.
func (s *Session) publish(t Transition) {
	for id, ch := range s.subs {
		select {
		case ch <- t:
		default:
			log.Debug().Int("subscriber", id).Str("to", t.To.String()).Msg("subscriber buffer full, dropping transition")
		}
	}
}
