package mqtt

import (
	"context"
	"encoding/json"

	"github.com/kilianp07/rota/core/logger"
	"github.com/kilianp07/rota/core/model"
	"github.com/kilianp07/rota/core/roster"
	"github.com/kilianp07/rota/internal/eventbus"
)

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
	Topic(suffix string) string
}

// DayShift lists the workers on duty on one day.
type DayShift struct {
	Date    model.Date `json:"date"`
	Workers []string   `json:"workers"`
}

// MonthMessage announces the outcome of one month.
type MonthMessage struct {
	RunID      string            `json:"run_id"`
	Month      model.YearMonth   `json:"month"`
	Status     string            `json:"status"`
	Phase      string            `json:"phase,omitempty"`
	Separation *int              `json:"separation,omitempty"`
	Shifts     []DayShift        `json:"shifts,omitempty"`
	Conflicts  []roster.Conflict `json:"conflicts,omitempty"`
}

// RunMessage announces the end of a run.
type RunMessage struct {
	RunID string `json:"run_id"`
	Error string `json:"error,omitempty"`
}

// NewMonthMessage builds the announcement of res.
func NewMonthMessage(runID string, res roster.MonthResult) MonthMessage {
	msg := MonthMessage{RunID: runID, Month: res.Month, Status: res.Status.String()}
	if res.Status == roster.MonthSolved {
		sep := res.Separation
		msg.Phase, msg.Separation = res.Phase.String(), &sep
		for _, d := range res.Month.Days() {
			if ws, ok := res.Shifts[d]; ok {
				msg.Shifts = append(msg.Shifts, DayShift{Date: d, Workers: ws})
			}
		}
	}
	if res.Diagnostics != nil {
		msg.Conflicts = res.Diagnostics.Conflicts
	}
	return msg
}

// SchedulePublisher forwards run progress to MQTT. Month outcomes go to
// <prefix>/months/<YYYY-MM> and run completions to <prefix>/runs/<id>.
type SchedulePublisher struct {
	pub Publisher
	log logger.Logger
}

// NewSchedulePublisher wraps pub.
func NewSchedulePublisher(pub Publisher, log logger.Logger) *SchedulePublisher {
	return &SchedulePublisher{pub: pub, log: logger.OrNop(log)}
}

// Handle publishes the message matching ev. Month starts are ignored.
func (s *SchedulePublisher) Handle(ev roster.Event) error {
	switch ev.Kind {
	case roster.EventMonthSolved, roster.EventMonthInfeasible:
		if ev.Result == nil {
			return nil
		}
		return s.send(s.pub.Topic("months/"+ev.Month.String()), NewMonthMessage(ev.RunID, *ev.Result))
	case roster.EventRunFinished:
		msg := RunMessage{RunID: ev.RunID}
		if ev.Err != nil {
			msg.Error = ev.Err.Error()
		}
		return s.send(s.pub.Topic("runs/"+ev.RunID), msg)
	}
	return nil
}

func (s *SchedulePublisher) send(topic string, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.pub.Publish(topic, payload)
}

// Start subscribes to the event bus and publishes until the context is
// canceled or the bus is closed. The returned channel is closed once the
// publisher has stopped.
func (s *SchedulePublisher) Start(ctx context.Context, bus *eventbus.Bus[roster.Event]) <-chan struct{} {
	done := make(chan struct{})
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := s.Handle(ev); err != nil {
					s.log.Errorf("mqtt publish %s: %v", ev.Kind, err)
				}
			}
		}
	}()
	return done
}
