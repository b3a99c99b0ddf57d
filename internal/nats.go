package internal

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectStatusChanged  = "lol.status.changed"
	SubjectMatchCompleted = "lol.match.completed"
	SubjectRefreshRequest = "lol.refresh.request"
)

// NATSClient publishes reconciler events and serves on-demand refresh
// requests. Everything here is fire-and-forget: event delivery is
// best-effort and never blocks a refresh cycle.
type NATSClient struct {
	Conn   *nats.Conn
	logger *Logger
}

func NewNATSClient(cfg *Config, logger *Logger) (*NATSClient, error) {
	conn, err := nats.Connect(cfg.NATSUrl,
		nats.Name(cfg.NATSClientID),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &NATSClient{Conn: conn, logger: logger}, nil
}

func (nc *NATSClient) Publish(subject string, data []byte) error {
	return nc.Conn.Publish(subject, data)
}

func (nc *NATSClient) PublishStatusChanged(event StatusEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := nc.Publish(SubjectStatusChanged, data); err != nil {
		nc.logger.Warn("status_event_publish_failed").
			Component("nats").
			Operation("publish_status").
			Cycle(event.CycleID).
			State(event.Current).
			Err(err).
			Log()
		return err
	}

	nc.logger.Debug("status_event_published").
		Component("nats").
		Operation("publish_status").
		Cycle(event.CycleID).
		State(event.Current).
		Meta("previous", string(event.Previous)).
		Log()
	return nil
}

func (nc *NATSClient) PublishMatchCompleted(event MatchEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := nc.Publish(SubjectMatchCompleted, data); err != nil {
		nc.logger.Warn("match_event_publish_failed").
			Component("nats").
			Operation("publish_match").
			Cycle(event.CycleID).
			Match(event.Match.MatchID).
			Err(err).
			Log()
		return err
	}

	nc.logger.Debug("match_event_published").
		Component("nats").
		Operation("publish_match").
		Cycle(event.CycleID).
		Match(event.Match.MatchID).
		Log()
	return nil
}

// StartRefreshWorker subscribes to refresh requests so other services
// can force a cycle outside the poll schedule. The handler runs the
// refresh; replies carry the resulting state when a reply subject is
// set.
func (nc *NATSClient) StartRefreshWorker(refresh func() (*ReconciledStatus, error)) (*nats.Subscription, error) {
	handler := func(msg *nats.Msg) {
		status, err := refresh()
		if err != nil {
			nc.logger.Warn("refresh_request_failed").
				Component("nats").
				Operation("refresh_worker").
				Err(err).
				Log()
			return
		}

		if msg.Reply != "" {
			data, err := json.Marshal(status)
			if err != nil {
				return
			}
			msg.Respond(data)
		}
	}

	sub, err := nc.Conn.QueueSubscribe(SubjectRefreshRequest, "refresh-workers", handler)
	if err != nil {
		return nil, err
	}

	nc.logger.Info("refresh_worker_started").
		Component("nats").
		Operation("refresh_worker").
		Meta("subject", SubjectRefreshRequest).
		Log()
	return sub, nil
}

func (nc *NATSClient) Close() {
	if nc.Conn != nil {
		nc.Conn.Close()
	}
}
