// Package events publishes load plan and ULD status events to NATS.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"cargo_loadplan/internal/importer"
	"cargo_loadplan/internal/logger"
	"cargo_loadplan/internal/status"
)

// Event types, appended to the subject prefix.
const (
	TypeLoadPlanImported = "loadplan.imported"
	TypeULDStatus        = "uld.status"
)

// Envelope wraps every published payload.
type Envelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Time time.Time       `json:"time"`
	Data json.RawMessage `json:"data"`
}

// LoadPlanImported is the payload of TypeLoadPlanImported.
type LoadPlanImported struct {
	LoadPlanID   string `json:"load_plan_id"`
	FlightNumber string `json:"flight_number"`
	FlightDate   string `json:"flight_date"`
	Sector       string `json:"sector"`
	Items        int    `json:"items"`
	ULDEntries   int    `json:"uld_entries"`
	NewEntries   int    `json:"new_entries"`
	DateFallback bool   `json:"date_fallback"`
}

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher sends events. A Publisher without a connection drops events,
// so callers need no nil checks when NATS is not configured.
type Publisher struct {
	conn   Conn
	prefix string
	log    logger.Logger
	now    func() time.Time
}

// Connect dials NATS and returns a publisher for subjects under prefix.
func Connect(url, prefix string, log logger.Logger) (*Publisher, error) {
	if log == nil {
		log = logger.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("loadplan-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewPublisher(nc, prefix, log), nil
}

// NewPublisher wraps an existing connection. A nil conn disables publishing.
func NewPublisher(conn Conn, prefix string, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Publisher{conn: conn, prefix: prefix, log: log, now: time.Now}
}

// Disabled returns a publisher that drops every event.
func Disabled() *Publisher {
	return NewPublisher(nil, "", nil)
}

// Subject returns the full subject for an event type.
func (p *Publisher) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

func (p *Publisher) publish(eventType string, payload any) error {
	if p.conn == nil {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}
	env, err := json.Marshal(Envelope{
		ID:   uuid.NewString(),
		Type: eventType,
		Time: p.now().UTC(),
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	subject := p.Subject(eventType)
	if err := p.conn.Publish(subject, env); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.log.Debug("event published", "subject", subject, "bytes", len(env))
	return nil
}

// PublishImported announces a stored load plan.
func (p *Publisher) PublishImported(r importer.Imported) error {
	return p.publish(TypeLoadPlanImported, LoadPlanImported{
		LoadPlanID:   r.LoadPlan.ID,
		FlightNumber: r.LoadPlan.FlightNumber,
		FlightDate:   r.LoadPlan.FlightDate.Format("2006-01-02"),
		Sector:       r.LoadPlan.Sector,
		Items:        r.Items,
		ULDEntries:   r.ULDEntries,
		NewEntries:   r.NewEntries,
		DateFallback: r.DateFallback,
	})
}

// PublishStatusChanged announces a ULD status change.
func (p *Publisher) PublishStatusChanged(c status.StatusChanged) error {
	return p.publish(TypeULDStatus, c)
}

// ImportedHandler adapts PublishImported to importer.OnImported. Publish
// failures are logged, not returned.
func (p *Publisher) ImportedHandler() func(importer.Imported) {
	return func(r importer.Imported) {
		if err := p.PublishImported(r); err != nil {
			p.log.Error("publish import event failed", "error", err)
		}
	}
}

// StatusHandler adapts PublishStatusChanged to status.Tracker.OnStatusChanged.
func (p *Publisher) StatusHandler() func(status.StatusChanged) {
	return func(c status.StatusChanged) {
		if err := p.PublishStatusChanged(c); err != nil {
			p.log.Error("publish status event failed", "error", err)
		}
	}
}

// Close drains the connection.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
