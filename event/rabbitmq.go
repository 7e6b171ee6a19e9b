// Package event connects the messenger to the RabbitMQ event bus. Every delivery carries its
// action in the x-action header; with EVENT_MODE other than DISABLE the raw traffic is journaled
// to in/out log files that can be replayed on start.
package event

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"lise-messenger/config"
)

const (
	ActionHeader = "x-action"
	InLogFile    = "in.log"
	OutLogFile   = "out.log"

	publishTimeout = 5 * time.Second
)

// Event modes. DISABLE turns journaling off; the IN* modes replay the inbound journal into the
// listeners on start, OUT re-publishes the outbound journal.
const (
	ModeDisable   = "DISABLE"
	ModeLog       = "LOG"
	ModeInSendLog = "IN_SEND_LOG"
	ModeInSend    = "IN_SEND"
	ModeIn        = "IN"
	ModeOut       = "OUT"
)

// Out controls what a handler may do with the effects of one delivery.
type Out struct {
	Send bool
	Log  bool
}

type Delivery struct {
	Action string
	Data   []byte
	Out    Out
}

type Listener struct {
	Queue   string
	Channel chan Delivery
}

type LogRecord struct {
	Time    int64  `json:"time"`
	Service string `json:"service"`
	Action  string `json:"action"`
	Data    string `json:"data"`
}

type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Bus struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	pub     amqpPublisher

	mode   string
	target string
	logDir string
	log    zerolog.Logger

	in  *journal
	out *journal

	pubMu     sync.Mutex
	listeners map[string]chan Delivery
}

// Connect dials RabbitMQ, declares queues and opens the journals.
func Connect(cfg config.Settings, queues []string, log zerolog.Logger) (*Bus, error) {
	conn, err := amqp.Dial(fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		cfg.RabbitMQUser,
		cfg.RabbitMQPassword,
		cfg.RabbitMQHost,
		cfg.RabbitMQPort,
	))
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	log.Info().Str("host", cfg.RabbitMQHost).Msg("rabbitmq.connected")

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	for _, name := range queues {
		if _, err := ch.QueueDeclare(
			name,  // name
			false, // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		); err != nil {
			conn.Close()
			return nil, fmt.Errorf("rabbitmq declare %s: %w", name, err)
		}
		log.Info().Str("queue", name).Msg("rabbitmq.queue.declared")
	}

	b := newBus(ch, cfg.EventMode, cfg.EventTarget, log)
	b.conn = conn
	b.channel = ch
	b.logDir = cfg.EventLogDir

	if b.journaling() {
		if err := os.MkdirAll(b.logDir, 0o700); err != nil {
			conn.Close()
			return nil, fmt.Errorf("event log dir: %w", err)
		}
		in, err := openJournal(filepath.Join(b.logDir, InLogFile))
		if err != nil {
			conn.Close()
			return nil, err
		}
		out, err := openJournal(filepath.Join(b.logDir, OutLogFile))
		if err != nil {
			conn.Close()
			return nil, err
		}
		b.in, b.out = in, out
	}
	return b, nil
}

func newBus(pub amqpPublisher, mode, target string, log zerolog.Logger) *Bus {
	if mode == "" {
		mode = ModeDisable
	}
	return &Bus{
		pub:       pub,
		mode:      mode,
		target:    target,
		log:       log.With().Str("component", "event").Logger(),
		listeners: make(map[string]chan Delivery),
	}
}

func (b *Bus) journaling() bool {
	return b.mode != ModeDisable
}

// Subscribe consumes every listener's queue and forwards deliveries to its channel.
func (b *Bus) Subscribe(listeners []Listener) error {
	for _, l := range listeners {
		b.listeners[l.Queue] = l.Channel

		msgs, err := b.channel.Consume(
			l.Queue, // queue
			"",      // consumer
			false,   // auto-ack
			false,   // exclusive
			false,   // no-local
			false,   // no-wait
			nil,     // args
		)
		if err != nil {
			return fmt.Errorf("rabbitmq consume %s: %w", l.Queue, err)
		}
		b.log.Info().Str("queue", l.Queue).Msg("rabbitmq.subscribed")

		go b.consume(l, msgs)
	}
	return nil
}

func (b *Bus) consume(l Listener, msgs <-chan amqp.Delivery) {
	for msg := range msgs {
		action, _ := msg.Headers[ActionHeader].(string)
		if action == "" {
			b.log.Warn().Str("queue", l.Queue).Msg("rabbitmq.missing_action")
			_ = msg.Nack(false, false)
			continue
		}

		b.journalIn(LogRecord{
			Time:    time.Now().UnixMicro(),
			Service: l.Queue,
			Action:  action,
			Data:    string(msg.Body),
		})
		_ = msg.Ack(false)

		l.Channel <- Delivery{
			Action: action,
			Data:   msg.Body,
			Out:    Out{Send: true, Log: true},
		}
	}
}

// Publish sends data to the service queue with the action header.
func (b *Bus) Publish(ctx context.Context, service, action string, data []byte, logOut bool) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	b.pubMu.Lock()
	err := b.pub.PublishWithContext(
		ctx,
		"",      // exchange
		service, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Headers: amqp.Table{
				ActionHeader: action,
			},
			Body: data,
		},
	)
	b.pubMu.Unlock()
	if err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", action, err)
	}

	if logOut {
		b.journalOut(LogRecord{
			Time:    time.Now().UnixMicro(),
			Service: service,
			Action:  action,
			Data:    string(data),
		})
	}
	return nil
}

// Emit publishes a domain event to the target queue, honouring the Out flags carried by ctx.
func (b *Bus) Emit(ctx context.Context, action string, payload any) error {
	out := OutFrom(ctx)
	if !out.Send {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", action, err)
	}
	return b.Publish(ctx, b.target, action, data, out.Log)
}

func (b *Bus) journalIn(rec LogRecord) {
	if b.in == nil {
		return
	}
	if err := b.in.write(rec); err != nil {
		b.log.Error().Err(err).Msg("event.journal.in_failed")
	}
}

func (b *Bus) journalOut(rec LogRecord) {
	if b.out == nil {
		return
	}
	if err := b.out.write(rec); err != nil {
		b.log.Error().Err(err).Msg("event.journal.out_failed")
	}
}

// Replay re-runs the journal selected by the event mode. Call it after Subscribe.
func (b *Bus) Replay() error {
	switch b.mode {
	case ModeInSendLog:
		return b.replayFile(InLogFile, func(r io.Reader) error { return b.replayIn(r, Out{Send: true, Log: true}) })
	case ModeInSend:
		return b.replayFile(InLogFile, func(r io.Reader) error { return b.replayIn(r, Out{Send: true}) })
	case ModeIn:
		return b.replayFile(InLogFile, func(r io.Reader) error { return b.replayIn(r, Out{}) })
	case ModeOut:
		return b.replayFile(OutLogFile, b.replayOut)
	}
	return nil
}

func (b *Bus) replayFile(name string, replay func(io.Reader) error) error {
	f, err := os.Open(filepath.Join(b.logDir, name))
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	b.log.Info().Str("mode", b.mode).Str("file", name).Msg("event.replay.start")
	return replay(f)
}

func (b *Bus) replayIn(r io.Reader, out Out) error {
	return scanJournal(r, func(rec LogRecord) {
		ch, ok := b.listeners[rec.Service]
		if !ok {
			b.log.Warn().Str("queue", rec.Service).Msg("event.replay.no_listener")
			return
		}
		ch <- Delivery{Action: rec.Action, Data: []byte(rec.Data), Out: out}
	})
}

func (b *Bus) replayOut(r io.Reader) error {
	var firstErr error
	err := scanJournal(r, func(rec LogRecord) {
		if err := b.Publish(context.Background(), rec.Service, rec.Action, []byte(rec.Data), false); err != nil && firstErr == nil {
			firstErr = err
		}
	})
	if err != nil {
		return err
	}
	return firstErr
}

func scanJournal(r io.Reader, fn func(LogRecord)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var rec LogRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		fn(rec)
	}
	return scanner.Err()
}

func (b *Bus) Close() error {
	if b.in != nil {
		b.in.close()
	}
	if b.out != nil {
		b.out.close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

type outKey struct{}

// WithOut attaches the Out flags of the delivery being handled to ctx.
func WithOut(ctx context.Context, out Out) context.Context {
	return context.WithValue(ctx, outKey{}, out)
}

// OutFrom returns the flags attached by WithOut, or send-and-log when none are.
func OutFrom(ctx context.Context) Out {
	if out, ok := ctx.Value(outKey{}).(Out); ok {
		return out
	}
	return Out{Send: true, Log: true}
}

type journal struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

func openJournal(path string) (*journal, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return &journal{w: f, c: f}, nil
}

func (j *journal) write(rec LogRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	_, err = j.w.Write(append(line, '\n'))
	return err
}

func (j *journal) close() {
	if j.c != nil {
		_ = j.c.Close()
	}
}
