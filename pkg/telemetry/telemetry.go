// Package telemetry publishes recorder events to an MQTT broker.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/gwillem/autonrec/pkg/recorder"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = time.Second
	queueSize      = 256
)

// Config configures a Publisher.
type Config struct {
	Broker   string // e.g. tcp://localhost:1883
	Topic    string // events go to <Topic>/<kind>
	ClientID string
	Logger   *log.Logger
}

// Message is the published payload.
type Message struct {
	Run   string         `json:"run"`
	Event recorder.Event `json:"event"`
}

// Publisher sends recorder events to MQTT. Observe never blocks: events
// are queued and dropped when the queue is full. Playback ticks are
// published at QoS 0, everything else at QoS 1.
type Publisher struct {
	client mqtt.Client
	topic  string
	run    string
	log    *log.Logger

	events chan recorder.Event
	done   chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int
}

// New connects to the broker and starts publishing.
func New(cfg Config) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("no broker configured")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	run := uuid.NewString()
	if cfg.ClientID == "" {
		cfg.ClientID = "autonrec"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID + "-" + run[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		cfg.Logger.Printf("Connected to MQTT broker %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		cfg.Logger.Printf("MQTT connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		cfg.Logger.Printf("MQTT broker %s not reachable yet, retrying in background", cfg.Broker)
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}

	p := newPublisher(client, cfg.Topic, run, cfg.Logger)
	go p.loop()
	return p, nil
}

func newPublisher(client mqtt.Client, topic, run string, logger *log.Logger) *Publisher {
	return &Publisher{
		client: client,
		topic:  topic,
		run:    run,
		log:    logger,
		events: make(chan recorder.Event, queueSize),
		done:   make(chan struct{}),
	}
}

// RunID identifies this process in published messages.
func (p *Publisher) RunID() string {
	return p.run
}

// Observe queues e for publishing.
func (p *Publisher) Observe(e recorder.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.events <- e:
	default:
		p.dropped++
	}
}

// Dropped returns the number of events lost to a full queue.
func (p *Publisher) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

func (p *Publisher) loop() {
	defer close(p.done)
	for e := range p.events {
		topic, qos, payload, err := encode(p.topic, p.run, e)
		if err != nil {
			p.log.Printf("Encode %s event: %v", e.Kind, err)
			continue
		}
		token := p.client.Publish(topic, qos, false, payload)
		if !token.WaitTimeout(publishTimeout) {
			p.log.Printf("Publish to %s timed out", topic)
			continue
		}
		if err := token.Error(); err != nil {
			p.log.Printf("Publish to %s: %v", topic, err)
		}
	}
}

// Close flushes queued events and disconnects.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	<-p.done
	p.client.Disconnect(250)
	return nil
}

// encode returns the topic, QoS and JSON payload for an event.
func encode(base, run string, e recorder.Event) (string, byte, []byte, error) {
	payload, err := json.Marshal(Message{Run: run, Event: e})
	if err != nil {
		return "", 0, nil, err
	}
	var qos byte = 1
	if e.Kind == recorder.EventPlaybackTick {
		qos = 0
	}
	return base + "/" + string(e.Kind), qos, payload, nil
}
