package telemetry

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/gwillem/autonrec/pkg/recorder"
	"github.com/gwillem/autonrec/pkg/robot"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient records publishes. Other mqtt.Client methods are not used.
type fakeClient struct {
	mqtt.Client
	mu           sync.Mutex
	msgs         []published
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload any) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, published{topic, qos, payload.([]byte)})
	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
}

func TestEncode(t *testing.T) {
	e := recorder.Event{
		Kind:    recorder.EventPlaybackTick,
		Slot:    3,
		Tick:    7,
		Command: robot.Snapshot{1, -2, 3, 0, 0},
	}
	topic, qos, payload, err := encode("autonrec", "run-1", e)
	if err != nil {
		t.Fatal(err)
	}
	if topic != "autonrec/playback_tick" || qos != 0 {
		t.Errorf("topic %q qos %d", topic, qos)
	}

	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Run != "run-1" || msg.Event.Slot != 3 || msg.Event.Tick != 7 || msg.Event.Command != e.Command {
		t.Errorf("decoded %+v", msg)
	}

	_, qos, _, _ = encode("autonrec", "run-1", recorder.Event{Kind: recorder.EventSaved})
	if qos != 1 {
		t.Errorf("saved qos = %d, want 1", qos)
	}
}

func TestPublisher_FlushOnClose(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, "robot", "run-2", log.New(io.Discard, "", 0))
	go p.loop()

	kinds := []recorder.EventKind{recorder.EventLoaded, recorder.EventPlaybackStart, recorder.EventPlaybackDone}
	for _, k := range kinds {
		p.Observe(recorder.Event{Kind: k, Slot: 1})
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	p.Observe(recorder.Event{Kind: recorder.EventSaved})

	if len(client.msgs) != len(kinds) {
		t.Fatalf("published %d, want %d", len(client.msgs), len(kinds))
	}
	for i, k := range kinds {
		if want := "robot/" + string(k); client.msgs[i].topic != want {
			t.Errorf("msg %d topic = %q, want %q", i, client.msgs[i].topic, want)
		}
	}
	if !client.disconnected {
		t.Error("client not disconnected")
	}
}

func TestPublisher_DropsWhenFull(t *testing.T) {
	// No loop running, so the queue fills.
	p := newPublisher(&fakeClient{}, "robot", "run-3", log.New(io.Discard, "", 0))
	for range queueSize + 5 {
		p.Observe(recorder.Event{Kind: recorder.EventPlaybackTick})
	}
	if p.Dropped() != 5 {
		t.Errorf("dropped = %d, want 5", p.Dropped())
	}
}
