package player

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/padhai-cli/padhai/log"
)

// Event is an mpv notification. For property changes Name is the property
// and Data its new value; for other events Name is the event name.
type Event struct {
	Name string
	Data any
}

// EventListener keeps a dedicated connection open and forwards observed
// property changes to a callback.
type EventListener struct {
	socketPath string
	properties []string
	callback   func(Event)
	log        log.Entry

	mu        sync.Mutex
	conn      net.Conn
	listening bool
}

func NewEventListener(socketPath string, properties []string, callback func(Event)) *EventListener {
	return &EventListener{
		socketPath: socketPath,
		properties: properties,
		callback:   callback,
		log:        log.For("mpv-events"),
	}
}

// Start registers the observers on the listener's own connection, since
// mpv only delivers property changes to the connection that asked.
func (el *EventListener) Start() error {
	el.mu.Lock()
	defer el.mu.Unlock()

	if el.listening {
		return nil
	}

	conn, err := net.Dial("unix", el.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}

	enc := json.NewEncoder(conn)
	for i, name := range el.properties {
		if err = enc.Encode(ipcCommand{Command: []any{"observe_property", i + 1, name}}); err != nil {
			_ = conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}

	el.conn = conn
	el.listening = true
	go el.readLoop(conn)

	el.log.Infof("observing %v on %s", el.properties, el.socketPath)
	return nil
}

// Stop closes the connection. The callback is not called after Stop returns
// unless it was already running.
func (el *EventListener) Stop() {
	el.mu.Lock()
	defer el.mu.Unlock()

	if !el.listening {
		return
	}
	el.listening = false
	_ = el.conn.Close()
}

func (el *EventListener) readLoop(conn net.Conn) {
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				el.log.WithError(err).Debug("event stream ended")
			}
			el.mu.Lock()
			el.listening = false
			el.mu.Unlock()
			return
		}

		event, ok := parseEvent(line)
		if !ok {
			continue
		}

		el.mu.Lock()
		active := el.listening
		el.mu.Unlock()

		if active && el.callback != nil {
			el.callback(event)
		}
	}
}

func parseEvent(line []byte) (Event, bool) {
	var msg ipcMessage
	if err := json.Unmarshal(line, &msg); err != nil || msg.Event == "" {
		return Event{}, false
	}

	if msg.Event == "property-change" {
		if msg.Name == "" {
			return Event{}, false
		}
		return Event{Name: msg.Name, Data: msg.Data}, true
	}
	return Event{Name: msg.Event}, true
}
