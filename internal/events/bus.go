// Package events is the in-process pub/sub channel between the engine
// and outward surfaces like the websocket hub.
package events

import (
	"sync"
	"time"
)

// EventType names the events the engine emits.
type EventType string

const (
	EventPriceUpdate     EventType = "PRICE_UPDATE"
	EventSignalGenerated EventType = "SIGNAL_GENERATED"
	EventTradeExecuted   EventType = "TRADE_EXECUTED"
	EventPositionUpdate  EventType = "POSITION_UPDATE"
	EventBotActivated    EventType = "BOT_ACTIVATED"
	EventBotDeactivated  EventType = "BOT_DEACTIVATED"
	EventBreakerTripped  EventType = "BREAKER_TRIPPED"
	EventError           EventType = "ERROR"
)

// Event is one published message.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber handles published events.
type Subscriber func(Event)

// Bus fans events out to subscribers. Handlers run in their own
// goroutines so a slow consumer cannot stall the engine tick.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[EventType][]Subscriber)}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], sub)
}

// SubscribeAll registers a handler for every event.
func (b *Bus) SubscribeAll(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allSubs = append(b.allSubs, sub)
}

// Publish delivers an event to all matching subscribers.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, sub := range b.subscribers[event.Type] {
		go sub(event)
	}
	for _, sub := range b.allSubs {
		go sub(event)
	}
}

// PublishTradeExecuted publishes a trade execution.
func (b *Bus) PublishTradeExecuted(assetID, tradeType string, amount, price, total float64, profit *float64) {
	data := map[string]interface{}{
		"asset_id": assetID,
		"type":     tradeType,
		"amount":   amount,
		"price":    price,
		"total":    total,
	}
	if profit != nil {
		data["profit"] = *profit
	}
	b.Publish(Event{Type: EventTradeExecuted, Data: data})
}

// PublishSignal publishes a generated trade signal.
func (b *Bus) PublishSignal(assetID, action, strength string, confidence, price float64) {
	b.Publish(Event{
		Type: EventSignalGenerated,
		Data: map[string]interface{}{
			"asset_id":   assetID,
			"action":     action,
			"strength":   strength,
			"confidence": confidence,
			"price":      price,
		},
	})
}

// PublishPriceUpdate publishes a fresh price for an asset.
func (b *Bus) PublishPriceUpdate(assetID string, price float64) {
	b.Publish(Event{
		Type: EventPriceUpdate,
		Data: map[string]interface{}{
			"asset_id": assetID,
			"price":    price,
		},
	})
}

// PublishBotMode publishes a bot activation or deactivation.
func (b *Bus) PublishBotMode(mode string, running bool) {
	eventType := EventBotActivated
	if !running {
		eventType = EventBotDeactivated
	}
	b.Publish(Event{
		Type: eventType,
		Data: map[string]interface{}{
			"mode":    mode,
			"running": running,
		},
	})
}

// PublishError publishes a non-fatal engine error.
func (b *Bus) PublishError(source string, err error) {
	b.Publish(Event{
		Type: EventError,
		Data: map[string]interface{}{
			"source": source,
			"error":  err.Error(),
		},
	})
}
