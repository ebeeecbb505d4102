package types

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
)

type EventKind string

const (
	EventKindPrice  EventKind = "price"
	EventKindNews   EventKind = "news"
	EventKindSignal EventKind = "signal"
)

type EventPriority string

const (
	EventPriorityLow      EventPriority = "LOW"
	EventPriorityMedium   EventPriority = "MEDIUM"
	EventPriorityHigh     EventPriority = "HIGH"
	EventPriorityCritical EventPriority = "CRITICAL"
)

// Thresholds above which an event is escalated to HIGH priority.
const (
	highPriorityPriceMove = 0.02
	highPrioritySentiment = 0.5
)

// Event is the unit carried by the bus: a kind-tagged union over price, news
// and signal payloads. Sequence is assigned by the bus at enqueue and is
// strictly increasing in publish order. Priority affects logging and
// notification urgency only, never bus ordering.
type Event struct {
	ID       string
	Kind     EventKind
	Priority EventPriority
	Sequence uint64
	Time     time.Time
	Symbol   string

	Candle    optional.Option[Candle]
	Article   optional.Option[Article]
	Sentiment optional.Option[SentimentScore]
	Signal    optional.Option[Signal]
}

// NewPriceEvent wraps a closed candle. changePct is the close-over-close move
// versus the previous candle; a move above 2% escalates priority to HIGH.
func NewPriceEvent(candle Candle, changePct float64) *Event {
	priority := EventPriorityMedium
	if math.Abs(changePct) > highPriorityPriceMove {
		priority = EventPriorityHigh
	}

	return &Event{
		ID:       uuid.New().String(),
		Kind:     EventKindPrice,
		Priority: priority,
		Time:     candle.Time,
		Symbol:   candle.Symbol,
		Candle:   optional.Some(candle),
	}
}

// NewNewsEvent wraps one scored article. An extreme score escalates priority
// to HIGH.
func NewNewsEvent(article Article, score SentimentScore) *Event {
	priority := EventPriorityMedium
	if math.Abs(score.Score) >= highPrioritySentiment {
		priority = EventPriorityHigh
	}

	return &Event{
		ID:        uuid.New().String(),
		Kind:      EventKindNews,
		Priority:  priority,
		Time:      article.PublishedAt,
		Symbol:    score.Symbol,
		Article:   optional.Some(article),
		Sentiment: optional.Some(score),
	}
}

// NewSignalEvent wraps a trading signal from an external producer.
func NewSignalEvent(signal Signal) *Event {
	return &Event{
		ID:       uuid.New().String(),
		Kind:     EventKindSignal,
		Priority: EventPriorityCritical,
		Time:     signal.GeneratedAt,
		Symbol:   signal.Symbol,
		Signal:   optional.Some(signal),
	}
}
