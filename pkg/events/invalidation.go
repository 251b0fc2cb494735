package events

import (
	"encoding/json"
	"sync"
	"time"

	"ai-notetaking-client/internal/constant"
	"ai-notetaking-client/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// InvalidationMessage is the payload published on each invalidation topic.
type InvalidationMessage struct {
	ConversationId string    `json:"conversation_id"`
	CompletedAt    time.Time `json:"completed_at"`
}

// InvalidationScheduler turns a session-completed signal into delayed cache
// invalidation messages for the three resource groups a finished reply
// touches: the conversation itself, the conversation list, and the notes
// collection. The delay keeps the client from re-reading the persisted
// message before the server has committed it.
//
// The stream state machine only fires the completion hook; the timer lives
// here so the machine stays free of wall-clock scheduling.
type InvalidationScheduler struct {
	pubSub *gochannel.GoChannel
	delay  time.Duration
	log    logger.ILogger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func NewInvalidationScheduler(pubSub *gochannel.GoChannel, log logger.ILogger) *InvalidationScheduler {
	return &InvalidationScheduler{
		pubSub:  pubSub,
		delay:   constant.InvalidationDebounceMs * time.Millisecond,
		log:     log,
		pending: make(map[string]*time.Timer),
	}
}

// Schedule queues invalidation for the given conversation. A second call
// for the same conversation inside the window restarts the timer instead of
// publishing twice.
func (s *InvalidationScheduler) Schedule(conversationId uuid.UUID) {
	key := conversationId.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.pending[key]; ok {
		timer.Stop()
	}
	s.pending[key] = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()
		s.publish(conversationId)
	})
}

// Flush fires all pending invalidations immediately. Called on shutdown so
// a completed stream's invalidation is not lost with the process.
func (s *InvalidationScheduler) Flush() {
	s.mu.Lock()
	pending := make(map[string]*time.Timer, len(s.pending))
	for key, timer := range s.pending {
		pending[key] = timer
	}
	s.pending = make(map[string]*time.Timer)
	s.mu.Unlock()

	for key, timer := range pending {
		if timer.Stop() {
			if id, err := uuid.Parse(key); err == nil {
				s.publish(id)
			}
		}
	}
}

func (s *InvalidationScheduler) publish(conversationId uuid.UUID) {
	evt := NewSessionCompletedEvent(conversationId)
	payload, err := json.Marshal(evt.Payload())
	if err != nil {
		s.log.Error("InvalidationScheduler", "failed to marshal invalidation payload", map[string]interface{}{"error": err.Error()})
		return
	}

	topics := []string{
		constant.InvalidateConversationTopic,
		constant.InvalidateConversationListTopic,
		constant.InvalidateNotesTopic,
	}
	for _, topic := range topics {
		msg := message.NewMessage(watermill.NewUUID(), payload)
		if err := s.pubSub.Publish(topic, msg); err != nil {
			s.log.Error("InvalidationScheduler", "failed to publish invalidation", map[string]interface{}{
				"topic": topic,
				"error": err.Error(),
			})
		}
	}

	s.log.Debug("InvalidationScheduler", "published cache invalidation", map[string]interface{}{
		"conversation_id": conversationId.String(),
	})
}
