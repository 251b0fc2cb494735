package handler

import (
	"context"
	"encoding/json"

	"ai-notetaking-client/internal/constant"
	"ai-notetaking-client/internal/pkg/logger"
	"ai-notetaking-client/internal/repository/memory"
	"ai-notetaking-client/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// InvalidationHandler consumes the delayed invalidation messages published
// after a streamed reply completes and evicts the matching query cache
// groups. The stream core only publishes; eviction happens here.
type InvalidationHandler struct {
	pubSub     *gochannel.GoChannel
	queryCache *memory.QueryCache
	log        logger.ILogger
}

func NewInvalidationHandler(pubSub *gochannel.GoChannel, queryCache *memory.QueryCache, log logger.ILogger) *InvalidationHandler {
	return &InvalidationHandler{
		pubSub:     pubSub,
		queryCache: queryCache,
		log:        log,
	}
}

// Consume subscribes to all three invalidation topics and processes
// messages until the context is cancelled.
func (h *InvalidationHandler) Consume(ctx context.Context) error {
	topicGroups := map[string]string{
		constant.InvalidateConversationTopic:     memory.GroupConversation,
		constant.InvalidateConversationListTopic: memory.GroupConversationList,
		constant.InvalidateNotesTopic:            memory.GroupNotes,
	}

	for topic, group := range topicGroups {
		messages, err := h.pubSub.Subscribe(ctx, topic)
		if err != nil {
			return err
		}

		go func(group string, messages <-chan *message.Message) {
			for msg := range messages {
				h.processMessage(group, msg)
			}
		}(group, messages)
	}

	return nil
}

func (h *InvalidationHandler) processMessage(group string, msg *message.Message) {
	var payload events.InvalidationMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.log.Error("InvalidationHandler", "failed to unmarshal invalidation message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	// The conversation group is keyed per conversation; the other groups
	// are evicted wholesale.
	if group == memory.GroupConversation && payload.ConversationId != "" {
		h.queryCache.Invalidate(group, payload.ConversationId)
	} else {
		h.queryCache.InvalidateGroup(group)
	}

	h.log.Debug("InvalidationHandler", "cache group invalidated", map[string]interface{}{
		"group":           group,
		"conversation_id": payload.ConversationId,
	})
	msg.Ack()
}
