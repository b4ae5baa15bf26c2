package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"guest-snapper/internal/domain/upload"

	"github.com/redis/go-redis/v9"
)

const uploadChannelPrefix = "channel:uploads:"

// UploadChannel is the pub/sub channel carrying progress for one event.
func UploadChannel(eventID string) string {
	return uploadChannelPrefix + eventID
}

// UploadChannelPattern matches the progress channels of every event.
func UploadChannelPattern() string {
	return uploadChannelPrefix + "*"
}

// EventIDFromChannel is the inverse of UploadChannel.
func EventIDFromChannel(channel string) (string, bool) {
	eventID, ok := strings.CutPrefix(channel, uploadChannelPrefix)
	return eventID, ok && eventID != ""
}

type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

// PublishProgress fans a progress event out to the viewers of its event.
func (p *Publisher) PublishProgress(ctx context.Context, ev upload.ProgressEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding progress event: %w", err)
	}
	return p.Publish(ctx, UploadChannel(ev.EventID), payload)
}
