package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

const eventIDHeader = "event_id"

// KafkaPublisher writes settlement events keyed by transaction id, so all
// deliveries for one transfer land on the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode settlement event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.TransactionID.String()),
		Value:   data,
		Time:    event.OccurredAt,
		Headers: []kafka.Header{{Key: eventIDHeader, Value: []byte(event.ID)}},
	})
	if err != nil {
		return fmt.Errorf("publish settlement event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaSubscriber consumes settlement events within a consumer group. Offsets
// are committed only after the handler returns nil.
type KafkaSubscriber struct {
	reader *kafka.Reader
	logger *slog.Logger
}

func NewKafkaSubscriber(reader *kafka.Reader, logger *slog.Logger) *KafkaSubscriber {
	return &KafkaSubscriber{reader: reader, logger: logger}
}

func (s *KafkaSubscriber) Subscribe(ctx context.Context, handle Handler) error {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch settlement event: %w", err)
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			// poison message: nothing can ever settle it
			s.logger.Error("discarding undecodable settlement event",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Any("error", err))
		} else if err := handle(ctx, event); err != nil {
			return err
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit settlement offset: %w", err)
		}
	}
}

func (s *KafkaSubscriber) Close() error {
	return s.reader.Close()
}
