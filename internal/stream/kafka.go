package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"
)

// KafkaProvider consumes posts that a relay has already published to a
// Kafka topic. Each message value is one payload. The relay owns the
// subscription, so track terms are only logged.
type KafkaProvider struct {
	Brokers []string
	Topic   string
	GroupID string
	Logger  *slog.Logger

	// newReader is replaced in tests.
	newReader func(kafka.ReaderConfig) messageReader
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

func (p *KafkaProvider) Name() string { return "kafka" }

func (p *KafkaProvider) Connect(ctx context.Context, track []string) (Stream, error) {
	if len(p.Brokers) == 0 || p.Topic == "" {
		return nil, transportErr(p.Name(), "connect", errors.New("brokers and topic are required"))
	}

	cfg := kafka.ReaderConfig{
		Brokers:  p.Brokers,
		Topic:    p.Topic,
		GroupID:  p.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	newReader := p.newReader
	if newReader == nil {
		newReader = func(cfg kafka.ReaderConfig) messageReader { return kafka.NewReader(cfg) }
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("consuming relayed posts",
		"brokers", strings.Join(p.Brokers, ","),
		"topic", p.Topic,
		"group_id", p.GroupID,
		"track", strings.Join(track, ","),
	)

	return &kafkaStream{r: newReader(cfg)}, nil
}

type kafkaStream struct {
	r messageReader
}

func (s *kafkaStream) Next(ctx context.Context) (Message, error) {
	for {
		m, err := s.r.ReadMessage(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Message{}, ctxErr
			}
			if errors.Is(err, io.EOF) {
				return Message{}, io.EOF
			}
			return Message{}, transportErr("kafka", "read", err)
		}
		if len(strings.TrimSpace(string(m.Value))) == 0 {
			continue
		}
		return Message{Kind: Data, Payload: m.Value}, nil
	}
}

func (s *kafkaStream) Close() error { return s.r.Close() }
