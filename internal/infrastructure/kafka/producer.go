// Package kafka публикует события об обновлении эмбеддингов товаров.
package kafka

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/DRSN-tech/shop-recommender/internal/cfg"
	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const eventType = "product.embeddings.updated"

type Producer struct {
	writer *kafka.Writer
	logger logger.Logger
	cfg    *cfg.KafkaCfg
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    10,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warnf("Kafka producer error: %s", err.Error())
			}
		},
	}

	return &Producer{
		writer: writer,
		logger: logger,
		cfg:    cfg,
	}
}

// PublishEmbeddingsUpdated пишет событие с ключом по id товара: события одного товара идут в одну партицию.
func (p *Producer) PublishEmbeddingsUpdated(ctx context.Context, event domain.EmbeddingsUpdated) error {
	msg, err := NewMessage(event)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (p *Producer) EnsureTopic(timeout time.Duration) error {
	conn, err := kafka.Dial(p.cfg.NetworkMode, p.cfg.Brokers[0])
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(p.cfg.Topic)
	if err == nil && len(partitions) > 0 {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.CreateTopics(kafka.TopicConfig{
			Topic:             p.cfg.Topic,
			NumPartitions:     p.cfg.Partitions,
			ReplicationFactor: p.cfg.ReplicationFactor,
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), fmt.Errorf("failed to create topic %s: %w", p.cfg.Topic, err))
		}
		return nil
	case <-time.After(timeout):
		_ = conn.Close()
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("timeout: %v, topic: %s", timeout, p.cfg.Topic))
	}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// NewMessage кодирует событие как google.protobuf.Struct.
func NewMessage(event domain.EmbeddingsUpdated) (kafka.Message, error) {
	const op = "kafka.NewMessage"

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	payload, err := structpb.NewStruct(map[string]any{
		"event_id":          event.EventID,
		"event_type":        eventType,
		"product_id":        event.ProductID,
		"embedding_version": int64(event.Version),
		"model":             event.Model,
		"dimension":         event.Dimension,
		"created_at":        event.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return kafka.Message{}, e.Wrap(op, err)
	}

	value, err := proto.Marshal(payload)
	if err != nil {
		return kafka.Message{}, e.Wrap(op, err)
	}

	return kafka.Message{
		Key:   []byte(strconv.FormatInt(event.ProductID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}, nil
}

// DecodeMessage — обратное NewMessage, нужно потребителям и тестам.
func DecodeMessage(msg kafka.Message) (domain.EmbeddingsUpdated, error) {
	const op = "kafka.DecodeMessage"

	var payload structpb.Struct
	if err := proto.Unmarshal(msg.Value, &payload); err != nil {
		return domain.EmbeddingsUpdated{}, e.Wrap(op, err)
	}

	fields := payload.GetFields()
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"].GetStringValue())
	if err != nil {
		return domain.EmbeddingsUpdated{}, e.Wrap(op, err)
	}

	return domain.EmbeddingsUpdated{
		EventID:   fields["event_id"].GetStringValue(),
		ProductID: int64(fields["product_id"].GetNumberValue()),
		Version:   int32(fields["embedding_version"].GetNumberValue()),
		Model:     fields["model"].GetStringValue(),
		Dimension: int(fields["dimension"].GetNumberValue()),
		CreatedAt: createdAt,
	}, nil
}
