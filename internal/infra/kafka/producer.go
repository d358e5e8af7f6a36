package kafka

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/config"
)

// Producer wraps a Sarama AsyncProducer and drains its error channel into the log.
type Producer struct {
	producer sarama.AsyncProducer
	logger   *zap.Logger
	prefix   string
	wg       sync.WaitGroup
}

// NewProducer dials the configured brokers.
func NewProducer(cfg config.KafkaSettings, logger *zap.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_5_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Flush.Frequency = 100 * time.Millisecond
	saramaConfig.Producer.Flush.Messages = 100
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = false
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Metadata.Retry.Max = 3
	saramaConfig.Metadata.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	logger.Info("kafka producer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic_prefix", cfg.TopicPrefix),
	)

	return newProducer(producer, cfg.TopicPrefix, logger), nil
}

func newProducer(producer sarama.AsyncProducer, prefix string, logger *zap.Logger) *Producer {
	p := &Producer{producer: producer, logger: logger, prefix: prefix}
	p.wg.Add(1)
	go p.drainErrors()
	return p
}

// drainErrors exits once the underlying producer closes its Errors channel.
func (p *Producer) drainErrors() {
	defer p.wg.Done()
	for perr := range p.producer.Errors() {
		if perr == nil {
			continue
		}
		fields := []zap.Field{zap.Error(perr.Err)}
		if perr.Msg != nil {
			fields = append(fields, zap.String("topic", perr.Msg.Topic))
		}
		p.logger.Error("kafka produce failed", fields...)
	}
}

// Input exposes the producer input channel.
func (p *Producer) Input() chan<- *sarama.ProducerMessage {
	return p.producer.Input()
}

// Close flushes buffered messages and waits for the error drain to finish.
func (p *Producer) Close() error {
	p.logger.Info("closing kafka producer")
	err := p.producer.Close()
	p.wg.Wait()
	if err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}

// TopicName prefixes eventType unless it already carries the prefix.
func (p *Producer) TopicName(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	prefix := p.prefix + "."
	if strings.HasPrefix(eventType, prefix) {
		return eventType
	}
	return prefix + eventType
}
