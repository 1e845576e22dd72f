package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/yt-automation/shorts-dashboard-go/internal/config"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/pkg/logger"
	"go.uber.org/zap"
)

const (
	confirmTimeout   = 5 * time.Second
	uploadEventType  = "upload.completed"
	uploadMessageTTL = 7 * 24 * time.Hour
	uploadQueueMax   = 10000
)

// ErrPublisherClosed is returned after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// MessagePublisher publishes upload events to a RabbitMQ topic exchange with
// publisher confirms. Publishes are serialized so every confirmation belongs
// to the message just sent.
type MessagePublisher struct {
	cfg *config.RabbitMQConfig
	log *zap.Logger

	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	confirms <-chan amqp.Confirmation
	closed   bool
}

// NewMessagePublisher connects and declares the topology.
func NewMessagePublisher(cfg *config.RabbitMQConfig) (*MessagePublisher, error) {
	mp := &MessagePublisher{
		cfg: cfg,
		log: logger.Named("rabbitmq"),
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()
	if err := mp.dial(); err != nil {
		return nil, err
	}
	return mp, nil
}

// URL is the AMQP connection string for cfg.
func URL(cfg *config.RabbitMQConfig) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.User, cfg.Password, cfg.Host, cfg.Port)
}

// dial must be called with mu held.
func (mp *MessagePublisher) dial() error {
	conn, err := amqp.Dial(URL(mp.cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch, mp.cfg); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	mp.conn = conn
	mp.channel = ch
	mp.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	mp.log.Info("Connected to RabbitMQ",
		zap.String("exchange", mp.cfg.Exchange),
		zap.String("queue", mp.cfg.Queue),
		zap.String("routingKey", mp.cfg.RoutingKey),
	)
	return nil
}

// declareTopology declares the uploads exchange and the bound queue that
// downstream consumers read from.
func declareTopology(ch *amqp.Channel, cfg *config.RabbitMQConfig) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	args := amqp.Table{
		"x-message-ttl": uploadMessageTTL.Milliseconds(),
		"x-max-length":  uploadQueueMax,
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(cfg.Queue, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return nil
}

// PublishUpload publishes one completed upload and waits for the broker ack.
// A dropped connection is re-dialed once before publishing.
func (mp *MessagePublisher) PublishUpload(ctx context.Context, event *models.UploadEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.closed {
		return ErrPublisherClosed
	}
	if !mp.connected() {
		mp.log.Warn("RabbitMQ connection lost, reconnecting")
		_ = mp.release()
		if err := mp.dial(); err != nil {
			return err
		}
	}

	err = mp.channel.PublishWithContext(ctx, mp.cfg.Exchange, mp.cfg.RoutingKey, false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.UploadedAt,
			MessageId:    event.ID.String(),
			Type:         uploadEventType,
			AppId:        event.Source,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish upload event: %w", err)
	}

	timer := time.NewTimer(confirmTimeout)
	defer timer.Stop()

	select {
	case confirm, ok := <-mp.confirms:
		if !ok {
			return errors.New("channel closed before publish confirmation")
		}
		if !confirm.Ack {
			return fmt.Errorf("upload event %s was nacked by broker", event.ID)
		}
	case <-timer.C:
		_ = mp.release()
		return errors.New("timeout waiting for publish confirmation")
	case <-ctx.Done():
		// The pending confirmation would be read by the next publish.
		_ = mp.release()
		return ctx.Err()
	}

	mp.log.Debug("Published upload event",
		zap.String("eventId", event.ID.String()),
		zap.String("youtubeId", event.YouTubeID),
		zap.String("channelId", event.ChannelID),
	)
	return nil
}

func (mp *MessagePublisher) connected() bool {
	return mp.conn != nil && !mp.conn.IsClosed() && mp.channel != nil && !mp.channel.IsClosed()
}

// release closes whatever is left of the current connection. mu must be held.
func (mp *MessagePublisher) release() error {
	var errs []error
	if mp.channel != nil && !mp.channel.IsClosed() {
		errs = append(errs, mp.channel.Close())
	}
	if mp.conn != nil && !mp.conn.IsClosed() {
		errs = append(errs, mp.conn.Close())
	}
	mp.channel, mp.conn, mp.confirms = nil, nil, nil
	return errors.Join(errs...)
}

// Close closes the channel and the connection. Later publishes fail with
// ErrPublisherClosed.
func (mp *MessagePublisher) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.closed = true
	if err := mp.release(); err != nil {
		return fmt.Errorf("errors closing publisher: %w", err)
	}

	mp.log.Info("RabbitMQ publisher closed")
	return nil
}

// IsHealthy reports whether the connection and channel are open.
func (mp *MessagePublisher) IsHealthy() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return !mp.closed && mp.connected()
}
