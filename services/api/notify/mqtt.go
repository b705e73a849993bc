package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/02loveslollipop/perftest-dashboard/services/api/config"
)

var ErrNotConnected = errors.New("mqtt not connected")

const publishTimeout = 5 * time.Second

// MQTTPublisher publishes save events to {prefix}/manual-input/{perf_id}/{m_input}.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
	logger *zap.Logger
}

// NewMQTTPublisher connects to the broker. A failed initial connection is
// logged and retried in the background.
func NewMQTTPublisher(cfg config.MQTTConfig, logger *zap.Logger) *MQTTPublisher {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID("perftest_api_" + uuid.NewString()[:8])

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(5 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("mqtt connected", zap.String("broker", cfg.BrokerURL))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost, will reconnect", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.WaitTimeout(5 * time.Second) {
		if err := token.Error(); err != nil {
			logger.Warn("mqtt initial connection failed, retrying in background", zap.Error(err))
		}
	} else {
		logger.Warn("mqtt connection timeout, retrying in background")
	}

	return newMQTTPublisher(client, cfg.TopicPrefix, logger)
}

func newMQTTPublisher(client mqtt.Client, prefix string, logger *zap.Logger) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix, logger: logger}
}

// Topic returns the topic an event is published on.
func (p *MQTTPublisher) Topic(ev SaveEvent) string {
	return fmt.Sprintf("%s/manual-input/%d/%d", p.prefix, ev.PerfID, ev.MInput)
}

func (p *MQTTPublisher) Notify(ctx context.Context, ev SaveEvent) error {
	if p == nil || !p.client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode save event: %w", err)
	}

	token := p.client.Publish(p.Topic(ev), 1, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish %s: timeout", p.Topic(ev))
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", p.Topic(ev), err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	if p != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
