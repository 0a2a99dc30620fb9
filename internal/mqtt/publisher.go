package mqtt

import (
	"encoding/json"
	"fmt"

	"wisefido-vision/internal/config"
	"wisefido-vision/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// AlertPublisher MQTT 报警发布器（推送给病房/床旁终端）
type AlertPublisher struct {
	client mqtt.Client
	topic  string
	qos    byte
	logger *zap.Logger
}

// NewAlertPublisher 创建 MQTT 报警发布器
func NewAlertPublisher(cfg *config.Config, logger *zap.Logger) (*AlertPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.Broker)
	opts.SetClientID(cfg.MQTT.ClientID)

	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
	}
	if cfg.MQTT.Password != "" {
		opts.SetPassword(cfg.MQTT.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &AlertPublisher{
		client: client,
		topic:  cfg.MQTT.AlertTopic,
		qos:    cfg.MQTT.QoS,
		logger: logger,
	}, nil
}

// PublishAlert 发布一条报警（主题：<prefix>/<source_id>）
func (p *AlertPublisher) PublishAlert(summary *models.EventSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	topic := fmt.Sprintf("%s/%s", p.topic, summary.SourceID)
	token := p.client.Publish(topic, p.qos, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish alert: %w", token.Error())
	}

	p.logger.Debug("Alert published to MQTT",
		zap.String("topic", topic),
		zap.String("event_id", summary.EventID),
	)
	return nil
}

// Close 断开 MQTT 连接
func (p *AlertPublisher) Close() {
	p.client.Disconnect(250)
}
