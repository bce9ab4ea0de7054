// Package telemetry ingests measured output power from plant gateways over
// MQTT. Each gateway publishes to <prefix>/<powerPlantId>; the latest
// message per plant is kept in memory for the snapshot recorder.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type powerMessage struct {
	Power     float64 `json:"power"`
	Timestamp string  `json:"timestamp"`
}

type Ingest struct {
	client      mqtt.Client
	store       *Store
	topicPrefix string
	logger      *slog.Logger
}

func New(broker string, port int, username, password, topicPrefix string, store *Store) *Ingest {
	logger := slog.Default().With("module", "telemetry")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", broker, port))
	opts.SetClientID("wattshare")
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("telemetry MQTT connected")
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("telemetry MQTT connection lost", slog.Any("error", err))
	}

	mqttLogger := slog.Default().With("module", "mqtt")
	mqtt.CRITICAL = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.ERROR = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.WARN = newMqttLogger(mqttLogger, slog.LevelWarn)

	return &Ingest{
		client:      mqtt.NewClient(opts),
		store:       store,
		topicPrefix: strings.TrimSuffix(topicPrefix, "/"),
		logger:      logger,
	}
}

func (in *Ingest) Connect() error {
	if token := in.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	topic := in.topicPrefix + "/+"
	token := in.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		in.handle(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}

	in.logger.Info("telemetry subscription active", slog.String("topic", topic))
	return nil
}

func (in *Ingest) Disconnect() {
	in.client.Disconnect(250)
	in.logger.Debug("telemetry MQTT disconnected")
}

func (in *Ingest) handle(topic string, payload []byte) {
	plantID := strings.TrimPrefix(topic, in.topicPrefix+"/")
	if plantID == "" || strings.Contains(plantID, "/") {
		in.logger.Warn("unexpected telemetry topic", slog.String("topic", topic))
		return
	}

	var msg powerMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		in.logger.Error("error when reading power message",
			slog.String("powerPlantId", plantID),
			slog.Any("error", err))
		return
	}

	receivedAt := time.Now().UTC()
	if msg.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil {
			receivedAt = ts.UTC()
		}
	}

	in.store.Set(Measurement{
		PowerPlantID: plantID,
		Power:        msg.Power,
		ReceivedAt:   receivedAt,
	})
}
