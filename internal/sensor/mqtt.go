package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/fresheye/fresheye/internal/models"
)

// staleAfter is how long the last message keeps a reading "connected".
const staleAfter = 30 * time.Second

// MQTTFeedConfig holds the broker connection settings.
type MQTTFeedConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// MQTTFeed subscribes to the sensor topics on a broker and keeps the newest
// values. Fetch serves that snapshot, so an MQTT install is polled by the
// dashboard exactly like the HTTP-backed ones.
//
// Two payload styles are accepted: a raw float on <prefix>/temperature and
// <prefix>/humidity, or a JSON object with both fields on <prefix>/dht, which
// is what the serial sensor bridge publishes.
type MQTTFeed struct {
	client mqtt.Client
	prefix string

	mu          sync.Mutex
	temperature float64
	humidity    float64
	updated     time.Time
}

// NewMQTTFeed connects to the broker and subscribes. Subscriptions are
// re-established automatically after a reconnect.
func NewMQTTFeed(config MQTTFeedConfig) (*MQTTFeed, error) {
	if config.Broker == "" {
		return nil, fmt.Errorf("mqtt broker address required")
	}
	if config.ClientID == "" {
		config.ClientID = "fresheye-dashboard"
	}
	if config.TopicPrefix == "" {
		config.TopicPrefix = "fresheye/sensor"
	}

	feed := &MQTTFeed{prefix: config.TopicPrefix}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Printf("mqtt: connected to %s", config.Broker)
		if err := feed.subscribeAll(client); err != nil {
			log.Printf("mqtt: subscribe: %v", err)
		}
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("mqtt: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", token.Error())
	}

	feed.client = client
	return feed, nil
}

func (f *MQTTFeed) subscribeAll(client mqtt.Client) error {
	subs := map[string]mqtt.MessageHandler{
		f.prefix + "/temperature": f.handleTemperature,
		f.prefix + "/humidity":    f.handleHumidity,
		f.prefix + "/dht":         f.handleDHT,
	}
	for topic, handler := range subs {
		if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", topic, token.Error())
		}
	}
	return nil
}

func (f *MQTTFeed) handleTemperature(_ mqtt.Client, msg mqtt.Message) {
	if err := f.applyTemperature(msg.Payload()); err != nil {
		log.Printf("mqtt: %s: %v", msg.Topic(), err)
	}
}

func (f *MQTTFeed) handleHumidity(_ mqtt.Client, msg mqtt.Message) {
	if err := f.applyHumidity(msg.Payload()); err != nil {
		log.Printf("mqtt: %s: %v", msg.Topic(), err)
	}
}

func (f *MQTTFeed) handleDHT(_ mqtt.Client, msg mqtt.Message) {
	if err := f.applyDHT(msg.Payload()); err != nil {
		log.Printf("mqtt: %s: %v", msg.Topic(), err)
	}
}

func (f *MQTTFeed) applyTemperature(payload []byte) error {
	var value float64
	if _, err := fmt.Sscanf(string(payload), "%f", &value); err != nil {
		return fmt.Errorf("parse temperature %q: %w", payload, err)
	}
	f.mu.Lock()
	f.temperature = value
	f.updated = time.Now()
	f.mu.Unlock()
	return nil
}

func (f *MQTTFeed) applyHumidity(payload []byte) error {
	var value float64
	if _, err := fmt.Sscanf(string(payload), "%f", &value); err != nil {
		return fmt.Errorf("parse humidity %q: %w", payload, err)
	}
	f.mu.Lock()
	f.humidity = value
	f.updated = time.Now()
	f.mu.Unlock()
	return nil
}

func (f *MQTTFeed) applyDHT(payload []byte) error {
	var reading struct {
		Temperature float64 `json:"temperature"`
		Humidity    float64 `json:"humidity"`
	}
	if err := json.Unmarshal(payload, &reading); err != nil {
		return fmt.Errorf("parse dht payload: %w", err)
	}
	f.mu.Lock()
	f.temperature = reading.Temperature
	f.humidity = reading.Humidity
	f.updated = time.Now()
	f.mu.Unlock()
	return nil
}

// Fetch serves the newest values seen on the topics.
func (f *MQTTFeed) Fetch(ctx context.Context) (models.SensorReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updated.IsZero() {
		return models.Disconnected(), fmt.Errorf("no sensor message received yet")
	}
	return models.SensorReading{
		Temperature: f.temperature,
		Humidity:    f.humidity,
		LastUpdate:  f.updated.Format("15:04:05"),
		Connected:   time.Since(f.updated) < staleAfter,
	}, nil
}

// Close disconnects from the broker.
func (f *MQTTFeed) Close() {
	if f.client != nil {
		f.client.Disconnect(250)
	}
}
