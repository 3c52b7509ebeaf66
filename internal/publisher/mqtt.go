package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/jgoulah/gridmix/internal/config"
	"github.com/jgoulah/gridmix/internal/export"
	"github.com/jgoulah/gridmix/internal/genmix"
)

const publishTimeout = 10 * time.Second

// Publisher sends generation mix rows to an MQTT broker
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
}

// New connects to the broker described by cfg
func New(cfg config.MQTTConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("MQTT publishing is not enabled in config")
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "gridmix"
	}

	// Configure MQTT client options
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg.Broker))
	opts.SetClientID(fmt.Sprintf("%s-%s", clientID, uuid.NewString()[:8]))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	// Create and connect client
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return newWithClient(client, cfg.TopicPrefix), nil
}

func newWithClient(client mqtt.Client, topicPrefix string) *Publisher {
	if topicPrefix == "" {
		topicPrefix = "generation_mix"
	}
	return &Publisher{
		client:      client,
		topicPrefix: strings.TrimRight(topicPrefix, "/"),
	}
}

// MixPayload is the JSON document published for each interval
type MixPayload struct {
	Date string             `json:"date"`
	Mix  map[string]float64 `json:"mix"`
}

// Publish sends one interval: the full mix as JSON to <prefix>/mix and each
// fuel's percentage, retained, to <prefix>/<fuel>
func (p *Publisher) Publish(row genmix.Row) error {
	payload := MixPayload{
		Date: row.Date.UTC().Format(time.RFC3339),
		Mix:  row.Mix,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	if err := p.send(p.topicPrefix+"/mix", false, body); err != nil {
		return err
	}

	for _, fuel := range row.FuelOrder() {
		if err := p.send(p.topicPrefix+"/"+fuel, true, []byte(export.FormatPerc(row.Mix[fuel]))); err != nil {
			return err
		}
	}

	return nil
}

func (p *Publisher) send(topic string, retained bool, payload []byte) error {
	token := p.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: timed out after %v", topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// brokerURL adds the tcp scheme when the broker is given as host:port
func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return fmt.Sprintf("tcp://%s", broker)
}
