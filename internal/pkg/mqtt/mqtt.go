package mqtt

import (
	"errors"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	cmap "github.com/orcaman/concurrent-map/v2"
	"go.uber.org/zap"

	"github.com/anicoll/yolink-integration/internal/pkg/config"
)

const (
	discoveryPrefix = "homeassistant/sensor"
	manufacturer    = "YoLink"
	connectTimeout  = 5 * time.Second
)

// pahoClient is the subset of paho_mqtt.Client the sink uses.
type pahoClient interface {
	Connect() paho_mqtt.Token
	Publish(topic string, qos byte, retained bool, payload any) paho_mqtt.Token
	Disconnect(quiesce uint)
}

type service struct {
	client  pahoClient
	logger  *zap.Logger
	timeout time.Duration

	// registered holds the entity ids whose discovery config was accepted by the broker.
	registered cmap.ConcurrentMap[string, struct{}]
	// published holds the last state payload sent per entity id.
	published cmap.ConcurrentMap[string, string]
}

func New(client pahoClient) *service {
	return &service{
		client:     client,
		logger:     zap.L(),
		timeout:    10 * time.Second,
		registered: cmap.New[struct{}](),
		published:  cmap.New[string](),
	}
}

// NewClient builds a paho client for the broker described in cfg.
func NewClient(cfg *config.SinkConfig) paho_mqtt.Client {
	opts := paho_mqtt.NewClientOptions().
		AddBroker(cfg.MqttHost).
		SetClientID(cfg.MqttClientID).
		SetUsername(cfg.MqttUser).
		SetPassword(cfg.MqttPass).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(connectTimeout)
	return paho_mqtt.NewClient(opts)
}

func (s *service) Connect() error {
	token := s.client.Connect()
	res := token.WaitTimeout(connectTimeout)
	if res {
		return token.Error()
	}
	if err := token.Error(); err != nil {
		return err
	}
	return errors.New("unable to connect in time")
}

func (s *service) Close() error {
	s.client.Disconnect(250)
	return nil
}
