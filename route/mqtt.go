package route

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// QueryHandler is called for every message on the query topic.
// err is non-nil when the payload could not be decoded.
type QueryHandler func(q *Query, err error)

// LayoutHandler is called for every message on the layout topic
type LayoutHandler func(l *Layout, err error)

// MQTTClient manages the broker connection and the query/layout subscriptions
type MQTTClient struct {
	client        mqtt.Client
	config        *Config
	queryHandler  QueryHandler
	layoutHandler LayoutHandler
	isConnected   bool
	mu            sync.RWMutex
}

// InitMQTT connects to the broker named by MQTT_BROKER or mqtt.broker.
// When neither is set MQTT is disabled and this returns nil.
func InitMQTT(config *Config, onQuery QueryHandler, onLayout LayoutHandler) (*MQTTClient, error) {
	if config == nil {
		return nil, fmt.Errorf("MQTT enabled but no configuration provided")
	}

	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		broker = config.MQTT.Broker
	}
	if broker == "" {
		log.Println("[MQTT] disabled: MQTT_BROKER not set")
		return nil, nil
	}

	client := &MQTTClient{
		config:        config,
		queryHandler:  onQuery,
		layoutHandler: onLayout,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" {
		clientID = config.MQTT.ClientID
	}
	if clientID == "" {
		clientID = DefaultClientID
	}
	opts.SetClientID(clientID)

	username := os.Getenv("MQTT_USERNAME")
	if username == "" {
		username = config.MQTT.Username
	}
	if username != "" {
		opts.SetUsername(username)
		password := os.Getenv("MQTT_PASSWORD")
		if password == "" {
			password = config.MQTT.Password
		}
		opts.SetPassword(password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false) // keep subscriptions across reconnects
	opts.SetOrderMatters(true)  // queries are answered one at a time, in order

	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)
	opts.SetReconnectingHandler(client.onReconnecting)

	client.client = mqtt.NewClient(opts)

	go client.connectWithRetry()

	return client, nil
}

// connectWithRetry attempts to connect to the broker with exponential backoff
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Println("[MQTT] connecting to broker...")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("[MQTT] connected to broker")
				c.setConnected(true)
				return
			}
			log.Printf("[MQTT] connection failed: %v", token.Error())
		} else {
			log.Println("[MQTT] connection timeout")
		}

		log.Printf("[MQTT] retrying connection in %v...", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

// onConnect subscribes to the query and layout topics
func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.setConnected(true)

	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{c.config.MQTT.QueryTopic, c.createQueryHandler()},
		{c.config.MQTT.LayoutTopic, c.createLayoutHandler()},
	}
	for _, s := range subs {
		if s.topic == "" {
			continue
		}
		token := client.Subscribe(s.topic, 1, s.handler)
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			log.Printf("[MQTT] error subscribing to %s: %v", s.topic, token.Error())
		} else {
			log.Printf("[MQTT] subscribed to %s", s.topic)
		}
	}
}

// onConnectionLost is a transient event; auto-reconnect will retry
func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("[MQTT] connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

func (c *MQTTClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	log.Println("[MQTT] reconnecting...")
}

func (c *MQTTClient) createQueryHandler() mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		log.Printf("[MQTT] query received on %s (%d bytes)", msg.Topic(), len(msg.Payload()))
		q, err := ParseQueryJSON(msg.Payload())
		if c.queryHandler != nil {
			c.queryHandler(q, err)
		}
	}
}

func (c *MQTTClient) createLayoutHandler() mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		log.Printf("[MQTT] layout received on %s (%d bytes)", msg.Topic(), len(msg.Payload()))
		l, err := ParseLayoutJSON(msg.Payload())
		if c.layoutHandler != nil {
			c.layoutHandler(l, err)
		}
	}
}

// IsConnected returns true if the MQTT client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect gracefully closes the MQTT connection
func (c *MQTTClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		log.Println("[MQTT] disconnecting from broker...")
		c.client.Disconnect(250)
		c.setConnected(false)
	}
}

// GetClient returns the underlying MQTT client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// newMQTTClientWithMock wraps a provided mqtt.Client, for tests
func newMQTTClientWithMock(client mqtt.Client, config *Config, onQuery QueryHandler, onLayout LayoutHandler) *MQTTClient {
	return &MQTTClient{
		client:        client,
		config:        config,
		queryHandler:  onQuery,
		layoutHandler: onLayout,
	}
}
