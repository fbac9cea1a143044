package route

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// AnalysisStatus is the compact summary published next to the full analysis
type AnalysisStatus struct {
	QueryID     string  `json:"queryId"`
	Outcome     Outcome `json:"outcome"`
	HasPath     bool    `json:"hasPath"`
	OverallPass bool    `json:"overallPass"`
	Distance    float64 `json:"distance"`
	Timestamp   int64   `json:"timestamp"`
}

// Publisher publishes analyses to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	last          *AnalysisStatus
	mu            sync.RWMutex
}

// NewPublisher creates a new analysis publisher.
// If client is nil, publishing is disabled.
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if env := os.Getenv("MQTT_PUBLISH_PREFIX"); env != "" {
		prefix = env
	}
	if prefix == "" {
		prefix = DefaultPublishPrefix
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           1,
		retain:        true, // a new analysis supersedes the retained one
	}
}

// AnalysisTopic is where full analyses are published
func (p *Publisher) AnalysisTopic() string {
	return p.publishPrefix + "/analysis"
}

// StatusTopic is where analysis summaries are published
func (p *Publisher) StatusTopic() string {
	return p.publishPrefix + "/status"
}

// PublishAnalysis publishes the full analysis and its summary
func (p *Publisher) PublishAnalysis(a *Analysis) error {
	if a == nil {
		return fmt.Errorf("publishing analysis: nil analysis")
	}
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	status := &AnalysisStatus{
		QueryID:   a.QueryID,
		Outcome:   a.Outcome,
		HasPath:   a.HasPath(),
		Timestamp: time.Now().Unix(),
	}
	if a.Report != nil {
		status.OverallPass = a.Report.OverallPass
		status.Distance = a.Report.TotalDistance
	}

	if err := p.publishJSON(p.AnalysisTopic(), a); err != nil {
		return err
	}
	if err := p.publishJSON(p.StatusTopic(), status); err != nil {
		return err
	}

	p.mu.Lock()
	p.last = status
	p.mu.Unlock()

	log.Printf("[MQTT] published analysis %s (%s)", a.QueryID, a.Outcome)
	return nil
}

// LastStatus returns the summary of the last published analysis.
// A nil publisher has published nothing.
func (p *Publisher) LastStatus() (*AnalysisStatus, bool) {
	if p == nil {
		return nil, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.last != nil
}

func (p *Publisher) publishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}
