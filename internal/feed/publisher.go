package feed

// #region imports
import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nbarrick/vigil/go-pipeline/internal/pipeline"
)

// #endregion

// #region publisher

// Publisher pushes tick snapshots to an MQTT broker so external display
// consumers can subscribe to the live feed. Publish failures are logged and
// dropped: the feed is best-effort and must never stall the playback loop.
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
}

// #endregion publisher

// #region constructor

// NewPublisher connects to the broker. topicPrefix scopes all topics, e.g.
// "vigil" → "vigil/<owner>/snapshot".
func NewPublisher(broker, topicPrefix string) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(fmt.Sprintf("vigil-feed-%d", time.Now().Unix()))
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) {
		log.Printf("[FEED] connected to broker %s", broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("[FEED] connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect broker %s: %w", broker, token.Error())
	}
	return &Publisher{client: client, topicPrefix: topicPrefix}, nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

// #endregion constructor

// #region publish

// Publish sends one snapshot as JSON, fire-and-forget at QoS 0.
func (p *Publisher) Publish(snap pipeline.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		log.Printf("[FEED] marshal snapshot: %v", err)
		return
	}
	topic := fmt.Sprintf("%s/%s/snapshot", p.topicPrefix, snap.Owner)
	token := p.client.Publish(topic, 0, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Printf("[FEED] publish %s: %v", topic, token.Error())
		}
	}()
}

// #endregion publish
