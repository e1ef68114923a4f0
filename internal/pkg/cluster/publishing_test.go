package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	failures int
	messages [][]byte
	topics   []string
}

func (p *recordingPublisher) Publish(topic string, message []byte) error {
	if p.failures > 0 {
		p.failures--
		return errors.New("unavailable")
	}

	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, message)
	return nil
}

type failingRegistry struct{}

func (failingRegistry) AddClusters(context.Context, []Config) error {
	return errors.New("registry down")
}

func (failingRegistry) ListClusters(context.Context) ([]Config, error) {
	return nil, nil
}

func TestPublishingRegistryPublishesEachCluster(t *testing.T) {
	publisher := &recordingPublisher{}
	registry := NewPublishingRegistry(NewManager(discardLogger()), publisher, discardLogger())

	require.NoError(t, registry.AddClusters(context.Background(), []Config{{ID: "a"}, {ID: "b"}}))

	require.Len(t, publisher.messages, 2)
	assert.Equal(t, []string{RegisteredTopic, RegisteredTopic}, publisher.topics)

	var event RegisteredEvent
	require.NoError(t, json.Unmarshal(publisher.messages[1], &event))
	assert.Equal(t, "b", event.ClusterID)
	assert.Equal(t, "b", event.Cluster.ID)
	assert.NotEmpty(t, event.ID)

	clusters, err := registry.ListClusters(context.Background())
	require.NoError(t, err)
	assert.Len(t, clusters, 2)

	c, ok, err := Find(context.Background(), registry, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", c.ID)
}

func TestPublishingRegistryRetries(t *testing.T) {
	publisher := &recordingPublisher{failures: 2}
	registry := NewPublishingRegistry(NewManager(discardLogger()), publisher, discardLogger())
	registry.retryDelay = time.Millisecond

	require.NoError(t, registry.AddClusters(context.Background(), []Config{{ID: "a"}}))
	assert.Len(t, publisher.messages, 1)
}

func TestPublishingRegistryKeepsClustersWhenPublishingFails(t *testing.T) {
	publisher := &recordingPublisher{failures: 100}
	manager := NewManager(discardLogger())
	registry := NewPublishingRegistry(manager, publisher, discardLogger())
	registry.retryDelay = time.Millisecond

	require.NoError(t, registry.AddClusters(context.Background(), []Config{{ID: "a"}}))

	clusters, err := manager.ListClusters(context.Background())
	require.NoError(t, err)
	assert.Len(t, clusters, 1)
	assert.Empty(t, publisher.messages)
}

func TestPublishingRegistrySkipsPublishOnRegistryError(t *testing.T) {
	publisher := &recordingPublisher{}
	registry := NewPublishingRegistry(failingRegistry{}, publisher, discardLogger())

	err := registry.AddClusters(context.Background(), []Config{{ID: "a"}})
	require.EqualError(t, err, "registry down")
	assert.Empty(t, publisher.messages)
}
