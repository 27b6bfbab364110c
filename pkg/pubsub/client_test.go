package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mozz-online/mozz-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/mozz/topics/invites", topicResourceName("mozz", " invites "))
	assert.Equal(t, "projects/other/topics/x", topicResourceName("mozz", "projects/other/topics/x"))
	assert.Empty(t, topicResourceName("", "invites"))
	assert.Empty(t, topicResourceName("mozz", "  "))
}

func TestTopicNames(t *testing.T) {
	assert.Equal(t, []string{"mozz-invitation-links"}, topicNames(config.PubSubConfig{InvitationTopic: "mozz-invitation-links"}))
	assert.Empty(t, topicNames(config.PubSubConfig{}))
}

func TestClientOptions(t *testing.T) {
	assert.Len(t, clientOptions(config.GCPConfig{}), 0)
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: "{}"}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/key.json"}), 1)
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("invites"))
	assert.Error(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}
