package pubsub

import (
	"testing"

	"github.com/angelmondragon/sportshub-backend/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestResourceNames(t *testing.T) {
	c := &Client{projectID: "sportshub-dev"}

	assert.Equal(t, "projects/sportshub-dev/topics/sh-payment-events", c.topicResourceName("sh-payment-events"))
	assert.Equal(t, "projects/sportshub-dev/subscriptions/sh-notification-events-sub", c.subscriptionResourceName(" sh-notification-events-sub "))
	assert.Equal(t, "projects/other/topics/t", c.topicResourceName("projects/other/topics/t"))
	assert.Empty(t, c.topicResourceName(""))

	var nilClient *Client
	assert.Empty(t, nilClient.topicResourceName("x"))
	assert.Nil(t, nilClient.Publisher("x"))
}

func TestSubscriptionNamesSkipsBlank(t *testing.T) {
	assert.Empty(t, subscriptionNames(config.PubSubConfig{}))
	assert.Equal(t, []string{"sub"}, subscriptionNames(config.PubSubConfig{NotificationSubscription: " sub "}))
}

func TestClientOptionsUsesInlineCredentials(t *testing.T) {
	assert.Nil(t, clientOptions(config.GCPConfig{ProjectID: "p"}))
	assert.Len(t, clientOptions(config.GCPConfig{ProjectID: "p", CredentialsJSON: `{"type":"service_account"}`}), 1)
}
