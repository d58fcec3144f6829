// Package pubsub wraps the Pub/Sub client the outbox relay publishes
// marketplace events through.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/jewelbid-backend/pkg/config"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
)

var errNotInitialized = errors.New("pubsub client not initialized")

type Client struct {
	client  *pubsub.Client
	project string
	cfg     config.PubSubConfig
}

// NewClient connects to project and refuses to start unless the domain topic
// exists. Publishing into a missing topic would only surface later as a
// stream of dead letters.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errors.New("gcp project id is required")
	}
	if strings.TrimSpace(cfg.DomainTopic) == "" {
		return nil, errors.New("pubsub domain topic is required")
	}
	raw, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: raw, project: project, cfg: cfg}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", c.TopicName(cfg.DomainTopic)), "pubsub client initialized")
	}
	return c, nil
}

// Ping checks the domain topic and, when configured, its subscription.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	topic := c.TopicName(c.cfg.DomainTopic)
	if _, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topic}); err != nil {
		return describe("topic", topic, err)
	}
	if strings.TrimSpace(c.cfg.DomainSubscription) == "" {
		return nil
	}
	sub := c.SubscriptionName(c.cfg.DomainSubscription)
	if _, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: sub}); err != nil {
		return describe("subscription", sub, err)
	}
	return nil
}

func describe(kind, name string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %s does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %s: %w", kind, name, err)
}

// Publisher returns a handle for topic, given as an ID or a full resource
// name. Callers own the handle and must Stop it.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil || strings.TrimSpace(topic) == "" {
		return nil
	}
	return c.client.Publisher(c.TopicName(topic))
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) TopicName(id string) string {
	return qualify(c.project, "topics", id)
}

func (c *Client) SubscriptionName(id string) string {
	return qualify(c.project, "subscriptions", id)
}

// qualify expands a short ID into projects/<project>/<kind>/<id>. Names that
// are already qualified pass through.
func qualify(project, kind, id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "projects/") {
		return id
	}
	return "projects/" + project + "/" + kind + "/" + id
}
