package gmail

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/mulchkit/mulch/internal/instrumentation"
)

// DefaultUserID addresses the authenticated user.
const DefaultUserID = "me"

// Client wraps the Gmail Users service.
type Client struct {
	svc     *gmail.UsersService
	userID  string
	metrics *instrumentation.Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithUserID sets the user ID used in API calls (default: "me").
func WithUserID(id string) ClientOption {
	return func(c *Client) {
		c.userID = id
	}
}

// WithMetrics records every API call on m.
func WithMetrics(m *instrumentation.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a Gmail client on top of an authorized HTTP client.
// Extra API options (e.g. option.WithEndpoint in tests) may be appended.
func NewClient(ctx context.Context, httpClient *http.Client, opts []option.ClientOption, clientOpts ...ClientOption) (*Client, error) {
	allOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmail.NewService(ctx, allOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return NewClientWithService(svc, clientOpts...), nil
}

// NewClientWithService creates a client from an existing Gmail service.
func NewClientWithService(svc *gmail.Service, clientOpts ...ClientOption) *Client {
	c := &Client{
		svc:    svc.Users,
		userID: DefaultUserID,
	}
	for _, opt := range clientOpts {
		opt(c)
	}
	return c
}

// observe wraps one API call in a span and a metric sample.
func (c *Client) observe(ctx context.Context, operation, resourceID string, call func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, operation,
		instrumentation.ResourceID(resourceID))
	defer span.End()

	start := time.Now()
	err := call(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, operation, status, time.Since(start))
	return err
}

// ListLabels returns every label in the mailbox.
func (c *Client) ListLabels(ctx context.Context) ([]*gmail.Label, error) {
	var labels []*gmail.Label
	err := c.observe(ctx, instrumentation.OperationList, "labels", func(ctx context.Context) error {
		res, err := c.svc.Labels.List(c.userID).Context(ctx).Do()
		if err != nil {
			return err
		}
		labels = res.Labels
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return labels, nil
}

// ForeachMessage calls fn for every message matching q, following page
// tokens until the listing is exhausted. The messages carry only their ID and
// thread ID.
func (c *Client) ForeachMessage(ctx context.Context, q string, fn func(*gmail.Message) error) error {
	pageToken := ""
	for {
		var res *gmail.ListMessagesResponse
		err := c.observe(ctx, instrumentation.OperationList, "messages", func(ctx context.Context) error {
			req := c.svc.Messages.List(c.userID).Q(q).Context(ctx)
			if pageToken != "" {
				req.PageToken(pageToken)
			}
			var err error
			res, err = req.Do()
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to list messages: %w", err)
		}

		for _, m := range res.Messages {
			if err := fn(m); err != nil {
				return err
			}
		}
		if res.NextPageToken == "" {
			return nil
		}
		pageToken = res.NextPageToken
	}
}

// ListMessages collects every message matching q.
func (c *Client) ListMessages(ctx context.Context, q string) ([]*gmail.Message, error) {
	var all []*gmail.Message
	err := c.ForeachMessage(ctx, q, func(m *gmail.Message) error {
		all = append(all, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// GetMessage retrieves a full Gmail message.
func (c *Client) GetMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	var msg *gmail.Message
	err := c.observe(ctx, instrumentation.OperationGet, messageID, func(ctx context.Context) error {
		var err error
		msg, err = c.svc.Messages.Get(c.userID, messageID).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return msg, nil
}
