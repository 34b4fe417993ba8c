package gmailclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/lifeline-network/bloodmatch/internal/config"
	"github.com/lifeline-network/bloodmatch/pkg/utils"
)

// Options configures outgoing mail
type Options struct {
	// UserID is the Gmail account that sends, usually "me"
	UserID string

	// Sender sets the From header. Empty lets Gmail use the account address.
	Sender string

	// SendInterval is the minimum gap between two sends. Zero disables throttling.
	SendInterval time.Duration
}

// Client wraps the Gmail API client
type Client struct {
	service *gmail.Service
	opts    Options
	limiter *rate.Limiter
}

// NewClient creates a Gmail client authorised with the given OAuth token
func NewClient(ctx context.Context, oauthCfg *config.OAuthClientConfig, token *oauth2.Token, opts Options) (*Client, error) {
	oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth config: %w", err)
	}

	return NewClientWithOptions(ctx, opts, option.WithHTTPClient(oauthConfig.Client(ctx, token)))
}

// NewClientWithOptions creates a Gmail client from raw API client options
func NewClientWithOptions(ctx context.Context, opts Options, clientOpts ...option.ClientOption) (*Client, error) {
	service, err := gmail.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	if opts.UserID == "" {
		opts.UserID = "me"
	}

	limit := rate.Inf
	if opts.SendInterval > 0 {
		limit = rate.Every(opts.SendInterval)
	}

	return &Client{
		service: service,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// SendEmail sends a plain-text email. Sends are throttled to respect Gmail API
// rate limits; waiting for the throttle honours ctx.
func (c *Client) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("email throttle: %w", err)
	}

	message := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(c.buildMessage(to, subject, body))),
	}

	if _, err := c.service.Users.Messages.Send(c.opts.UserID, message).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (c *Client) buildMessage(to, subject, body string) string {
	var b strings.Builder
	if c.opts.Sender != "" {
		fmt.Fprintf(&b, "From: %s\r\n", c.opts.Sender)
	}
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(body)
	return b.String()
}
