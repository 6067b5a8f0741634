// Package directory is a read-only client for the HDS directory protocol.
package directory

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/hdsview/pkg/errors"
	"github.com/DeBrosOfficial/hdsview/pkg/logging"
	"github.com/DeBrosOfficial/hdsview/pkg/metrics"
	"github.com/DeBrosOfficial/hdsview/pkg/proxy"
	"github.com/DeBrosOfficial/hdsview/pkg/tlsutil"
)

// maxBodyBytes caps how much of a directory response is read.
const maxBodyBytes = 8 << 20

// DirectoryClient defines the read operations against one directory host
type DirectoryClient interface {
	Target() Target
	Identify(ctx context.Context) (Identity, error)
	ListTopics(ctx context.Context) ([]string, error)
	GetTopicMembership(ctx context.Context, topic string, subtopics ...string) (Membership, error)
	GetHostState(ctx context.Context, identity string) (HostState, error)
}

// Options configures a Client.
type Options struct {
	// Timeout is the per-request timeout. If zero, defaults to 15 seconds.
	Timeout time.Duration

	// AllowExpired turns paranoid mode off: expired and unsigned attributes
	// are kept and signatures are not checked. The zero value is paranoid.
	AllowExpired bool

	UserAgent string

	// Trust configures TLS; nil verifies against the system pool.
	Trust *tlsutil.Trust
	// Proxy routes connections through SOCKS5 when enabled.
	Proxy *proxy.Dialer
	// HTTPClient overrides the transport built from Trust and Proxy.
	HTTPClient *http.Client

	Metrics *metrics.Registry
}

// Client talks to a single directory host for its whole lifetime.
type Client struct {
	target     Target
	httpClient *http.Client
	timeout    time.Duration
	logger     *logging.ColoredLogger
	paranoid   bool
	userAgent  string
	metrics    *metrics.Registry
}

var _ DirectoryClient = (*Client)(nil)

// New creates a client bound to target.
func New(target Target, opts Options, logger *zap.Logger) (*Client, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	httpClient := opts.HTTPClient
	if httpClient != nil && httpClient.Timeout > 0 {
		timeout = httpClient.Timeout
	}
	if httpClient == nil {
		trust := opts.Trust
		if trust == nil {
			var err error
			if trust, err = tlsutil.New(tlsutil.Options{}); err != nil {
				return nil, err
			}
		}
		var dial tlsutil.DialContextFunc
		if opts.Proxy.Enabled() {
			dial = opts.Proxy.DialContext
		}
		httpClient = trust.NewHTTPClientForDomain(timeout, target.Host, dial)
	}

	return &Client{
		target:     target,
		httpClient: httpClient,
		timeout:    timeout,
		logger:     logging.Wrap(logger),
		paranoid:   !opts.AllowExpired,
		userAgent:  opts.UserAgent,
		metrics:    opts.Metrics,
	}, nil
}

// Dial normalizes address and creates a client for it.
func Dial(address string, opts Options, logger *zap.Logger) (*Client, error) {
	target, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	return New(target, opts, logger)
}

// Target returns the host this client is bound to.
func (c *Client) Target() Target {
	return c.target
}

// Identify asks the host who it is and checks that it is a directory.
func (c *Client) Identify(ctx context.Context) (Identity, error) {
	var id Identity
	if err := c.get(ctx, "identify", "/identify", nil, &id); err != nil {
		return Identity{}, err
	}

	if id.ServerName == "" {
		return Identity{}, errors.NewProtocolError(
			fmt.Sprintf("%s: identify response has no hds.servername", c.target), nil)
	}
	if id.ServerType != DirectoryType {
		return Identity{}, errors.NewProtocolError(
			fmt.Sprintf("%s is not a directory (type %q)", c.target, id.ServerType), nil)
	}

	c.logger.ComponentDebug(logging.ComponentDirectory, "identified directory",
		zap.String("target", c.target.String()),
		zap.String("servername", id.ServerName))
	return id, nil
}

// ListTopics returns every topic the directory knows. The result is never nil.
func (c *Client) ListTopics(ctx context.Context) ([]string, error) {
	var body map[string]json.RawMessage
	if err := c.get(ctx, "topics", "/topics", nil, &body); err != nil {
		return nil, err
	}

	raw, ok := body["topics"]
	if !ok {
		return nil, errors.NewProtocolError(fmt.Sprintf("%s: topics response has no topics field", c.target), nil)
	}

	var topics []string
	if err := json.Unmarshal(raw, &topics); err != nil {
		return nil, errors.NewProtocolError(fmt.Sprintf("%s: malformed topics list", c.target), err)
	}
	if topics == nil {
		topics = []string{}
	}
	return topics, nil
}

// GetTopicMembership returns the hosts registered under topic, optionally
// narrowed to subtopics.
func (c *Client) GetTopicMembership(ctx context.Context, topic string, subtopics ...string) (Membership, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, errors.NewValidationError("topic", "must not be empty", topic)
	}

	segments := make([]string, 0, len(subtopics)+1)
	segments = append(segments, url.PathEscape(topic))
	for _, s := range subtopics {
		if s == "" {
			return nil, errors.NewValidationError("subtopic", "must not be empty", subtopics)
		}
		segments = append(segments, url.PathEscape(s))
	}

	var body struct {
		Hosts Membership `json:"hosts"`
	}
	nf := &notFoundHint{resource: "topic", id: topic}
	if err := c.get(ctx, "topic", "/topics/"+strings.Join(segments, "/"), nf, &body); err != nil {
		return nil, err
	}
	if body.Hosts == nil {
		body.Hosts = Membership{}
	}
	return body.Hosts, nil
}

// GetHostState fetches a host's attributes. In paranoid mode attributes the
// directory lists as expired are dropped, unsigned attributes are dropped and
// every remaining attribute must carry a valid signature by the host's key.
func (c *Client) GetHostState(ctx context.Context, identity string) (HostState, error) {
	if strings.TrimSpace(identity) == "" {
		return HostState{}, errors.NewValidationError("identity", "must not be empty", identity)
	}

	var body map[string]json.RawMessage
	nf := &notFoundHint{resource: "host", id: identity}
	if err := c.get(ctx, "host", "/hosts/"+url.PathEscape(identity), nf, &body); err != nil {
		return HostState{}, err
	}

	state := HostState{
		Identity:   identity,
		Attributes: make(map[string]Attribute, len(body)),
	}

	if raw, ok := body[attrExpired]; ok {
		if err := json.Unmarshal(raw, &state.Expired); err != nil {
			return HostState{}, errors.NewProtocolError(fmt.Sprintf("%s: malformed hds.expired", c.target), err)
		}
		delete(body, attrExpired)
	}

	if c.paranoid {
		for _, key := range state.Expired {
			if _, ok := body[key]; !ok {
				continue
			}
			c.logger.ComponentWarn(logging.ComponentDirectory, "dropping expired attribute",
				zap.String("host", identity), zap.String("key", key))
			delete(body, key)
		}
	}

	var pub *rsa.PublicKey
	for _, key := range sortedKeys(body) {
		raw := body[key]
		var attr Attribute
		var signed signedAttribute
		err := json.Unmarshal(raw, &attr)
		if err == nil {
			err = json.Unmarshal(raw, &signed)
		}
		if err != nil {
			c.logger.ComponentWarn(logging.ComponentDirectory, "skipping malformed attribute",
				zap.String("host", identity), zap.String("key", key), zap.Error(err))
			continue
		}

		if c.paranoid {
			if !signed.signed() {
				c.logger.ComponentWarn(logging.ComponentDirectory, "dropping unsigned attribute",
					zap.String("host", identity), zap.String("key", key))
				continue
			}
			if pub == nil {
				if pub, err = ParseServerKey(identity); err != nil {
					return HostState{}, err
				}
			}
			if err := verifyAttribute(pub, key, signed); err != nil {
				c.logger.ComponentError(logging.ComponentDirectory, "attribute signature mismatch",
					zap.String("host", identity), zap.String("key", key), zap.Error(err))
				return HostState{}, err
			}
		}
		state.Attributes[key] = attr
	}

	return state, nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// notFoundHint turns *.missing envelopes into NotFoundError.
type notFoundHint struct {
	resource string
	id       string
}

func (c *Client) get(ctx context.Context, endpoint, path string, nf *notFoundHint, out interface{}) error {
	start := time.Now()
	err := c.doGet(ctx, path, nf, out)
	outcome := "ok"
	if err != nil {
		outcome = errors.GetErrorCode(err)
		c.logger.ComponentDebug(logging.ComponentDirectory, "directory request failed",
			zap.String("endpoint", endpoint),
			zap.String("target", c.target.String()),
			zap.String("category", string(errors.GetCategory(outcome))),
			zap.Error(err))
	}
	c.metrics.RecordDirectoryRequest(endpoint, outcome, time.Since(start))
	return err
}

func (c *Client) doGet(ctx context.Context, path string, nf *notFoundHint, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.target.BaseURL()+path, nil)
	if err != nil {
		return errors.NewInternalError("failed to create directory request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return c.transportError(path, err)
	}

	if env, ok := parseEnvelope(body); ok {
		return c.envelopeError(env, nf)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewConnectionError(c.target.String(), resp.StatusCode, nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.NewProtocolError(fmt.Sprintf("%s: malformed response for %s", c.target, path), err)
	}
	return nil
}

// transportError reports deadline hits as timeouts and everything else as
// an unreachable directory.
func (c *Client) transportError(path string, err error) error {
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.NewTimeoutError("GET "+c.target.BaseURL()+path, c.timeout.String())
	}
	return errors.NewConnectionError(c.target.String(), 0, err)
}

func parseEnvelope(body []byte) (errorEnvelope, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errorEnvelope{}, false
	}
	var env errorEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return errorEnvelope{}, false
	}
	return env, env.Type != ""
}

func (c *Client) envelopeError(env errorEnvelope, nf *notFoundHint) error {
	if nf != nil && (env.Type == ErrTypeTopicMissing || env.Type == ErrTypeHostMissing) {
		return errors.NewNotFoundError(nf.resource, nf.id)
	}
	text := env.Text
	if text == "" {
		text = "directory reported an error"
	}
	return errors.NewProtocolError(text, nil).WithHDSType(env.Type)
}
