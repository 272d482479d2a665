package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"socialfeed/pkg/broadcast"
	"socialfeed/pkg/posts"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type ClientSettings struct {
	HttpTimeout        time.Duration
	WsHandshakeTimeout time.Duration
	ReconnectTimeout   time.Duration
	WriteTimeout       time.Duration
	ReadTimeout        time.Duration
	QueueSize          int
}

func DefaultClientSettings() *ClientSettings {
	return &ClientSettings{
		HttpTimeout:        5 * time.Second,
		WsHandshakeTimeout: 2 * time.Second,
		ReconnectTimeout:   5 * time.Second,
		WriteTimeout:       5 * time.Second,
		ReadTimeout:        30 * time.Second,
		QueueSize:          64,
	}
}

// Client keeps a ViewModel in sync with a server. On every (re)connect it
// subscribes to the push channel first and then fetches the listing, so no
// event between the two is lost. Callbacks run on the Run goroutine.
type Client struct {
	baseURL  *url.URL
	session  Session
	settings *ClientSettings
	logger   *zap.SugaredLogger

	httpClient *http.Client
	dialer     *websocket.Dialer
	vm         *ViewModel

	OnReset  func(list []*posts.Post, s Session)
	OnChange func(c Change, s Session)
}

func NewClient(baseURL string, s Session, settings *ClientSettings, logger *zap.SugaredLogger) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if settings == nil {
		settings = DefaultClientSettings()
	}

	return &Client{
		baseURL:    u,
		session:    s,
		settings:   settings,
		logger:     logger,
		httpClient: &http.Client{Timeout: settings.HttpTimeout},
		dialer:     &websocket.Dialer{HandshakeTimeout: settings.WsHandshakeTimeout},
		vm:         NewViewModel(),
	}, nil
}

// Run blocks until ctx is done, reconnecting after every connection loss.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.connect(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		c.logger.Infow("push connection lost", "error", err, "retry_in", c.settings.ReconnectTimeout)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.settings.ReconnectTimeout):
		}
	}
}

func (c *Client) wsURL() string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += "/ws"
	return u.String()
}

func (c *Client) connect(ctx context.Context) error {
	ws, _, err := c.dialer.DialContext(ctx, c.wsURL(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	handleCtx, handleCancel := context.WithCancel(ctx)
	defer handleCancel()

	go func() {
		<-handleCtx.Done()
		ws.Close()
	}()

	queue := make(chan *broadcast.Event, c.settings.QueueSize)
	readErr := make(chan error, 1)

	ws.SetPingHandler(func(data string) error {
		ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
		err := ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(c.settings.WriteTimeout))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})

	go func() {
		defer close(queue)
		for {
			ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
			e := &broadcast.Event{}
			if err := ws.ReadJSON(e); err != nil {
				readErr <- err
				return
			}

			select {
			case queue <- e:
			case <-handleCtx.Done():
				return
			}
		}
	}()

	list, err := c.fetch(handleCtx)
	if err != nil {
		return err
	}
	c.vm.Load(list)
	if c.OnReset != nil {
		c.OnReset(c.vm.Posts(), c.session)
	}

	for e := range queue {
		change, err := c.vm.Reconcile(e)
		if err != nil {
			c.logger.Warnw("skipping event", "event", e.Kind, "error", err)
			continue
		}
		if change.Kind != Ignored && c.OnChange != nil {
			c.OnChange(change, c.session)
		}
	}

	select {
	case err := <-readErr:
		return err
	default:
		return handleCtx.Err()
	}
}

func (c *Client) fetch(ctx context.Context) ([]*posts.Post, error) {
	u := *c.baseURL
	u.Path += "/posts"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing failed with status %d", resp.StatusCode)
	}

	var list []*posts.Post
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, err
	}
	return list, nil
}
