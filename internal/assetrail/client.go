package assetrail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/elentis/reconcile/internal/config"
	"github.com/elentis/reconcile/internal/models"
)

const (
	HeaderAppID     = "Appid"
	HeaderSign      = "Sign"
	HeaderTimestamp = "Timestamp"

	successMsg = "success"
)

// Response is the envelope every asset-rail endpoint answers with.
type Response struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Client issues signed POSTs to the asset rail. Only transport timeouts are
// retried; any other failure may already have mutated remote state.
type Client struct {
	cfg   config.AssetRailConfig
	http  *resty.Client
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
	log   *logrus.Entry
}

func NewClient(cfg config.AssetRailConfig) *Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Client{
		cfg: cfg,
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		now:   time.Now,
		sleep: sleepCtx,
		log:   logrus.WithField("component", "assetrail"),
	}
}

// Call signs payload and posts it to endpoint, retrying on timeout up to
// MaxAttempts. A nil error means the rail answered with the success code.
func (c *Client) Call(ctx context.Context, endpoint string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", endpoint, err)
	}

	log := c.log.WithField("endpoint", endpoint)
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		resp, err := c.do(ctx, endpoint, body)
		if err == nil {
			return c.parse(endpoint, resp)
		}
		if !isTimeout(err) || ctx.Err() != nil {
			return nil, pkgerrors.Wrapf(err, "asset rail %s", endpoint)
		}

		lastErr = err
		log.WithFields(logrus.Fields{"attempt": attempt, "max_attempts": c.cfg.MaxAttempts}).
			WithError(err).Warn("asset rail call timed out")

		if attempt < c.cfg.MaxAttempts {
			if err := c.sleep(ctx, c.cfg.Backoff); err != nil {
				return nil, pkgerrors.Wrapf(err, "asset rail %s", endpoint)
			}
		}
	}

	return nil, fmt.Errorf("%w: asset rail %s failed after %d attempts: %v",
		models.ErrTransientNetwork, endpoint, c.cfg.MaxAttempts, lastErr)
}

// do runs one attempt. The timestamp and signature are recomputed per attempt.
func (c *Client) do(ctx context.Context, endpoint string, body []byte) (*resty.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	ts := strconv.FormatInt(c.now().Unix(), 10)
	return c.http.R().
		SetContext(attemptCtx).
		SetHeader(HeaderAppID, c.cfg.AppID).
		SetHeader(HeaderSign, Sign(c.cfg.AppID, c.cfg.AppSecret, ts, body)).
		SetHeader(HeaderTimestamp, ts).
		SetBody(body).
		Post(endpoint)
}

func (c *Client) parse(endpoint string, resp *resty.Response) (*Response, error) {
	var out Response
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &models.RailError{Code: resp.StatusCode(), Msg: "undecodable response"}
	}
	if out.Code != c.cfg.SuccessCode || out.Msg != successMsg {
		c.log.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"code":     out.Code,
			"msg":      out.Msg,
		}).Warn("asset rail rejected request")
		return nil, &models.RailError{Code: out.Code, Msg: out.Msg}
	}
	return &out, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
