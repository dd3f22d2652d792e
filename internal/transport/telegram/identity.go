package telegram

import (
	"context"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Identity is what getMe reports about the bot.
type Identity struct {
	ID        int64
	FirstName string
	Username  string
}

// Identifier checks reachability of the Bot API with getMe.
type Identifier struct {
	baseURL string
	token   string
	timeout time.Duration
	proxy   string
}

// NewIdentifier shares the client's endpoint and proxy.
// The timeout bounds the whole getMe round trip.
func NewIdentifier(c *Client, proxyURL string, timeout time.Duration) *Identifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Identifier{baseURL: c.BaseURL(), token: c.Token(), timeout: timeout, proxy: proxyURL}
}

// Identify performs getMe. telebot's bootstrap performs the call when the
// bot is not built offline, so a successful NewBot means the API answered.
func (i *Identifier) Identify(ctx context.Context) (Identity, error) {
	hc, err := NewHTTPClient(i.proxy, i.timeout)
	if err != nil {
		return Identity{}, err
	}

	type result struct {
		bot *tele.Bot
		err error
	}
	ch := make(chan result, 1)
	go func() {
		b, err := tele.NewBot(tele.Settings{
			URL:    i.baseURL,
			Token:  i.token,
			Client: hc,
		})
		ch <- result{bot: b, err: err}
	}()

	select {
	case <-ctx.Done():
		hc.CloseIdleConnections()
		return Identity{}, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return Identity{}, redactToken(r.err, i.token)
		}
		if r.bot == nil || r.bot.Me == nil {
			return Identity{}, ErrBadResponse
		}
		return Identity{ID: r.bot.Me.ID, FirstName: r.bot.Me.FirstName, Username: r.bot.Me.Username}, nil
	}
}
