package gotify

import (
	"context"
	"strconv"
	"sync"

	logx "gotify2telegram/pkg/logx"
)

type appLister interface {
	Applications(ctx context.Context) ([]Application, error)
}

// AppNames resolves application ids to display names.
//
// A miss refreshes the whole list. Ids the server does not know are cached as
// "unknown app (<id>)"; lookup failures return "app <id>" and are retried on
// the next message.
type AppNames struct {
	src appLister
	log logx.Logger

	mu    sync.Mutex
	names map[int64]string
}

func NewAppNames(src appLister, log logx.Logger) *AppNames {
	return &AppNames{src: src, log: log, names: map[int64]string{}}
}

func (a *AppNames) Name(ctx context.Context, id int64) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n, ok := a.names[id]; ok {
		return n
	}

	apps, err := a.src.Applications(ctx)
	if err != nil {
		a.log.Warn("application lookup failed", logx.Int64("appid", id), logx.Err(err))
		return "app " + strconv.FormatInt(id, 10)
	}
	for _, app := range apps {
		a.names[app.ID] = app.Name
	}
	if n, ok := a.names[id]; ok {
		return n
	}
	n := "unknown app (" + strconv.FormatInt(id, 10) + ")"
	a.names[id] = n
	return n
}

// Forget clears the cache so renamed applications are picked up.
func (a *AppNames) Forget() {
	a.mu.Lock()
	clear(a.names)
	a.mu.Unlock()
}
