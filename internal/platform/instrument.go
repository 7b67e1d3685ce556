package platform

import (
	"context"
	"time"

	"github.com/imamik/stratus/internal/metrics"
)

// Instrument wraps s so every call is counted and timed under provider.
func Instrument(provider string, s Substrate) Substrate {
	return &instrumented{provider: provider, next: s}
}

type instrumented struct {
	provider string
	next     Substrate
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	metrics.RecordSubstrateCall(i.provider, op, time.Since(start).Seconds(), err)
}

func (i *instrumented) CreateServer(ctx context.Context, spec ServerSpec) (srv *Server, err error) {
	defer func(start time.Time) { i.observe("create_server", start, err) }(time.Now())
	return i.next.CreateServer(ctx, spec)
}

func (i *instrumented) DeleteServer(ctx context.Context, name string) (err error) {
	defer func(start time.Time) { i.observe("delete_server", start, err) }(time.Now())
	return i.next.DeleteServer(ctx, name)
}

func (i *instrumented) GetServer(ctx context.Context, name string) (srv *Server, err error) {
	defer func(start time.Time) { i.observe("get_server", start, err) }(time.Now())
	return i.next.GetServer(ctx, name)
}

func (i *instrumented) ListServers(ctx context.Context, labels map[string]string) (servers []Server, err error) {
	defer func(start time.Time) { i.observe("list_servers", start, err) }(time.Now())
	return i.next.ListServers(ctx, labels)
}
