package pipeline

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"archesprep/internal/config"
	"archesprep/internal/datasource"
	"archesprep/internal/datasource/file"
	"archesprep/internal/datasource/httpds"
)

// locations resolves the paths and URLs named in a pipeline file. The HTTP
// client is only built when a URL is actually opened.
type locations struct {
	cfg    config.HTTP
	log    *zap.Logger
	client *httpds.Client
}

func newLocations(cfg config.HTTP, log *zap.Logger) *locations {
	return &locations{cfg: cfg, log: log}
}

func (l *locations) source(loc string) datasource.Source {
	if !httpds.IsURL(loc) {
		return file.NewLocal(loc)
	}
	if l.client == nil {
		h := make(http.Header, len(l.cfg.Headers))
		for k, v := range l.cfg.Headers {
			h.Set(k, v)
		}
		l.client = httpds.NewClient(httpds.Config{
			Timeout:            time.Duration(l.cfg.TimeoutSeconds) * time.Second,
			MaxRetries:         l.cfg.MaxRetries,
			InsecureSkipVerify: l.cfg.InsecureSkipVerify,
			Headers:            h,
			Logger:             l.log,
		})
	}
	return httpds.NewSource(l.client, loc)
}

func (l *locations) open(ctx context.Context, loc string) (io.ReadCloser, error) {
	return l.source(loc).Open(ctx)
}
