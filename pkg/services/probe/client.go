package probe

import (
	"net/http"
	"time"

	"github.com/de-tools/deploy-gate/pkg/services/config"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// newClient builds the retrying HTTP client all probes share. Backoff
// is a fixed interval: total probe time stays bounded by
// timeout*(retries+1) + backoff*retries.
func newClient(cfg config.ProbeConfig, logger *zerolog.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.Retries
	client.RetryWaitMin = cfg.Backoff
	client.RetryWaitMax = cfg.Backoff
	client.Backoff = func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
		return min
	}
	client.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	client.Logger = leveledLogger{logger}
	return client
}

// leveledLogger adapts zerolog to retryablehttp's LeveledLogger.
type leveledLogger struct {
	logger *zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}
