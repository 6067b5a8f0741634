package directory

import (
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/hdsview/pkg/config"
	"github.com/DeBrosOfficial/hdsview/pkg/metrics"
	"github.com/DeBrosOfficial/hdsview/pkg/proxy"
	"github.com/DeBrosOfficial/hdsview/pkg/tlsutil"
)

// Factory creates clients that share transport options. Its Dial method is
// the dialer handed to the session machine.
type Factory struct {
	opts   Options
	logger *zap.Logger
}

// NewFactory returns a Factory.
func NewFactory(opts Options, logger *zap.Logger) *Factory {
	return &Factory{opts: opts, logger: logger}
}

// Dial normalizes address and returns a client bound to it.
func (f *Factory) Dial(address string) (DirectoryClient, error) {
	return Dial(address, f.opts, f.logger)
}

// OptionsFromConfig builds client options from the shared config.
func OptionsFromConfig(cfg *config.Config, reg *metrics.Registry) (Options, error) {
	trust, err := tlsutil.New(tlsutil.Options{
		TrustedDomains: cfg.Transport.TrustedDomains,
		CACertPath:     cfg.Transport.CACertPath,
	})
	if err != nil {
		return Options{}, err
	}

	return Options{
		Timeout:      cfg.Directory.RequestTimeout,
		AllowExpired: !cfg.Directory.Paranoid,
		UserAgent:    cfg.Directory.UserAgent,
		Trust:        trust,
		Proxy:        proxy.New(cfg.Transport.ProxyAddr, cfg.Transport.ProxyEnabled),
		Metrics:      reg,
	}, nil
}
