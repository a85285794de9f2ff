package app

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/law-makers/jobcrawl/internal/auth"
	"github.com/law-makers/jobcrawl/internal/config"
	"github.com/law-makers/jobcrawl/internal/engine"
	"github.com/law-makers/jobcrawl/internal/engine/dynamic"
	"github.com/law-makers/jobcrawl/internal/engine/static"
)

// loadOperatorSession returns the configured operator session, or nil when
// none is configured.
func (a *Application) loadOperatorSession() (*auth.SessionData, error) {
	name := a.Config.SessionName
	if name == "" {
		return nil, nil
	}
	data, err := a.Sessions.Load(name)
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeSessionError, "failed to load operator session "+name,
			fmt.Errorf("%w: %v", engine.ErrSessionNotFound, err))
	}
	return data, nil
}

// OpenSession starts the configured engine. proxyURL is the proxy the session
// uses, so the caller can report its health after the run.
func (a *Application) OpenSession(ctx context.Context, logger zerolog.Logger) (s engine.Session, proxyURL string, err error) {
	cfg := a.Config
	op, err := a.loadOperatorSession()
	if err != nil {
		return nil, "", err
	}
	proxyURL = a.Proxies.GetNext()

	switch cfg.Engine {
	case config.EngineHTTP:
		s, err = a.openHTTP(proxyURL, op, logger)
	default:
		s, err = dynamic.NewSession(ctx, dynamic.Options{
			Headless:  cfg.Headless,
			ExecPath:  cfg.ChromePath,
			Proxy:     proxyURL,
			UserAgent: cfg.UserAgent,
			Headers:   cfg.Headers,
			Session:   op,
			Timeout:   cfg.Timeout,
			Logger:    logger.With().Str("component", "browser").Logger(),
		})
	}
	if err != nil {
		if proxyURL != "" {
			a.Proxies.MarkFailed(proxyURL)
		}
		return nil, proxyURL, err
	}
	return s, proxyURL, nil
}

func (a *Application) openHTTP(proxyURL string, op *auth.SessionData, logger zerolog.Logger) (engine.Session, error) {
	cfg := a.Config
	client := &http.Client{Timeout: cfg.Timeout}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, engine.NewEngineError(engine.ErrCodeValidation, "invalid proxy "+proxyURL, err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(u)}
	}

	headers := map[string]string{"Accept-Language": engine.AcceptLanguage}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	loader, err := static.NewHTTPLoader(static.HTTPOptions{
		Client:    client,
		UserAgent: cfg.UserAgent,
		Headers:   headers,
		Timeout:   cfg.Timeout,
		Session:   op,
	})
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeSessionError, "failed to prepare HTTP session",
			fmt.Errorf("%w: %v", engine.ErrSessionStart, err))
	}
	var l static.Loader = loader
	if a.PageCache != nil {
		l = static.NewCachedLoader(loader, a.PageCache, 0)
	}
	return static.New(l, static.WithLogger(logger)), nil
}
