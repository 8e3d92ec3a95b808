package main

import (
	"context"
	"fmt"
	"html"
	"time"

	"motodirectory/libs/mailer"
)

func (a *App) sendLoadFailureAlert(ctx context.Context, loadErr error, at time.Time) {
	if len(a.cfg.AlertEmailTo) == 0 || a.mailer == nil {
		return
	}
	result, err := a.mailer.Send(ctx, buildLoadFailureAlert(a.cfg, loadErr, at))
	if err != nil {
		a.log.Error("load failure alert not sent", "err", err)
		return
	}
	a.log.Info("load failure alert sent", "provider", a.mailer.ProviderName(), "message_id", result.ProviderMessageID)
}

func buildLoadFailureAlert(cfg *Config, loadErr error, at time.Time) mailer.Message {
	stamp := at.UTC().Format(time.RFC3339)
	text := fmt.Sprintf(
		"The motorcycle shop directory at %s could not load its data.\n\nSource: %s (%s)\nTime: %s\nError: %v\n\nVisitors see \"Error Loading Data\" until the service is restarted.",
		cfg.PublicBaseURL, cfg.DataSource, cfg.DataPath, stamp, loadErr,
	)
	body := fmt.Sprintf(
		"<p>The motorcycle shop directory at <a href=\"%[1]s\">%[1]s</a> could not load its data.</p>"+
			"<ul><li>Source: %[2]s (%[3]s)</li><li>Time: %[4]s</li><li>Error: <code>%[5]s</code></li></ul>"+
			"<p>Visitors see &ldquo;Error Loading Data&rdquo; until the service is restarted.</p>",
		html.EscapeString(cfg.PublicBaseURL),
		html.EscapeString(cfg.DataSource),
		html.EscapeString(cfg.DataPath),
		stamp,
		html.EscapeString(loadErr.Error()),
	)
	return mailer.Message{
		To:      cfg.AlertEmailTo,
		Subject: fmt.Sprintf("[MotoDirectory] Directory load failed (%s)", cfg.Env),
		HTML:    body,
		Text:    text,
	}
}
