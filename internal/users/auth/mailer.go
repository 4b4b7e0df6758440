// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
)

// Mailer delivers authentication emails.
type Mailer interface {
	SendMagicLink(ctx context.Context, email, link string) error
	SendWelcome(ctx context.Context, email, name string) error
}

// LogMailer writes emails to the log instead of sending them.
//
// The sign-in link is a credential, so it is only logged at debug level.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (mailer *LogMailer) SendMagicLink(ctx context.Context, email, link string) error {
	mailer.logger.InfoContext(ctx, "magic_link_sent", slog.String("email", email))
	mailer.logger.DebugContext(ctx, "magic_link_url", slog.String("email", email), slog.String("url", link))
	return nil
}

func (mailer *LogMailer) SendWelcome(ctx context.Context, email, name string) error {
	mailer.logger.InfoContext(ctx, "welcome_email_sent", slog.String("email", email), slog.String("name", name))
	return nil
}
