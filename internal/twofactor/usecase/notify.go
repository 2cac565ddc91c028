package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/shopauth/internal/pkg/mail"
	"github.com/shandysiswandi/shopauth/internal/twofactor/entity"
)

// notify tells the account owner and the rest of the shop about a state
// change. Both run after the response, so failures are only logged.
func (s *Usecase) notify(ctx context.Context, user *entity.User, status entity.Status, at time.Time) {
	ev := entity.TwoFactorEvent{
		EventID:    s.uid.Generate(),
		UserID:     user.ID,
		Email:      user.Email,
		Status:     status.String(),
		OccurredAt: at.UTC(),
	}

	if !s.goroutine.Go(ctx, func(ctx context.Context) error {
		return s.publishEvent(ctx, ev)
	}) {
		slog.WarnContext(ctx, "failed to schedule two-factor event", "user_id", user.ID, "status", ev.Status)
	}

	msg := securityMail(user, status, at)
	if !s.goroutine.Go(ctx, func(ctx context.Context) error {
		if err := s.mail.Send(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "failed to send two-factor security mail", "user_id", user.ID, "error", err)
			return err
		}
		return nil
	}) {
		slog.WarnContext(ctx, "failed to schedule two-factor security mail", "user_id", user.ID)
	}
}

func (s *Usecase) publishEvent(ctx context.Context, ev entity.TwoFactorEvent) error {
	var err error
	if ev.Status == entity.StatusEnabled.String() {
		err = s.repoMessaging.PublishTwoFactorEnabled(ctx, ev)
	} else {
		err = s.repoMessaging.PublishTwoFactorDisabled(ctx, ev)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish two-factor event", "user_id", ev.UserID, "status", ev.Status, "error", err)
	}
	return err
}

func securityMail(user *entity.User, status entity.Status, at time.Time) mail.Message {
	name := user.FullName
	if name == "" {
		name = user.Email
	}

	subject := "Two-factor authentication enabled"
	action := "turned on"
	if status == entity.StatusDisabled {
		subject = "Two-factor authentication disabled"
		action = "turned off"
	}

	text := fmt.Sprintf(
		"Hi %s,\n\nTwo-factor authentication was %s for your account on %s.\n"+
			"If this was not you, change your password and contact support right away.\n",
		name, action, at.UTC().Format(time.RFC1123),
	)

	return mail.Message{
		To:       []string{user.Email},
		Subject:  subject,
		TextBody: text,
	}
}
