// Package remote issues fire-and-forget RPCs. Failures are logged and reported, never returned.
package remote

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ghlove/clientcore/internal/logging"
	"github.com/ghlove/clientcore/internal/report"
)

// Executor runs a statement. *pgxpool.Pool satisfies it.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PushToken identifies a device that can receive push notifications.
type PushToken struct {
	UserID     string `json:"-"`
	Token      string `json:"token" validate:"required,max=512"`
	Platform   string `json:"platform" validate:"required,oneof=ios android web"`
	DeviceID   string `json:"device_id" validate:"omitempty,max=128"`
	AppVersion string `json:"app_version" validate:"omitempty,max=32"`
}

// ProfileSignal records engagement of one profile with another. Nil flags leave the stored value
// untouched.
type ProfileSignal struct {
	ProfileID           string `json:"-"`
	TargetProfileID     string `json:"target_profile_id" validate:"required"`
	OpenedDelta         int    `json:"opened_delta" validate:"gte=0"`
	Liked               *bool  `json:"liked"`
	IntroVideoStarted   *bool  `json:"intro_video_started"`
	IntroVideoCompleted *bool  `json:"intro_video_completed"`
	DwellDelta          int    `json:"dwell_delta" validate:"gte=0"`
}

// Client calls the remote functions.
type Client struct {
	db       Executor
	logger   *slog.Logger
	reporter report.Reporter
}

// NewClient builds a Client. A nil reporter discards failures after logging them.
func NewClient(db Executor, logger *slog.Logger, reporter report.Reporter) *Client {
	if reporter == nil {
		reporter = report.Nop{}
	}
	return &Client{db: db, logger: logging.Component(logger, "remote"), reporter: reporter}
}

const upsertPushToken = `SELECT upsert_push_token($1, $2, $3, $4, $5)`

// RegisterPushToken upserts the device token for a user. It does nothing without a user or token.
func (c *Client) RegisterPushToken(ctx context.Context, t PushToken) {
	if t.UserID == "" || t.Token == "" {
		return
	}
	_, err := c.db.Exec(ctx, upsertPushToken, t.UserID, t.Token, t.Platform, nullable(t.DeviceID), nullable(t.AppVersion))
	if err != nil {
		c.fail(ctx, "upsert_push_token", t.UserID, err)
		return
	}
	c.logger.Debug("push token registered", slog.String("user_id", t.UserID), slog.String("platform", t.Platform))
}

const upsertProfileSignal = `SELECT rpc_upsert_profile_signal(
        p_profile_id => $1, p_target_profile_id => $2, p_opened_delta => $3, p_liked => $4,
        p_intro_video_started => $5, p_intro_video_completed => $6, p_dwell_delta => $7)`

// RecordProfileSignal upserts an engagement signal. It is a no-op when either id is empty or
// both ids are the same.
func (c *Client) RecordProfileSignal(ctx context.Context, s ProfileSignal) {
	if s.ProfileID == "" || s.TargetProfileID == "" || s.ProfileID == s.TargetProfileID {
		return
	}
	_, err := c.db.Exec(ctx, upsertProfileSignal,
		s.ProfileID, s.TargetProfileID, s.OpenedDelta, s.Liked,
		s.IntroVideoStarted, s.IntroVideoCompleted, s.DwellDelta)
	if err != nil {
		c.fail(ctx, "rpc_upsert_profile_signal", s.ProfileID, err)
	}
}

func (c *Client) fail(ctx context.Context, op, id string, err error) {
	c.logger.Warn("rpc failed", slog.String("rpc", op), slog.Any("error", err))
	c.reporter.Report(ctx, report.Failure{Component: "remote", Operation: op, UserID: id, Err: err})
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Discard is an Executor for environments without a database. Every call succeeds.
type Discard struct{}

// Exec implements Executor.
func (Discard) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
