package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Sselimkoc/feedTune-sub004/internal/database"
	"github.com/Sselimkoc/feedTune-sub004/internal/feed"
	"github.com/robfig/cron/v3"
)

const (
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0

	refreshAllTimeout = 15 * time.Minute
)

// Notifier delivers the new items of a refresh pass to a user chat.
type Notifier interface {
	SendNewItems(ctx context.Context, chatID int64, results []feed.RefreshResult) error
}

type Scheduler struct {
	ctx      context.Context
	cron     *cron.Cron
	db       *database.Database
	svc      *feed.Service
	notifier Notifier
	spec     string
	log      *slog.Logger
}

func New(
	ctx context.Context,
	db *database.Database,
	svc *feed.Service,
	notifier Notifier,
	spec string,
	log *slog.Logger,
) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:      ctx,
		cron:     c,
		db:       db,
		svc:      svc,
		notifier: notifier,
		spec:     spec,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.refreshAll); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) refreshAll() {
	ctx, cancel := context.WithTimeout(s.ctx, refreshAllTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	results, err := s.svc.RefreshAll(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Refresh pass finished with errors",
			"error", err,
			"refreshedFeeds", len(results))
	}

	if s.notifier == nil {
		return
	}

	userResults := make(map[int64][]feed.RefreshResult)
	for _, result := range results {
		if result.NewCount == 0 {
			continue
		}

		userResults[result.Feed.UserID] = append(userResults[result.Feed.UserID], result)
	}

	for userID, rs := range userResults {
		user, userErr := s.db.GetUserByID(ctx, userID)
		if userErr != nil {
			s.log.ErrorContext(ctx, "Failed to fetch user for notification",
				"error", userErr,
				"userID", userID)
			continue
		}

		if user.TelegramChatID == nil {
			continue
		}

		if err = s.notifier.SendNewItems(ctx, *user.TelegramChatID, rs); err != nil {
			s.log.ErrorContext(ctx, "Failed to send new items",
				"error", err,
				"userID", userID,
				"feedCount", len(rs))
		}
	}
}
