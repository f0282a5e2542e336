package scheduled

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/instabrain/core/internal/config"
	"github.com/instabrain/core/internal/scheduler"
)

// Register wires every scheduled pipeline into reg under the job ids
// internal/httpserver's admin control surface expects: engagement_monitor,
// content_scheduler, ugc_discovery, weekly_attribution_learning,
// analytics_reports. The heartbeat sender also registers, under its own id,
// but isn't part of that admin-controllable set — it has no approval or
// pause/resume semantics worth exposing.
func Register(reg *scheduler.Registry, d Deps, cfg config.Config) error {
	reg.Register("engagement_monitor", scheduler.IntervalTrigger{Interval: cfg.EngagementMonitorInterval}, func(ctx context.Context) error {
		return RunEngagementMonitor(ctx, d)
	})

	contentTrigger, err := contentScheduleTrigger(cfg.ContentScheduleTimes)
	if err != nil {
		return fmt.Errorf("op=scheduled.register content_scheduler: %w", err)
	}
	reg.Register("content_scheduler", contentTrigger, func(ctx context.Context) error {
		return RunContentScheduler(ctx, d)
	})

	reg.Register("ugc_discovery", scheduler.IntervalTrigger{Interval: cfg.UGCDiscoveryInterval}, func(ctx context.Context) error {
		return RunUGCDiscovery(ctx, d)
	})

	if cfg.WeeklyLearningEnabled {
		weeklyTrigger, err := scheduler.NewCronTrigger(fmt.Sprintf("0 %d * * %d", cfg.WeeklyLearningHour, cfg.WeeklyLearningDayOfWeek))
		if err != nil {
			return fmt.Errorf("op=scheduled.register weekly_attribution_learning: %w", err)
		}
		reg.Register("weekly_attribution_learning", weeklyTrigger, func(ctx context.Context) error {
			return RunWeeklyAttributionLearning(ctx, d)
		})
	} else {
		slog.Info("weekly attribution learning disabled, not registering")
	}

	if cfg.AnalyticsReportsEnabled {
		const analyticsWeeklyDayOfWeek = 1 // Monday
		const analyticsWeeklyHour = 3
		dailyTrigger, err := scheduler.NewCronTrigger("0 2 * * *")
		if err != nil {
			return fmt.Errorf("op=scheduled.register analytics_reports daily: %w", err)
		}
		weeklyTrigger, err := scheduler.NewCronTrigger(fmt.Sprintf("0 %d * * %d", analyticsWeeklyHour, analyticsWeeklyDayOfWeek))
		if err != nil {
			return fmt.Errorf("op=scheduled.register analytics_reports weekly: %w", err)
		}
		reg.Register("analytics_reports", scheduler.MultiTrigger{Triggers: []scheduler.Trigger{dailyTrigger, weeklyTrigger}}, func(ctx context.Context) error {
			now := time.Now()
			if int(now.Weekday()) == analyticsWeeklyDayOfWeek && now.Hour() == analyticsWeeklyHour {
				return RunAnalyticsReportWeekly(ctx, d)
			}
			return RunAnalyticsReport(ctx, d)
		})
	} else {
		slog.Info("analytics reports disabled, not registering")
	}

	reg.Register("heartbeat", scheduler.IntervalTrigger{Interval: cfg.HeartbeatInterval}, func(ctx context.Context) error {
		return RunHeartbeat(ctx, d)
	})

	return nil
}

// contentScheduleTrigger builds one cron leg per "HH:MM" entry and composes
// them under a single MultiTrigger, since the registry allows only one
// trigger per job id but the spec wants several fixed daily posting times.
func contentScheduleTrigger(times []string) (scheduler.Trigger, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("no content schedule times configured")
	}
	triggers := make([]scheduler.Trigger, 0, len(times))
	for _, t := range times {
		parts := strings.SplitN(t, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid content schedule time %q", t)
		}
		hour, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid content schedule hour in %q: %w", t, err)
		}
		minute, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid content schedule minute in %q: %w", t, err)
		}
		trig, err := scheduler.NewCronTrigger(fmt.Sprintf("%d %d * * *", minute, hour))
		if err != nil {
			return nil, fmt.Errorf("op=scheduled.content_schedule_trigger: %w", err)
		}
		triggers = append(triggers, trig)
	}
	return scheduler.MultiTrigger{Triggers: triggers}, nil
}
