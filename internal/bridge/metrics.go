package bridge

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/swarmdeck/core/internal/logging"
)

const metricsPeriod = 5 * time.Second

// metricsLoop runs a fixed set of aggregation queries every
// metricsPeriod and broadcasts one metric.update event on the metrics
// channel. Metrics events are fire-and-forget, never tracked for
// at-least-once delivery.
func (b *Bridge) metricsLoop() {
	defer b.wg.Done()
	log := logging.WithComponent("bridge.metrics")
	ticker := time.NewTicker(metricsPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.publishMetrics(log)
		}
	}
}

// publishMetrics computes the fixed aggregate set (active sessions,
// active agents, running and blocked subtasks, unread messages, actions
// in the last hour and the derived actions-per-minute) and broadcasts it
// as a metric.update event on the metrics channel. It does not report
// pending tasks, a recent-hour message count or an average task duration.
func (b *Bridge) publishMetrics(log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	global, err := b.store.GetGlobalStats(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to compute global stats for metrics loop")
		return
	}
	kpis, err := b.store.GetDashboardKPIs(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to compute dashboard KPIs for metrics loop")
		return
	}

	data := map[string]any{
		"active_sessions":    global.ActiveSessions,
		"active_agents":      kpis.ActiveAgents,
		"running_subtasks":   kpis.RunningSubtasks,
		"blocked_subtasks":   kpis.BlockedSubtasks,
		"unread_messages":    kpis.UnreadMessages,
		"actions_last_hour":  kpis.ActionsLastHour,
		"actions_per_minute": float64(kpis.ActionsLastHour) / 60.0,
	}

	b.dispatchLocal("metric.update", []string{metricsChannel}, data)
}
