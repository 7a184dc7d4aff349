// Package jobs runs the scheduled housekeeping of the service.
package jobs

import (
	"github.com/robfig/cron/v3"

	"github.com/propertydeck/leadsync/pkg/logger"
	"github.com/propertydeck/leadsync/pkg/metrics"
	"github.com/propertydeck/leadsync/pkg/session"
)

// CronManager manages scheduled jobs
type CronManager struct {
	cron     *cron.Cron
	sessions *session.Manager
	metrics  *metrics.Metrics
	log      logger.Logger
}

// NewCronManager creates a new cron manager
func NewCronManager(sessions *session.Manager, m *metrics.Metrics, log logger.Logger) *CronManager {
	return &CronManager{
		cron:     cron.New(),
		sessions: sessions,
		metrics:  m,
		log:      log,
	}
}

// SetupJobs configures all scheduled jobs
func (cm *CronManager) SetupJobs() error {
	// Every 5 minutes: drop operator sessions idle past the TTL
	_, err := cm.cron.AddFunc("*/5 * * * *", func() {
		removed := cm.sessions.Sweep()
		if removed > 0 {
			cm.log.Info("session sweep completed", "removed", removed)
		}
		if cm.metrics != nil {
			cm.metrics.UpdateActiveSessions(cm.sessions.Active())
		}
	})
	return err
}

// Start begins executing scheduled jobs
func (cm *CronManager) Start() {
	cm.cron.Start()
	cm.log.Info("cron jobs started")
}

// Stop stops the cron scheduler
func (cm *CronManager) Stop() {
	cm.cron.Stop()
	cm.log.Info("cron jobs stopped")
}
