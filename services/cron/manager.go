package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/squadran/squadran-api/database"
)

// CronManager manages all scheduled maintenance jobs
type CronManager struct {
	cron  *cron.Cron
	store database.Storage
}

// NewCronManager creates a new cron manager
func NewCronManager(store database.Storage) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:  c,
		store: store,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// Every 30 minutes: repair like counters that drifted from likedBy
	_, err := m.cron.AddFunc("0 */30 * * * *", func() {
		m.logJobStart("reconcile_like_counts")
		m.ReconcileLikeCounts()
	})
	if err != nil {
		return err
	}

	// Daily at 03:00: sweep data left behind by interrupted tenant deletes
	_, err = m.cron.AddFunc("0 0 3 * * *", func() {
		m.logJobStart("sweep_orphaned_tenant_data")
		m.SweepOrphanedTenantData()
	})
	if err != nil {
		return err
	}

	return nil
}

func (m *CronManager) logJobStart(name string) {
	log.Printf("[CRON] %s started at %s", name, time.Now().Format(time.RFC3339))
}

func (m *CronManager) logJobComplete(name, detail string) {
	log.Printf("[CRON] %s complete: %s", name, detail)
}

func (m *CronManager) logJobError(name string, err error) {
	log.Printf("[CRON] %s failed: %v", name, err)
}
