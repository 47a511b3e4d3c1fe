package services

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// CronService manages the scheduled background jobs: daily and monthly
// analytics aggregation, hourly OTP cleanup and the nightly counter recount.
// Every job is an idempotent upsert or a bounded delete, so a double fire is
// harmless; a job that fails mid-way logs and exits, keeping whatever
// batches already committed, and is retried at the next tick.
type CronService struct {
	cron           *cron.Cron
	analytics      *AnalyticsService
	recovery       *RecoveryService
	rateLimits     *RateLimitService
	reconciliation *ReconciliationService
}

// NewCronService creates a new CronService
func NewCronService(
	analytics *AnalyticsService,
	recovery *RecoveryService,
	rateLimits *RateLimitService,
	reconciliation *ReconciliationService,
) *CronService {
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:           c,
		analytics:      analytics,
		recovery:       recovery,
		rateLimits:     rateLimits,
		reconciliation: reconciliation,
	}
}

// Start schedules and starts all cron jobs
func (s *CronService) Start() error {
	log.Println("Starting cron service...")

	// Daily analytics for the previous calendar day, shortly after midnight
	_, err := s.cron.AddFunc("0 10 0 * * *", s.dailyAnalyticsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule daily analytics job: %w", err)
	}
	log.Println("Scheduled: Daily analytics snapshot (00:10)")

	// Monthly analytics for the previous month, on the 1st
	_, err = s.cron.AddFunc("0 40 0 1 * *", s.monthlyAnalyticsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule monthly analytics job: %w", err)
	}
	log.Println("Scheduled: Monthly analytics snapshot (1st, 00:40)")

	// Hourly cleanup of expired OTP challenges and stale attempt records
	_, err = s.cron.AddFunc("0 0 * * * *", s.cleanupJob)
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup job: %w", err)
	}
	log.Println("Scheduled: Expired OTP cleanup (hourly)")

	// Nightly full recount heals category counter drift
	_, err = s.cron.AddFunc("0 0 1 * * *", s.reconciliationJob)
	if err != nil {
		return fmt.Errorf("failed to schedule reconciliation job: %w", err)
	}
	log.Println("Scheduled: Category counter recount (01:00)")

	s.cron.Start()
	log.Println("Cron service started")

	return nil
}

// Stop stops all cron jobs
func (s *CronService) Stop() {
	log.Println("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Cron service stopped")
}

// dailyAnalyticsJob aggregates the previous calendar day
func (s *CronService) dailyAnalyticsJob() {
	log.Println("[CRON] Starting daily analytics job...")
	startTime := time.Now()

	day := time.Now().AddDate(0, 0, -1)
	snap, err := s.analytics.RunDaily(day)
	if err != nil {
		log.Printf("[CRON ERROR] Daily analytics failed: %v\n", err)
		return
	}

	log.Printf("[CRON] Daily snapshot %s written in %v\n", snap.Period, time.Since(startTime))
}

// monthlyAnalyticsJob aggregates the previous month
func (s *CronService) monthlyAnalyticsJob() {
	log.Println("[CRON] Starting monthly analytics job...")
	startTime := time.Now()

	month := time.Now().AddDate(0, -1, 0)
	snap, err := s.analytics.RunMonthly(month)
	if err != nil {
		log.Printf("[CRON ERROR] Monthly analytics failed: %v\n", err)
		return
	}
	if snap == nil {
		log.Println("[CRON] No daily snapshots for the month, nothing to aggregate")
		return
	}

	log.Printf("[CRON] Monthly snapshot %s written in %v\n", snap.Period, time.Since(startTime))
}

// cleanupJob clears expired OTP challenges and old failed-attempt rows
func (s *CronService) cleanupJob() {
	log.Println("[CRON] Starting OTP cleanup job...")
	startTime := time.Now()

	challenges, err := s.recovery.CleanupExpiredChallenges()
	if err != nil {
		log.Printf("[CRON ERROR] Challenge cleanup failed: %v\n", err)
		return
	}

	attempts, err := s.rateLimits.CleanupExpired()
	if err != nil {
		log.Printf("[CRON ERROR] Attempt cleanup failed: %v\n", err)
		return
	}

	log.Printf("[CRON] Removed %d challenges and %d attempt records in %v\n",
		challenges, attempts, time.Since(startTime))
}

// reconciliationJob recounts the category counters from source records
func (s *CronService) reconciliationJob() {
	log.Println("[CRON] Starting category recount job...")
	startTime := time.Now()

	rewritten, err := s.reconciliation.RecountCategories()
	if err != nil {
		log.Printf("[CRON ERROR] Category recount failed: %v\n", err)
		return
	}

	log.Printf("[CRON] Rewrote %d category counters in %v\n", rewritten, time.Since(startTime))
}

// RunDailyNow runs the daily analytics job immediately (manual trigger)
func (s *CronService) RunDailyNow() {
	log.Println("[MANUAL] Running daily analytics now...")
	s.dailyAnalyticsJob()
}

// RunMonthlyNow runs the monthly analytics job immediately (manual trigger)
func (s *CronService) RunMonthlyNow() {
	log.Println("[MANUAL] Running monthly analytics now...")
	s.monthlyAnalyticsJob()
}

// RunReconciliationNow runs the recount job immediately (manual trigger)
func (s *CronService) RunReconciliationNow() {
	log.Println("[MANUAL] Running category recount now...")
	s.reconciliationJob()
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
