package temporal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockScheduler is a mock implementation of Scheduler for testing.
type MockScheduler struct {
	mu        sync.Mutex
	schedules map[string]time.Duration // map[scheduleID]interval
	ensureErr error
	deleteErr error
}

// NewMockScheduler creates a new MockScheduler.
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{
		schedules: make(map[string]time.Duration),
	}
}

// EnsureSweepSchedule records that the sweep schedule exists.
func (m *MockScheduler) EnsureSweepSchedule(ctx context.Context, interval time.Duration) error {
	if m.ensureErr != nil {
		return m.ensureErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.schedules[sweepScheduleID] = interval // Creates or updates
	return nil
}

// DeleteSweepSchedule records that the sweep schedule was deleted.
func (m *MockScheduler) DeleteSweepSchedule(ctx context.Context) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.schedules[sweepScheduleID]; !exists {
		return fmt.Errorf("schedule %q not found", sweepScheduleID)
	}

	delete(m.schedules, sweepScheduleID)
	return nil
}

// SetEnsureError makes EnsureSweepSchedule return an error.
func (m *MockScheduler) SetEnsureError(err error) {
	m.ensureErr = err
}

// SetDeleteError makes DeleteSweepSchedule return an error.
func (m *MockScheduler) SetDeleteError(err error) {
	m.deleteErr = err
}

// ScheduleExists checks if the sweep schedule exists.
func (m *MockScheduler) ScheduleExists() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.schedules[sweepScheduleID]
	return exists
}

// GetScheduleInterval returns the sweep schedule interval.
func (m *MockScheduler) GetScheduleInterval() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	interval, exists := m.schedules[sweepScheduleID]
	return interval, exists
}

// Reset clears the schedule and errors.
func (m *MockScheduler) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules = make(map[string]time.Duration)
	m.ensureErr = nil
	m.deleteErr = nil
}
