package application

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/zhouzirui/job-voice/backend/internal/apperr"
	"github.com/zhouzirui/job-voice/backend/internal/model/job"
	"github.com/zhouzirui/job-voice/backend/internal/store"
)

// SeedJobs writes catalog entries and indexes them in the all-jobs set.
func (m *Manager) SeedJobs(ctx context.Context, jobs []job.Job) error {
	for _, j := range jobs {
		if err := m.store.HSet(ctx, store.JobKey(j.ID), j.ToHash()); err != nil {
			return unavailable(err)
		}
		if err := m.store.SAdd(ctx, store.AllJobsKey, j.ID); err != nil {
			return unavailable(err)
		}
		m.cacheJob(j)
	}
	m.logger.Info("seeded jobs", zap.Int("count", len(jobs)))
	return nil
}

// GetJob reads through the in-process cache; jobs never change once stored.
func (m *Manager) GetJob(ctx context.Context, jobID string) (job.Job, error) {
	m.jobsMu.RLock()
	j, ok := m.jobs[jobID]
	m.jobsMu.RUnlock()
	if ok {
		return j, nil
	}

	row, err := m.store.HGetAll(ctx, store.JobKey(jobID))
	if err != nil {
		return job.Job{}, unavailable(err)
	}
	if len(row) == 0 {
		return job.Job{}, apperr.NotFound("job not found: "+jobID, store.ErrNotFound)
	}
	j = job.FromHash(row)
	if j.ID == "" {
		j.ID = jobID
	}
	m.cacheJob(j)
	return j, nil
}

func (m *Manager) cacheJob(j job.Job) {
	m.jobsMu.Lock()
	m.jobs[j.ID] = j
	m.jobsMu.Unlock()
}

// ListJobs returns the catalog newest first.
func (m *Manager) ListJobs(ctx context.Context) ([]job.Job, error) {
	ids, err := m.store.SMembers(ctx, store.AllJobsKey)
	if err != nil {
		return nil, unavailable(err)
	}

	jobs := make([]job.Job, 0, len(ids))
	for _, id := range ids {
		j, err := m.GetJob(ctx, id)
		if apperr.Is(err, apperr.ErrTypeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool {
		if jobs[i].PostedDate != jobs[k].PostedDate {
			return jobs[i].PostedDate > jobs[k].PostedDate
		}
		return jobs[i].ID < jobs[k].ID
	})
	return jobs, nil
}
