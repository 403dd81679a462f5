package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/squadran/squadran-api/database"
	"github.com/squadran/squadran-api/model"
)

// ReconcileLikeCounts repairs posts whose likes counter drifted from the
// likedBy membership list. The toggle path keeps them in lockstep, so drift
// only appears after manual edits or partial imports.
func (m *CronManager) ReconcileLikeCounts() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "reconcile_like_counts"

	var posts []model.Post
	if err := m.store.List(ctx, database.CollectionPosts, &posts); err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to list posts: %w", err))
		return
	}

	repaired := 0
	for _, p := range posts {
		if p.Likes == len(p.LikedBy) {
			continue
		}
		err := m.store.Mutate(ctx, database.CollectionPosts, p.ID, func(raw []byte) (interface{}, error) {
			var post model.Post
			if err := json.Unmarshal(raw, &post); err != nil {
				return nil, err
			}
			post.Likes = len(post.LikedBy)
			return post, nil
		})
		if err != nil {
			m.logJobError(jobName, fmt.Errorf("failed to repair post %s: %w", p.ID, err))
			continue
		}
		repaired++
	}

	m.logJobComplete(jobName, fmt.Sprintf("%d posts repaired", repaired))
}

// SweepOrphanedTenantData deletes users, accounts and posts whose
// institution no longer exists, finishing any cascade a crash interrupted.
func (m *CronManager) SweepOrphanedTenantData() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	jobName := "sweep_orphaned_tenant_data"

	var institutions []model.Institution
	if err := m.store.List(ctx, database.CollectionInstitutions, &institutions); err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to list institutions: %w", err))
		return
	}
	alive := make(map[string]struct{}, len(institutions)+1)
	for _, inst := range institutions {
		alive[inst.ID] = struct{}{}
	}
	// The operator tenant has no institution document.
	alive["squadran"] = struct{}{}

	removed := 0

	var users []model.UserProfile
	if err := m.store.List(ctx, database.CollectionUsers, &users); err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to list users: %w", err))
		return
	}
	for _, u := range users {
		if _, ok := alive[u.InstitutionID]; ok {
			continue
		}
		if err := m.store.Delete(ctx, database.CollectionUsers, u.UID); err != nil {
			m.logJobError(jobName, fmt.Errorf("failed to delete user %s: %w", u.UID, err))
			continue
		}
		if err := m.store.Delete(ctx, database.CollectionAccounts, u.UID); err != nil && !errors.Is(err, database.ErrNotFound) {
			m.logJobError(jobName, fmt.Errorf("failed to delete account %s: %w", u.UID, err))
		}
		removed++
	}

	var posts []model.Post
	if err := m.store.List(ctx, database.CollectionPosts, &posts); err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to list posts: %w", err))
		return
	}
	for _, p := range posts {
		if _, ok := alive[p.InstitutionID]; ok {
			continue
		}
		if err := m.store.Delete(ctx, database.CollectionPosts, p.ID); err != nil {
			m.logJobError(jobName, fmt.Errorf("failed to delete post %s: %w", p.ID, err))
			continue
		}
		removed++
	}

	m.logJobComplete(jobName, fmt.Sprintf("%d orphaned documents removed", removed))
}
