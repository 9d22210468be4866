package cache

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/taskbridge-backend/internal/goroutine"
	"github.com/ignatzorin/taskbridge-backend/internal/logger"
	"github.com/ignatzorin/taskbridge-backend/internal/models"
)

// MutationKind identifies a committed write for invalidation planning.
type MutationKind string

const (
	MutationProjectCreated       MutationKind = "project_created"
	MutationProjectUpdated       MutationKind = "project_updated"
	MutationProjectStatusChanged MutationKind = "project_status_changed"
	MutationApplicationCreated   MutationKind = "application_created"
	MutationApplicationDecided   MutationKind = "application_decided"
	MutationRatingRecorded       MutationKind = "rating_recorded"
	MutationMeetingChanged       MutationKind = "meeting_changed"
	MutationProfileUpdated       MutationKind = "profile_updated"
	MutationUserModerated        MutationKind = "user_moderated"
)

// Mutation carries the identifiers a committed write touched.
// Only the fields relevant to the Kind need to be set; enumerators
// skip nil identifiers.
type Mutation struct {
	Kind          MutationKind
	ProjectID     uuid.UUID
	ClientID      uuid.UUID
	FreelancerID  *uuid.UUID
	ApplicationID *uuid.UUID
	RatedID       *uuid.UUID
	UserID        *uuid.UUID
	OldStatus     string
	NewStatus     string
	// SiblingFreelancerIDs are the authors of applications rejected as a
	// batch side effect of an approval. Their list views are stale too.
	SiblingFreelancerIDs []uuid.UUID
}

// enumerator produces one slice of the stale-key set for a mutation.
type enumerator func(m Mutation, g PageGrid) []string

// plans is the declarative mutation-kind -> key-builders table.
// The planner is deliberately conservative: deleting a key that was not
// actually affected only costs one recompute on the next read, while a
// missed key serves stale data until its TTL expires.
var plans = map[MutationKind][]enumerator{
	MutationProjectCreated: {
		projectListKeys, clientProjectKeys, clientViewKey, platformKeys,
	},
	MutationProjectUpdated: {
		projectViewKey, projectListKeys, clientProjectKeys,
	},
	MutationProjectStatusChanged: {
		projectViewKey, projectListKeys, clientProjectKeys, freelancerProjectKeys,
		projectApplicationKeys, clientViewKey, freelancerViewKey, platformKeys,
	},
	MutationApplicationCreated: {
		projectViewKey, projectApplicationKeys, freelancerApplicationKeys, platformKeys,
	},
	MutationApplicationDecided: {
		projectViewKey, projectListKeys, clientProjectKeys, freelancerProjectKeys,
		projectApplicationKeys, freelancerApplicationKeys, siblingApplicationKeys,
		clientViewKey, freelancerViewKey, platformKeys,
	},
	MutationRatingRecorded: {
		projectViewKey, ratedUserKeys, platformKeys,
	},
	MutationMeetingChanged: {
		applicationMeetingKeys, projectViewKey,
	},
	MutationProfileUpdated: {
		clientViewKey, freelancerViewKey, featuredKey,
	},
	MutationUserModerated: {
		clientViewKey, freelancerViewKey, clientProjectKeys, freelancerProjectKeys,
		freelancerApplicationKeys, platformKeys,
	},
}

// Planner turns a committed mutation into the closed set of cache keys
// to delete. The backend has no pattern delete, so every key that could
// hold a stale view is named explicitly through the builders in keys.go.
type Planner struct {
	store Deleter
	grid  PageGrid
}

// Deleter is the single cache capability the planner needs.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// NewPlanner creates a planner over a cache store and a page grid.
func NewPlanner(store Deleter, grid PageGrid) *Planner {
	if grid.MaxPages <= 0 || len(grid.PageSizes) == 0 {
		grid = DefaultPageGrid()
	}
	return &Planner{store: store, grid: grid}
}

// Plan returns the deduplicated key set for a mutation. Pure function,
// no cache access.
func (p *Planner) Plan(m Mutation) []string {
	seen := make(map[string]struct{})
	var keys []string

	for _, enum := range plans[m.Kind] {
		for _, key := range enum(m, p.grid) {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}

	return keys
}

// Invalidate deletes the planned key set as a fully parallel, best-effort
// batch. It must be called strictly after the authoritative transaction
// commits. Failures are logged and swallowed: the mutation already
// succeeded, the worst case is a stale read until the TTL expires.
func (p *Planner) Invalidate(ctx context.Context, m Mutation) {
	keys := p.Plan(m)
	if len(keys) == 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(keys))
	for _, key := range keys {
		key := key
		goroutine.SafeGo(func() {
			defer wg.Done()
			if err := p.store.Delete(ctx, key); err != nil {
				logger.WithComponent("cache").WithError(err).WithField("key", key).Warn("invalidation delete failed")
			}
		})
	}
	wg.Wait()

	logger.WithComponent("cache").WithFields(map[string]interface{}{
		"mutation": string(m.Kind),
		"keys":     len(keys),
	}).Debug("cache invalidated")
}

// statusFilters returns the list-filter values a project could have been
// cached under. When the old and new statuses are known we invalidate
// those plus the unfiltered view; otherwise every filter value.
func statusFilters(m Mutation) []string {
	if m.OldStatus == "" && m.NewStatus == "" {
		filters := []string{StatusAll}
		for _, s := range models.AllProjectStatuses {
			filters = append(filters, string(s))
		}
		return filters
	}

	filters := []string{StatusAll}
	if m.OldStatus != "" {
		filters = append(filters, m.OldStatus)
	}
	if m.NewStatus != "" && m.NewStatus != m.OldStatus {
		filters = append(filters, m.NewStatus)
	}
	return filters
}

// applicationStatusFilters always spans every filter value: a decided
// application moves between filters and its siblings move with it.
func applicationStatusFilters() []string {
	filters := []string{StatusAll}
	for _, s := range models.AllApplicationStatuses {
		filters = append(filters, string(s))
	}
	return filters
}

// forGrid runs fn for every (filter, page, size) combination.
func forGrid(filters []string, g PageGrid, fn func(status string, page, size int) string) []string {
	keys := make([]string, 0, len(filters)*g.MaxPages*len(g.PageSizes))
	for _, status := range filters {
		for page := 1; page <= g.MaxPages; page++ {
			for _, size := range g.PageSizes {
				keys = append(keys, fn(status, page, size))
			}
		}
	}
	return keys
}

func projectViewKey(m Mutation, _ PageGrid) []string {
	return []string{ProjectKey(m.ProjectID)}
}

func projectListKeys(m Mutation, g PageGrid) []string {
	return forGrid(statusFilters(m), g, func(status string, page, size int) string {
		return ProjectListKey(status, page, size)
	})
}

func clientProjectKeys(m Mutation, g PageGrid) []string {
	if m.ClientID == uuid.Nil {
		return nil
	}
	return forGrid(statusFilters(m), g, func(status string, page, size int) string {
		return ClientProjectsKey(m.ClientID, status, page, size)
	})
}

func freelancerProjectKeys(m Mutation, g PageGrid) []string {
	if m.FreelancerID == nil {
		return nil
	}
	return forGrid(statusFilters(m), g, func(status string, page, size int) string {
		return FreelancerProjectsKey(*m.FreelancerID, status, page, size)
	})
}

func projectApplicationKeys(m Mutation, g PageGrid) []string {
	return forGrid(applicationStatusFilters(), g, func(status string, page, size int) string {
		return ProjectApplicationsKey(m.ProjectID, status, page, size)
	})
}

func freelancerApplicationKeys(m Mutation, g PageGrid) []string {
	if m.FreelancerID == nil {
		return nil
	}
	return forGrid(applicationStatusFilters(), g, func(status string, page, size int) string {
		return FreelancerApplicationsKey(*m.FreelancerID, status, page, size)
	})
}

func siblingApplicationKeys(m Mutation, g PageGrid) []string {
	var keys []string
	for _, fid := range m.SiblingFreelancerIDs {
		fid := fid
		keys = append(keys, forGrid(applicationStatusFilters(), g, func(status string, page, size int) string {
			return FreelancerApplicationsKey(fid, status, page, size)
		})...)
	}
	return keys
}

func clientViewKey(m Mutation, _ PageGrid) []string {
	ids := collectUserIDs(m.ClientID, m.UserID)
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, ClientKey(id))
	}
	return keys
}

func freelancerViewKey(m Mutation, _ PageGrid) []string {
	var ids []uuid.UUID
	if m.FreelancerID != nil {
		ids = append(ids, *m.FreelancerID)
	}
	ids = collectUserIDs(uuid.Nil, m.UserID, ids...)
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, FreelancerKey(id))
	}
	return keys
}

func ratedUserKeys(m Mutation, g PageGrid) []string {
	if m.RatedID == nil {
		return nil
	}
	// The rated side may be either party; both profile views are cheap
	// to recompute, so invalidate both rather than resolve the role here.
	keys := []string{FreelancerKey(*m.RatedID), ClientKey(*m.RatedID), FeaturedFreelancersKey()}
	for page := 1; page <= g.MaxPages; page++ {
		for _, size := range g.PageSizes {
			keys = append(keys, UserRatingsKey(*m.RatedID, page, size))
		}
	}
	return keys
}

func applicationMeetingKeys(m Mutation, _ PageGrid) []string {
	if m.ApplicationID == nil {
		return nil
	}
	return []string{ApplicationMeetingsKey(*m.ApplicationID)}
}

func platformKeys(_ Mutation, _ PageGrid) []string {
	return []string{PlatformStatsKey(), FeaturedFreelancersKey()}
}

func featuredKey(_ Mutation, _ PageGrid) []string {
	return []string{FeaturedFreelancersKey()}
}

func collectUserIDs(primary uuid.UUID, extra *uuid.UUID, more ...uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	add := func(id uuid.UUID) {
		if id == uuid.Nil {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	add(primary)
	if extra != nil {
		add(*extra)
	}
	for _, id := range more {
		add(id)
	}
	return ids
}
