package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// Key grammar: {scope}:{entity}:{id}:{dimension}:{value}...
// Every cacheable query shape has exactly one builder here. The planner
// enumerates stale keys through these builders, so an ad-hoc key string
// anywhere else in the codebase is a bug.

// StatusAll is the filter value for unfiltered list views.
const StatusAll = "all"

// PageGrid bounds the page/page-size cross product the planner enumerates.
// Pages beyond MaxPages (or sizes outside PageSizes) are still cacheable
// but are never explicitly invalidated - they age out by TTL only.
// Widening the grid is a deliberate trade of invalidation cost for freshness.
type PageGrid struct {
	MaxPages  int
	PageSizes []int
}

// DefaultPageGrid covers pages 1..10 with the three supported page sizes.
func DefaultPageGrid() PageGrid {
	return PageGrid{
		MaxPages:  10,
		PageSizes: []int{10, 20, 50},
	}
}

// Contains reports whether a (page, size) pair falls inside the grid.
func (g PageGrid) Contains(page, size int) bool {
	if page < 1 || page > g.MaxPages {
		return false
	}
	for _, s := range g.PageSizes {
		if s == size {
			return true
		}
	}
	return false
}

func ProjectKey(id uuid.UUID) string {
	return "view:project:" + id.String()
}

func ProjectListKey(status string, page, size int) string {
	return fmt.Sprintf("list:projects:status:%s:page:%d:size:%d", status, page, size)
}

func ClientProjectsKey(clientID uuid.UUID, status string, page, size int) string {
	return fmt.Sprintf("list:client_projects:%s:status:%s:page:%d:size:%d", clientID, status, page, size)
}

func FreelancerProjectsKey(freelancerID uuid.UUID, status string, page, size int) string {
	return fmt.Sprintf("list:freelancer_projects:%s:status:%s:page:%d:size:%d", freelancerID, status, page, size)
}

func ProjectApplicationsKey(projectID uuid.UUID, status string, page, size int) string {
	return fmt.Sprintf("list:project_applications:%s:status:%s:page:%d:size:%d", projectID, status, page, size)
}

func FreelancerApplicationsKey(freelancerID uuid.UUID, status string, page, size int) string {
	return fmt.Sprintf("list:freelancer_applications:%s:status:%s:page:%d:size:%d", freelancerID, status, page, size)
}

func FreelancerKey(userID uuid.UUID) string {
	return "view:freelancer:" + userID.String()
}

func ClientKey(userID uuid.UUID) string {
	return "view:client:" + userID.String()
}

func UserRatingsKey(userID uuid.UUID, page, size int) string {
	return fmt.Sprintf("list:user_ratings:%s:page:%d:size:%d", userID, page, size)
}

func ApplicationMeetingsKey(applicationID uuid.UUID) string {
	return "list:application_meetings:" + applicationID.String()
}

func PlatformStatsKey() string {
	return "stats:platform"
}

func FeaturedFreelancersKey() string {
	return "list:featured_freelancers"
}

func OTPKey(purpose, subject string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, subject)
}

func OTPResendKey(purpose, subject string) string {
	return fmt.Sprintf("otp_limit:%s:%s", purpose, subject)
}
