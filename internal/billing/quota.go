package billing

import "craftfolio/internal/types"

// UsageSnapshot reports portfolio media usage against the plan's design
// quota. Served alongside the subscription state so clients can render
// limit warnings without a second round trip.
type UsageSnapshot struct {
	Plan          string `json:"plan"`
	DesignLimit   int    `json:"design_limit"`
	LinksAllowed  int    `json:"links_allowed"`
	ShortVideos   int    `json:"short_videos"`
	LongVideos    int    `json:"long_videos"`
	GraphicImages int    `json:"graphic_images"`
}

// UsageFor computes the usage snapshot for a user. Users with no plan
// record at all are reported against the free tier.
func UsageFor(user *types.User, free types.PlanDefinition) UsageSnapshot {
	plan := free.ID
	limit := free.DesignLimit
	links := free.LinksAllowed
	if cur := user.Subscription.Current; cur != nil {
		plan = cur.Name
		limit = cur.DesignLimit
		links = cur.LinksAllowed
	}

	return UsageSnapshot{
		Plan:          plan,
		DesignLimit:   limit,
		LinksAllowed:  links,
		ShortVideos:   len(user.ShortVideos),
		LongVideos:    len(user.LongVideos),
		GraphicImages: len(user.GraphicImages),
	}
}
