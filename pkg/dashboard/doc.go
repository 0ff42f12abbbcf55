// Package dashboard assembles the organizer dashboard overview: the
// event list, cross-event aggregated metrics, and the recent activity
// feed. A Redis read-through cache fronts the assembled summary; cache
// failures degrade to direct computation and are never user-visible.
package dashboard
