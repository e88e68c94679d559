// Package hierarchy manages the workspace → project → board → list → task chain
// and the assignees hanging off tasks.
//
// # Overview
//
// Every write passes two checks. A coarse role gate comes first (only admins
// create workspaces and projects, admins and team leads create boards), then
// the access engine decides whether the actor may touch the target project or
// board. Children take their denormalized parent IDs from the loaded parent,
// never from the caller, so a list always agrees with its board and a task with
// its list.
//
// # Assignees
//
// [Assignees] depends only on a [TaskLookup] so it can be tested without the
// full service. Bulk operations fail as a whole: one unknown user or one
// existing pair rejects the entire batch.
//
// # Memberships
//
// Team leads and board members are managed here rather than in the membership
// package because managing them needs the role gates and parent checks above.
// The registries themselves only store and query the join rows.
package hierarchy
