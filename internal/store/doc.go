// Package store provides persistent storage for trellis on SQLite or Postgres.
//
// # Architecture
//
// The store package exposes one narrow interface per entity so services can
// depend on only what they use:
//
//   - UserStore: Accounts, lookup by email/username, last-login stamping
//   - MembershipStore: Project team leads and board members, keyed by (parent, user)
//   - WorkspaceStore, ProjectStore, BoardStore, ListStore, TaskStore: The containment chain
//   - TaskAssigneeStore: Task assignments, inserted in batches
//
// Store composes them all. SQLStore implements Store and Transactor in a single
// struct; MockStore implements Store in memory.
//
// # Data Models
//
//   - User: Account with a global Role (admin, team_lead, user)
//   - Workspace → Project → Board → List → Task: Each child carries the ids of
//     every ancestor, copied at creation and never rewritten
//   - Membership: TeamLeads (parent is a project) or BoardMembers (parent is a board)
//   - TaskAssignee: (task, user) pair with the assigning user
//
// Reads return View types with parent titles and the creator hydrated.
//
// # Backends
//
// SQLite runs through modernc.org/sqlite with WAL and foreign keys enabled on
// every pooled connection. Postgres runs through lib/pq. Queries are built with
// squirrel so the only per-driver difference is the placeholder format.
//
// # Error Handling
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrConflict: Unique or foreign-key constraint violated
//
// Deletes cascade down the containment chain and through the join tables.
//
// # Testing
//
// Use NewMockStore() for unit tests; FailOn injects errors per method:
//
//	s := store.NewMockStore()
//	s.FailOn("CreateMembership", errors.New("boom"))
//
// Use NewSQLiteStore with a t.TempDir() path for integration tests.
package store
