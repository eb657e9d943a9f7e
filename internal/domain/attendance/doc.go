// Package attendance holds the participation model of campus events.
//
// A Participation records one student's presence at one event, bounded by a
// scan-in (TimeIn) and an optional scan-out (TimeOut). The package defines:
//
//   - Entities: Student, Event, Participation, Admin, AuditLog
//   - The capability predicate CanManage over the two admin roles
//   - Repository contracts: Store/Tx for key-locked mutation, EventCatalog,
//     StudentDirectory, AdminDirectory, AuditRepository, StatsReader
//
// # Session invariant
//
// For a given (student, event) pair at most one participation may be open
// (TimeOut unset) at any instant, and a closed participation always has
// TimeOut after TimeIn. Store implementations serialize all read-modify-write
// work on a pair through Store.WithKeyLock:
//
//	err := store.WithKeyLock(ctx, attendance.KeyOf(studentID, eventID), func(tx attendance.Tx) error {
//	    rows, err := tx.FindByKey(ctx, key)
//	    ...
//	    return tx.Insert(ctx, p)
//	})
//
// The callback must not perform external calls; the lock is held until it
// returns and the transaction commits or rolls back.
package attendance
