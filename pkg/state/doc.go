// Package state holds the storage providers behind a settings.Engine.
//
// Two providers implement settings.Provider:
//   - MemoryProvider keeps rows in process memory, one map per site. It is
//     meant for tests, examples and single process tools.
//   - DurableProvider persists rows through a RowStore (see sqlstore and
//     pgstore). The backing table is probed lazily; while it is missing the
//     provider behaves as an empty store and writes are dropped.
//
// Data flow:
//
//	Engine.Set -> DurableProvider.Save -> RowStore.Upsert -> Notifier
//
// Notifiers observe every successful write and delete. They are how other
// processes learn that they should call Engine.Refresh: ActivityNotifier
// fans the change out as an activity event and pgstore.Notifier issues a
// pg_notify on a channel that pgstore.Listener consumes.
//
// Deterministic keys:
//
//	Ref.Identifier() renders "site:name", the payload carried by change
//	notifications. ParseIdentifier reverses it.
package state
