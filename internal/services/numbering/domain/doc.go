// Package domain implements per-year sequential identifiers for lab documents.
//
// Jobs, testing requests, and certificates each carry one formatted identifier
// such as MTL-2025-0001. The serial part comes from a counter keyed by
// (category, year) that is only read and written inside a store transaction:
//
//   - Allocate increments the counter and returns the new serial with its
//     formatted identifier. An absent counter starts at 1.
//   - Release validates a formatted identifier and decrements the counter,
//     clamping at zero. It does not keep a free list, so serials may show gaps
//     and the most recent serial can be handed out again after a release.
//
// Next and Rewind are the read-modify-write steps on their own so storage
// adapters can run them in the same transaction that inserts or deletes the
// owning document.
package domain
