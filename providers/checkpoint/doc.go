// Package checkpoint holds what the checkpoint stores have in common: the
// persisted document format and an instrumenting wrapper.
//
// A store implements graph.CheckpointStore:
//
//   - inmemory keeps documents in a map and is the default for a single process.
//   - pgcheckpoint keeps one JSONB row per thread in PostgreSQL.
//   - badgercheckpoint keeps snappy-compressed documents in an embedded Badger
//     database.
//
// Wrap a store with [Instrument] to get spans, a duration histogram and error
// logs for every Load and Save.
package checkpoint
