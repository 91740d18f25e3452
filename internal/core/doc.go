// Package core serves lead sheets with their saved edits applied.
//
// This package holds all domain logic independent of the HTTP layer. It can
// be used by web handlers, tools, or tests without modification.
//
// # Reads
//
// Every read starts from the sources. [Loader] reads each sheet named in the
// [Manifest] (CSV, TSV or XLSX), types its cells, and prepends the three flag
// columns the frontend works with:
//
//	是否通过linked申请? | linkedin accepted? | Accepted | ...source columns
//
// [Merge] then overlays the sheet's [OverlayRecord]: cell edits first, then
// LinkedIn flags, then accepted flags. Indices that fall outside the table
// are ignored. A sheet whose source is missing or malformed is served as an
// empty table and logged; it never fails the read of the other sheets.
//
// # Writes
//
// The overlay [Document] maps sheet name to record and lives behind a
// [Store]: a JSON file ([FileStore]), PostgreSQL ([PostgresStore]), or
// memory ([MemoryStore]). [Service.Save] applies a [SaveRequest] with
// [ApplyEdit], which replaces each non-empty field wholesale, and writes the
// whole document back.
//
// # LinkedIn matching
//
// [Service.MatchLinkedIn] compares the profile URLs in each sheet against an
// export of accepted connections and flags matching rows, keeping existing
// flags for rows that do not match.
package core
