package graph

// SQLite schema DDL constants

// properties holds a JSON object; merges go through json_patch so a single
// statement applies the overlay atomically.
const schemaNodes = `
CREATE TABLE IF NOT EXISTS nodes (
    label TEXT NOT NULL,
    key TEXT NOT NULL,
    properties TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL,
    modified_at DATETIME NOT NULL,
    PRIMARY KEY (label, key)
)`

const schemaEdges = `
CREATE TABLE IF NOT EXISTS edges (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    from_label TEXT NOT NULL,
    from_key TEXT NOT NULL,
    rel_type TEXT NOT NULL,
    to_label TEXT NOT NULL,
    to_key TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    UNIQUE(from_label, from_key, rel_type, to_label, to_key)
)`

// Index definitions
const indexEdgesTo = `CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_label, to_key)`
const indexEdgesType = `CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(rel_type)`

// SQLite pragmas
const pragmaWAL = `PRAGMA journal_mode=WAL`
const pragmaBusyTimeout = `PRAGMA busy_timeout=5000`
const pragmaSynchronous = `PRAGMA synchronous=NORMAL`

// allSchemaStatements returns all schema DDL in order
func allSchemaStatements() []string {
	return []string{
		schemaNodes,
		schemaEdges,
		indexEdgesTo,
		indexEdgesType,
	}
}

// allPragmas returns all pragma statements
func allPragmas() []string {
	return []string{
		pragmaWAL,
		pragmaBusyTimeout,
		pragmaSynchronous,
	}
}
