// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS mirrors (
	id TEXT PRIMARY KEY,
	batch_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	event TEXT NOT NULL,
	master_ticket INTEGER NOT NULL,
	slave_ticket INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	master_volume TEXT NOT NULL,
	volume TEXT NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mirrors_time ON mirrors(time);
CREATE INDEX IF NOT EXISTS idx_mirrors_master ON mirrors(master_ticket);
`
