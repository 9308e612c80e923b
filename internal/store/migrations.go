package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Settings table - application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Recordings table - one row per recorded tracking run
		`CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL DEFAULT '',
			detection_rate INTEGER NOT NULL DEFAULT 1,
			max_distance REAL NOT NULL,
			frames INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Joint samples table - world positions of each tracked joint per frame
		`CREATE TABLE IF NOT EXISTS joint_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recording_id TEXT NOT NULL REFERENCES recordings(id) ON DELETE CASCADE,
			frame INTEGER NOT NULL,
			joint TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			depth REAL NOT NULL,
			timestamp_ms INTEGER NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_joint_samples_recording ON joint_samples(recording_id, frame)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
