package store

import (
	"database/sql"
	"errors"
	"time"
)

// Recording is one recorded tracking run.
type Recording struct {
	ID            string     `json:"id"`
	Source        string     `json:"source"`
	DetectionRate int        `json:"detection_rate"`
	MaxDistance   float64    `json:"max_distance"`
	Frames        int        `json:"frames"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
}

// JointSample is a joint's world position in one recorded frame.
type JointSample struct {
	Frame       uint64  `json:"frame"`
	Joint       string  `json:"joint"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	Depth       float64 `json:"depth"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// RecordingRepository provides access to recordings and their samples.
type RecordingRepository struct {
	db *sql.DB
}

// Recordings returns the recording repository for this store.
func (s *Store) Recordings() *RecordingRepository {
	return &RecordingRepository{db: s.db}
}

// Create inserts a new recording. StartedAt defaults to now.
func (r *RecordingRepository) Create(rec *Recording) error {
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO recordings (id, source, detection_rate, max_distance, frames, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Source, rec.DetectionRate, rec.MaxDistance, rec.Frames, rec.StartedAt,
	)
	return err
}

const recordingColumns = `id, source, detection_rate, max_distance, frames, started_at, ended_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecording(row rowScanner) (*Recording, error) {
	rec := &Recording{}
	var ended sql.NullTime

	if err := row.Scan(&rec.ID, &rec.Source, &rec.DetectionRate, &rec.MaxDistance,
		&rec.Frames, &rec.StartedAt, &ended); err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		rec.EndedAt = &t
	}
	return rec, nil
}

// GetByID retrieves a recording by its ID.
func (r *RecordingRepository) GetByID(id string) (*Recording, error) {
	rec, err := scanRecording(r.db.QueryRow(
		`SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List retrieves all recordings, newest first.
func (r *RecordingRepository) List() ([]*Recording, error) {
	rows, err := r.db.Query(`SELECT ` + recordingColumns + ` FROM recordings ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recs, nil
}

// AddFrame stores the samples of one frame and bumps the frame count in a
// single transaction.
func (r *RecordingRepository) AddFrame(recordingID string, samples []JointSample) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO joint_samples (recording_id, frame, joint, x, y, z, depth, timestamp_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range samples {
		if _, err := stmt.Exec(recordingID, int64(s.Frame), s.Joint, s.X, s.Y, s.Z, s.Depth, s.TimestampMs); err != nil {
			return err
		}
	}

	result, err := tx.Exec(`UPDATE recordings SET frames = frames + 1 WHERE id = ?`, recordingID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// Finish marks a recording as ended.
func (r *RecordingRepository) Finish(id string, endedAt time.Time) error {
	result, err := r.db.Exec(`UPDATE recordings SET ended_at = ? WHERE id = ?`, endedAt, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Samples returns every sample of a recording ordered by frame.
func (r *RecordingRepository) Samples(recordingID string) ([]JointSample, error) {
	rows, err := r.db.Query(
		`SELECT frame, joint, x, y, z, depth, timestamp_ms
		 FROM joint_samples
		 WHERE recording_id = ?
		 ORDER BY frame, id`,
		recordingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []JointSample
	for rows.Next() {
		var s JointSample
		var frame int64
		if err := rows.Scan(&frame, &s.Joint, &s.X, &s.Y, &s.Z, &s.Depth, &s.TimestampMs); err != nil {
			return nil, err
		}
		s.Frame = uint64(frame)
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// Delete removes a recording and its samples.
func (r *RecordingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
