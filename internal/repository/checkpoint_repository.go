package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vantrack/fleetsync-go/internal/models"
)

// CheckpointRepository handles the per-device sync cursor records
type CheckpointRepository struct {
	db *sql.DB
}

// NewCheckpointRepository creates a new checkpoint repository
func NewCheckpointRepository(db *sql.DB) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

// checkpointTimeLayout matches sqlite's CURRENT_TIMESTAMP output (UTC)
const checkpointTimeLayout = "2006-01-02 15:04:05"

// Get retrieves a device's checkpoint, or nil when the device was never synced
func (r *CheckpointRepository) Get(deviceID string) (*models.SyncCheckpoint, error) {
	query := `
		SELECT device_id, last_synced_at, status, last_error, created_at, updated_at
		FROM sync_checkpoints WHERE device_id = ?
	`

	var cp models.SyncCheckpoint
	var createdAt, updatedAt string
	err := r.db.QueryRow(query, deviceID).Scan(
		&cp.DeviceID, &cp.LastSyncedAt, &cp.Status, &cp.LastError, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	cp.CreatedAt, _ = time.Parse(checkpointTimeLayout, createdAt)
	cp.UpdatedAt, _ = time.Parse(checkpointTimeLayout, updatedAt)
	return &cp, nil
}

// GetAll retrieves every checkpoint, for fleet-wide sync and inspection
func (r *CheckpointRepository) GetAll() ([]models.SyncCheckpoint, error) {
	rows, err := r.db.Query(`
		SELECT device_id, last_synced_at, status, last_error, created_at, updated_at
		FROM sync_checkpoints ORDER BY device_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []models.SyncCheckpoint
	for rows.Next() {
		var cp models.SyncCheckpoint
		var createdAt, updatedAt string
		if err := rows.Scan(&cp.DeviceID, &cp.LastSyncedAt, &cp.Status, &cp.LastError,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		cp.CreatedAt, _ = time.Parse(checkpointTimeLayout, createdAt)
		cp.UpdatedAt, _ = time.Parse(checkpointTimeLayout, updatedAt)
		checkpoints = append(checkpoints, cp)
	}

	return checkpoints, nil
}

// Claim moves a checkpoint to running, creating it on first contact. The
// guarded UPDATE is the compare-and-set that serializes sync per device: it
// succeeds only when the row is not running, or has sat in running longer
// than staleTimeout (abandoned run takeover). Returns whether the claim won.
func (r *CheckpointRepository) Claim(deviceID string, staleTimeout time.Duration) (bool, error) {
	_, err := r.db.Exec(
		"INSERT OR IGNORE INTO sync_checkpoints (device_id) VALUES (?)", deviceID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to ensure checkpoint row: %w", err)
	}

	staleModifier := fmt.Sprintf("-%d seconds", int(staleTimeout.Seconds()))
	result, err := r.db.Exec(`
		UPDATE sync_checkpoints
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE device_id = ? AND (status != ? OR updated_at < datetime('now', ?))`,
		models.SyncStatusRunning, deviceID, models.SyncStatusRunning, staleModifier,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim checkpoint: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// Complete releases a running checkpoint back to idle, advancing the cursor.
// lastSyncedAt carries the previous value when the run processed nothing.
func (r *CheckpointRepository) Complete(deviceID string, lastSyncedAt int64) error {
	result, err := r.db.Exec(`
		UPDATE sync_checkpoints
		SET status = ?, last_synced_at = ?, last_error = '', updated_at = CURRENT_TIMESTAMP
		WHERE device_id = ? AND status = ?`,
		models.SyncStatusIdle, lastSyncedAt, deviceID, models.SyncStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to complete checkpoint: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("checkpoint for %s was not in running state", deviceID)
	}
	return nil
}

// Fail records the error and releases the running guard without moving the
// cursor, leaving the run re-runnable from the same position
func (r *CheckpointRepository) Fail(deviceID string, message string) error {
	_, err := r.db.Exec(`
		UPDATE sync_checkpoints
		SET status = ?, last_error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE device_id = ?`,
		models.SyncStatusError, message, deviceID,
	)
	if err != nil {
		return fmt.Errorf("failed to record checkpoint error: %w", err)
	}
	return nil
}

// Reset clears the cursor for a forced full resync. It refuses to touch a
// running checkpoint.
func (r *CheckpointRepository) Reset(deviceID string) error {
	result, err := r.db.Exec(`
		UPDATE sync_checkpoints
		SET last_synced_at = 0, status = ?, last_error = '', updated_at = CURRENT_TIMESTAMP
		WHERE device_id = ? AND status != ?`,
		models.SyncStatusIdle, deviceID, models.SyncStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to reset checkpoint: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("checkpoint for %s is running or does not exist", deviceID)
	}
	return nil
}
