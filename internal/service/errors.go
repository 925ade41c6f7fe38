package service

import (
	"errors"
	"fmt"
)

// ErrSyncInProgress is returned when a device's checkpoint is already claimed
// by another running invocation
var ErrSyncInProgress = errors.New("sync already running for this device")

// DataIntegrityError marks a duplicate-key conflict outside the expected
// idempotent path. Logged; processing continues on unaffected records.
type DataIntegrityError struct {
	DeviceID string
	Detail   string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity conflict for device %s: %s", e.DeviceID, e.Detail)
}
