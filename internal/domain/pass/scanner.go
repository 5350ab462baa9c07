package pass

import (
	"errors"
	"fmt"
)

// ScannerStatus is the camera authorization state reported by the device.
type ScannerStatus string

const (
	ScannerNotDetermined ScannerStatus = "notDetermined"
	ScannerNoAccess      ScannerStatus = "noAccess"
	ScannerNoCamera      ScannerStatus = "noCamera"
	ScannerAvailable     ScannerStatus = "available"
	ScannerUnavailable   ScannerStatus = "unavailable"
)

func (s ScannerStatus) Valid() bool {
	switch s {
	case ScannerNotDetermined, ScannerNoAccess, ScannerNoCamera, ScannerAvailable, ScannerUnavailable:
		return true
	}
	return false
}

// PermissionError is a scan that could not happen because of the camera,
// not because of the data.
type PermissionError struct {
	Status ScannerStatus
}

func (e *PermissionError) Error() string {
	switch e.Status {
	case ScannerNoAccess:
		return "camera access denied"
	case ScannerNoCamera:
		return "no camera on this device"
	case ScannerNotDetermined:
		return "camera access not granted yet"
	}
	return "scanner unavailable"
}

func AsPermissionError(err error) (*PermissionError, bool) {
	var pe *PermissionError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// CheckScanner turns anything but an available scanner into a
// *PermissionError.
func CheckScanner(status ScannerStatus) error {
	if status == "" {
		status = ScannerNotDetermined
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown scanner status %q", ErrBadRequest, status)
	}
	if status != ScannerAvailable {
		return &PermissionError{Status: status}
	}
	return nil
}
