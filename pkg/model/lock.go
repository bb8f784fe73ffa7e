package model

import "time"

// LockRecord is a gc claim on a staging area, stored inside the area.
type LockRecord struct {
	HolderNonce  string    `json:"holder_nonce"`
	PID          int       `json:"pid"`
	Hostname     string    `json:"hostname"`
	AcquiredAt   time.Time `json:"acquired_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	FencingToken int64     `json:"fencing_token"`
}

// IsExpired returns true if the lease has expired at time now.
func (r *LockRecord) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
