package notify

import (
	"fmt"
	"log"

	"tempo/internal/database"
)

// Permission mirrors the browser notification permission the dashboard client
// reports. It can change out-of-band, so it is re-read before every delivery.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

const permissionKey = "notify:permission"

type PermissionStore struct {
	kv *database.KV
}

func NewPermissionStore(kv *database.KV) *PermissionStore {
	return &PermissionStore{kv: kv}
}

// Get returns the stored permission, defaulting to PermissionDefault when
// nothing has been recorded or the record cannot be read.
func (p *PermissionStore) Get() Permission {
	raw, ok, err := p.kv.Get(permissionKey)
	if err != nil {
		log.Printf("Failed to read notification permission: %v", err)
		return PermissionDefault
	}
	if !ok {
		return PermissionDefault
	}
	switch Permission(raw) {
	case PermissionGranted, PermissionDenied, PermissionDefault:
		return Permission(raw)
	}
	return PermissionDefault
}

func (p *PermissionStore) Set(state Permission) error {
	switch state {
	case PermissionGranted, PermissionDenied, PermissionDefault:
	default:
		return fmt.Errorf("invalid permission state %q", state)
	}
	return p.kv.Set(permissionKey, string(state))
}
