package storage

import (
	"github.com/meshguard/meshguard/pkg/types"
)

// Store persists guardian state across daemon restarts.
// Implemented by the BoltDB-backed store.
type Store interface {
	// Node records
	SaveNode(record *types.NodeRecord) error
	GetNode(id string) (*types.NodeRecord, error)
	ListNodes() ([]*types.NodeRecord, error)
	DeleteNode(id string) error

	// Guardian state
	SaveGuardian(status *types.GuardianStatus) error
	GetGuardian() (*types.GuardianStatus, error)

	// Utility
	Close() error
}
