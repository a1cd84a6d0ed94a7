package storage

import (
	"fmt"
	"path/filepath"

	"github.com/bobmcallan/magma/internal/common"
	"github.com/bobmcallan/magma/internal/interfaces"
)

// Manager coordinates storage backends under a single data directory.
type Manager struct {
	dataPath string
	prices   *PriceStore
	logger   *common.Logger
}

// NewManager opens all stores under the configured data path.
func NewManager(logger *common.Logger, dataPath string) (*Manager, error) {
	prices, err := NewPriceStore(logger, filepath.Join(dataPath, "prices"))
	if err != nil {
		return nil, fmt.Errorf("failed to open price store: %w", err)
	}

	logger.Info().Str("path", dataPath).Msg("Storage initialized")

	return &Manager{
		dataPath: dataPath,
		prices:   prices,
		logger:   logger,
	}, nil
}

// PriceStore returns the price bar store.
func (m *Manager) PriceStore() interfaces.PriceStore {
	return m.prices
}

// DataPath returns the base data directory path.
func (m *Manager) DataPath() string {
	return m.dataPath
}

// Close closes all stores.
func (m *Manager) Close() error {
	if m.prices != nil {
		return m.prices.Close()
	}
	return nil
}

var _ interfaces.StorageManager = (*Manager)(nil)
