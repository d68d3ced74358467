package store

import (
	"context"
	"sync"

	"github.com/example/ec-fulfillment/internal/domain/vendor"
)

type MemoryVendorDirectory struct {
	mu      sync.RWMutex
	vendors map[string]vendor.Vendor
}

func NewMemoryVendorDirectory(vendors ...vendor.Vendor) *MemoryVendorDirectory {
	d := &MemoryVendorDirectory{vendors: make(map[string]vendor.Vendor, len(vendors))}
	for _, v := range vendors {
		d.vendors[v.ID] = v
	}
	return d
}

func (d *MemoryVendorDirectory) Put(v vendor.Vendor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vendors[v.ID] = v
}

func (d *MemoryVendorDirectory) GetVendor(_ context.Context, id string) (*vendor.Vendor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	v, ok := d.vendors[id]
	if !ok {
		return nil, vendor.ErrVendorNotFound
	}
	return &v, nil
}
