package memory

import (
	"context"
	"errors"
	"sync"

	catalog "scada-cloud/internal/catalog/domain"
)

// Catalog is an in-memory catalog store for demo/testing.
// It implements the station, device and data point repository interfaces.
type Catalog struct {
	mu       sync.RWMutex
	stations map[string]catalog.Station
	devices  map[string]catalog.Device
	points   map[string]catalog.DataPoint
}

// NewCatalog constructs an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		stations: make(map[string]catalog.Station),
		devices:  make(map[string]catalog.Device),
		points:   make(map[string]catalog.DataPoint),
	}
}

// Get loads a station by id.
func (c *Catalog) Get(ctx context.Context, id string) (*catalog.Station, error) {
	_ = ctx
	c.mu.RLock()
	defer c.mu.RUnlock()
	station, ok := c.stations[id]
	if !ok {
		return nil, nil
	}
	return &station, nil
}

// Save persists a station.
func (c *Catalog) Save(ctx context.Context, station *catalog.Station) error {
	_ = ctx
	if station == nil {
		return errors.New("memory catalog: nil station")
	}
	if err := station.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.stations[station.ID] = *station
	c.mu.Unlock()
	return nil
}

// Devices returns a device repository view over the catalog.
func (c *Catalog) Devices() *DeviceRepository { return &DeviceRepository{catalog: c} }

// Points returns a data point repository view over the catalog.
func (c *Catalog) Points() *DataPointRepository { return &DataPointRepository{catalog: c} }

// DeviceRepository is the in-memory device repository.
type DeviceRepository struct {
	catalog *Catalog
}

// Get loads a device by id.
func (r *DeviceRepository) Get(ctx context.Context, id string) (*catalog.Device, error) {
	_ = ctx
	r.catalog.mu.RLock()
	defer r.catalog.mu.RUnlock()
	device, ok := r.catalog.devices[id]
	if !ok {
		return nil, nil
	}
	return &device, nil
}

// ListByStation loads devices for a station.
func (r *DeviceRepository) ListByStation(ctx context.Context, stationID string) ([]catalog.Device, error) {
	_ = ctx
	r.catalog.mu.RLock()
	defer r.catalog.mu.RUnlock()
	var result []catalog.Device
	for _, device := range r.catalog.devices {
		if device.StationID == stationID {
			result = append(result, device)
		}
	}
	return result, nil
}

// ListActive loads all active devices.
func (r *DeviceRepository) ListActive(ctx context.Context) ([]catalog.Device, error) {
	_ = ctx
	r.catalog.mu.RLock()
	defer r.catalog.mu.RUnlock()
	var result []catalog.Device
	for _, device := range r.catalog.devices {
		if device.Status == catalog.DeviceStatusActive {
			result = append(result, device)
		}
	}
	return result, nil
}

// Save persists a device.
func (r *DeviceRepository) Save(ctx context.Context, device *catalog.Device) error {
	_ = ctx
	if device == nil {
		return errors.New("memory catalog: nil device")
	}
	if err := device.Validate(); err != nil {
		return err
	}
	r.catalog.mu.Lock()
	r.catalog.devices[device.ID] = *device
	r.catalog.mu.Unlock()
	return nil
}

// DataPointRepository is the in-memory data point repository.
type DataPointRepository struct {
	catalog *Catalog
}

// Get loads a data point by id.
func (r *DataPointRepository) Get(ctx context.Context, id string) (*catalog.DataPoint, error) {
	_ = ctx
	r.catalog.mu.RLock()
	defer r.catalog.mu.RUnlock()
	point, ok := r.catalog.points[id]
	if !ok {
		return nil, nil
	}
	return &point, nil
}

// ListEnabledByDevice loads enabled data points for a device.
func (r *DataPointRepository) ListEnabledByDevice(ctx context.Context, deviceID string) ([]catalog.DataPoint, error) {
	_ = ctx
	r.catalog.mu.RLock()
	defer r.catalog.mu.RUnlock()
	var result []catalog.DataPoint
	for _, point := range r.catalog.points {
		if point.DeviceID == deviceID && point.Enabled {
			result = append(result, point)
		}
	}
	return result, nil
}

// Save persists a data point.
func (r *DataPointRepository) Save(ctx context.Context, point *catalog.DataPoint) error {
	_ = ctx
	if point == nil {
		return errors.New("memory catalog: nil point")
	}
	if err := point.Validate(); err != nil {
		return err
	}
	r.catalog.mu.Lock()
	r.catalog.points[point.ID] = *point
	r.catalog.mu.Unlock()
	return nil
}
