package sensor

import (
	"context"

	"github.com/fresheye/fresheye/internal/models"
)

// BackendAPI is the slice of the backend client the fetchers use.
// *api.Client satisfies it.
type BackendAPI interface {
	IoTData(ctx context.Context) (models.SensorReading, error)
	LatestNodeMCU(ctx context.Context) (models.SensorReading, error)
}

// BackendFetcher reads the sensor wired to the backend host.
type BackendFetcher struct {
	API BackendAPI
}

func (f *BackendFetcher) Fetch(ctx context.Context) (models.SensorReading, error) {
	return f.API.IoTData(ctx)
}

// NodeMCUFetcher reads the standalone WiFi sensor node through the backend.
type NodeMCUFetcher struct {
	API BackendAPI
}

func (f *NodeMCUFetcher) Fetch(ctx context.Context) (models.SensorReading, error) {
	return f.API.LatestNodeMCU(ctx)
}
