package blob

import (
	"context"
	"fmt"
)

// Options carries the resolved blob configuration for Open.
type Options struct {
	Driver Driver
	FSRoot string // directory root when driver=fs (default ./blobdata)
	S3     S3Config
}

// Open selects a Store implementation from the resolved configuration.
// Defaults to the filesystem driver when the driver is empty.
func Open(ctx context.Context, opts Options) (Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(opts.FSRoot)
	case DriverS3:
		return NewS3(ctx, opts.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
