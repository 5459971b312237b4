package tuner

// Concurrency limits for the shared limiter.
const (
	// unitsPerCore is the number of concurrent units per CPU core. Copies
	// spend most of their time waiting on disk, so the limit is well above
	// the core count.
	unitsPerCore = 8

	minConcurrency = 16
	maxConcurrency = 256
)

// Chunk size bounds in bytes.
const (
	defaultChunkSize = 1 << 20
	minChunkSize     = 64 << 10

	// bufferMemoryFraction is the share of available RAM that copy buffers
	// may occupy when every unit is active.
	bufferMemoryFraction = 0.05
)

// OptimalConfig contains the tuned settings for the detected resources.
type OptimalConfig struct {
	// Concurrency is the capacity of the shared limiter.
	Concurrency int

	// ChunkSize is the size in bytes of each streamed read/write.
	ChunkSize int
}

// Calculate returns the automatic configuration for the given resources.
//
//   - Concurrency: NumCPU * 8, clamped to [16, 256]
//   - ChunkSize: 1 MiB, halved until Concurrency buffers fit in 5% of
//     available RAM, never below 64 KiB
func Calculate(resources SystemResources) OptimalConfig {
	concurrency := resources.CPUCores * unitsPerCore
	concurrency = max(concurrency, minConcurrency)
	concurrency = min(concurrency, maxConcurrency)

	return OptimalConfig{
		Concurrency: concurrency,
		ChunkSize:   chunkSizeFor(concurrency, resources.AvailableRAM),
	}
}

// CalculateWithOverrides applies user overrides to the calculated config.
// Values of 0 or less keep the calculated setting. An explicit concurrency
// override is not capped.
func CalculateWithOverrides(resources SystemResources, concurrency, chunkSize int) OptimalConfig {
	config := Calculate(resources)

	if concurrency > 0 {
		config.Concurrency = concurrency
		config.ChunkSize = chunkSizeFor(concurrency, resources.AvailableRAM)
	}
	if chunkSize > 0 {
		config.ChunkSize = chunkSize
	}

	return config
}

// Auto detects resources and returns the calculated configuration. A failed
// detection falls back to the calculation for the reported core count.
func Auto() OptimalConfig {
	resources, _ := Detect()
	return Calculate(resources)
}

// chunkSizeFor bounds total buffer memory for a concurrency limit.
func chunkSizeFor(concurrency int, availableRAM int64) int {
	if availableRAM <= 0 || concurrency <= 0 {
		return defaultChunkSize
	}

	budget := int64(float64(availableRAM) * bufferMemoryFraction)
	size := defaultChunkSize
	for size > minChunkSize && int64(size)*int64(concurrency) > budget {
		size /= 2
	}
	return size
}
