package db

import "bridgekv/engine"

// Engine names accepted in Options.Engine.
const (
	EngineLevelDB = "leveldb"
	EngineMemory  = "memory"
)

// Options configures an Open. The embedded engine.Options is handed to the
// driver verbatim; the remaining fields are consumed by the binding layer.
type Options struct {
	engine.Options

	// Engine selects the driver: "leveldb" (default) or "memory".
	Engine string

	// ValueCompression enables transparent value compression in the
	// binding layer: "none" (default), "lz4", "snappy" or "zstd".
	// Independent of the engine's own block compression.
	ValueCompression string
}

// ReadOptions is per-read engine tuning, passed through to the driver.
type ReadOptions = engine.ReadOptions

// WriteOptions is per-write engine tuning, passed through to the driver.
type WriteOptions = engine.WriteOptions

// DefaultOptions returns the options used when Open is given nil.
func DefaultOptions() *Options {
	return &Options{
		Options: engine.Options{CreateIfMissing: true},
		Engine:  EngineLevelDB,
	}
}

func (o *Options) engineName() string {
	if o == nil || o.Engine == "" {
		return EngineLevelDB
	}
	return o.Engine
}

func (o *Options) engineOptions() *engine.Options {
	if o == nil {
		return &engine.Options{CreateIfMissing: true}
	}
	eo := o.Options
	return &eo
}

func (o *Options) compressionName() string {
	if o == nil || o.ValueCompression == "" {
		return "none"
	}
	return o.ValueCompression
}
