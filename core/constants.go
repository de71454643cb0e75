package core

const (
	OneMegabyte = 1024 * 1024 // 1024 (1KB) * 1024 => 1MB

	DataDirName           = "data" // Name of the Datafile Directory
	DefaultDirectoryPath  = "./"
	DataFileSuffix        = "sc_"
	DataFileExt           = ".data"
	DefaultDataFileSizeMB = 64
	MinimumDataFileSizeMB = 1
	MaximumDataFileSizeMB = 1024

	DefaultSyncInterval = 15
	MinimumSyncInterval = 1

	DefaultSizeCheckInterval = 5
	MinimumSizeCheckInterval = 1
)
