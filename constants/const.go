package constants

var (
	Version     = "development"
	CompileTime = "unknown"
)
