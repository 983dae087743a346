package config

// NewEngineWithPath builds an Engine with a preset config path for tests
func NewEngineWithPath(path string) *Engine {
	return &Engine{configPath: path}
}
