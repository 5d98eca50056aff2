package config

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

func NewLLMForTest(provider, geminiProject, openaiAPIKey, embeddingModel string) *LLM {
	return &LLM{
		provider:       provider,
		geminiProject:  geminiProject,
		geminiLocation: "us-central1",
		openaiAPIKey:   openaiAPIKey,
		embeddingModel: embeddingModel,
	}
}

func NewRepositoryForTest(backend, sqlitePath, projectID string) *Repository {
	return &Repository{backend: backend, sqlitePath: sqlitePath, projectID: projectID}
}

func NewAppForTest(path string) *App {
	return &App{path: path}
}

var NewLoggerWithWriter = newLogger
