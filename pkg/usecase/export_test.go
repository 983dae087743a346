package usecase

// Exposed for tests
var (
	ExtractKeywords  = extractKeywords
	CosineSimilarity = cosineSimilarity
	ParseEntityNames = parseEntityNames
)
