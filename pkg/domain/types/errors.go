package types

import "github.com/m-mizutani/goerr/v2"

// Error tags classify failures at the engine boundary. Callers branch on the
// tag with goerr.HasTag rather than on error strings.
var (
	// ErrTagStorage marks transaction or connection failures against the graph store
	ErrTagStorage = goerr.NewTag("storage")

	// ErrTagModelService marks completion or embedding call failures
	ErrTagModelService = goerr.NewTag("model_service")

	// ErrTagParse marks malformed structured responses from the model service
	ErrTagParse = goerr.NewTag("parse")

	// ErrTagValidation marks malformed caller input
	ErrTagValidation = goerr.NewTag("validation")
)
