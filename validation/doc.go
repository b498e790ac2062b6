// Package validation checks configuration sections and API requests.
//
// Struct tags use go-playground/validator:
//
//	type EngineConfig struct {
//	    BatchSize int `mapstructure:"batch_size" validate:"min=1"`
//	}
//	err := validation.Validate(&cfg.Engine)
//
// Request fields are checked by chaining a Validator:
//
//	err := validation.New().Required("query", req.Query).Range("limit", req.Limit, 0, 100000).Validate()
package validation
