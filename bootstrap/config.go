package bootstrap

import "github.com/kbukum/xform/config"

// Config is satisfied by any struct embedding config.ServiceConfig that
// also applies defaults and validates itself.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
