package bootstrap

import "github.com/kbukum/serviceclient/config"

// Config is satisfied by any struct embedding config.ServiceConfig that
// defines ApplyDefaults and Validate.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
