// Package config loads service configuration with Viper.
//
// A config.yml is merged with the environment and an optional .env file,
// then unmarshalled through mapstructure tags. Environment variables map
// onto nested keys by underscores, so REGISTRY_PORT sets registry.port and
// NOTIFIER_REDIS_CHANNEL sets notifier.redis.channel.
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Client serviceclient.Config `yaml:"client" mapstructure:"client"`
//	}
//
//	cfg, err := config.Load[Config]("example")
package config
