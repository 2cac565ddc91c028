// Package config exposes typed, read-only access to the service configuration.
//
// The YAML file pointed to by CONFIG_PATH is loaded through Viper and watched
// for changes. Every key can be overridden from the environment with the
// SHOPAUTH_ prefix, which is how secrets reach the process in deployments.
package config
