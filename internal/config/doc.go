// Package config provides the configuration of imagefinder.
//
// Values come from four layers, each overriding the previous one: the
// defaults of NewConfig, the YAML file .imagefinder, environment variables
// prefixed with IMAGEFINDER_, and command-line flags. The file also holds
// per-site crawl settings used by the crawl service.
package config
