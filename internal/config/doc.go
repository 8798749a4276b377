// Package config defines the settings shared by every install target and
// provides helpers to load, validate and save them in YAML format.
//
// The settings file is optional: without it the tool runs with defaults.
package config
