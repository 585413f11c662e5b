// Package config handles loading and validating runward's YAML configuration.
//
// Configuration is resolved in three layers, each overriding the last:
//
//  1. Built-in defaults (Default)
//  2. The YAML file (strict decoding; unknown keys are rejected)
//  3. RUNWARD_* environment variables, for secrets and deploy-time paths
//
// The execute section mirrors the execution policy and converts to one via
// Config.Policy. Optional subsystems (history, metrics, events) each carry
// an enabled flag so a bare config file still validates.
package config
