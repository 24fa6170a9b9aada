// Package confloader reads respkv configuration with koanf and watches
// the config file with fsnotify.
//
// Priority (highest to lowest):
//
//  1. Environment variables (RESPKV_ prefix, "__" between levels)
//  2. Configuration file (YAML)
//  3. Values already present in the target struct (defaults)
package confloader
