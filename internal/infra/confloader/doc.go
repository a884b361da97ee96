// Package confloader provides configuration loading mechanism.
//
// It uses koanf to merge YAML files, environment variables and explicit
// maps into a typed struct.
//
// Priority (highest to lowest):
//
//  1. Overrides (command-line flags)
//  2. Environment variables (GARAGEBOOK_SECTION_KEY)
//  3. Configuration file
//  4. Defaults
package confloader
