// Package factory builds pluggable modules from configuration lists. Each
// entry has a type and a map of settings; the factory registered for the
// type decodes the settings with Decode.
package factory
