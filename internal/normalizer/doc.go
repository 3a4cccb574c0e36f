// Package normalizer translates a declared {command, args, env} tuple into
// the platform-native argv[] spawn tuple a stdio carrier hands to
// os/exec.Command. It never invokes a shell: the result is always an
// explicit argv slice.
package normalizer
