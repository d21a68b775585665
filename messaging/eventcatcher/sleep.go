//go:build !darwin

package eventcatcher

// sleeper only has a sleep source on darwin.
func sleeper(listen chan bool) {}
