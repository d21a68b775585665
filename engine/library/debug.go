package library

import (
	"github.com/sasha-s/go-deadlock"
)

// ValidateSaneExecutionTime holds a deadlock-tracked mutex until the returned
// func is called. If the caller takes longer than go-deadlock's timeout the
// detector reports it, which is how a hung block application surfaces.
func ValidateSaneExecutionTime() func() {
	mu := deadlock.Mutex{}
	mu.Lock()
	go func() {
		mu.Lock()
		mu.Unlock()
	}()
	return func() {
		mu.Unlock()
	}
}
