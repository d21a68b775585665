package actors

import (
	"github.com/sasha-s/go-deadlock"
)

var terminateChan = make(chan struct{})
var waitGroup = &deadlock.WaitGroup{}
var shutdownOnce = &deadlock.Once{}

func SetTerminateChan(term chan struct{}) {
	terminateChan = term
	shutdownOnce = &deadlock.Once{}
}

func GetTerminateChan() chan struct{} {
	return terminateChan
}

func GetWaitGroup() *deadlock.WaitGroup {
	return waitGroup
}

// Shutdown closes the terminate channel once and waits for every registered
// worker to finish.
func Shutdown() {
	shutdownOnce.Do(func() {
		close(terminateChan)
	})
	waitGroup.Wait()
}
