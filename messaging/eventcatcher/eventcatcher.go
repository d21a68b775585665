package eventcatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"govledger/engine/library"
)

// Options selects one relay and the event kinds forwarded from it.
type Options struct {
	Relay     string
	Kinds     []int
	Since     time.Time
	Terminate <-chan struct{}
}

var cache = make(map[library.Sha256]nostr.Event)
var cacheMu = &deadlock.Mutex{}

func pushCache(e nostr.Event) bool {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if _, seen := cache[e.ID]; seen {
		return false
	}
	cache[e.ID] = e
	return true
}

func FetchCache(id library.Sha256) (nostr.Event, bool) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	e, ok := cache[id]
	return e, ok
}

// Subscribe forwards every correctly signed event of the requested kinds to
// eChan, once per event id. The connection is re-established after the
// machine wakes from sleep or the relay goes quiet. It returns when
// opts.Terminate is closed.
func Subscribe(opts Options, eChan chan<- nostr.Event) {
	var sleepChan = make(chan bool)
	sleeper(sleepChan)
	for {
		restart := subscribeOnce(opts, eChan, sleepChan)
		if !restart {
			return
		}
		library.LogCLI("Restarting eventcatcher", 4)
		select {
		case <-time.After(time.Second * 5):
		case <-opts.Terminate:
			return
		}
	}
}

func subscribeOnce(opts Options, eChan chan<- nostr.Event, sleepChan chan bool) bool {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relay, err := nostr.RelayConnect(ctx, opts.Relay)
	if err != nil {
		library.LogCLI(fmt.Sprintf("could not connect to relay %s: %s", opts.Relay, err), 2)
		return true
	}
	defer relay.Close()
	filter := nostr.Filter{Kinds: opts.Kinds}
	if !opts.Since.IsZero() {
		since := nostr.Timestamp(opts.Since.Unix())
		filter.Since = &since
	}
	library.LogCLI("Connecting to "+relay.URL, 4)
	sub, err := relay.Subscribe(ctx, nostr.Filters{filter})
	if err != nil {
		library.LogCLI(err.Error(), 1)
		return true
	}
	lastEventTime := time.Now()
	for {
		select {
		case <-sleepChan:
			library.LogCLI("system sleep detected, reconnecting", 2)
			return true
		case ev := <-sub.Events:
			if ev == nil {
				library.LogCLI("Terminating connection to relay", 3)
				return true
			}
			lastEventTime = time.Now()
			if ok, _ := ev.CheckSignature(); !ok {
				continue
			}
			if !pushCache(*ev) {
				continue
			}
			select {
			case eChan <- *ev:
			case <-opts.Terminate:
				return false
			}
		case <-time.After(time.Minute):
			if time.Since(lastEventTime) > time.Minute*2 {
				library.LogCLI("relay has been quiet for two minutes", 3)
				return true
			}
		case <-opts.Terminate:
			return false
		}
	}
}
