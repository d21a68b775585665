package actors

import (
	"context"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"govledger/engine/library"
)

// PublishToRelays sends events to every relay concurrently and waits for all
// of them. Failures are logged per relay. Nothing is sent when doNotPublish
// is set.
func PublishToRelays(events []nostr.Event, relays []string) {
	if MakeOrGetConfig().GetBool("doNotPublish") {
		library.LogCLI(fmt.Sprintf("doNotPublish is set, holding back %d events", len(events)), 4)
		return
	}
	var wg = &deadlock.WaitGroup{}
	for _, relay := range relays {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			relay, err := nostr.RelayConnect(ctx, url)
			if err != nil {
				library.LogCLI(fmt.Sprintf("could not connect to relay %s: %s", url, err), 2)
				return
			}
			defer relay.Close()
			for _, event := range events {
				if _, err := relay.Publish(ctx, event); err != nil {
					library.LogCLI(fmt.Sprintf("could not publish %s to relay %s: %s", event.ID, url, err), 2)
				}
			}
		}(relay)
	}
	wg.Wait()
}
