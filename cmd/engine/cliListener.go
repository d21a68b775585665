package main

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/eiannone/keyboard"
	"govledger/engine/actors"
	"govledger/engine/library"
	"govledger/state/chain"
)

// cliListener is a cheap and nasty way to look at the ledger while the engine runs. It listens for keypresses and prints state.
func cliListener(d *chain.Database, interrupt chan struct{}) {
	fmt.Println("VIEW CURRENT STATE:\na: accounts\nb: balances\nm: committee members\ng: global properties\nd: state digest\nw: current wallet\nc: engine config\nq: to quit\nSee cliListener.go for more")
	for {
		r, k, err := keyboard.GetSingleKey()
		if err != nil {
			library.LogCLI(err.Error(), 1)
			close(interrupt)
			return
		}
		str := string(r)
		switch str {
		default:
			if k == keyboard.KeyEnter {
				fmt.Println("\n-----------------------------------")
				break
			}
			if r == 0 {
				break
			}
			fmt.Println("Key " + str + " is not bound to anything. See cliListener.go for more details.")
		case "q":
			close(interrupt)
			return
		case "a":
			for name, id := range d.Accounts.GetMap() {
				a, ok := d.Accounts.Find(id)
				if !ok {
					continue
				}
				fmt.Printf("\nACCOUNT %s: %s lifetime member: %t instant payback until: %s\n", id, name, a.LifetimeMember, a.InstantPaybackExpiration)
			}
		case "b":
			for owner, assets := range d.Balances.GetMap() {
				for asset, amount := range assets {
					fmt.Printf("\nOwner: %s Asset: %s Amount: %d\n", owner, asset, amount)
				}
			}
		case "m":
			for _, m := range d.Committee.All() {
				fmt.Printf("\nMEMBER %s: account %s vote %s url %q\n", m.ID, m.CommitteeMemberAccount, m.VoteID, m.URL)
			}
		case "g":
			gp, err := d.Globals.Global()
			if err != nil {
				library.LogCLI(err.Error(), 1)
				break
			}
			dyn, err := d.Globals.Dynamic()
			if err != nil {
				library.LogCLI(err.Error(), 1)
				break
			}
			spew.Dump(gp, dyn)
		case "d":
			digest, err := d.Digest()
			if err != nil {
				library.LogCLI(err.Error(), 1)
				break
			}
			fmt.Println(digest)
		case "w":
			fmt.Printf("Current Wallet: \n%s\n", actors.MyWallet().Account)
		case "c":
			fmt.Println("CURRENT CONFIG")
			for k, v := range actors.MakeOrGetConfig().AllSettings() {
				fmt.Printf("\nKey: %s; Value: %v\n", k, v)
			}
		}
	}
}
