package library

// Wallet is the node's nostr signing identity.
type Wallet struct {
	PrivateKey string
	SeedWords  string
	Account    Account
}

// Account is a hex encoded nostr pubkey. Not to be confused with a ledger
// account object, which is addressed by its object id.
type Account = string

type Sha256 = string
