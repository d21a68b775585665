package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/nbd-wtf/go-nostr"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"govledger/engine/actors"
	"govledger/engine/helpers"
	"govledger/engine/library"
	"govledger/messaging/blocks"
	"govledger/messaging/conductor"
	"govledger/messaging/eventcatcher"
	"govledger/messaging/ingest"
	"govledger/state/chain"
	"govledger/state/governance"
	"govledger/state/protocol"
)

var (
	genesisFile string
	fresh       bool
	verbose     bool
	proposed    bool
	publish     bool
)

func RootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "engine",
		Short: "Evaluate governance ledger blocks",
	}
	rootCmd.PersistentFlags().StringVarP(&genesisFile, "genesis", "g", "", "genesis file (defaults to genesisFile in the config)")
	rootCmd.PersistentFlags().BoolVar(&fresh, "fresh", false, "ignore the saved ledger and start from genesis")

	runCmd := &cobra.Command{
		Use:   "run [blocks.json]",
		Short: "Apply a JSON array of blocks and save the resulting state",
		Args:  cobra.ExactArgs(1),
		RunE:  runBlocks,
	}
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "dump every receipt")

	followCmd := &cobra.Command{
		Use:   "follow",
		Short: "Follow transactions and block headers published on the configured relays",
		RunE:  follow,
	}

	signCmd := &cobra.Command{
		Use:   "sign [transaction.json]",
		Short: "Wrap a transaction in an event signed by this node",
		Args:  cobra.ExactArgs(1),
		RunE:  sign,
	}
	signCmd.Flags().BoolVarP(&proposed, "proposed", "p", false, "mark the transaction as an approved proposal payload")
	signCmd.Flags().BoolVar(&publish, "publish", false, "publish the signed event to relaysMust")

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Browse the current ledger state from the keyboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDatabase()
			if err != nil {
				return err
			}
			interrupt := make(chan struct{})
			go cliListener(d, interrupt)
			<-interrupt
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, followCmd, signCmd, inspectCmd)
	return rootCmd
}

// openDatabase resumes from the saved ledger unless --fresh is set or there
// is nothing saved, in which case it builds the genesis state.
func openDatabase() (*chain.Database, error) {
	reserve, err := actors.ConstructionCapitalAccount()
	if err != nil {
		return nil, errors.Wrap(err, "constructionCapitalAccount")
	}
	if !fresh {
		d, ok, err := actors.LoadState(reserve)
		if err != nil {
			return nil, err
		}
		if ok {
			library.LogCLI("resuming from saved ledger", 4)
			return d, nil
		}
	}
	path := genesisFile
	if path == "" {
		path = actors.GenesisPath()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read genesis")
	}
	g, err := chain.ParseGenesis(b)
	if err != nil {
		return nil, err
	}
	return chain.New(g, reserve)
}

// seededTracker starts a header tracker at the ledger's head block.
func seededTracker(d *chain.Database, producers ...string) (*blocks.Tracker, error) {
	tracker := blocks.NewTracker(producers...)
	dyn, err := d.Globals.Dynamic()
	if err != nil {
		return nil, err
	}
	if dyn.HeadBlockNumber > 0 {
		if err := tracker.Accept(blocks.Header{Height: dyn.HeadBlockNumber, Hash: dyn.HeadBlockID, Time: dyn.Time}); err != nil {
			return nil, err
		}
	}
	return tracker, nil
}

func newConductor(d *chain.Database, producers ...string) (*conductor.Conductor, *blocks.Tracker, error) {
	dispatcher, err := governance.NewDispatcher()
	if err != nil {
		return nil, nil, err
	}
	tracker, err := seededTracker(d, producers...)
	if err != nil {
		return nil, nil, err
	}
	return conductor.New(d, dispatcher, tracker), tracker, nil
}

func runBlocks(cmd *cobra.Command, args []string) error {
	d, err := openDatabase()
	if err != nil {
		return err
	}
	c, _, err := newConductor(d)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrap(err, "read blocks")
	}
	var input []conductor.Block
	if err := json.Unmarshal(b, &input); err != nil {
		return errors.Wrap(err, "decode blocks")
	}
	for _, block := range input {
		receipt, err := c.ApplyBlock(block)
		if err != nil {
			return err
		}
		if verbose {
			spew.Dump(receipt)
		}
		applied := 0
		for _, r := range receipt.Receipts {
			if r.Applied() {
				applied++
			}
		}
		fmt.Printf("block %d: %d/%d transactions applied, digest %s\n", receipt.Number, applied, len(receipt.Receipts), receipt.Digest)
	}
	return actors.SaveState(d)
}

func follow(cmd *cobra.Command, args []string) error {
	d, err := openDatabase()
	if err != nil {
		return err
	}
	conf := actors.MakeOrGetConfig()
	c, tracker, err := newConductor(d, conf.GetStringSlice("producers")...)
	if err != nil {
		return err
	}
	since, err := d.HeadBlockTime()
	if err != nil {
		return err
	}
	collector := ingest.NewCollector(ingest.NewDecoder(conf.GetStringSlice("proposers")...), tracker)
	c.OnCommit = func(r conductor.BlockReceipt) {
		if err := actors.SaveState(d); err != nil {
			library.LogCLI(err.Error(), 1)
		}
		e, err := actors.StateDigestEvent(actors.StateDigest{Height: r.Number, Digest: r.Digest}, actors.MyWallet())
		if err != nil {
			library.LogCLI(err.Error(), 1)
			return
		}
		actors.PublishToRelays([]nostr.Event{e}, conf.GetStringSlice("relaysMust"))
	}

	terminate := actors.GetTerminateChan()
	events := make(chan nostr.Event)
	blockChan := make(chan conductor.Block)
	for _, relay := range conf.GetStringSlice("relaysMust") {
		opts := eventcatcher.Options{
			Relay:     relay,
			Kinds:     []int{ingest.KindTransaction, ingest.KindProposedTransaction, blocks.KindBlockHeader},
			Since:     since,
			Terminate: terminate,
		}
		actors.GetWaitGroup().Add(1)
		go func() {
			defer actors.GetWaitGroup().Done()
			eventcatcher.Subscribe(opts, events)
		}()
	}
	actors.GetWaitGroup().Add(2)
	go func() {
		defer actors.GetWaitGroup().Done()
		collector.Run(events, blockChan, terminate)
	}()
	go func() {
		defer actors.GetWaitGroup().Done()
		c.Run(blockChan, terminate)
	}()

	interrupt := make(chan struct{})
	go cliListener(d, interrupt)
	<-interrupt
	actors.Shutdown()
	return nil
}

func sign(cmd *cobra.Command, args []string) error {
	b, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrap(err, "read transaction")
	}
	var tx protocol.Transaction
	if err := json.Unmarshal(b, &tx); err != nil {
		return err
	}
	unsigned, err := ingest.Encode(tx, proposed)
	if err != nil {
		return err
	}
	e, err := helpers.SignAsNode(unsigned)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if publish {
		actors.PublishToRelays([]nostr.Event{e}, actors.MakeOrGetConfig().GetStringSlice("relaysMust"))
	}
	return nil
}
