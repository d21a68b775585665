package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"govledger/engine/actors"
	"govledger/engine/library"
)

func main() {
	// Various aspect of this application require global and local settings. To keep things
	// clean and tidy we put these settings in a Viper configuration.
	conf := viper.New()

	// Now we initialise this configuration with basic settings that are required on startup.
	actors.InitConfig(conf)
	// make the config accessible globally
	actors.SetConfig(conf)
	if err := RootCommand().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	library.LogCLI("engine stopped", 4)
}
