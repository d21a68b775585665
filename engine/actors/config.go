package actors

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"govledger/engine/library"
	"govledger/state/objectstore"
	"govledger/state/protocol"
)

// InitConfig sets up our Viper config object
func InitConfig(config *viper.Viper) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		library.LogCLI(err.Error(), 0)
	}
	config.SetDefault("rootDir", filepath.Join(homeDir, "govledger")+"/")
	config.SetConfigType("yaml")
	config.SetConfigFile(config.GetString("rootDir") + "config.yaml")
	err = config.ReadInConfig()
	if err != nil {
		library.LogCLI(err.Error(), 4)
	}
	config.SetDefault("flatFileDir", "data/")
	config.SetDefault("genesisFile", "genesis.json")
	config.SetDefault("logLevel", 4)
	config.SetDefault("constructionCapitalAccount", protocol.ConstructionCapitalAccount.String())
	config.SetDefault("doNotPublish", true)
	config.SetDefault("relaysMust", []string{"wss://nostr.688.org"})
	// pubkeys allowed to publish proposal results and block headers
	config.SetDefault("proposers", []string{})
	config.SetDefault("producers", []string{})
	// Create our working directory and config file if not exist
	initRootDir(config)
	err = config.WriteConfig()
	if err != nil {
		library.LogCLI(err.Error(), 1)
	}
	library.SetLogLevel(config.GetInt("logLevel"))
}

func initRootDir(conf *viper.Viper) {
	_, err := os.Stat(conf.GetString("rootDir"))
	if os.IsNotExist(err) {
		err = os.MkdirAll(conf.GetString("rootDir"), 0755)
		if err != nil {
			library.LogCLI(err, 0)
		}
	}
}

var conf *viper.Viper

func MakeOrGetConfig() *viper.Viper {
	if conf == nil {
		conf = viper.New()
		InitConfig(conf)
	}
	return conf
}

func SetConfig(config *viper.Viper) {
	conf = config
}

// ConstructionCapitalAccount is the configured reserve account.
func ConstructionCapitalAccount() (protocol.ObjectID, error) {
	return objectstore.ParseObjectID(MakeOrGetConfig().GetString("constructionCapitalAccount"))
}

// GenesisPath resolves genesisFile against rootDir unless it is absolute.
func GenesisPath() string {
	p := MakeOrGetConfig().GetString("genesisFile")
	if filepath.IsAbs(p) {
		return p
	}
	return MakeOrGetConfig().GetString("rootDir") + p
}
