package main

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"enchere/adapters/restapi"
	"enchere/widget"
)

func ParseArgs() Args {
	// widget config
	pflag.String("client-id", "", "")
	pflag.String("environment", widget.EnvProduction, "")
	pflag.String("base-url", "", "")
	pflag.String("ws-url", "", "")
	pflag.String("access-token", "", "")

	// property config
	pflag.String("property-id", "", "")
	pflag.String("source", "", "")
	pflag.String("source-agency-id", "", "")
	pflag.String("source-id", "", "")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("ENCHERE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// initial arguments
	return Args{
		Config: widget.Config{
			ClientID:    viper.GetString("client-id"),
			Environment: viper.GetString("environment"),
			BaseURL:     viper.GetString("base-url"),
			WSURL:       viper.GetString("ws-url"),
			AccessToken: viper.GetString("access-token"),
		},
		Property: restapi.PropertyInfo{
			PropertyID:     viper.GetString("property-id"),
			Source:         viper.GetString("source"),
			SourceAgencyID: viper.GetString("source-agency-id"),
			SourceID:       viper.GetString("source-id"),
		},
	}
}

type Args struct {
	Config   widget.Config
	Property restapi.PropertyInfo
}

func (args Args) Validate() bool {
	byID := args.Property.PropertyID != ""
	bySource := args.Property.Source != "" && args.Property.SourceAgencyID != "" && args.Property.SourceID != ""
	return args.Config.ClientID != "" && (byID || bySource)
}
