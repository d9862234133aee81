package main

import (
	"github.com/quailyquaily/kbmorph/llm"
	"github.com/quailyquaily/kbmorph/providers/uniai"
	"github.com/quailyquaily/kbmorph/tools"
	"github.com/quailyquaily/kbmorph/tools/builtin"
	"github.com/spf13/viper"
)

func registryFromViper() *tools.Registry {
	r := tools.NewRegistry()

	r.Register(builtin.NewKnowledgeSearchTool(
		viper.GetBool("kb.enabled"),
		viper.GetString("kb.endpoint"),
		viper.GetString("kb.api_key"),
		viper.GetDuration("kb.timeout"),
		viper.GetInt64("kb.max_bytes"),
	))

	if viper.GetBool("tools.web_search.enabled") {
		r.Register(builtin.NewWebSearchTool(
			true,
			viper.GetString("tools.web_search.base_url"),
			viper.GetDuration("tools.web_search.timeout"),
			viper.GetInt("tools.web_search.max_results"),
		))
	}

	return r
}

func llmClientFromViper() llm.Client {
	return uniai.New(uniai.Config{
		Provider:       viper.GetString("llm.provider"),
		Endpoint:       viper.GetString("llm.endpoint"),
		APIKey:         viper.GetString("llm.api_key"),
		Model:          viper.GetString("llm.model"),
		RequestTimeout: viper.GetDuration("llm.request_timeout"),
		Debug:          viper.GetBool("llm.debug"),
	})
}
