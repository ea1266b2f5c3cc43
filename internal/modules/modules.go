package modules

import (
	"github.com/kingrea/birdwatcher/internal/modules/reporting_csv"
	"github.com/kingrea/birdwatcher/internal/modules/reporting_json"
	"github.com/kingrea/birdwatcher/internal/modules/statuses_word_list"
	"github.com/kingrea/birdwatcher/internal/modules/urls_crawl"
	"github.com/kingrea/birdwatcher/internal/modules/urls_most_shared"
	"github.com/kingrea/birdwatcher/internal/modules/users_import"
	"github.com/kingrea/birdwatcher/internal/plugin"
)

// RegisterBuiltins installs all of the built-in module factories into the
// provided registry.
func RegisterBuiltins(reg *plugin.Registry) {
	if reg == nil {
		return
	}
	reporting_csv.Register(reg)
	reporting_json.Register(reg)
	statuses_word_list.Register(reg)
	urls_crawl.Register(reg)
	urls_most_shared.Register(reg)
	users_import.Register(reg)
}
