package config

import (
	"github.com/BurntSushi/toml"

	"tradecopier/internal/adapter"
	"tradecopier/internal/models"
)

// endpointsFile is the on-disk TOML shape for AdapterEndpointsFile: ordered
// per-platform defaults plus per-firm overrides, tried firm-first per the
// connection protocol's base-URL candidate order.
type endpointsFile struct {
	Defaults map[string][]string            `toml:"defaults"`
	PerFirm  map[string]map[string][]string `toml:"per_firm"`
}

// LoadEndpointOverrides reads the optional TOML file named by
// AdapterEndpointsFile. A missing path is not an error — adapters then fall
// back to their compiled-in default base URLs.
func LoadEndpointOverrides(path string) (adapter.EndpointOverrides, error) {
	if path == "" {
		return adapter.EndpointOverrides{
			Defaults: map[models.Platform][]string{},
			PerFirm:  map[models.Platform]map[models.Firm][]string{},
		}, nil
	}

	var raw endpointsFile
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return adapter.EndpointOverrides{}, err
	}

	out := adapter.EndpointOverrides{
		Defaults: make(map[models.Platform][]string, len(raw.Defaults)),
		PerFirm:  make(map[models.Platform]map[models.Firm][]string, len(raw.PerFirm)),
	}
	for platform, urls := range raw.Defaults {
		out.Defaults[models.Platform(platform)] = urls
	}
	for platform, firms := range raw.PerFirm {
		perFirm := make(map[models.Firm][]string, len(firms))
		for firm, urls := range firms {
			perFirm[models.Firm(firm)] = urls
		}
		out.PerFirm[models.Platform(platform)] = perFirm
	}
	return out, nil
}
