package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/muhammadmuzzammil1998/jsonc"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "toastpack.json"

// ProductionType is the build type enabling minification.
const ProductionType = "production"

type Configuration struct {
	Dest                string             `json:"dest,omitempty"`
	Temp                string             `json:"temp,omitempty"`
	WebcomponentsFolder string             `json:"webcomponentsFolder,omitempty"`
	TemplateFile        string             `json:"templateFile,omitempty"`
	TempTemplates       string             `json:"tempTemplates,omitempty"`
	Polymer             string             `json:"polymer,omitempty"`
	Styleguide          string             `json:"styleguide,omitempty"`
	Demo                string             `json:"demo,omitempty"`
	Type                string             `json:"type,omitempty"`
	Targets             []string           `json:"targets,omitempty"`
	SassCommand         []string           `json:"sassCommand,omitempty"`
	ServeConfig         ServeConfiguration `json:"serve,omitempty"`
}

type ServeConfiguration struct {
	Redirect404 string `json:"redirect_404"`
	Port        int    `json:"port"`
}

// Default returns a fresh copy of the default configuration.
func Default() *Configuration {
	return &Configuration{
		Dest:                "dist",
		Temp:                ".tmp",
		WebcomponentsFolder: "src",
		TemplateFile:        "template/template.html",
		TempTemplates:       ".tmp/_templates",
		Polymer:             "polymer/*.html",
		Styleguide:          "styleguide/styleguide.scss",
		Demo:                "demo",
		Targets:             []string{"chrome58", "edge16", "firefox57", "safari11"},
		ServeConfig: ServeConfiguration{
			Port: 8100,
		},
	}
}

// Load reads the configuration file at configpath over the defaults.
// An empty path falls back to DefaultConfigFile, which may be absent.
func Load(configpath string) (*Configuration, error) {
	cfg := Default()

	explicit := configpath != ""
	if !explicit {
		configpath = DefaultConfigFile
	}

	raw, err := os.ReadFile(configpath)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "could not access configuration file %s", configpath)
	}

	data, err := normalize(configpath, raw)
	if err != nil {
		return nil, err
	}

	err = Validate(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid configuration file %s", configpath)
	}

	err = json.Unmarshal(data, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode configuration file %s", configpath)
	}

	return cfg, nil
}

// normalize turns a jsonc or yaml document into plain JSON.
func normalize(configpath string, raw []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(configpath)) {
	case ".yaml", ".yml":
		var doc map[string]interface{}
		err := yaml.Unmarshal(raw, &doc)
		if err != nil {
			return nil, errors.Wrapf(err, "could not parse yaml configuration %s", configpath)
		}
		if doc == nil {
			doc = map[string]interface{}{}
		}
		return json.Marshal(doc)
	default:
		return jsonc.ToJSON(raw), nil
	}
}
