package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chapelsoftware/go-imacros/pkg/imacros"
)

// profile is the optional YAML file overriding engine defaults before
// playback. Zero values mean "leave the engine default alone".
type profile struct {
	TimeoutPage      float64 `yaml:"timeout_page"`
	TimeoutTag       float64 `yaml:"timeout_tag"`
	TimeoutStep      float64 `yaml:"timeout_step"`
	DownloadFolder   string  `yaml:"download_folder"`
	DatasourceFolder string  `yaml:"datasource_folder"`
	ReplaySpeed      string  `yaml:"replay_speed"`
	ErrorIgnore      bool    `yaml:"error_ignore"`
}

// defaultProfileName is picked up from the working directory when no
// --profile flag is given.
const defaultProfileName = "imacros.yaml"

func loadProfile(path string) (*profile, error) {
	explicit := path != ""
	if !explicit {
		path = defaultProfileName
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return &profile{}, nil
		}
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	var p profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return &p, nil
}

func (p *profile) apply(engine *imacros.Engine) error {
	set := func(name string, value any) error {
		if err := engine.SetVariable(name, value); err != nil {
			return fmt.Errorf("profile: %w", err)
		}
		return nil
	}

	if p.TimeoutPage > 0 {
		if err := set("!TIMEOUT_PAGE", p.TimeoutPage); err != nil {
			return err
		}
	}
	if p.TimeoutTag > 0 {
		if err := set("!TIMEOUT_TAG", p.TimeoutTag); err != nil {
			return err
		}
	}
	if p.TimeoutStep > 0 {
		if err := set("!TIMEOUT_STEP", p.TimeoutStep); err != nil {
			return err
		}
	}
	if p.DownloadFolder != "" {
		if err := set("!FOLDER_DOWNLOAD", p.DownloadFolder); err != nil {
			return err
		}
	}
	if p.DatasourceFolder != "" {
		if err := set("!FOLDER_DATASOURCE", p.DatasourceFolder); err != nil {
			return err
		}
	}
	if p.ReplaySpeed != "" {
		if err := set("!REPLAYSPEED", p.ReplaySpeed); err != nil {
			return err
		}
	}
	if p.ErrorIgnore {
		if err := set("!ERRORIGNORE", "YES"); err != nil {
			return err
		}
	}
	return nil
}
