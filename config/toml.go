package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	cmtos "github.com/cometbft/cometbft/libs/os"
)

const DefaultDirPerm = 0o700

//go:embed config.toml.tpl
var defaultConfigTemplate string

var configTemplate = template.Must(template.New("configFileTemplate").Funcs(template.FuncMap{
	"StringsJoin": strings.Join,
}).Parse(defaultConfigTemplate))

// WriteConfigFile renders cfg into configFilePath.
func WriteConfigFile(configFilePath string, cfg *Config) error {
	var buffer bytes.Buffer
	if err := configTemplate.Execute(&buffer, cfg); err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	if err := cmtos.EnsureDir(filepath.Dir(configFilePath), DefaultDirPerm); err != nil {
		return err
	}
	return cmtos.WriteFile(configFilePath, buffer.Bytes(), 0o644)
}
