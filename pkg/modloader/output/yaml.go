package output

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

type yamlOutput struct {
	Mods []ModInfo `yaml:"mods"`
	Meta yamlMeta  `yaml:"meta"`
}

type yamlMeta struct {
	ModsRoot   string   `yaml:"mods_root"`
	Game       string   `yaml:"game,omitempty"`
	Patch      string   `yaml:"patch,omitempty"`
	TotalMods  int      `yaml:"total_mods"`
	ActiveMods int      `yaml:"active_mods"`
	TotalSize  int64    `yaml:"total_size,omitempty"`
	Warnings   []string `yaml:"warnings,omitempty"`
}

// YAMLFormatter formats output as YAML with the same structure as
// JSONFormatter.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	mods := r.Mods
	if mods == nil {
		mods = []ModInfo{}
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(yamlOutput{
		Mods: mods,
		Meta: yamlMeta{
			ModsRoot:   r.ModsRoot,
			Game:       r.Game,
			Patch:      r.Patch,
			TotalMods:  len(r.Mods),
			ActiveMods: r.ActiveCount(),
			TotalSize:  r.TotalSize(),
			Warnings:   r.Warnings,
		},
	}); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
