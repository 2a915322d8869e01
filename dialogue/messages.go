package dialogue

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultMessages []byte

// Messages holds every static text and button label the engine emits.
type Messages struct {
	Greeting         string `yaml:"greeting"`
	Help             string `yaml:"help"`
	InterestQuestion string `yaml:"interest_question"`
	ButtonYes        string `yaml:"button_yes"`
	ButtonNo         string `yaml:"button_no"`
	Decline          string `yaml:"decline"`
	CategoryIntro    string `yaml:"category_intro"`
	Filler           string `yaml:"filler"`
	MorePrompt       string `yaml:"more_prompt"`
	ButtonMoreInfo   string `yaml:"button_more_info"`
	ButtonNothing    string `yaml:"button_nothing"`
	CategoryChosen   string `yaml:"category_chosen"`
	ClubDetail       string `yaml:"club_detail"`
	Closing          string `yaml:"closing"`
	Apology          string `yaml:"apology"`
	LookupFailed     string `yaml:"lookup_failed"`
	FindUsage        string `yaml:"find_usage"`
	FindEmpty        string `yaml:"find_empty"`
	FindResults      string `yaml:"find_results"`
	AdminOnly        string `yaml:"admin_only"`
}

// DefaultMessages returns the embedded texts.
func DefaultMessages() Messages {
	var m Messages
	if err := yaml.Unmarshal(defaultMessages, &m); err != nil {
		panic(fmt.Sprintf("dialogue: embedded messages: %v", err))
	}
	return m
}

// LoadMessages overlays the YAML file at path on the embedded texts.
// Keys missing from the file keep their defaults; a key set to an empty string
// is rejected, since every text is sent on some path. An empty path returns
// the defaults.
func LoadMessages(path string) (Messages, error) {
	m := DefaultMessages()
	if strings.TrimSpace(path) == "" {
		return m, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Messages{}, fmt.Errorf("read messages: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Messages{}, fmt.Errorf("parse messages: %w", err)
	}
	if err := m.validate(); err != nil {
		return Messages{}, err
	}
	return m, nil
}

func (m Messages) validate() error {
	fields := []struct{ key, value string }{
		{"greeting", m.Greeting},
		{"help", m.Help},
		{"interest_question", m.InterestQuestion},
		{"button_yes", m.ButtonYes},
		{"button_no", m.ButtonNo},
		{"decline", m.Decline},
		{"category_intro", m.CategoryIntro},
		{"filler", m.Filler},
		{"more_prompt", m.MorePrompt},
		{"button_more_info", m.ButtonMoreInfo},
		{"button_nothing", m.ButtonNothing},
		{"category_chosen", m.CategoryChosen},
		{"club_detail", m.ClubDetail},
		{"closing", m.Closing},
		{"apology", m.Apology},
		{"lookup_failed", m.LookupFailed},
		{"find_usage", m.FindUsage},
		{"find_empty", m.FindEmpty},
		{"find_results", m.FindResults},
		{"admin_only", m.AdminOnly},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("messages: %s must not be empty", f.key)
		}
	}
	return nil
}

// fill replaces {key} placeholders with values.
func fill(tmpl string, kv ...string) string {
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "{"+kv[i]+"}", kv[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
