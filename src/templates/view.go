package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"

	"github.com/khabaroff/accounts-selfhosted/src/models"
	"gopkg.in/yaml.v3"
)

//go:embed view/*
var viewTemplates embed.FS

// ViewConfig holds branding and labels for the demo page from view/config.yaml
type ViewConfig struct {
	Branding struct {
		Name    string `yaml:"name"`
		Tagline string `yaml:"tagline"`
	} `yaml:"branding"`

	Design struct {
		PrimaryColor string `yaml:"primary_color"`
		PrimaryHover string `yaml:"primary_hover"`
		TextColor    string `yaml:"text_color"`
		MutedColor   string `yaml:"muted_color"`
		Background   string `yaml:"background"`
		BorderColor  string `yaml:"border_color"`
		DangerColor  string `yaml:"danger_color"`
	} `yaml:"design"`

	Labels Labels `yaml:"labels"`
}

// Labels are the user-facing strings of the demo page
type Labels struct {
	LoginTitle       string `yaml:"login_title"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	LoginButton      string `yaml:"login_button"`
	LogoutButton     string `yaml:"logout_button"`
	AccountsTitle    string `yaml:"accounts_title"`
	CreateTitle      string `yaml:"create_title"`
	CreateButton     string `yaml:"create_button"`
	DeleteButton     string `yaml:"delete_button"`
	ActivateButton   string `yaml:"activate_button"`
	DeactivateButton string `yaml:"deactivate_button"`
	NeverLoggedIn    string `yaml:"never_logged_in"`
}

// IndexData holds data for the index page template
type IndexData struct {
	// Acting identity, empty when anonymous
	Username string
	IsAdmin  bool

	// Populated for admins only
	Accounts []*models.Account

	// Config-based data
	BrandName string
	Tagline   string
	Labels    Labels

	// Design colors
	PrimaryColor string
	PrimaryHover string
	TextColor    string
	MutedColor   string
	Background   string
	BorderColor  string
	DangerColor  string
}

var (
	indexOnce sync.Once
	indexTmpl *template.Template
	indexErr  error
)

// LoadViewConfig loads the demo page configuration from the embedded config.yaml
func LoadViewConfig() (*ViewConfig, error) {
	data, err := viewTemplates.ReadFile("view/config.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read view config: %w", err)
	}

	var config ViewConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse view config: %w", err)
	}

	return &config, nil
}

// NewIndexData fills the config-based fields of IndexData
func (vc *ViewConfig) NewIndexData() IndexData {
	return IndexData{
		BrandName:    vc.Branding.Name,
		Tagline:      vc.Branding.Tagline,
		Labels:       vc.Labels,
		PrimaryColor: vc.Design.PrimaryColor,
		PrimaryHover: vc.Design.PrimaryHover,
		TextColor:    vc.Design.TextColor,
		MutedColor:   vc.Design.MutedColor,
		Background:   vc.Design.Background,
		BorderColor:  vc.Design.BorderColor,
		DangerColor:  vc.Design.DangerColor,
	}
}

// RenderIndexHTML renders the demo page
func RenderIndexHTML(data IndexData) (string, error) {
	indexOnce.Do(func() {
		var tmplData []byte
		tmplData, indexErr = viewTemplates.ReadFile("view/index.html")
		if indexErr != nil {
			indexErr = fmt.Errorf("failed to read index.html: %w", indexErr)
			return
		}
		indexTmpl, indexErr = template.New("index").Parse(string(tmplData))
		if indexErr != nil {
			indexErr = fmt.Errorf("failed to parse index template: %w", indexErr)
		}
	})
	if indexErr != nil {
		return "", indexErr
	}

	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute index template: %w", err)
	}

	return buf.String(), nil
}
