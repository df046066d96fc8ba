package templates

import (
	"testing"
	"time"

	"github.com/khabaroff/accounts-selfhosted/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadViewConfig(t *testing.T) {
	cfg, err := LoadViewConfig()
	require.NoError(t, err)

	assert.Equal(t, "Accounts", cfg.Branding.Name)
	assert.NotEmpty(t, cfg.Design.PrimaryColor)
	assert.Equal(t, "Sign in", cfg.Labels.LoginTitle)
}

func TestRenderIndexHTML_Anonymous(t *testing.T) {
	cfg, err := LoadViewConfig()
	require.NoError(t, err)

	html, err := RenderIndexHTML(cfg.NewIndexData())
	require.NoError(t, err)

	assert.Contains(t, html, `id="login-form"`)
	assert.NotContains(t, html, `id="admin"`)
	assert.NotContains(t, html, `id="logout"`)
}

func TestRenderIndexHTML_Admin(t *testing.T) {
	cfg, err := LoadViewConfig()
	require.NoError(t, err)

	login := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	data := cfg.NewIndexData()
	data.Username = "root"
	data.IsAdmin = true
	data.Accounts = []*models.Account{
		{Username: "root", Flags: models.AllFlags, LastLogin: &login},
		{Username: "<bob>", Flags: 0},
	}

	html, err := RenderIndexHTML(data)
	require.NoError(t, err)

	assert.Contains(t, html, "Signed in as <strong>root</strong> (admin)")
	assert.Contains(t, html, "2026-03-01 09:30")
	assert.Contains(t, html, cfg.Labels.NeverLoggedIn)
	assert.Contains(t, html, "&lt;bob&gt;", "usernames are escaped")
	assert.NotContains(t, html, `id="login-form"`)
}
