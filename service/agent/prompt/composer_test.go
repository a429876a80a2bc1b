package prompt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	text, err := Compose(Input{
		UserName:  "Marta",
		Page:      "clients",
		PageTitle: "Clientes",
		Entity:    "Cliente Padaria Lima (active)",
		ToolNames: []string{"get_current_date", "search_clients"},
		Now:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Contains(t, text, "Marta")
	assert.Contains(t, text, "2026-03-01")
	assert.Contains(t, text, "Clientes (clients)")
	assert.Contains(t, text, "Registo em foco: Cliente Padaria Lima (active)")
	assert.Contains(t, text, "- get_current_date")
	assert.Contains(t, text, "- search_clients")
	assert.Contains(t, text, "Nunca acedas nem atues sobre dados de outro utilizador")
	assert.Contains(t, text, "Nunca executes operações destrutivas ou de eliminação")
}

func TestCompose_Defaults(t *testing.T) {
	text, err := Compose(Input{Page: "dashboard"})
	require.NoError(t, err)

	assert.Contains(t, text, "utilizador")
	assert.Contains(t, text, "dashboard (dashboard)")
	assert.Contains(t, text, "(nenhuma)")
	assert.NotContains(t, text, "Registo em foco")
}
