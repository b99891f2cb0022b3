package citycontrol

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderProducesWellFormedPDF(t *testing.T) {
	pdf, err := NewSummaryRenderer().Render(context.Background(), fixtureSignal())
	require.NoError(t, err)

	body := string(pdf)
	assert.True(t, strings.HasPrefix(body, "%PDF-1.4"))
	assert.True(t, strings.HasSuffix(body, "%%EOF\n"))
	assert.Contains(t, body, "(SIG-42) Tj")
	assert.Contains(t, body, "(Title: Loud music at night) Tj")
	assert.Contains(t, body, "(Location: Keizersgracht 42, Amsterdam) Tj")
}

func TestRenderEscapesDelimiters(t *testing.T) {
	signal := fixtureSignal()
	signal.Title = `Broken (streetlight) near C:\corner`

	pdf, err := NewSummaryRenderer().Render(context.Background(), signal)
	require.NoError(t, err)

	assert.Contains(t, string(pdf), `(Title: Broken \(streetlight\) near C:\\corner) Tj`)
}
