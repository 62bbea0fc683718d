package lab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/playwright-lab/internal/lab"
	"github.com/shehryarbajwa/playwright-lab/internal/pages"
	"github.com/shehryarbajwa/playwright-lab/internal/playground"
)

func TestHomePageObject(t *testing.T) {
	env := lab.Setup(t)
	home := pages.NewHomePage(env.NewPage(t), env.BaseURL)
	require.NoError(t, home.Navigate())

	require.NoError(t, home.Search("locator"))
	results, err := home.SearchResults()
	require.NoError(t, err)
	assert.Contains(t, results, "Locators")

	require.NoError(t, home.Navigate())
	require.NoError(t, home.VisitDocs())
}

func TestPlaywrightPageObject(t *testing.T) {
	env := lab.Setup(t)
	page := env.NewPage(t)
	docs := pages.NewPlaywrightPage(page, env.BaseURL)

	require.NoError(t, docs.Navigate())
	title, err := docs.Title()
	require.NoError(t, err)
	assert.Contains(t, title, "Playwright")

	require.NoError(t, env.Expect().Locator(page.Locator("h1")).ToHaveText(playground.DocsTagline))
	require.NoError(t, docs.GetStarted())

	title, err = docs.Title()
	require.NoError(t, err)
	assert.Equal(t, "Installation | Playwright", title)
}
