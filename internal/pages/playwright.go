package pages

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightPage is the slimmer docs page object: open, get started, title.
type PlaywrightPage struct {
	page    playwright.Page
	baseURL string

	GetStartedLink playwright.Locator
}

func NewPlaywrightPage(page playwright.Page, baseURL string) *PlaywrightPage {
	return &PlaywrightPage{
		page:           page,
		baseURL:        baseURL,
		GetStartedLink: page.Locator("a.getStarted"),
	}
}

func (p *PlaywrightPage) Navigate() error {
	if _, err := p.page.Goto(p.baseURL + "/docs"); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

func (p *PlaywrightPage) GetStarted() error {
	if err := p.GetStartedLink.Click(); err != nil {
		return fmt.Errorf("get started: %w", err)
	}
	if err := p.page.WaitForURL("**/docs/intro"); err != nil {
		return fmt.Errorf("get started: %w", err)
	}
	return nil
}

func (p *PlaywrightPage) Title() (string, error) {
	title, err := p.page.Title()
	if err != nil {
		return "", fmt.Errorf("title: %w", err)
	}
	return title, nil
}
