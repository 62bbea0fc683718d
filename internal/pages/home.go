// Package pages holds page objects for the practice site: each stores its
// locators once and exposes the few actions tests repeat.
package pages

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// HomePage is the documentation home with its navbar and search box.
type HomePage struct {
	page    playwright.Page
	baseURL string

	DocsLink     playwright.Locator
	SearchButton playwright.Locator
	SearchInput  playwright.Locator
	Dropdown     playwright.Locator
}

func NewHomePage(page playwright.Page, baseURL string) *HomePage {
	return &HomePage{
		page:         page,
		baseURL:      baseURL,
		DocsLink:     page.Locator("a.navbar__link", playwright.PageLocatorOptions{HasText: "Docs"}),
		SearchButton: page.Locator(`button[aria-label="Search"]`),
		SearchInput:  page.Locator(`input[placeholder="Search docs"]`),
		Dropdown:     page.Locator("div.DocSearch-Dropdown"),
	}
}

func (h *HomePage) Navigate() error {
	if _, err := h.page.Goto(h.baseURL + "/docs"); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

// VisitDocs follows the navbar Docs link and waits for the intro page.
func (h *HomePage) VisitDocs() error {
	if err := h.DocsLink.Click(); err != nil {
		return fmt.Errorf("visit docs: %w", err)
	}
	if err := h.page.WaitForURL("**/docs/intro"); err != nil {
		return fmt.Errorf("visit docs: %w", err)
	}
	return nil
}

// Search types query into the search box and waits for the dropdown.
func (h *HomePage) Search(query string) error {
	if err := h.SearchButton.Click(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := h.SearchInput.Fill(query); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := h.Dropdown.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible}); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return nil
}

// SearchResults returns the titles listed in the dropdown.
func (h *HomePage) SearchResults() ([]string, error) {
	texts, err := h.Dropdown.Locator("a.DocSearch-Hit").AllInnerTexts()
	if err != nil {
		return nil, fmt.Errorf("search results: %w", err)
	}
	return texts, nil
}
