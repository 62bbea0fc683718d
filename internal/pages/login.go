package pages

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// LoginPage is the sample app's login form.
type LoginPage struct {
	page    playwright.Page
	baseURL string

	UsernameInput playwright.Locator
	PasswordInput playwright.Locator
	LoginButton   playwright.Locator
	StatusLabel   playwright.Locator
}

func NewLoginPage(page playwright.Page, baseURL string) *LoginPage {
	return &LoginPage{
		page:          page,
		baseURL:       baseURL,
		UsernameInput: page.Locator(`input[placeholder="User Name"]`),
		PasswordInput: page.Locator(`input[placeholder="********"]`),
		LoginButton:   page.Locator("#login"),
		StatusLabel:   page.Locator("#loginstatus"),
	}
}

func (l *LoginPage) Open() error {
	if _, err := l.page.Goto(l.baseURL + "/sampleapp"); err != nil {
		return fmt.Errorf("open: %w", err)
	}
	return nil
}

func (l *LoginPage) Login(username, password string) error {
	if err := l.UsernameInput.Fill(username); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := l.PasswordInput.Fill(password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := l.LoginButton.Click(); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// Status returns the text of the login status label.
func (l *LoginPage) Status() (string, error) {
	text, err := l.StatusLabel.TextContent()
	if err != nil {
		return "", fmt.Errorf("status: %w", err)
	}
	return text, nil
}
