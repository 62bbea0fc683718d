package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/playwright-lab/internal/browser"
	"github.com/shehryarbajwa/playwright-lab/internal/config"
	"github.com/shehryarbajwa/playwright-lab/internal/errs"
	"github.com/shehryarbajwa/playwright-lab/internal/state"
)

type stateOptions struct {
	baseURL string
	headed  bool
}

func newStateCmd(root *rootOptions) *cobra.Command {
	opts := &stateOptions{}

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Save, reuse and list browser storage states",
	}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "site to log into (default: a private playground)")
	cmd.PersistentFlags().BoolVar(&opts.headed, "headed", false, "show the browser window")

	cmd.AddCommand(
		newStateSaveCmd(root, opts),
		newStateReuseCmd(root, opts),
		newStateListCmd(root),
	)
	return cmd
}

func newStateSaveCmd(root *rootOptions, opts *stateOptions) *cobra.Command {
	var project, email, password string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Log into the account page and save the signed-in state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			store, err := state.NewStore(cfg.StateDir)
			if err != nil {
				return err
			}

			return opts.withContext(cfg, "", func(bctx playwright.BrowserContext, baseURL string) error {
				page, err := bctx.NewPage()
				if err != nil {
					return fmt.Errorf("failed to open page: %w", err)
				}
				if _, err := page.Goto(baseURL + "/account/login"); err != nil {
					return fmt.Errorf("failed to open login page: %w", err)
				}
				if err := page.GetByPlaceholder("Email Address").Fill(email); err != nil {
					return err
				}
				if err := page.GetByPlaceholder("Password").Fill(password); err != nil {
					return err
				}
				if err := page.Locator(`input[type="submit"]`).Click(); err != nil {
					return err
				}
				welcome, err := page.Locator("#welcome").TextContent()
				if err != nil {
					return errs.Wrap(errs.FailedPrecondition, "login did not reach the account page", err)
				}

				st, err := store.Create(project)
				if err != nil {
					return err
				}
				if err := store.Save(st.ID, bctx); err != nil {
					return err
				}
				saved, err := store.Get(st.ID)
				if err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "%s", strings.TrimSpace(welcome))
				ok(cmd.OutOrStdout(), "Saved state %s (%d cookies, %d origins)", st.ID, saved.Cookies, saved.Origins)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "default", "project that owns the state")
	cmd.Flags().StringVar(&email, "email", "emily.johnson@x.dummyjson.com", "account email")
	cmd.Flags().StringVar(&password, "password", "emilyspass", "account password")
	return cmd
}

func newStateReuseCmd(root *rootOptions, opts *stateOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reuse <state-id>",
		Short: "Open the account page with a saved state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			store, err := state.NewStore(cfg.StateDir)
			if err != nil {
				return err
			}
			id := args[0]
			if _, err := store.Get(id); err != nil {
				return err
			}
			if !store.HasData(id) {
				return errs.New(errs.FailedPrecondition, "state has no saved data")
			}

			return opts.withContext(cfg, store.Path(id), func(bctx playwright.BrowserContext, baseURL string) error {
				page, err := bctx.NewPage()
				if err != nil {
					return fmt.Errorf("failed to open page: %w", err)
				}
				if _, err := page.Goto(baseURL + "/account"); err != nil {
					return fmt.Errorf("failed to open account page: %w", err)
				}
				welcome, err := page.Locator("#welcome").TextContent()
				if err != nil {
					return errs.Wrap(errs.FailedPrecondition, "saved state is no longer signed in", err)
				}
				if err := store.Touch(id); err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "%s", strings.TrimSpace(welcome))
				return nil
			})
		},
	}
}

func newStateListCmd(root *rootOptions) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			store, err := state.NewStore(cfg.StateDir)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPROJECT\tSAVED\tCOOKIES\tUPDATED")
			for _, st := range store.List(project) {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%s\n", st.ID, st.ProjectID, st.HasData, st.Cookies, st.UpdatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "only list states of this project")
	return cmd
}

// withContext starts a browser and a context, optionally seeded from
// statePath, and runs fn against the target site.
func (o *stateOptions) withContext(cfg *config.Config, statePath string, fn func(playwright.BrowserContext, string) error) error {
	baseURL := o.baseURL
	if baseURL == "" {
		url, stop, err := startPlayground()
		if err != nil {
			return err
		}
		defer stop()
		baseURL = url
	}
	baseURL = strings.TrimRight(baseURL, "/")

	pw, err := browser.StartPlaywright(cfg.Browser.InstallBrowsers, "chromium")
	if err != nil {
		return err
	}
	defer pw.Stop()

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Browser.Headless && !o.headed),
		SlowMo:   playwright.Float(float64(cfg.Browser.SlowMo.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to launch chromium: %w", err)
	}
	defer b.Close()

	var ctxOpts playwright.BrowserNewContextOptions
	if statePath != "" {
		ctxOpts.StorageStatePath = playwright.String(statePath)
	}
	bctx, err := b.NewContext(ctxOpts)
	if err != nil {
		return fmt.Errorf("failed to create context: %w", err)
	}
	defer bctx.Close()
	timeout := float64(cfg.Browser.Timeout.Milliseconds())
	bctx.SetDefaultTimeout(timeout)
	bctx.SetDefaultNavigationTimeout(timeout)

	return fn(bctx, baseURL)
}
