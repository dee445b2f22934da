package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"aromabot/internal/catalog"
	"aromabot/internal/config"
	"aromabot/internal/delivery"
	"aromabot/internal/intent"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your AromaBot installation",
		Long: `Verifies that the configuration, catalog, responder credentials and
delivery provider are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			color.New(color.FgCyan, color.Bold).Printf("AromaBot Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			var r doctorReport

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				r.fail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				fmt.Printf("\nRun 'aromabot init' to create a default configuration.\n")
				return nil
			}
			r.pass("Config file", cfgPath)

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				r.fail("Config validation", err.Error())
				return r.summary()
			}
			r.pass("Config validation", "valid")

			// 3. Intent rules
			if _, err := intent.LoadRules(cfg.Intents.RulesFile); err != nil {
				r.fail("Intent rules", err.Error())
			} else if cfg.Intents.RulesFile != "" {
				r.pass("Intent rules", cfg.Intents.RulesFile)
			} else {
				r.pass("Intent rules", "built-in")
			}

			// 4. Catalog reachable
			checkCatalog(&r, cfg.Catalog)

			// 5. Responder credentials
			switch {
			case cfg.Responder.APIKey == "" || config.Unresolved(cfg.Responder.APIKey):
				r.fail("Responder", "API key not set (export OPENROUTER_API_KEY)")
			default:
				r.pass("Responder", cfg.Responder.Model)
			}

			// 6. Delivery provider
			if _, err := delivery.New("", cfg.Delivery, logger); err != nil {
				r.fail("Delivery", err.Error())
			} else {
				r.pass("Delivery", cfg.Delivery.Provider)
			}

			// 7. Escalation
			if cfg.Escalation.Enabled {
				provider := cfg.Escalation.Provider
				if provider == "" {
					provider = cfg.Delivery.Provider
				}
				if _, err := delivery.New(provider, cfg.Delivery, logger); err != nil {
					r.fail("Escalation", err.Error())
				} else {
					r.pass("Escalation", fmt.Sprintf("%s via %s", cfg.Escalation.Recipient, provider))
				}
			} else {
				r.warn("Escalation", "disabled; handoff requests get a fixed reply")
			}

			// 8. Webhook port
			if err := checkPort(cfg.Server.Host, cfg.Server.Port); err != nil {
				r.warn("Webhook port", fmt.Sprintf("port %d may be in use: %v", cfg.Server.Port, err))
			} else {
				r.pass("Webhook port", fmt.Sprintf(":%d available", cfg.Server.Port))
			}
			if cfg.Server.Secret == "" || config.Unresolved(cfg.Server.Secret) {
				r.warn("Webhook secret", "not set; webhook signatures are not verified")
			}

			// 9. Log file writable
			if cfg.General.LogFile != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
					r.warn("Log file", fmt.Sprintf("cannot create log directory: %v", err))
				} else {
					r.pass("Log file", cfg.General.LogFile)
				}
			}

			return r.summary()
		},
	}
}

type doctorReport struct {
	passed, warned, failed int
}

func (r *doctorReport) pass(check, detail string) {
	r.passed++
	fmt.Printf("  %s %-20s %s\n", color.GreenString("[PASS]"), check, detail)
}

func (r *doctorReport) fail(check, detail string) {
	r.failed++
	fmt.Printf("  %s %-20s %s\n", color.New(color.FgRed, color.Bold).Sprint("[FAIL]"), check, detail)
}

func (r *doctorReport) warn(check, detail string) {
	r.warned++
	fmt.Printf("  %s %-20s %s\n", color.YellowString("[WARN]"), check, detail)
}

func (r *doctorReport) summary() error {
	fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("Results: %d passed, %d warnings, %d failed\n", r.passed, r.warned, r.failed)
	if r.failed > 0 {
		fmt.Printf("\nPlease fix the failed checks before running AromaBot.\n")
		return fmt.Errorf("%d check(s) failed", r.failed)
	}
	if r.warned > 0 {
		fmt.Printf("\nAromaBot should work but consider fixing the warnings.\n")
	} else {
		color.Green("\nAll checks passed! AromaBot is ready to run.")
	}
	return nil
}

func checkCatalog(r *doctorReport, cc config.CatalogConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cc.Backend == "sqlite" {
		store, err := catalog.NewSQLiteStore(cc.DBPath, logger)
		if err != nil {
			r.fail("Catalog", err.Error())
			return
		}
		defer store.Close()
		n, err := store.Count(ctx)
		switch {
		case err != nil:
			r.fail("Catalog", err.Error())
		case n == 0:
			r.warn("Catalog", fmt.Sprintf("%s is empty (run 'aromabot catalog import')", cc.DBPath))
		default:
			r.pass("Catalog", fmt.Sprintf("%s (%d products)", cc.DBPath, n))
		}
		return
	}

	store, err := catalog.New(ctx, cc, logger)
	if err != nil {
		r.fail("Catalog", err.Error())
		return
	}
	defer store.Close()
	if _, err := store.FindByCode(ctx, "DOCTOR0"); err != nil {
		r.fail("Catalog", fmt.Sprintf("%s backend unreachable: %v", cc.Backend, err))
		return
	}
	r.pass("Catalog", cc.Backend+" backend reachable")
}

func checkPort(host string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}
