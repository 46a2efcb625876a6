package main

import (
	"fmt"
	"time"

	"github.com/BerylCAtieno/umaja/internal/app"
	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	archetype string
	language  string
	topic     string
	city      string
	date      string
	fallback  bool
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one smile",
		Long: `Render a smile for an archetype and a topic or world-tour city.

Examples:
  # Professor on coffee, in the default language
  umaja render --topic coffee

  # Worrier on Mondays, in German
  umaja render --archetype worrier --language de --topic mondays

  # World tour stop for a given day
  umaja render --archetype enthusiast --city tokyo --date 2026-03-14`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.archetype, "archetype", "a", models.Professor.String(), "archetype: professor, worrier or enthusiast")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "language code (defaults to the tables' default language)")
	cmd.Flags().StringVarP(&opts.topic, "topic", "t", "", "topic key or name")
	cmd.Flags().StringVar(&opts.city, "city", "", "world-tour city key or name")
	cmd.Flags().StringVar(&opts.date, "date", "", "date as YYYY-MM-DD (defaults to today)")
	cmd.Flags().BoolVar(&opts.fallback, "fallback", false, "fall back to the default language when the language is unsupported")
	cmd.MarkFlagsMutuallyExclusive("topic", "city")
	cmd.MarkFlagsOneRequired("topic", "city")
	return cmd
}

func runRender(cmd *cobra.Command, root *rootOptions, opts *renderOptions) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	store, renderer, err := app.LoadStore(cfg)
	if err != nil {
		return err
	}

	archetype, err := models.ParseArchetype(opts.archetype)
	if err != nil {
		return err
	}

	date := time.Now()
	if opts.date != "" {
		date, err = time.Parse("2006-01-02", opts.date)
		if err != nil {
			return fmt.Errorf("invalid date %q: want YYYY-MM-DD", opts.date)
		}
	}

	lang := opts.language
	if lang == "" {
		lang = store.DefaultLanguage()
	}

	req := models.RenderRequest{
		Archetype: archetype,
		Language:  lang,
		Subject:   opts.topic,
		Mode:      models.ModeTopic,
		Date:      date,
	}
	if opts.city != "" {
		req.Subject = opts.city
		req.Mode = models.ModeCity
	}

	var rendered *models.Rendered
	if opts.fallback {
		rendered, err = renderer.RenderWithFallback(req)
	} else {
		rendered, err = renderer.Render(req)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, rendered.Title)
	fmt.Fprintln(out)
	fmt.Fprintln(out, rendered.Text)
	return nil
}
