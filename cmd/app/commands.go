package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/fiftytwo/internal"
	"github.com/starford/fiftytwo/internal/models"
	"github.com/starford/fiftytwo/internal/photo"
	"github.com/starford/fiftytwo/internal/review"
	"github.com/starford/fiftytwo/internal/weeks"
)

// withJournal opens the configured journal for the duration of fn.
func withJournal(cmd *cli.Command, fn func(j *internal.Journal, cfg *internal.Config) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	j, err := internal.OpenJournal(cfg.Storage, stderrLogger(cfg))
	if err != nil {
		return err
	}
	defer j.Close()
	return fn(j, cfg)
}

func out(cmd *cli.Command, format string, args ...any) {
	fmt.Fprintf(cmd.Root().Writer, format, args...)
}

func momentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "What happened"},
		&cli.StringFlag{Name: "title", Usage: "Optional title"},
		&cli.IntFlag{Name: "week", Aliases: []string{"w"}, Usage: "Week number (default: current week)"},
		&cli.IntFlag{Name: "year", Aliases: []string{"y"}, Usage: "Year (default: current year)"},
		&cli.StringFlag{Name: "photo", Usage: "Path to an image file to attach"},
	}
}

func readPhoto(path string, cfg *internal.Config) (*string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()
	url, err := photo.Encode(f, photo.Options{
		MaxBytes:     cfg.Photo.MaxBytes,
		MaxDimension: cfg.Photo.MaxDimension,
	})
	if err != nil {
		return nil, err
	}
	return &url, nil
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Save a moment",
		ArgsUsage: "[text]",
		Flags:     momentFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withJournal(cmd, func(j *internal.Journal, cfg *internal.Config) error {
				now := time.Now()
				in := models.MomentInput{
					Text:       cmd.String("text"),
					WeekNumber: weeks.CurrentWeekNumber(now),
					Year:       now.Year(),
				}
				if in.Text == "" {
					in.Text = cmd.Args().First()
				}
				if cmd.IsSet("title") {
					title := cmd.String("title")
					in.Title = &title
				}
				if cmd.IsSet("week") {
					in.WeekNumber = int(cmd.Int("week"))
				}
				if cmd.IsSet("year") {
					in.Year = int(cmd.Int("year"))
				}
				if p := cmd.String("photo"); p != "" {
					url, err := readPhoto(p, cfg)
					if err != nil {
						return err
					}
					in.Photo = url
				}

				m, err := j.Moments.Create(ctx, in)
				if err != nil {
					return err
				}
				out(cmd, "%s\t%s\n", m.ID, weeks.Label(m.WeekNumber))
				return nil
			})
		},
	}
}

func editCommand() *cli.Command {
	flags := append(momentFlags(),
		&cli.BoolFlag{Name: "clear-title", Usage: "Remove the title"},
		&cli.BoolFlag{Name: "clear-photo", Usage: "Remove the photo"},
	)
	return &cli.Command{
		Name:      "edit",
		Usage:     "Edit a moment; flags not given keep their current value",
		ArgsUsage: "<id>",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return errors.New("edit: moment id is required")
			}
			return withJournal(cmd, func(j *internal.Journal, cfg *internal.Config) error {
				m, err := j.Moments.Get(ctx, id)
				if err != nil {
					return fmt.Errorf("edit %s: %w", id, err)
				}
				in := models.MomentInput{
					Text:       m.Text,
					Title:      m.Title,
					WeekNumber: m.WeekNumber,
					Year:       m.Year,
					Photo:      m.Photo,
				}
				if cmd.IsSet("text") {
					in.Text = cmd.String("text")
				}
				if cmd.IsSet("title") {
					title := cmd.String("title")
					in.Title = &title
				}
				if cmd.Bool("clear-title") {
					in.Title = nil
				}
				if cmd.IsSet("week") {
					in.WeekNumber = int(cmd.Int("week"))
				}
				if cmd.IsSet("year") {
					in.Year = int(cmd.Int("year"))
				}
				if p := cmd.String("photo"); p != "" {
					url, err := readPhoto(p, cfg)
					if err != nil {
						return err
					}
					in.Photo = url
				}
				if cmd.Bool("clear-photo") {
					in.Photo = nil
				}

				if _, err := j.Moments.Update(ctx, id, in); err != nil {
					return fmt.Errorf("edit %s: %w", id, err)
				}
				out(cmd, "updated %s\n", id)
				return nil
			})
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a moment",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return errors.New("delete: moment id is required")
			}
			return withJournal(cmd, func(j *internal.Journal, _ *internal.Config) error {
				removed, err := j.Moments.Delete(ctx, id)
				if err != nil {
					return err
				}
				if removed {
					out(cmd, "deleted %s\n", id)
				}
				return nil
			})
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print the timeline, or one year in week order",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "year", Aliases: []string{"y"}, Usage: "Only this year"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withJournal(cmd, func(j *internal.Journal, _ *internal.Config) error {
				items := j.Moments.ListAll(ctx)
				if cmd.IsSet("year") {
					items = j.Moments.ListForYear(ctx, int(cmd.Int("year")))
				}
				out(cmd, "%s", review.Timeline(items))
				return nil
			})
		},
	}
}

func reviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Print the review of a year",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "year", Aliases: []string{"y"}, Usage: "Year (default: current year)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "text", Usage: "text or markdown"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format := cmd.String("format")
			if format != "text" && format != "markdown" {
				return fmt.Errorf("review: unknown format %q", format)
			}
			return withJournal(cmd, func(j *internal.Journal, _ *internal.Config) error {
				now := time.Now()
				year := now.Year()
				if cmd.IsSet("year") {
					year = int(cmd.Int("year"))
				}
				items := j.Moments.ListForYear(ctx, year)
				y := review.BuildYear(year, items)

				if format == "markdown" {
					md, err := review.Markdown(y, now)
					if err != nil {
						return err
					}
					out(cmd, "%s", md)
					return nil
				}
				out(cmd, "Ваш %d год\n%s\n\n%s", year, y.Summary, review.Timeline(items))
				return nil
			})
		},
	}
}

func weekCommand() *cli.Command {
	return &cli.Command{
		Name:  "week",
		Usage: "Print the current week and its dates",
		Action: func(_ context.Context, cmd *cli.Command) error {
			now := time.Now()
			week := weeks.CurrentWeekNumber(now)
			out(cmd, "%s, %d\n%s\n", weeks.Label(week), now.Year(), weeks.FormatRange(week, now.Year()))
			return nil
		},
	}
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change appearance settings",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Print the current settings",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withJournal(cmd, func(j *internal.Journal, _ *internal.Config) error {
						p := j.Settings.Get(ctx)
						out(cmd, "theme: %s\naccent-color: %s\nbackground-color: %s\n", p.Theme, p.AccentColor, p.BackgroundColor)
						return nil
					})
				},
			},
			{
				Name:  "set",
				Usage: "Change one or more settings",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "theme", Usage: "light or dark"},
					&cli.StringFlag{Name: "accent-color", Usage: "Accent color, e.g. #8b5cf6"},
					&cli.StringFlag{Name: "background-color", Usage: "Background color, e.g. #faf5ff"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withJournal(cmd, func(j *internal.Journal, _ *internal.Config) error {
						p, err := j.Settings.Apply(ctx, models.Preferences{
							Theme:           models.Theme(cmd.String("theme")),
							AccentColor:     cmd.String("accent-color"),
							BackgroundColor: cmd.String("background-color"),
						})
						if err != nil {
							return err
						}
						out(cmd, "theme: %s\naccent-color: %s\nbackground-color: %s\n", p.Theme, p.AccentColor, p.BackgroundColor)
						return nil
					})
				},
			},
		},
	}
}
