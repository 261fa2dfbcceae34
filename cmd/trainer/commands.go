package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vocabtrainer/internal/report"
	"vocabtrainer/internal/selection"
	"vocabtrainer/internal/session"
	"vocabtrainer/internal/settings"
	"vocabtrainer/internal/srs"
	"vocabtrainer/internal/sync"
	"vocabtrainer/internal/vocab"
)

type sessionFlags struct {
	mode     string
	order    string
	count    int
	levels   []string
	category string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "mode", "meaning", "skill to practice: meaning or spelling")
	cmd.Flags().StringVar(&f.order, "order", "random", "ordering: random, due, unstudied, weak")
	cmd.Flags().IntVar(&f.count, "count", 10, "number of words in the session")
	cmd.Flags().StringSliceVar(&f.levels, "levels", nil, "restrict to these level tags (default all)")
	cmd.Flags().StringVar(&f.category, "category", "all", "restrict to one category tag")
}

func (f *sessionFlags) queueOptions(review bool, reviewType string) session.QueueOptions {
	levels := make(map[string]bool, len(f.levels))
	for _, l := range f.levels {
		levels[l] = true
	}
	mode := selection.SkillMode(f.mode)
	if review {
		mode = selection.SkillMode(reviewType)
	}
	return session.QueueOptions{
		Filter:   selection.Filter{Levels: levels, Category: f.category},
		Mode:     mode,
		Strategy: selection.Strategy(f.order),
		Review:   review,
		Count:    f.count,
	}
}

func newStudyCmd() *cobra.Command {
	var flags sessionFlags
	cmd := &cobra.Command{
		Use:   "study",
		Short: "Run a study session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			return runSession(a, flags, false, "")
		},
	}
	flags.register(cmd)
	return cmd
}

func newReviewCmd() *cobra.Command {
	var flags sessionFlags
	var reviewType string
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review previously missed words",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			return runSession(a, flags, true, reviewType)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&reviewType, "type", "both", "which skill qualifies a word: meaning, spelling, both")
	return cmd
}

func runSession(a *app, flags sessionFlags, review bool, reviewType string) error {
	ctx := context.Background()

	queue, err := a.session.BuildQueue(ctx, flags.queueOptions(review, reviewType))
	if errors.Is(err, selection.ErrNoCandidates) {
		fmt.Println("No words match the current filter. Nothing to study.")
		return nil
	}
	if err != nil {
		return err
	}

	cfg, err := a.session.Settings(ctx)
	if err != nil {
		return err
	}

	in := bufio.NewReader(os.Stdin)
	spelling := flags.mode == string(selection.ModeSpelling)

	correct := 0
	for i, word := range queue {
		fmt.Printf("\n[%d/%d] ", i+1, len(queue))
		if spelling {
			if gradeSpellingWord(ctx, a, in, word) {
				correct++
			}
		} else {
			if gradeMeaningWord(ctx, a, in, word, cfg) {
				correct++
			}
		}
	}

	fmt.Printf("\nDone: %d/%d correct.\n", correct, len(queue))

	// Push once at the session boundary so a quick exit doesn't drop the
	// debounced auto push. Sync failures never fail the session.
	if cfg.Bool(settings.KeySyncAuto, true) {
		a.manager.CancelScheduled()
		if _, err := a.manager.PushNow(ctx, "session_end"); err != nil && !errors.Is(err, sync.ErrNotConfigured) {
			fmt.Fprintln(os.Stderr, "sync:", err)
		}
	}
	return nil
}

func gradeMeaningWord(ctx context.Context, a *app, in *bufio.Reader, word vocab.Item, cfg settings.Settings) bool {
	fmt.Printf("%s", word.Word)
	if word.Phonetic != "" {
		fmt.Printf("  /%s/", word.Phonetic)
	}
	fmt.Print("\n  (press Enter to reveal) ")
	_, _ = in.ReadString('\n')

	fmt.Printf("  → %s\n", word.Meaning)
	if cfg.Bool(settings.KeyShowExample, true) && word.ExampleEN != "" {
		fmt.Printf("    e.g. %s\n", word.ExampleEN)
		if word.ExampleJA != "" {
			fmt.Printf("         %s\n", word.ExampleJA)
		}
	}
	if cfg.Bool(settings.KeyShowNotes, true) && word.Notes != "" {
		fmt.Printf("    note: %s\n", word.Notes)
	}

	grade := promptMeaningGrade(in)
	if _, err := a.session.GradeMeaning(ctx, word.ID, grade); err != nil {
		fmt.Fprintln(os.Stderr, "failed to save grade:", err)
	}
	return grade == srs.MeaningCorrect
}

func promptMeaningGrade(in *bufio.Reader) srs.MeaningGrade {
	for {
		fmt.Print("  knew it? [o]=yes [t]=partly [x]=no: ")
		line, _ := in.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "o", "y":
			return srs.MeaningCorrect
		case "t":
			return srs.MeaningPartial
		case "x", "n":
			return srs.MeaningWrong
		}
	}
}

func gradeSpellingWord(ctx context.Context, a *app, in *bufio.Reader, word vocab.Item) bool {
	fmt.Printf("spell: %s\n  > ", word.Meaning)
	answer, _ := in.ReadString('\n')

	grade, _, err := a.session.GradeSpelling(ctx, word.ID, strings.TrimSpace(answer))
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to save grade:", err)
	}
	if grade == srs.SpellingCorrect {
		fmt.Println("  correct!")
		return true
	}
	fmt.Printf("  wrong, it's %q\n", word.Word)
	return false
}

func newDueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "Show how many words are due for review",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			sum, err := a.session.DueSummary(context.Background(), time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("meaning: %d due\nspelling: %d due\n", sum.MeaningDue, sum.SpellingDue)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show due counts and the weakest words",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			ctx := context.Background()

			sum, err := a.session.DueSummary(ctx, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("Due now: meaning %d, spelling %d\n\n", sum.MeaningDue, sum.SpellingDue)

			for _, mode := range []selection.SkillMode{selection.ModeMeaning, selection.ModeSpelling} {
				entries, err := a.session.Weakest(ctx, mode, 20)
				if err != nil {
					return err
				}
				rep := report.Report{Title: fmt.Sprintf("Weakest words (%s)", mode), Entries: entries}
				if err := report.WriteText(os.Stdout, rep); err != nil {
					return err
				}
				fmt.Println()
			}
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the weakest-words report as HTML",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			ctx := context.Background()

			meaning, err := a.session.Weakest(ctx, selection.ModeMeaning, 20)
			if err != nil {
				return err
			}
			spelling, err := a.session.Weakest(ctx, selection.ModeSpelling, 20)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer func() {
				_ = f.Close()
			}()

			hw := report.NewHTMLWriter()
			if err := hw.WriteHTML(f, "Weakest words",
				report.Report{Title: "Meaning", Entries: meaning},
				report.Report{Title: "Spelling", Entries: spelling},
			); err != nil {
				return err
			}
			fmt.Println("wrote", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "report.html", "output file")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			events, err := a.session.History(context.Background(), limit)
			if err != nil {
				return err
			}
			for _, ev := range events {
				fmt.Printf("%s  %-15s %s\n", ev.TS.Local().Format("2006-01-02 15:04"), ev.Type, ev.Label)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "number of events to show")
	return cmd
}

func newResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase all progress, settings and history for this profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to erase without --yes")
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.session.ClearAll(context.Background()); err != nil {
				return err
			}
			fmt.Println("all local data erased")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the wipe")
	return cmd
}
