package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/metcalfc/yomu/internal/config"
	"github.com/metcalfc/yomu/internal/dispatch"
	"github.com/metcalfc/yomu/internal/logging"
	"github.com/metcalfc/yomu/internal/mining"
	"github.com/metcalfc/yomu/internal/progress"
	"github.com/metcalfc/yomu/internal/reader"
	"github.com/metcalfc/yomu/internal/session"
	"github.com/metcalfc/yomu/internal/settings"
	"github.com/metcalfc/yomu/internal/state"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// readOptions are the front-end knobs of a reading session.
type readOptions struct {
	ShowTOC bool
	// Achievements is nil when no user is configured.
	Achievements func(context.Context) []progress.Achievement
}

// env is what every command shares once configuration is loaded.
type env struct {
	log      *logrus.Logger
	settings *settings.Store
}

func (e *env) setup() error {
	if err := config.Setup(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(logging.FromConfig())
	if err != nil {
		return err
	}
	e.log = log
	e.settings = settings.NewStore(settings.WithLogger(log))
	return nil
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "yomu",
		Short:         "Speed reader with cue-aware auto-pause and sentence mining",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup()
		},
	}

	root.AddCommand(
		newReadCmd(e),
		newTOCCmd(),
		newTextCmd(),
		newForgetCmd(),
		newKeysCmd(e),
		newAutoPauseCmd(e),
		newAchievementsCmd(e),
		newMinedCmd(),
		newVersionCmd(),
	)
	return root
}

func newReadCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <file>",
		Short: "Read a document (" + strings.Join(reader.SupportedFormats(), ", ") + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fresh := lo.Must(cmd.Flags().GetBool("fresh")) || !viper.GetBool(config.PlayerResume)

			s, err := session.Open(cmd.Context(), session.Options{
				Path:       args[0],
				WPM:        viper.GetInt(config.PlayerWPM),
				Fresh:      fresh,
				OffsetStep: config.OffsetStep(),
				Settings:   e.settings,
				Positions:  state.NewStore(),
				Mined:      mining.NewSink(""),
				Log:        e.log,
			})
			if err != nil {
				return err
			}
			defer func() {
				if err := s.Close(); err != nil {
					e.log.WithError(err).Warn("close document")
				}
			}()

			return runReader(cmd.Context(), s, readOptions{
				ShowTOC:      lo.Must(cmd.Flags().GetBool("toc")),
				Achievements: achievementsFetcher(e.log, viper.GetString(config.ProgressUserID)),
			})
		},
	}

	cmd.Flags().IntP("wpm", "w", config.Default[config.PlayerWPM].Value.(int), "Words per minute")
	lo.Must0(viper.BindPFlag(config.PlayerWPM, cmd.Flags().Lookup("wpm")))
	cmd.Flags().Bool("fresh", false, "Ignore the saved reading position")
	cmd.Flags().Bool("toc", false, "Show the table of contents at startup")
	return cmd
}

func newTOCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toc <file>",
		Short: "Print a document's table of contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := reader.Open(args[0])
			if err != nil {
				return err
			}
			defer doc.Close()

			nodes, err := doc.TableOfContents()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, doc.Title())
			entries := reader.FlattenTOC(nodes)
			if len(entries) == 0 {
				fmt.Fprintln(out, "  (no table of contents)")
			}
			for _, entry := range entries {
				fmt.Fprintf(out, "%s%s  %s\n", strings.Repeat("  ", entry.Level+1), entry.Label, entry.Href)
			}
			return nil
		},
	}
}

func newTextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "text <file>",
		Short: "Print a document's plain text in reading order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := reader.ExtractText(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <file>",
		Short: "Drop the saved reading position of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := state.ComputeHash(args[0])
			if err != nil {
				return err
			}
			return state.NewStore().Clear(hash)
		},
	}
}

func newKeysCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List key bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printBindings(cmd, e.settings.Settings().KeyBindings)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <action> <key>",
		Short: "Bind a key to an action",
		Long: "Bind a key to an action. A key already bound to another action is moved.\n" +
			"Actions: " + strings.Join(lo.Map(settings.Actions(), func(a settings.Action, _ int) string { return string(a) }), ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := settings.ParseAction(args[0])
			if err != nil {
				return err
			}
			if err := e.settings.SetKeyBinding(action, args[1]); err != nil {
				return err
			}
			printBindings(cmd, e.settings.Settings().KeyBindings)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore the default key bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e.settings.ResetKeyBindings()
			printBindings(cmd, e.settings.Settings().KeyBindings)
			return nil
		},
	})
	return cmd
}

func printBindings(cmd *cobra.Command, bindings settings.KeyBindings) {
	out := cmd.OutOrStdout()
	for _, action := range settings.Actions() {
		k := bindings[action]
		label := dispatch.KeyLabel(k)
		if k == "" {
			label = "(unbound)"
		}
		fmt.Fprintf(out, "%-30s %-12s %s\n", action, label, action.Description())
	}
}

func newAutoPauseCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:       "autopause [on|off|start|end]",
		Short:     "Show or change auto-pause",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off", "start", "end"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				var patch settings.AutoPausePatch
				switch args[0] {
				case "on":
					patch.Enabled = lo.ToPtr(true)
				case "off":
					patch.Enabled = lo.ToPtr(false)
				default:
					patch.PauseAt = lo.ToPtr(settings.PauseAt(args[0]))
				}
				if err := e.settings.SetAutoPause(patch); err != nil {
					return err
				}
			}

			cfg := e.settings.Settings().AutoPause
			fmt.Fprintf(cmd.OutOrStdout(), "auto-pause: %s, at cue %s\n", lo.Ternary(cfg.Enabled, "on", "off"), cfg.PauseAt)
			return nil
		},
	}
}

func newAchievementsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "achievements [user-id]",
		Short: "Show reading achievements",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := viper.GetString(config.ProgressUserID)
			if len(args) == 1 {
				userID = args[0]
			}
			if userID == "" {
				return errors.New("no user id: pass one or set " + config.ProgressUserID)
			}

			list := newAggregator(e.log).FetchAchievements(cmd.Context(), userID)
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "no achievements")
				return nil
			}
			for _, a := range list {
				fmt.Fprintf(out, "[%s] %-28s %s/%s %5.1f%%  %s\n",
					lo.Ternary(a.Unlocked(), "x", " "), a.Name, a.CurrentProgress, a.Target, a.ProgressPercentage, a.Category)
			}
			fmt.Fprintln(out, achievementSummary(list))
			return nil
		},
	}
}

func newMinedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mined",
		Short: "List mined sentences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sink := mining.NewSink("")
			entries, err := sink.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, entry := range entries {
				fmt.Fprintf(out, "%s  %s  %s\n", entry.CapturedAt.Format("2006-01-02 15:04"), entry.Document, entry.Text)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "yomu %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func newAggregator(log logrus.FieldLogger) *progress.Aggregator {
	caller := progress.NewHTTPCaller(
		viper.GetString(config.ProgressEndpoint),
		viper.GetString(config.ProgressAPIKey),
		config.ProgressTimeoutDuration(),
	)
	return progress.NewAggregator(caller,
		progress.WithProcedure(viper.GetString(config.ProgressProcedure)),
		progress.WithLogger(log),
	)
}

// achievementsFetcher returns nil when there is nobody to fetch for.
func achievementsFetcher(log logrus.FieldLogger, userID string) func(context.Context) []progress.Achievement {
	if userID == "" || viper.GetString(config.ProgressEndpoint) == "" {
		return nil
	}
	agg := newAggregator(log)
	return func(ctx context.Context) []progress.Achievement {
		return agg.FetchAchievements(ctx, userID)
	}
}

func achievementSummary(list []progress.Achievement) string {
	if len(list) == 0 {
		return ""
	}
	unlocked := lo.CountBy(list, progress.Achievement.Unlocked)
	return fmt.Sprintf("%d/%d achievements unlocked", unlocked, len(list))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
