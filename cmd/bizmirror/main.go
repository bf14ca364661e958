package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"bizmirror/internal/app"
	"bizmirror/internal/config"
	"bizmirror/internal/database"
	"bizmirror/internal/encryption"
	"bizmirror/internal/mirror"
	"bizmirror/internal/notify"
	"bizmirror/internal/seed"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := app.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// readConfig loads the config file named by the defaults.
func readConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// newApp reads the config and creates a MirrorApp. The caller must defer app.Close().
func newApp(cmd *cobra.Command) (*app.MirrorApp, *config.Config, error) {
	cfg, _, err := readConfig()
	if err != nil {
		return nil, nil, err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	a, err := app.NewMirrorApp(cmd.Context(), cfg, app.Options{Verbose: verbose})
	if err != nil {
		return nil, nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, cfg, nil
}

func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:          "bizmirror",
	Short:        "Mirror a business database into JSON files",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		withKeys, _ := cmd.Flags().GetBool("encrypt")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Store:      %s\n", cfg.Store.Path)
		fmt.Printf("Output Dir: %s\n", cfg.Mirror.OutputDir)

		if !withKeys {
			return nil
		}

		pass, err := readPassphrase("Passphrase for the replica key: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return errors.New("passphrases do not match")
		}

		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return err
		}
		if err := enc.Setup(pass); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Printf("Public key: %s\n", cfg.Encryption.PublicKeyPath)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := readConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Base Dir:      %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:       %s\n", cfg.LogDir)
		fmt.Printf("Store:         %s\n", cfg.Store.Path)
		fmt.Printf("Output Dir:    %s\n", cfg.Mirror.OutputDir)
		fmt.Printf("Mode:          %s\n", cfg.Mirror.Mode)
		fmt.Printf("Interval:      %s\n", cfg.Mirror.Interval())
		fmt.Printf("Baseline:      %s\n", cfg.Mirror.Baseline)
		fmt.Printf("Log Limit:     %d\n", cfg.Mirror.LogLimit)
		fmt.Printf("Atomic Writes: %t\n", cfg.Mirror.AtomicWrites)
		if len(cfg.Mirror.ExcludeTables) > 0 {
			fmt.Printf("Excluded:      %s\n", strings.Join(cfg.Mirror.ExcludeTables, ", "))
		}
		for _, r := range cfg.Replicas {
			enc := ""
			if r.Encrypt {
				enc = " (encrypted)"
			}
			fmt.Printf("Replica:       %s [%s]%s\n", r.Name, r.Type, enc)
		}
		fmt.Printf("Notify:        %s\n", cfg.Notify.Type)
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the business database",
}

func openWriter() (*database.Writer, *config.Config, error) {
	cfg, _, err := readConfig()
	if err != nil {
		return nil, nil, err
	}
	w, err := database.OpenWriter(cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}
	return w, cfg, nil
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, cfg, err := openWriter()
		if err != nil {
			return err
		}
		defer w.Close()

		if err := w.InitSchema(); err != nil {
			return err
		}
		fmt.Printf("Schema ready at %s\n", cfg.Store.Path)
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}
		store := database.NewSQLiteStore(cfg.Store.Path)
		if !store.Exists() {
			fmt.Printf("No database at %s. Run `bizmirror db init`.\n", cfg.Store.Path)
			return nil
		}

		w, err := database.OpenWriter(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer w.Close()

		st, err := w.Status()
		if err != nil {
			return err
		}
		fmt.Printf("Version: %d of %d", st.Version, st.Latest)
		switch {
		case st.Dirty:
			fmt.Println(" (dirty)")
		case st.UpToDate():
			fmt.Println(" (up to date)")
		default:
			fmt.Println(" (run `bizmirror db init`)")
		}
		return nil
	},
}

// seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with generated data",
	RunE: func(cmd *cobra.Command, args []string) error {
		var counts seed.Counts
		counts.Employees, _ = cmd.Flags().GetInt("employees")
		counts.Products, _ = cmd.Flags().GetInt("products")
		counts.Customers, _ = cmd.Flags().GetInt("customers")
		counts.Sales, _ = cmd.Flags().GetInt("sales")
		seedValue, _ := cmd.Flags().GetUint64("seed")
		if seedValue == 0 {
			seedValue = uint64(time.Now().UnixNano())
		}

		a, cfg, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		w, err := database.OpenWriter(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.InitSchema(); err != nil {
			return err
		}

		s := seed.NewSeeder(w, seed.NewGenerator(seedValue, time.Now()), a.Logger())
		res, err := s.Run(cmd.Context(), counts)
		if err != nil {
			return fmt.Errorf("seeding: %w", err)
		}
		fmt.Printf("Inserted %d employees, %d products, %d customers, %d sales\n",
			res.Employees, res.Products, res.Customers, res.Sales)
		return nil
	},
}

var insertTestCmd = &cobra.Command{
	Use:   "insert-test",
	Short: "Insert one customer and one product",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, _, err := openWriter()
		if err != nil {
			return err
		}
		defer w.Close()

		if err := seed.InsertTest(cmd.Context(), w, time.Now()); err != nil {
			return err
		}
		fmt.Println("Inserted 1 customer and 1 product")
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Mirror changed tables until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		interval, _ := cmd.Flags().GetDuration("interval")

		a, _, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)

		reload := make(chan time.Duration)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-hup:
					cfg, _, err := readConfig()
					if err != nil {
						a.Logger().Warn("config reload failed", "error", err)
						continue
					}
					select {
					case reload <- cfg.Mirror.Interval():
					case <-ctx.Done():
						return
					}
				}
			}
		}()

		err = a.Watch(ctx, app.WatchOptions{Mode: mode, Interval: interval, Reload: reload})
		if errors.Is(err, mirror.ErrStoreUnavailable) {
			return fmt.Errorf("%w (run `bizmirror db init` first)", err)
		}
		return err
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every table now",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		exported, err := a.ExportAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		printCounts(exported)
		return nil
	},
}

var convertCmd = &cobra.Command{
	Use:       "convert [tables|unified|employees|all]",
	Short:     "Write one-shot JSON conversions",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"tables", "unified", "employees", "all"},
	RunE: func(cmd *cobra.Command, args []string) error {
		what := "all"
		if len(args) > 0 {
			what = args[0]
		}

		a, cfg, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Convert(cmd.Context(), what); err != nil {
			return err
		}
		fmt.Printf("Conversion written to %s\n", cfg.Mirror.OutputDir)
		return nil
	},
}

var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Show current row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		counts, err := a.Counts(cmd.Context())
		if err != nil {
			return err
		}
		printCounts(map[string]int64(counts))
		return nil
	},
}

func printCounts[N int | int64](counts map[string]N) {
	tables := make([]string, 0, len(counts))
	for t := range counts {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		fmt.Printf("%-20s %d\n", t, counts[t])
	}
}

var filesCmd = &cobra.Command{
	Use:   "files [PREFIX]",
	Short: "List artifacts in the output directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) > 0 {
			prefix = args[0]
		}

		a, _, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		infos, err := a.Files(prefix)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No artifacts.")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%-45s %10d  %s\n", info.Name, info.Size, info.ModifiedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old history artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetInt("keep")
		if keep < 0 {
			return fmt.Errorf("--keep must not be negative")
		}

		a, _, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.Prune(keep)
		if err != nil {
			return err
		}
		total := 0
		for _, n := range removed {
			total += n
		}
		fmt.Printf("Removed %d history artifact(s)\n", total)
		return nil
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt REPLICA ARTIFACT",
	Short: "Print an artifact from an encrypted replica",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		data, err := a.Decrypt(args[0], args[1], pass)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print mirror update events from the message broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cfg, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		queue := cfg.Notify.Queue
		if queue == "" {
			queue = config.DefaultQueue
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return notify.Listen(ctx, notify.ResolveURL(cfg.Notify.URL), queue, notify.DialAMQP, a.Logger(),
			func(e mirror.MirrorUpdatedEvent) {
				fmt.Printf("%s  %s  %d change(s)\n", e.Timestamp, e.CycleID, len(e.Changes))
				for table, delta := range e.Changes {
					fmt.Printf("  %-20s %+d\n", table, delta)
				}
			})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug messages")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().Bool("encrypt", false, "Generate an age key pair for encrypted replicas")
	configCmd.AddCommand(configListCmd)

	// db subcommands
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbStatusCmd)

	seedCmd.Flags().Int("employees", seed.DefaultCounts.Employees, "Employees to generate")
	seedCmd.Flags().Int("products", seed.DefaultCounts.Products, "Products to generate")
	seedCmd.Flags().Int("customers", seed.DefaultCounts.Customers, "Customers to generate")
	seedCmd.Flags().Int("sales", seed.DefaultCounts.Sales, "Sales to generate")
	seedCmd.Flags().Uint64("seed", 0, "Random seed (0 picks one)")

	watchCmd.Flags().String("mode", "", "Trigger mode: poll or notify (default from config)")
	watchCmd.Flags().Duration("interval", 0, "Polling interval (default from config)")

	pruneCmd.Flags().IntP("keep", "k", 10, "History artifacts to keep per table")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(insertTestCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(countsCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(listenCmd)
}
