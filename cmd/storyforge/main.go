package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"storyforge/internal/config"
	"storyforge/internal/enrich"
	"storyforge/internal/llm"
	"storyforge/internal/pipeline"
	"storyforge/internal/problems"
	"storyforge/internal/scout"
	"storyforge/internal/scrape"
	"storyforge/internal/server"
	"storyforge/internal/stories"
	"storyforge/internal/synthesize"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "storyforge",
	Short:   "Opportunity stories from real-world problems",
	Long:    "Storyforge scrapes public sources for problems, stores them in a local database, and weaves them into opportunity stories served over a JSON API.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(scoutCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(voteCmd)
}

func newProvider() llm.Provider {
	g := cfg.Generation
	return llm.CreateProvider(g.Provider, g.Model, g.OllamaURL, g.OpenAIModel, g.APIKeyEnv, g.Temperature)
}

func newPipeline(repo *problems.Repository, store *stories.Store) *pipeline.Pipeline {
	weaver := synthesize.NewWeaver(newProvider(), cfg.Generation.MaxTokens)
	return pipeline.New(repo, store, weaver, scrape.New(cfg))
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("storyforge", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/storyforge/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure domains, sources, and the LLM provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and story status",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := problems.Open(cfg.ProblemPath())
		stats := repo.Stats()

		fmt.Println("Problems:")
		fmt.Printf("  Total: %d\n", stats.Total)
		fmt.Printf("  Unprocessed: %d\n", stats.Unprocessed)

		if len(stats.ByDomain) > 0 {
			fmt.Println("\nProblems by domain:")
			var domains []string
			for d := range stats.ByDomain {
				domains = append(domains, d)
			}
			sort.Strings(domains)
			for _, d := range domains {
				fmt.Printf("  %s: %d\n", d, stats.ByDomain[d])
			}
		}

		store := stories.NewStore(cfg.StoryPath(), cfg.SeedPath())
		generated := store.Generated()
		fmt.Println("\nStories:")
		fmt.Printf("  Generated: %d\n", len(generated))
		storyDomains := make(map[string]struct{})
		for _, st := range generated {
			storyDomains[st.Domain] = struct{}{}
		}
		if len(storyDomains) > 0 {
			var names []string
			for d := range storyDomains {
				names = append(names, d)
			}
			sort.Strings(names)
			fmt.Printf("  Domains: %s\n", strings.Join(names, ", "))
		}

		cache := enrich.NewCache(cfg.CachePath())
		fmt.Printf("  Enriched (cached): %d\n", cache.Len())
		return nil
	},
}

// --- add command ---

var (
	addDomain      string
	addTitle       string
	addDescription string
	addSource      string
	addSamples     bool
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a problem to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := problems.Open(cfg.ProblemPath())

		if addSamples {
			samples := []struct{ domain, title, description, source string }{
				{"Education", "Group project coordination chaos", "Students can't coordinate group projects effectively", "College Friends"},
				{"Local Services", "Neighborhood delivery coordination", "Neighbors want to coordinate food deliveries but it's messy", "Neighborhood"},
				{"Student Life", "Shared textbook tracking", "Tracking shared textbooks in dorms is impossible", "Dorm Friends"},
			}
			fmt.Println("Adding sample problems...")
			for _, s := range samples {
				if _, err := repo.Add(s.domain, s.title, s.description, s.source, problems.SourceManual); err != nil {
					return err
				}
			}
			fmt.Println("Sample problems added.")
			return nil
		}

		reader := bufio.NewReader(os.Stdin)
		prompt := func(label, current string) string {
			if current != "" {
				return current
			}
			fmt.Printf("%s: ", label)
			line, _ := reader.ReadString('\n')
			return strings.TrimSpace(line)
		}

		domain := prompt("Domain (Healthcare/Climate/Education/etc.)", addDomain)
		title := prompt("Problem title", addTitle)
		description := prompt("Problem description", addDescription)
		source := prompt("Source (College/Neighbors/Friends/etc.)", addSource)
		if domain == "" || title == "" {
			return fmt.Errorf("domain and title are required")
		}

		p, err := repo.Add(domain, title, description, source, problems.SourceUserInput)
		if err != nil {
			return err
		}
		fmt.Printf("Added to database: %s\n", p.Title)
		fmt.Printf("Problem ID: %s\n", p.ID)

		stats := repo.Stats()
		fmt.Printf("\nTotal problems: %d (%d unprocessed)\n", stats.Total, stats.Unprocessed)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addDomain, "domain", "", "Problem domain")
	addCmd.Flags().StringVar(&addTitle, "title", "", "Problem title")
	addCmd.Flags().StringVar(&addDescription, "description", "", "Problem description")
	addCmd.Flags().StringVar(&addSource, "source", "", "Where the problem came from")
	addCmd.Flags().BoolVar(&addSamples, "samples", false, "Add built-in sample problems")
}

// --- scout command ---

var (
	scoutFocus    string
	scoutAudience string
	scoutLocation string
)

var scoutCmd = &cobra.Command{
	Use:   "scout",
	Short: "Discover market opportunities with the LLM",
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)
		prompt := func(label, current string) string {
			if current != "" {
				return current
			}
			fmt.Printf("%s: ", label)
			line, _ := reader.ReadString('\n')
			return strings.TrimSpace(line)
		}

		focus := prompt("Focus area (Healthcare, Education, Local Services, etc.)", scoutFocus)
		audience := prompt("Target audience (College students, Small business, Youth, etc.)", scoutAudience)
		location := prompt("Location [India]", scoutLocation)
		if focus == "" || audience == "" {
			return fmt.Errorf("focus area and audience are required")
		}

		fmt.Printf("\nDiscovering opportunities in %s for %s...\n", focus, audience)
		s := scout.New(newProvider())
		opportunities := s.Discover(context.Background(), focus, audience, location)
		if len(opportunities) == 0 {
			fmt.Println("No opportunities discovered.")
			return nil
		}

		fmt.Printf("\nFound %d opportunities:\n", len(opportunities))
		for i, opp := range opportunities {
			fmt.Printf("\n%d. %s\n", i+1, opp.Title)
			fmt.Printf("   Domain: %s\n", opp.Domain)
			desc := opp.Opportunity
			if len(desc) > 100 {
				desc = desc[:100] + "..."
			}
			fmt.Printf("   Opportunity: %s\n", desc)
		}

		if !confirm(fmt.Sprintf("\nAdd these %d opportunities to the database? [y/N]: ", len(opportunities))) {
			fmt.Println("Cancelled.")
			return nil
		}

		repo := problems.Open(cfg.ProblemPath())
		added := scout.AddToRepository(repo, opportunities, "AI Discovery - "+focus)
		fmt.Printf("Added %d opportunities. Run 'storyforge generate' to create stories.\n", added)
		return nil
	},
}

func init() {
	scoutCmd.Flags().StringVar(&scoutFocus, "focus", "", "Focus area")
	scoutCmd.Flags().StringVar(&scoutAudience, "audience", "", "Target audience")
	scoutCmd.Flags().StringVar(&scoutLocation, "location", "", "Location")
}

// --- generate command ---

var (
	generateFull    bool
	generateDomains []string
	generateMax     int
	generateYes     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate stories for unprocessed problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := problems.Open(cfg.ProblemPath())
		store := stories.NewStore(cfg.StoryPath(), cfg.SeedPath())
		pipe := newPipeline(repo, store)
		ctx := context.Background()

		var result *pipeline.Result
		if generateFull {
			domains := generateDomains
			if len(domains) == 0 {
				domains = cfg.Sources.Domains
			}
			result = pipe.FullRun(ctx, domains, generateMax)
		} else {
			pending := repo.Unprocessed()
			if len(pending) == 0 {
				fmt.Println("No new problems to process.")
				fmt.Println("Add problems with 'storyforge add' or discover them with 'storyforge scout'.")
				return nil
			}

			fmt.Printf("Found %d unprocessed problems:\n", len(pending))
			for i, p := range pending {
				fmt.Printf("  %d. %s (%s)\n", i+1, p.Title, p.Domain)
			}
			if len(pending) > 5 && !generateYes {
				if !confirm(fmt.Sprintf("\nGenerate stories for these %d problems? This will use API calls [y/N]: ", len(pending))) {
					fmt.Println("Cancelled.")
					return nil
				}
			}

			result = pipe.Run(ctx, generateDomains, generateMax)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if len(result.Generated) > 0 {
			fmt.Println("\nGenerated stories:")
			for i, st := range result.Generated {
				fmt.Printf("  %d. %s (%s)\n", i+1, st.Title, st.Domain)
				fmt.Printf("     %s\n", st.Preview)
			}
			fmt.Println("\nRun 'storyforge serve' to view the feed.")
		}
		return result.Err()
	},
}

func init() {
	generateCmd.Flags().BoolVar(&generateFull, "full", false, "Scrape sources and generate from scratch")
	generateCmd.Flags().StringSliceVar(&generateDomains, "domains", nil, "Restrict to these domains")
	generateCmd.Flags().IntVar(&generateMax, "max", 0, "Cap the number of stories generated")
	generateCmd.Flags().BoolVarP(&generateYes, "yes", "y", false, "Skip confirmation prompt")
}

// --- seed command ---

var (
	seedDomains   []string
	seedPerDomain int
	seedYes       bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Clear data and generate a comprehensive seed story set",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !seedYes {
			if !confirm("This will clear existing data and generate new stories using AI. Continue? [y/N]: ") {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		synthesize.ClearData(cfg.ProblemPath(), cfg.StoryPath(), cfg.SeedPath())

		store := stories.NewStore(cfg.StoryPath(), cfg.SeedPath())
		seeder := synthesize.NewSeeder(newProvider(), store)
		seeds, err := seeder.Run(context.Background(), seedDomains, seedPerDomain)
		if err != nil {
			return err
		}

		byDomain := make(map[string]int)
		for _, st := range seeds {
			byDomain[st.Domain]++
		}
		fmt.Printf("\nGenerated %d seed stories:\n", len(seeds))
		var names []string
		for d := range byDomain {
			names = append(names, d)
		}
		sort.Strings(names)
		for _, d := range names {
			fmt.Printf("  %s: %d\n", d, byDomain[d])
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().StringSliceVar(&seedDomains, "domains", nil, "Domains to seed (default: built-in set)")
	seedCmd.Flags().IntVar(&seedPerDomain, "per-domain", 6, "Opportunities per domain")
	seedCmd.Flags().BoolVarP(&seedYes, "yes", "y", false, "Skip confirmation prompt")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the story feed API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		repo := problems.Open(cfg.ProblemPath())
		store := stories.NewStore(cfg.StoryPath(), cfg.SeedPath())
		provider := newProvider()
		cache := enrich.NewCache(cfg.CachePath())
		enricher := enrich.NewEnricher(provider, cache)
		pipe := newPipeline(repo, store)

		srv := server.New(fmt.Sprintf(":%d", port), repo, store, provider, enricher, cache, pipe, cfg.Sources.Domains)

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return srv.Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// --- vote command ---

var voteDelta int

var voteCmd = &cobra.Command{
	Use:   "vote [problem-id]",
	Short: "Vote on a problem",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := problems.Open(cfg.ProblemPath())
		id := args[0]
		if repo.GetByID(id) == nil {
			return fmt.Errorf("problem not found: %s", id)
		}
		if err := repo.AddVote(id, voteDelta); err != nil {
			return err
		}
		p := repo.GetByID(id)
		fmt.Printf("%s now has %d votes\n", p.Title, p.VoteCount)
		return nil
	},
}

func init() {
	voteCmd.Flags().IntVar(&voteDelta, "delta", 1, "Vote adjustment")
}
