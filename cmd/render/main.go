// Command render parses one post's markup with a site profile and prints the
// resulting rich text as JSON.
//
// Usage:
//
//	render --site vichan --board b --thread 10 --no 12 post.html
//	render --site taimaba --board a --embed - < post.html
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"Threadmark/internal/core/embeds"
	"Threadmark/internal/core/posts"
	"Threadmark/internal/core/render"
	"Threadmark/internal/core/sites"
)

type options struct {
	site       string
	sitesFile  string
	board      string
	threadNo   int64
	no         int64
	embed      bool
	timeout    time.Duration
	youtubeKey string
	compact    bool
	verbose    bool
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "render [flags] FILE",
		Short: "Render post markup to annotated rich text",
		Long: `Parses a post's HTML markup with a site profile and prints the text,
styled segments, references and (with --embed) embedded link titles as JSON.
FILE may be "-" to read standard input.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts, args[0], in, out)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.site, "site", "vichan", "site profile name")
	flags.StringVar(&opts.sitesFile, "sites-file", os.Getenv("SITES_FILE"), "YAML file with extra site profiles")
	flags.StringVar(&opts.board, "board", "", "board code of the post (required)")
	flags.Int64Var(&opts.threadNo, "thread", 0, "thread number; defaults to the post number")
	flags.Int64Var(&opts.no, "no", 1, "post number")
	flags.BoolVar(&opts.embed, "embed", false, "fetch link metadata and splice titles into the text")
	flags.DurationVar(&opts.timeout, "timeout", 2500*time.Millisecond, "per-request embed timeout")
	flags.StringVar(&opts.youtubeKey, "youtube-key", os.Getenv("YOUTUBE_API_KEY"), "YouTube Data API key for durations")
	flags.BoolVar(&opts.compact, "compact", false, "print compact JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log embed activity to stderr")
	_ = cmd.MarkFlagRequired("board")

	return cmd
}

func runRender(cmd *cobra.Command, opts *options, path string, in io.Reader, out io.Writer) error {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	markup, err := readInput(path, in)
	if err != nil {
		return err
	}

	registry, err := sites.Load(opts.sitesFile, logger)
	if err != nil {
		return err
	}
	site, err := registry.Lookup(opts.site)
	if err != nil {
		return fmt.Errorf("%w (known: %v)", err, registry.Names())
	}

	var coordinator *embeds.Coordinator
	if opts.embed {
		cache, err := embeds.NewCache(64, nil, logger)
		if err != nil {
			return err
		}
		coordinator = embeds.NewCoordinator(
			embeds.NewRegistry(embeds.DefaultEmbedders(embeds.ProviderOptions{YouTubeAPIKey: opts.youtubeKey})...),
			cache,
			embeds.NewTransport(&http.Client{Timeout: 2 * opts.timeout}, 0, 1, "Threadmark-render/1.0"),
			embeds.WithTimeout(opts.timeout),
			embeds.WithBoards(func(code string) posts.Board {
				// The command line asks for embedding explicitly
				b := site.Board(code)
				b.EmbedsEnabled = true
				return b
			}),
			embeds.WithLogger(logger),
		)
	}

	service := render.NewService(site, posts.NewMemoryStore(1), coordinator, logger)
	post, err := service.Render(cmd.Context(), render.Request{
		Board:    opts.board,
		ThreadNo: opts.threadNo,
		No:       opts.no,
		Markup:   markup,
		Embed:    opts.embed,
		Wait:     true,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	if !opts.compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(post.Snapshot())
}

func readInput(path string, in io.Reader) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read markup: %w", err)
	}
	return string(data), nil
}
