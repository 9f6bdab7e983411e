// Package mcp wires the Street View client into its two surfaces: the
// standalone fetch CLI and the MCP tool server.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vlad-ds/street-view-mcp/pkg/localfile"
	"github.com/vlad-ds/street-view-mcp/pkg/streetview"
)

var version = "dev"

// APIKeyEnv is the environment variable holding the Street View API key,
// loadable from a .env file.
const APIKeyEnv = "API_KEY"

var (
	// Shared flags/config
	configFile string
	debugMode  bool

	// Fetch mode
	addressFlag  string
	latLngFlag   string
	panoFlag     string
	outputFlag   string
	sizeFlag     string
	headingFlag  int
	pitchFlag    int
	fovFlag      int
	radiusFlag   int
	sourceFlag   string
	openFlag     bool
	metadataFlag bool

	// Server mode
	serveMode  bool
	sseMode    bool
	serverPort int
)

var errorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("203")).
	Bold(true)

var rootCmd = &cobra.Command{
	Use:   "street-view-mcp",
	Short: "Fetch Street View imagery from the command line or serve it over MCP",
	Long: `street-view-mcp fetches Google Street View images and panorama metadata.

By default it runs as a one-shot fetch tool: give it exactly one of
--address, --latlong or --pano and it saves the image under the output
directory (or prints metadata with --metadata).

With --serve it runs as an MCP server exposing the tools get_street_view,
get_metadata, open_image_locally and create_html_page to a calling agent,
over stdio by default or SSE with --sse.

The API key is read from the ` + APIKeyEnv + ` environment variable; a .env
file in the working directory is honored.

Example (CLI):
  street-view-mcp --address "Empire State Building, NY" --open
  street-view-mcp --latlong "40.748817,-73.985428" --fov 120 --output empire.jpg
  street-view-mcp --pano PANO_ID --metadata

Server mode:
  street-view-mcp --serve
  street-view-mcp --serve --sse --port 8000`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if debugMode {
			log.SetLevel(log.DebugLevel)
			log.SetReportCaller(true)
		}

		// .env is optional; a missing file is fine.
		if err := godotenv.Load(); err == nil {
			log.Debug("Loaded .env file")
		}
		apiKey := os.Getenv(APIKeyEnv)
		if apiKey == "" {
			return fmt.Errorf("%s is not set; export it or put it in a .env file", APIKeyEnv)
		}

		cfg, err := LoadConfig(configFile)
		if err != nil {
			return err
		}
		client, err := streetview.New(apiKey)
		if err != nil {
			return err
		}

		if serveMode {
			return runServe(client, cfg)
		}
		return runFetch(cmd.Context(), cmd, client, cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "streetview.yaml", "config file (yaml)")
	rootCmd.PersistentFlags().
		BoolVar(&debugMode, "debug", false, "enable debug logging")

	rootCmd.Flags().StringVar(&addressFlag, "address", "", `address to fetch, e.g. "Empire State Building, NY"`)
	rootCmd.Flags().StringVar(&latLngFlag, "latlong", "", `comma-separated "lat,lng" coordinates`)
	rootCmd.Flags().StringVar(&panoFlag, "pano", "", "panorama ID to fetch")
	rootCmd.Flags().StringVar(&outputFlag, "output", "", "output filename (default: timestamped name under the output directory)")
	rootCmd.Flags().StringVar(&sizeFlag, "size", streetview.DefaultSize, `image dimensions as "widthxheight"`)
	rootCmd.Flags().IntVar(&headingFlag, "heading", 0, "camera heading in degrees (0-360)")
	rootCmd.Flags().IntVar(&pitchFlag, "pitch", 0, "camera pitch in degrees (-90 to 90)")
	rootCmd.Flags().IntVar(&fovFlag, "fov", streetview.DefaultFOV, "field of view in degrees (10-120)")
	rootCmd.Flags().IntVar(&radiusFlag, "radius", streetview.DefaultRadius, "search radius in meters; ignored with --pano")
	rootCmd.Flags().StringVar(&sourceFlag, "source", streetview.SourceDefault, `imagery source: "default" or "outdoor"`)
	rootCmd.Flags().BoolVar(&openFlag, "open", false, "open the saved image with the system viewer")
	rootCmd.Flags().BoolVar(&metadataFlag, "metadata", false, "fetch panorama metadata instead of an image")

	rootCmd.Flags().BoolVar(&serveMode, "serve", false, "run as an MCP server")
	rootCmd.Flags().BoolVar(&sseMode, "sse", false, "serve MCP over SSE instead of stdio (with --serve)")
	rootCmd.Flags().IntVar(&serverPort, "port", 8000, "port for SSE server mode")
}

// Execute runs the root command. Any error is printed to stderr and the
// process exits 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

func runServe(client *streetview.Client, cfg *Config) error {
	srv := NewServer(client, cfg)
	if sseMode {
		addr := fmt.Sprintf(":%d", serverPort)
		log.Info("Starting Street View MCP server", "transport", "sse", "addr", addr)
		return srv.ServeSSE(addr)
	}
	log.Info("Starting Street View MCP server", "transport", "stdio")
	return srv.ServeStdio()
}

func runFetch(ctx context.Context, cmd *cobra.Command, client *streetview.Client, cfg *Config) error {
	loc := streetview.Location{
		Address: addressFlag,
		PanoID:  panoFlag,
	}
	if latLngFlag != "" {
		ll, err := streetview.ParseLatLng(latLngFlag)
		if err != nil {
			return err
		}
		loc.LatLng = &ll
	}
	if err := loc.Validate(); err != nil {
		return err
	}

	// Config file values back any flag the user left untouched.
	if !cmd.Flags().Changed("size") && cfg.Size != "" {
		sizeFlag = cfg.Size
	}
	if !cmd.Flags().Changed("radius") && cfg.Radius > 0 {
		radiusFlag = cfg.Radius
	}
	if !cmd.Flags().Changed("source") && cfg.Source != "" {
		sourceFlag = cfg.Source
	}

	if metadataFlag {
		meta, err := client.FetchMetadata(ctx, loc, streetview.MetadataOptions{
			Radius: radiusFlag,
			Source: sourceFlag,
		})
		if err != nil {
			return err
		}
		var pretty json.RawMessage = meta.Raw
		if buf, err := json.MarshalIndent(meta.Raw, "", "  "); err == nil {
			pretty = buf
		}
		fmt.Println(string(pretty))
		return nil
	}

	img, err := client.FetchImage(ctx, loc, streetview.ImageOptions{
		Size:    sizeFlag,
		Heading: headingFlag,
		Pitch:   pitchFlag,
		FOV:     fovFlag,
		Radius:  radiusFlag,
		Source:  sourceFlag,
	})
	if err != nil {
		return err
	}

	name := outputFlag
	if name == "" {
		name = defaultOutputName(img.ContentType)
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.OutputDir, path)
	}
	if err := localfile.WriteNew(path, img.Data); err != nil {
		return err
	}
	log.Info("Saved Street View image", "path", path, "size", fmt.Sprintf("%dx%d", img.Width, img.Height))

	if openFlag {
		return localfile.Open(path)
	}
	return nil
}

// defaultOutputName builds a timestamped filename with an extension matching
// the response content type.
func defaultOutputName(contentType string) string {
	ext := ".jpg"
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[len(exts)-1]
	}
	return "streetview_" + time.Now().Format("20060102_150405") + ext
}
