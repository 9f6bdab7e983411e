package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vlad-ds/street-view-mcp/pkg/htmlpage"
	"github.com/vlad-ds/street-view-mcp/pkg/localfile"
	"github.com/vlad-ds/street-view-mcp/pkg/streetview"
)

const serverName = "Street View MCP"

// Server exposes the Street View operations as MCP tools. Each tool is one
// linear fetch-and-side-effect sequence; errors propagate to the calling
// agent unretried.
type Server struct {
	client *streetview.Client
	cfg    *Config
	mcp    *server.MCPServer

	// openFile is swapped out in tests.
	openFile func(path string) error
}

func NewServer(client *streetview.Client, cfg *Config) *Server {
	s := &Server{
		client:   client,
		cfg:      cfg,
		openFile: localfile.Open,
	}
	s.mcp = server.NewMCPServer(serverName, version, server.WithToolCapabilities(false))
	s.registerTools()
	return s
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// ServeSSE blocks serving MCP over SSE on addr.
func (s *Server) ServeSSE(addr string) error {
	return server.NewSSEServer(s.mcp).Start(addr)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("get_street_view",
		mcp.WithDescription("Fetch a Street View image by address, coordinates or panorama ID. Optionally saves it under the output directory."),
		mcp.WithString("location",
			mcp.Description(`Address to fetch, e.g. "Empire State Building, NY"`)),
		mcp.WithString("lat_lng",
			mcp.Description(`Comma-separated latitude and longitude, e.g. "40.748817,-73.985428"`)),
		mcp.WithString("pano_id",
			mcp.Description("Specific panorama ID to fetch")),
		mcp.WithString("size",
			mcp.Description(`Image dimensions as "widthxheight"`),
			mcp.DefaultString(streetview.DefaultSize)),
		mcp.WithNumber("heading",
			mcp.Description("Camera heading in degrees (0-360)"),
			mcp.DefaultNumber(0)),
		mcp.WithNumber("pitch",
			mcp.Description("Camera pitch in degrees (-90 to 90)"),
			mcp.DefaultNumber(0)),
		mcp.WithNumber("fov",
			mcp.Description("Field of view in degrees (10-120)"),
			mcp.DefaultNumber(streetview.DefaultFOV)),
		mcp.WithNumber("radius",
			mcp.Description("Search radius in meters; ignored with pano_id"),
			mcp.DefaultNumber(streetview.DefaultRadius)),
		mcp.WithString("source",
			mcp.Description(`Limit imagery to selected sources: "default" or "outdoor"`),
			mcp.DefaultString(streetview.SourceDefault)),
		mcp.WithString("filename",
			mcp.Description("Save the image under the output directory with this name")),
	), s.handleGetStreetView)

	s.mcp.AddTool(mcp.NewTool("get_metadata",
		mcp.WithDescription("Fetch metadata about a Street View panorama (status, copyright, date, pano_id, location)."),
		mcp.WithString("location",
			mcp.Description("Address to check for Street View imagery")),
		mcp.WithString("lat_lng",
			mcp.Description(`Comma-separated latitude and longitude, e.g. "40.748817,-73.985428"`)),
		mcp.WithString("pano_id",
			mcp.Description("Specific panorama ID to fetch metadata for")),
		mcp.WithNumber("radius",
			mcp.Description("Search radius in meters; ignored with pano_id"),
			mcp.DefaultNumber(streetview.DefaultRadius)),
		mcp.WithString("source",
			mcp.Description(`Limit imagery to selected sources: "default" or "outdoor"`),
			mcp.DefaultString(streetview.SourceDefault)),
	), s.handleGetMetadata)

	s.mcp.AddTool(mcp.NewTool("open_image_locally",
		mcp.WithDescription("Open a previously saved image with the OS default viewer."),
		mcp.WithString("filename",
			mcp.Description("Image filename under the output directory, or an absolute path"),
			mcp.Required()),
	), s.handleOpenImageLocally)

	s.mcp.AddTool(mcp.NewTool("create_html_page",
		mcp.WithDescription("Assemble the given HTML fragments into a static page under the html directory and open it in the browser."),
		mcp.WithArray("html_elements",
			mcp.Description("HTML fragment strings, concatenated in order"),
			mcp.Required()),
		mcp.WithString("filename",
			mcp.Description(`Output name; ".html" is appended when missing`),
			mcp.Required()),
		mcp.WithString("title",
			mcp.Description("Page title")),
	), s.handleCreateHTMLPage)
}

func (s *Server) handleGetStreetView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.Params.Arguments
	loc, err := locationFromArgs(args)
	if err != nil {
		return nil, err
	}
	opts := streetview.ImageOptions{
		Size:    strArg(args, "size"),
		Heading: intArg(args, "heading", 0),
		Pitch:   intArg(args, "pitch", 0),
		FOV:     intArg(args, "fov", streetview.DefaultFOV),
		Radius:  intArg(args, "radius", streetview.DefaultRadius),
		Source:  strArg(args, "source"),
	}
	img, err := s.client.FetchImage(ctx, loc, opts)
	if err != nil {
		return nil, err
	}

	note := fmt.Sprintf("Fetched %dx%d %s image", img.Width, img.Height, img.ContentType)
	if name := strArg(args, "filename"); name != "" {
		path := filepath.Join(s.cfg.OutputDir, name)
		if err := localfile.WriteNew(path, img.Data); err != nil {
			return nil, err
		}
		log.Info("Saved Street View image", "path", path, "bytes", len(img.Data))
		note += ", saved to " + path
	}
	return mcp.NewToolResultImage(note, base64.StdEncoding.EncodeToString(img.Data), img.ContentType), nil
}

func (s *Server) handleGetMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.Params.Arguments
	loc, err := locationFromArgs(args)
	if err != nil {
		return nil, err
	}
	meta, err := s.client.FetchMetadata(ctx, loc, streetview.MetadataOptions{
		Radius: intArg(args, "radius", streetview.DefaultRadius),
		Source: strArg(args, "source"),
	})
	if err != nil {
		return nil, err
	}
	// The upstream document is passed through as received.
	return mcp.NewToolResultText(string(meta.Raw)), nil
}

func (s *Server) handleOpenImageLocally(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strArg(req.Params.Arguments, "filename")
	if name == "" {
		return nil, fmt.Errorf("%w: filename is required", streetview.ErrInvalidInput)
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.cfg.OutputDir, path)
	}
	abs, err := localfile.Resolve(path)
	if err != nil {
		return nil, err
	}
	if err := s.openFile(abs); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText("Opened " + abs + " with the system default viewer"), nil
}

func (s *Server) handleCreateHTMLPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.Params.Arguments
	fragments, err := stringSliceArg(args, "html_elements")
	if err != nil {
		return nil, err
	}
	if len(fragments) == 0 {
		return nil, fmt.Errorf("%w: html_elements must not be empty", streetview.ErrInvalidInput)
	}
	name := strArg(args, "filename")
	if name == "" {
		return nil, fmt.Errorf("%w: filename is required", streetview.ErrInvalidInput)
	}

	path, err := htmlpage.Create(s.cfg.HTMLDir, name, fragments, strArg(args, "title"))
	if err != nil {
		return nil, err
	}
	log.Info("Created HTML page", "path", path, "fragments", len(fragments))
	if err := s.openFile(path); err != nil {
		// The page exists either way; report the open failure without
		// failing the call.
		log.Error("Could not open page in browser", "path", path, "error", err)
		return mcp.NewToolResultText("Created " + path + " (browser open failed: " + err.Error() + ")"), nil
	}
	return mcp.NewToolResultText("Created " + path + " and opened it in the browser"), nil
}

func locationFromArgs(args map[string]interface{}) (streetview.Location, error) {
	loc := streetview.Location{
		Address: strArg(args, "location"),
		PanoID:  strArg(args, "pano_id"),
	}
	if raw := strArg(args, "lat_lng"); raw != "" {
		ll, err := streetview.ParseLatLng(raw)
		if err != nil {
			return streetview.Location{}, err
		}
		loc.LatLng = &ll
	}
	if err := loc.Validate(); err != nil {
		return streetview.Location{}, err
	}
	return loc, nil
}

func strArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

// intArg reads a JSON number argument. Arguments arrive as float64.
func intArg(args map[string]interface{}, key string, def int) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return def
}

func stringSliceArg(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s must be an array of strings", streetview.ErrInvalidInput, key)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must contain only strings", streetview.ErrInvalidInput, key)
		}
		out = append(out, s)
	}
	return out, nil
}
