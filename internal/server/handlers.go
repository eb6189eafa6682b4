package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ironsheep/image-normalizer-mcp/internal/convert"
	"github.com/ironsheep/image-normalizer-mcp/internal/imaging"
	"github.com/ironsheep/image-normalizer-mcp/internal/media"
	"github.com/ironsheep/image-normalizer-mcp/internal/sizing"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_convert", "image_info").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.WithError(err).WithField("tool", params.Name).Info("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Conversion
	case "image_convert":
		return s.handleImageConvert(ctx, args)
	case "image_read":
		return s.handleImageRead(ctx, args)

	// Inspection
	case "image_fit_dimensions":
		return s.handleImageFitDimensions(args)
	case "image_data_url_info":
		return s.handleImageDataURLInfo(args)
	case "image_info":
		return s.handleImageInfo(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Size Arguments ===

// sizeArgs are the resize arguments shared by several tools. Size is a
// "WxH" shorthand; explicit width and height take precedence over it.
type sizeArgs struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	MaxWidth  int    `json:"max_width"`
	MaxHeight int    `json:"max_height"`
	Size      string `json:"size"`
	Stretch   bool   `json:"stretch"`
}

func (a sizeArgs) spec(base sizing.Spec) (sizing.Spec, error) {
	spec := base
	if a.Size != "" {
		w, h, err := sizing.ParseSize(a.Size)
		if err != nil {
			return sizing.Spec{}, err
		}
		spec.Width, spec.Height = w, h
	}
	if a.Width != 0 {
		spec.Width = a.Width
	}
	if a.Height != 0 {
		spec.Height = a.Height
	}
	if a.MaxWidth != 0 {
		spec.MaxWidth = a.MaxWidth
	}
	if a.MaxHeight != 0 {
		spec.MaxHeight = a.MaxHeight
	}
	if a.Stretch {
		spec.Stretch = true
	}
	if spec.Width < 0 || spec.Height < 0 || spec.MaxWidth < 0 || spec.MaxHeight < 0 {
		return sizing.Spec{}, fmt.Errorf("dimensions must not be negative")
	}
	return spec, nil
}

// === Conversion Handlers ===

type imageConvertArgs struct {
	sizeArgs
	Source   string   `json:"source"`
	Sources  []string `json:"sources"`
	Multiple bool     `json:"multiple"`
	Type     string   `json:"type"`
	Quality  *float64 `json:"quality"`
	Force    bool     `json:"force"`
	Output   string   `json:"output"`
	SaveDir  string   `json:"save_dir"`
	Name     string   `json:"name"`
}

// ConvertedImage describes one converted output.
type ConvertedImage struct {
	Type        string `json:"type"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	SizeBytes   int    `json:"size_bytes"`
	HumanSize   string `json:"human_size"`
	PassThrough bool   `json:"pass_through"`
	SavedPath   string `json:"saved_path,omitempty"`
	DataURL     string `json:"data_url,omitempty"`
	Data        string `json:"data,omitempty"`
}

// ConvertResult is returned by image_convert. Images holds one entry per
// source when multiple is set, otherwise exactly one.
type ConvertResult struct {
	Multiple bool              `json:"multiple"`
	Images   []*ConvertedImage `json:"images"`
}

func (s *Server) handleImageConvert(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageConvertArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var input any
	switch {
	case len(a.Sources) > 0:
		input = a.Sources
	case a.Source != "":
		input = a.Source
	default:
		return nil, fmt.Errorf("source or sources is required")
	}

	opts := s.defaults
	spec, err := a.sizeArgs.spec(opts.Resize)
	if err != nil {
		return nil, err
	}
	opts.Resize = spec
	if a.Type != "" {
		opts.Type = a.Type
	}
	if a.Quality != nil {
		opts.Quality = *a.Quality
	}
	out, err := convert.ParseOutput(a.Output)
	if err != nil {
		return nil, err
	}
	if out == convert.OutputCanvas {
		return nil, fmt.Errorf("canvas output is not available over MCP")
	}
	opts.Output = out
	opts.Multiple = a.Multiple
	opts.Force = a.Force
	opts.Name = a.Name
	opts.Async = true

	f, err := s.dispatcher.Convert(ctx, input, opts)
	if err != nil {
		return nil, err
	}
	res, err := f.Await(ctx)
	if err != nil {
		return nil, err
	}

	items := []*convert.Result{res}
	if res.IsSequence() {
		items = res.Items
	}

	result := &ConvertResult{Multiple: a.Multiple, Images: make([]*ConvertedImage, 0, len(items))}
	for _, it := range items {
		img, err := s.describeConverted(it, opts, a.SaveDir)
		if err != nil {
			return nil, err
		}
		result.Images = append(result.Images, img)
	}
	return result, nil
}

func (s *Server) describeConverted(res *convert.Result, opts convert.Options, saveDir string) (*ConvertedImage, error) {
	b := res.Blob
	img := &ConvertedImage{
		Type:        b.Type,
		SizeBytes:   b.Size(),
		HumanSize:   b.HumanSize(),
		PassThrough: res.PassThrough,
	}
	if info, err := imaging.Describe(b); err == nil {
		img.Width, img.Height = info.Width, info.Height
	}

	switch {
	case saveDir != "":
		name := opts.Name
		if name == "" {
			name = b.Name
		}
		path, err := imaging.SaveBlob(saveDir, b, name)
		if err != nil {
			return nil, err
		}
		img.SavedPath = path
	case opts.Output == convert.OutputDataURL:
		img.DataURL = string(res.DataURL)
	default:
		img.Data = base64.StdEncoding.EncodeToString(b.Data)
	}
	return img, nil
}

type imageReadArgs struct {
	Source string `json:"source"`
	Mode   string `json:"mode"`
}

// ReadOutput is returned by image_read. Binary reads are base64 encoded.
type ReadOutput struct {
	Mode      string `json:"mode"`
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	Base64    string `json:"base64,omitempty"`
	SizeBytes int    `json:"size_bytes"`
}

func (s *Server) handleImageRead(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageReadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Source == "" {
		return nil, fmt.Errorf("source is required")
	}
	mode, err := imaging.ParseReadMode(a.Mode)
	if err != nil {
		return nil, err
	}

	f, err := s.dispatcher.Read(ctx, a.Source, mode, convert.Options{Async: true})
	if err != nil {
		return nil, err
	}
	res, err := f.Await(ctx)
	if err != nil {
		return nil, err
	}

	out := &ReadOutput{Mode: string(mode), Type: res.Read.Type, SizeBytes: res.Blob.Size()}
	if mode == imaging.ReadArrayBuffer {
		out.Base64 = base64.StdEncoding.EncodeToString(res.Read.Bytes)
	} else {
		out.Text = res.Read.Text
	}
	return out, nil
}

// === Inspection Handlers ===

type imageFitDimensionsArgs struct {
	sizeArgs
	IntrinsicWidth  int `json:"intrinsic_width"`
	IntrinsicHeight int `json:"intrinsic_height"`
}

func (s *Server) handleImageFitDimensions(args json.RawMessage) (interface{}, error) {
	var a imageFitDimensionsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	spec, err := a.sizeArgs.spec(sizing.Spec{})
	if err != nil {
		return nil, err
	}
	return sizing.Fit(a.IntrinsicWidth, a.IntrinsicHeight, spec)
}

type imageDataURLInfoArgs struct {
	DataURL string `json:"data_url"`
}

// DataURLInfo is returned by image_data_url_info.
type DataURLInfo struct {
	Type      string `json:"type"`
	Base64    bool   `json:"base64"`
	IsImage   bool   `json:"is_image"`
	SizeBytes int    `json:"size_bytes"`
	RawSize   int    `json:"raw_size"`
	HumanSize string `json:"human_size"`
}

func (s *Server) handleImageDataURLInfo(args json.RawMessage) (interface{}, error) {
	var a imageDataURLInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	u, err := media.ParseDataURL(strings.TrimSpace(a.DataURL))
	if err != nil {
		return nil, err
	}
	return &DataURLInfo{
		Type:      u.Type(),
		Base64:    u.Base64(),
		IsImage:   u.Is("image"),
		SizeBytes: u.Size(),
		RawSize:   u.RawSize(),
		HumanSize: media.HumanBytes(int64(u.Size())),
	}, nil
}

type imageInfoArgs struct {
	Source string `json:"source"`
}

func (s *Server) handleImageInfo(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var b *media.Blob
	if media.IsDataURL(a.Source) {
		u, err := media.ParseDataURL(a.Source)
		if err != nil {
			return nil, err
		}
		if b, err = u.ToBlob(); err != nil {
			return nil, err
		}
	} else {
		var err error
		if b, err = s.loader.Load(ctx, a.Source); err != nil {
			return nil, err
		}
	}
	return imaging.Describe(b)
}
